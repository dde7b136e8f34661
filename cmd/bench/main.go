package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/core"
)

// bench measures how long local mutations take to return compared with the
// time the remote needs to absorb them.
func main() {
	count := flag.Int("count", 1000, "Number of notes to create")
	latency := flag.Duration("latency", 20*time.Millisecond, "Simulated remote round trip")
	verbose := flag.Bool("v", false, "Log failed mutations")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	svc := memory.New(logger)
	svc.SetLatency(*latency)

	store, err := quill.New("", quill.WithRemote(svc), quill.WithLogger(logger), quill.WithEventBuffer(*count*2))
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	defer store.Close(ctx)

	if err := store.InitialLoad(ctx); err != nil {
		panic(err)
	}

	// Run 1: creates
	fmt.Printf("Creating %d notes (remote latency %v)...\n", *count, *latency)
	start := time.Now()
	ids := make([]string, 0, *count)
	for i := 0; i < *count; i++ {
		n, err := store.CreateNote(ctx, core.Form{
			Name:        fmt.Sprintf("Note %d", i),
			Description: "benchmark",
		})
		if err != nil {
			panic(err)
		}
		ids = append(ids, n.ID)
	}
	local := time.Since(start)
	if err := store.Drain(ctx); err != nil {
		panic(err)
	}
	fmt.Printf("Create: local %v, remote settled after %v\n", local, time.Since(start))

	// Run 2: toggles
	start = time.Now()
	for _, id := range ids {
		if _, err := store.ToggleCompleted(ctx, id); err != nil {
			panic(err)
		}
	}
	local = time.Since(start)
	if err := store.Drain(ctx); err != nil {
		panic(err)
	}
	fmt.Printf("Toggle: local %v, remote settled after %v\n", local, time.Since(start))

	fmt.Printf("Remote holds %d notes, store holds %d\n", len(svc.Snapshot()), len(store.Notes()))
}
