package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/internal/config"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/core"
	"github.com/aretw0/quill/pkg/live"
	"github.com/aretw0/quill/pkg/tui"
)

var tuiPeerEvery time.Duration

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal UI",
	Long: `Tui opens an interactive list of notes with a form to add new ones.
Logs still go to stderr; redirect them (2>quill.log) to keep the screen clean.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
			return errors.New("tui requires an interactive terminal")
		}
		if tuiPeerEvery > 0 && cfg.Adapter != config.AdapterMemory {
			return errors.New("--peer-every needs --adapter memory")
		}

		var extra []quill.Option
		var svc *memory.Service
		if cfg.Adapter == config.AdapterMemory {
			svc = memory.New(slog.Default())
			extra = append(extra, quill.WithRemote(svc))
		}

		store, err := quill.New(cfg.Endpoint, storeOptions(extra...)...)
		if err != nil {
			return fmt.Errorf("initializing quill: %w", err)
		}
		defer closeStore(store)

		g, gCtx := errgroup.WithContext(cmd.Context())

		w := live.New(store, slog.Default())
		if err := w.Start(gCtx); err != nil {
			if !errors.Is(err, core.ErrLiveUnsupported) {
				return err
			}
			slog.Warn("live updates disabled", "error", err)
			w = nil
		}

		p := tea.NewProgram(tui.New(gCtx, store), tea.WithAltScreen(), tea.WithContext(gCtx))
		g.Go(func() error {
			_, err := p.Run()
			if w != nil {
				stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = w.Stop(stopCtx)
			}
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return errStop(err)
		})

		if svc != nil && tuiPeerEvery > 0 {
			g.Go(func() error {
				return simulatePeer(gCtx, svc, tuiPeerEvery)
			})
		}

		err = g.Wait()
		if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var errQuit = errors.New("quit")

// errStop turns a clean program exit into errQuit so the group unwinds.
func errStop(err error) error {
	if err == nil {
		return errQuit
	}
	return err
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// simulatePeer creates a note as another client every interval, exercising the
// live path without a second process.
func simulatePeer(ctx context.Context, svc *memory.Service, every time.Duration) error {
	peer := core.NewSession()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for i := 1; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n := core.Note{
				ID:          uuid.NewString(),
				ClientID:    peer.ClientID,
				Name:        fmt.Sprintf("peer note %d", i),
				Description: "created by a simulated peer",
			}
			if err := svc.CreateNote(ctx, n); err != nil && ctx.Err() == nil {
				slog.Warn("simulated peer failed", "error", err)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().DurationVar(&tuiPeerEvery, "peer-every", 0, "With the memory adapter, create a peer note at this interval")
}
