package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	lifecycleadapter "github.com/aretw0/quill/pkg/adapters/lifecycle"
	"github.com/aretw0/quill/pkg/core"
	"github.com/aretw0/quill/pkg/live"
)

var watchMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print notes created by other clients as they arrive",
	Long: `Watch opens the live subscription and prints every note created by another
client. Notes created by this session are suppressed. Stops on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(store)

		w := live.New(store, slog.Default())
		if err := w.Start(ctx); err != nil {
			return err
		}

		g, gCtx := errgroup.WithContext(ctx)

		src := lifecycleadapter.NewSource(store.Events())
		if err := src.Start(gCtx); err != nil {
			return err
		}

		g.Go(func() error {
			select {
			case <-w.Done():
				return w.Err()
			case <-gCtx.Done():
				stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return w.Stop(stopCtx)
			}
		})

		g.Go(func() error {
			for e := range src.Events() {
				ev, ok := e.(core.Event)
				if !ok || ev.Type != core.EventCreate || ev.Origin != core.OriginRemote {
					continue
				}
				if n, found := findNote(store, ev.ID); found {
					fmt.Println(formatNote(n))
				}
			}
			return nil
		})

		if watchMetricsAddr != "" {
			g.Go(func() error {
				return serveMetrics(gCtx, watchMetricsAddr)
			})
		}

		slog.Info("watching for new notes", "client_id", store.Session().ClientID)
		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func findNote(store *core.Store, id string) (core.Note, bool) {
	for _, n := range store.Notes() {
		if n.ID == id {
			return n, true
		}
	}
	return core.Note{}, false
}

// serveMetrics exposes the prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
}
