// Package live feeds notes pushed by the remote subscription into a Store.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/quill/pkg/core"
)

// ErrSubscriptionClosed is returned when the remote ends the stream without a cause.
var ErrSubscriptionClosed = errors.New("live subscription closed")

// Worker consumes the onCreateNote subscription and applies each note to the
// store, which drops echoes of this session's own creates.
// A lost subscription is not reopened.
type Worker struct {
	*worker.BaseWorker
	store  *core.Store
	logger *slog.Logger

	sub    core.Subscription
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error

	applied    atomic.Int64
	suppressed atomic.Int64
}

// New creates a Worker for store. It does nothing until Start.
func New(store *core.Store, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		BaseWorker: worker.NewBaseWorker("live-notes"),
		store:      store,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start opens the subscription and begins applying notes.
func (w *Worker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("live worker already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub, err := w.store.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe: %w", err)
	}
	w.sub = sub
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	w.logger.Info("live updates started")
	return w.StartFunc(runCtx, w.run)
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *Worker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"applied":           fmt.Sprint(w.applied.Load()),
			"suppressed":        fmt.Sprint(w.suppressed.Load()),
		}
	})
}

// Done is closed when the loop started by Start returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err reports why the loop ended. Nil after Stop or context cancellation.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Applied counts peer notes merged into the store.
func (w *Worker) Applied() int64 { return w.applied.Load() }

// Suppressed counts echoes of this session's own creates.
func (w *Worker) Suppressed() int64 { return w.suppressed.Load() }

func (w *Worker) run(ctx context.Context) (err error) {
	defer close(w.done)
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("live worker panic: %v", recovered)
			if w.logger.Enabled(ctx, slog.LevelDebug) {
				w.logger.Error("live worker panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.logger.Error("live worker panic", "error", err)
			}
		}
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}()
	defer func() { _ = w.sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case note, ok := <-w.sub.Notes():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				cause := w.sub.Err()
				if cause == nil {
					cause = ErrSubscriptionClosed
				}
				w.logger.Error("live updates lost", "error", cause)
				return cause
			}
			w.apply(note)
		}
	}
}

func (w *Worker) apply(note core.Note) {
	if w.store.OnRemoteNoteCreated(note) {
		w.applied.Add(1)
		w.logger.Debug("remote note applied", "id", note.ID, "client_id", note.ClientID)
		return
	}
	if note.ClientID == w.store.Session().ClientID {
		w.suppressed.Add(1)
		return
	}
	w.logger.Debug("remote note dropped, store closed", "id", note.ID)
}
