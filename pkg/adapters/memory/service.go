// Package memory provides an in-process note service.
//
// It implements core.Remote and core.Subscribable and behaves like the hosted
// service: every created note is pushed to all open subscriptions, including
// the one of the client that created it. It backs tests and offline demos.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/quill/pkg/core"
)

// Common errors.
var (
	ErrNotFound  = errors.New("note not found")
	ErrDuplicate = errors.New("note already exists")
)

const subscriptionBuffer = 64

// Service is an in-memory note service. The zero value is not usable; use New.
type Service struct {
	mu       sync.Mutex
	notes    []core.Note
	failures map[string][]error
	calls    map[string]int
	subs     map[*subscription]struct{}
	latency  time.Duration
	logger   *slog.Logger
}

// New creates an empty Service.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		failures: make(map[string][]error),
		calls:    make(map[string]int),
		subs:     make(map[*subscription]struct{}),
		logger:   logger,
	}
}

// Seed stores notes without notifying subscribers, newest first.
func (s *Service) Seed(notes ...core.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(slices.Clone(notes), s.notes...)
}

// FailNext makes the next call of op return err.
// Calls queue up: FailNext twice fails the next two calls.
func (s *Service) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// SetLatency delays every call by d before it touches state, like a network
// round trip would.
func (s *Service) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Calls returns how many times op was invoked, failed calls included.
func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Snapshot returns the stored notes, newest first.
func (s *Service) Snapshot() []core.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

// Subscribers returns the number of open subscriptions.
func (s *Service) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ListNotes implements core.Remote.
func (s *Service) ListNotes(ctx context.Context) ([]core.Note, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, core.OpListNotes); err != nil {
		return nil, err
	}
	return slices.Clone(s.notes), nil
}

// CreateNote implements core.Remote and broadcasts the note.
func (s *Service) CreateNote(ctx context.Context, n core.Note) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, core.OpCreateNote); err != nil {
		return err
	}
	if s.indexOf(n.ID) >= 0 {
		return fmt.Errorf("create %s: %w", n.ID, ErrDuplicate)
	}
	s.notes = append([]core.Note{n}, s.notes...)
	for sub := range s.subs {
		select {
		case sub.ch <- n:
		default:
			s.logger.Warn("subscriber too slow, dropping note", "id", n.ID)
		}
	}
	return nil
}

// UpdateNote implements core.Remote.
func (s *Service) UpdateNote(ctx context.Context, in core.UpdateInput) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, core.OpUpdateNote); err != nil {
		return err
	}
	idx := s.indexOf(in.ID)
	if idx < 0 {
		return fmt.Errorf("update %s: %w", in.ID, ErrNotFound)
	}
	s.notes[idx].Completed = in.Completed
	return nil
}

// DeleteNote implements core.Remote.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, core.OpDeleteNote); err != nil {
		return err
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	s.notes = slices.Delete(s.notes, idx, idx+1)
	return nil
}

// SubscribeNoteCreated implements core.Subscribable.
// The subscription ends when ctx is cancelled or Close is called.
func (s *Service) SubscribeNoteCreated(ctx context.Context) (core.Subscription, error) {
	s.mu.Lock()
	if err := s.enter(ctx, core.OpOnCreateNote); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sub := &subscription{
		svc:  s,
		ch:   make(chan core.Note, subscriptionBuffer),
		done: make(chan struct{}),
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.end(ctx.Err())
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (s *Service) delay(ctx context.Context) error {
	s.mu.Lock()
	d := s.latency
	s.mu.Unlock()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enter must be called with s.mu held.
func (s *Service) enter(ctx context.Context, op string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if queued := s.failures[op]; len(queued) > 0 {
		s.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (s *Service) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n core.Note) bool { return n.ID == id })
}

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Notes       int            `json:"notes"`
	Subscribers int            `json:"subscribers"`
	Latency     time.Duration  `json:"latency"`
	Calls       map[string]int `json:"calls"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make(map[string]int, len(s.calls))
	for op, n := range s.calls {
		calls[op] = n
	}
	return ServiceState{
		Notes:       len(s.notes),
		Subscribers: len(s.subs),
		Latency:     s.latency,
		Calls:       calls,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "memory"
}

var _ core.Remote = (*Service)(nil)
var _ core.Subscribable = (*Service)(nil)
var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)

type subscription struct {
	svc  *Service
	ch   chan core.Note
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) Notes() <-chan core.Note {
	return s.ch
}

func (s *subscription) Err() error {
	s.svc.mu.Lock()
	defer s.svc.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.end(nil)
	return nil
}

func (s *subscription) end(cause error) {
	s.once.Do(func() {
		s.svc.mu.Lock()
		defer s.svc.mu.Unlock()
		delete(s.svc.subs, s)
		s.err = cause
		close(s.ch)
		close(s.done)
	})
}
