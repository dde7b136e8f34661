package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aretw0/quill/pkg/metrics"
)

const defaultEventBuffer = 100

var formValidate = validator.New()

// StoreConfig configures a Store.
type StoreConfig struct {
	Logger *slog.Logger

	// EventBuffer is the capacity of the Events channel. Zero means 100.
	EventBuffer int

	// HideCompleted sets the initial value of the display filter.
	HideCompleted bool
}

// Store holds the ordered note list of one client session.
// Local mutations are applied immediately and pushed to the remote in the
// background, one at a time and in the order they were made. Failed pushes
// are logged and never rolled back.
type Store struct {
	remote  Remote
	session Session
	logger  *slog.Logger

	mu            sync.RWMutex
	notes         []Note
	loading       bool
	loaded        bool
	lastError     bool
	form          Form
	hideCompleted bool
	closed        bool

	events          chan Event
	eventBufferSize int

	// queue holds remote pushes in the order their local mutations happened.
	// A single pump goroutine drains it while pumping is set.
	queue   []push
	pumping bool
	pending int
	idle    chan struct{}
}

type push struct {
	ctx  context.Context
	op   string
	id   string
	call func(context.Context) error
}

// NewStore creates a Store bound to a remote and a session.
func NewStore(remote Remote, session Session, cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := cfg.EventBuffer
	if size <= 0 {
		size = defaultEventBuffer
	}
	idle := make(chan struct{})
	close(idle)
	return &Store{
		remote:          remote,
		session:         session,
		logger:          logger,
		loading:         true,
		hideCompleted:   cfg.HideCompleted,
		events:          make(chan Event, size),
		eventBufferSize: size,
		idle:            idle,
	}
}

// Session returns the session the store tags its notes with.
func (s *Store) Session() Session {
	return s.session
}

// InitialLoad replaces the note list with the remote one.
// It runs once; later calls return ErrAlreadyLoaded. A failure sets the
// error flag and is not retried.
func (s *Store) InitialLoad(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loaded {
		s.mu.Unlock()
		return ErrAlreadyLoaded
	}
	s.loaded = true
	s.mu.Unlock()

	notes, err := s.remote.ListNotes(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastError = true
		s.logger.Error("failed to load notes", "error", err)
		s.publish(EventLoadError, "", OriginRemote)
		return fmt.Errorf("load notes: %w", err)
	}
	s.notes = slices.Clone(notes)
	s.logger.Debug("notes loaded", "count", len(notes))
	s.publish(EventLoad, "", OriginRemote)
	return nil
}

// CreateNote validates the form, prepends a new note and clears the draft.
// The remote create runs in the background.
func (s *Store) CreateNote(ctx context.Context, form Form) (Note, error) {
	if err := validateForm(form); err != nil {
		s.logger.Debug("create rejected", "error", err)
		return Note{}, err
	}

	note := Note{
		ID:          uuid.NewString(),
		ClientID:    s.session.ClientID,
		Name:        form.Name,
		Description: form.Description,
		Completed:   false,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Note{}, ErrClosed
	}
	s.notes = append([]Note{note}, s.notes...)
	s.form = Form{}
	s.publish(EventCreate, note.ID, OriginLocal)
	s.enqueue(ctx, OpCreateNote, note.ID, func(ctx context.Context) error {
		return s.remote.CreateNote(ctx, note)
	})
	s.mu.Unlock()
	return note, nil
}

// Submit creates a note from the current draft form.
func (s *Store) Submit(ctx context.Context) (Note, error) {
	return s.CreateNote(ctx, s.Form())
}

// ToggleCompleted flips the completion flag of the note with the given ID.
// An unknown ID returns ErrNoteNotFound and changes nothing.
func (s *Store) ToggleCompleted(ctx context.Context, id string) (Note, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Note{}, ErrClosed
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Note{}, fmt.Errorf("toggle %s: %w", id, ErrNoteNotFound)
	}
	s.notes[idx].Completed = !s.notes[idx].Completed
	note := s.notes[idx]
	s.publish(EventModify, id, OriginLocal)
	in := UpdateInput{ID: note.ID, Completed: note.Completed}
	s.enqueue(ctx, OpUpdateNote, id, func(ctx context.Context) error {
		return s.remote.UpdateNote(ctx, in)
	})
	s.mu.Unlock()
	return note, nil
}

// DeleteNote removes the note with the given ID, keeping the order of the rest.
// An unknown ID returns ErrNoteNotFound and changes nothing.
func (s *Store) DeleteNote(ctx context.Context, id string) (Note, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Note{}, ErrClosed
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Note{}, fmt.Errorf("delete %s: %w", id, ErrNoteNotFound)
	}
	note := s.notes[idx]
	s.notes = slices.Delete(s.notes, idx, idx+1)
	s.publish(EventDelete, id, OriginLocal)
	s.enqueue(ctx, OpDeleteNote, id, func(ctx context.Context) error {
		return s.remote.DeleteNote(ctx, id)
	})
	s.mu.Unlock()
	return note, nil
}

// OnRemoteNoteCreated merges a note pushed by the live channel.
// Notes created by this session are echoes of optimistic inserts and are
// discarded. It reports whether the list changed.
//
// There is no de-duplication by ID: a note delivered twice is inserted twice.
func (s *Store) OnRemoteNoteCreated(note Note) bool {
	if note.ClientID == s.session.ClientID {
		metrics.LiveEvents.WithLabelValues(metrics.OutcomeSuppressed).Inc()
		s.logger.Debug("ignoring echo of local create", "id", note.ID)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.notes = append([]Note{note}, s.notes...)
	metrics.LiveEvents.WithLabelValues(metrics.OutcomeApplied).Inc()
	s.publish(EventCreate, note.ID, OriginRemote)
	return true
}

// ToggleHideCompleted flips the display filter and returns its new value.
func (s *Store) ToggleHideCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hideCompleted = !s.hideCompleted
	s.publish(EventFilter, "", OriginLocal)
	return s.hideCompleted
}

// SetField edits one field of the draft form.
func (s *Store) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case FieldName:
		s.form.Name = value
	case FieldDescription:
		s.form.Description = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	s.publish(EventForm, "", OriginLocal)
	return nil
}

// Notes returns a copy of the full note list.
func (s *Store) Notes() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notes)
}

// Visible returns the notes to render, skipping completed ones when the
// filter is on.
func (s *Store) Visible() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hideCompleted {
		return slices.Clone(s.notes)
	}
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		if n.Completed {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Form returns the current draft.
func (s *Store) Form() Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}

// Loading reports whether the initial load is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError reports whether the initial load failed.
func (s *Store) LastError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// HideCompleted reports the display filter.
func (s *Store) HideCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hideCompleted
}

// Events returns the channel of state changes. It is closed by Close.
func (s *Store) Events() <-chan Event {
	return s.events
}

// Subscribe opens the remote live-update channel if the remote supports it.
func (s *Store) Subscribe(ctx context.Context) (Subscription, error) {
	sub, ok := s.remote.(Subscribable)
	if !ok {
		return nil, ErrLiveUnsupported
	}
	return sub.SubscribeNoteCreated(ctx)
}

// Drain waits until every mutation dispatched so far has reached the remote
// (or failed).
func (s *Store) Drain(ctx context.Context) error {
	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further mutations, drains in-flight ones and closes Events.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	idle := s.idle
	s.mu.Unlock()

	var err error
	select {
	case <-idle:
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
	return err
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n Note) bool { return n.ID == id })
}

// publish must be called with s.mu held. It never blocks.
func (s *Store) publish(t EventType, id string, origin Origin) {
	if s.closed {
		return
	}
	e := Event{Type: t, ID: id, Origin: origin, Timestamp: time.Now().Unix()}
	select {
	case s.events <- e:
	default:
		s.logger.Warn("event buffer full, dropping event", "event", e.String())
	}
}

func (s *Store) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// enqueue queues a push to the remote without blocking the caller and starts
// the pump if it is idle. It must be called with s.mu held, in the same
// critical section as the local mutation, so pushes keep the local order.
// The caller's cancellation does not abort the push.
func (s *Store) enqueue(ctx context.Context, op, id string, call func(context.Context) error) {
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
	metrics.InFlight.Inc()

	s.queue = append(s.queue, push{ctx: context.WithoutCancel(ctx), op: op, id: id, call: call})
	if s.pumping {
		return
	}
	s.pumping = true
	lifecycle.Go(context.WithoutCancel(ctx), func(context.Context) error {
		s.pump()
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("remote push loop failed", "error", err)
	}))
}

// pump sends queued pushes one at a time until the queue is empty.
func (s *Store) pump() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.pumping = false
			s.mu.Unlock()
			return
		}
		p := s.queue[0]
		s.queue[0] = push{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.send(p)
	}
}

func (s *Store) send(p push) {
	defer s.finish()
	defer metrics.InFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			metrics.Mutations.WithLabelValues(p.op, metrics.OutcomeFailure).Inc()
			s.logger.Error("remote mutation panic", "op", p.op, "id", p.id, "panic", r)
		}
	}()

	if err := p.call(p.ctx); err != nil {
		metrics.Mutations.WithLabelValues(p.op, metrics.OutcomeFailure).Inc()
		s.logger.Error("remote mutation failed", "op", p.op, "id", p.id, "error", err)
		return
	}
	metrics.Mutations.WithLabelValues(p.op, metrics.OutcomeSuccess).Inc()
	s.logger.Debug("remote mutation applied", "op", p.op, "id", p.id)
}

func validateForm(f Form) error {
	err := formValidate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return &ValidationError{Fields: fields}
	}
	return err
}
