package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quill/pkg/core"
)

// MockRemote implements core.Remote in memory and records every call.
// It deliberately does NOT implement core.Subscribable.
type MockRemote struct {
	mu        sync.Mutex
	notes     []core.Note
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	created   []core.Note
	updates   []core.UpdateInput
	deleted   []string

	// gate, when set, blocks mutations until closed.
	gate chan struct{}
}

func (m *MockRemote) ListNotes(ctx context.Context) ([]core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]core.Note(nil), m.notes...), nil
}

func (m *MockRemote) CreateNote(ctx context.Context, n core.Note) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, n)
	return m.createErr
}

func (m *MockRemote) UpdateNote(ctx context.Context, in core.UpdateInput) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, in)
	return m.updateErr
}

func (m *MockRemote) DeleteNote(ctx context.Context, id string) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return m.deleteErr
}

func (m *MockRemote) wait() {
	if m.gate != nil {
		<-m.gate
	}
}

func (m *MockRemote) Created() []core.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Note(nil), m.created...)
}

func (m *MockRemote) Updates() []core.UpdateInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.UpdateInput(nil), m.updates...)
}

func (m *MockRemote) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func newStore(t *testing.T, remote core.Remote, clientID string) *core.Store {
	t.Helper()
	store := core.NewStore(remote, core.Session{ClientID: clientID}, core.StoreConfig{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	})
	return store
}

func drain(t *testing.T, store *core.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Drain(ctx))
}

func loadedStore(t *testing.T, remote *MockRemote, notes ...core.Note) *core.Store {
	t.Helper()
	remote.notes = notes
	store := newStore(t, remote, "S1")
	require.NoError(t, store.InitialLoad(context.Background()))
	return store
}

func TestStore_InitialLoad(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		remote := &MockRemote{notes: []core.Note{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}}
		store := newStore(t, remote, "S1")
		assert.True(t, store.Loading())

		require.NoError(t, store.InitialLoad(context.Background()))
		assert.False(t, store.Loading())
		assert.False(t, store.LastError())
		assert.Equal(t, remote.notes, store.Notes())
	})

	t.Run("Failure", func(t *testing.T) {
		remote := &MockRemote{listErr: errors.New("network down")}
		store := newStore(t, remote, "S1")

		err := store.InitialLoad(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "network down")
		assert.False(t, store.Loading())
		assert.True(t, store.LastError())
		assert.Empty(t, store.Notes())
	})

	t.Run("OneShot", func(t *testing.T) {
		remote := &MockRemote{notes: []core.Note{{ID: "a"}}}
		store := newStore(t, remote, "S1")
		require.NoError(t, store.InitialLoad(context.Background()))

		remote.notes = nil
		assert.ErrorIs(t, store.InitialLoad(context.Background()), core.ErrAlreadyLoaded)
		assert.Len(t, store.Notes(), 1)
	})
}

func TestStore_CreateNote(t *testing.T) {
	remote := &MockRemote{}
	store := loadedStore(t, remote)
	ctx := context.Background()

	require.NoError(t, store.SetField(core.FieldName, "A"))
	require.NoError(t, store.SetField(core.FieldDescription, "d"))

	note, err := store.Submit(ctx)
	require.NoError(t, err)

	notes := store.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "A", notes[0].Name)
	assert.Equal(t, "d", notes[0].Description)
	assert.False(t, notes[0].Completed)
	assert.Equal(t, "S1", notes[0].ClientID)
	assert.NotEmpty(t, notes[0].ID)
	assert.Equal(t, note, notes[0])
	assert.Equal(t, core.Form{}, store.Form(), "draft must be reset")

	drain(t, store)
	assert.Equal(t, []core.Note{note}, remote.Created())
}

func TestStore_CreateNote_NewestFirst(t *testing.T) {
	remote := &MockRemote{}
	store := loadedStore(t, remote)
	ctx := context.Background()

	names := []string{"one", "two", "three", "four"}
	for _, name := range names {
		_, err := store.CreateNote(ctx, core.Form{Name: name, Description: "x"})
		require.NoError(t, err)
		assert.Equal(t, name, store.Notes()[0].Name)
	}

	notes := store.Notes()
	require.Len(t, notes, len(names))
	seen := map[string]bool{}
	for i, n := range notes {
		assert.Equal(t, names[len(names)-1-i], n.Name)
		assert.False(t, seen[n.ID], "ids must be unique")
		seen[n.ID] = true
	}
}

func TestStore_CreateNote_Validation(t *testing.T) {
	cases := []struct {
		name   string
		form   core.Form
		fields []string
	}{
		{"EmptyName", core.Form{Description: "d"}, []string{"name"}},
		{"EmptyDescription", core.Form{Name: "A"}, []string{"description"}},
		{"Empty", core.Form{}, []string{"name", "description"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			existing := core.Note{ID: "x", Name: "X", Description: "x"}
			remote := &MockRemote{}
			store := loadedStore(t, remote, existing)
			require.NoError(t, store.SetField(core.FieldName, "draft"))

			_, err := store.CreateNote(context.Background(), tc.form)
			require.ErrorIs(t, err, core.ErrValidation)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.fields, verr.Fields)

			assert.Equal(t, []core.Note{existing}, store.Notes())
			assert.Equal(t, core.Form{Name: "draft"}, store.Form())
			drain(t, store)
			assert.Empty(t, remote.Created())
		})
	}
}

func TestStore_MutationsDoNotWaitForRemote(t *testing.T) {
	remote := &MockRemote{gate: make(chan struct{})}
	store := loadedStore(t, remote)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		note, err := store.CreateNote(ctx, core.Form{Name: "A", Description: "d"})
		assert.NoError(t, err)
		_, err = store.ToggleCompleted(ctx, note.ID)
		assert.NoError(t, err)
		_, err = store.DeleteNote(ctx, note.ID)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("local mutations blocked on the remote")
	}

	state := store.State().(core.StoreState)
	assert.Equal(t, 3, state.PendingMutations)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, store.Drain(short), context.DeadlineExceeded)

	close(remote.gate)
	drain(t, store)
	assert.Len(t, remote.Created(), 1)
	assert.Len(t, remote.Updates(), 1)
	assert.Len(t, remote.Deleted(), 1)
}

func TestStore_CallerCancellationDoesNotAbortPush(t *testing.T) {
	remote := &MockRemote{}
	store := loadedStore(t, remote)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := store.CreateNote(ctx, core.Form{Name: "A", Description: "d"})
	require.NoError(t, err)
	cancel()

	drain(t, store)
	assert.Len(t, remote.Created(), 1)
}

func TestStore_RemoteFailureIsNotRolledBack(t *testing.T) {
	x := core.Note{ID: "x", Name: "X"}
	y := core.Note{ID: "y", Name: "Y"}
	remote := &MockRemote{
		createErr: errors.New("create failed"),
		updateErr: errors.New("update failed"),
		deleteErr: errors.New("delete failed"),
	}
	store := loadedStore(t, remote, x, y)
	ctx := context.Background()

	created, err := store.CreateNote(ctx, core.Form{Name: "A", Description: "d"})
	require.NoError(t, err)
	_, err = store.ToggleCompleted(ctx, "x")
	require.NoError(t, err)
	_, err = store.DeleteNote(ctx, "y")
	require.NoError(t, err)
	drain(t, store)

	notes := store.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, created.ID, notes[0].ID)
	assert.Equal(t, "x", notes[1].ID)
	assert.True(t, notes[1].Completed)
	assert.False(t, store.LastError(), "mutation failures are never surfaced")
}

func TestStore_ToggleCompleted(t *testing.T) {
	x := core.Note{ID: "x", Name: "X"}
	y := core.Note{ID: "y", Name: "Y", Completed: true}
	remote := &MockRemote{}
	store := loadedStore(t, remote, x, y)
	ctx := context.Background()

	toggled, err := store.ToggleCompleted(ctx, "x")
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	xPrime := x
	xPrime.Completed = true
	assert.Equal(t, []core.Note{xPrime, y}, store.Notes())

	_, err = store.ToggleCompleted(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []core.Note{x, y}, store.Notes())

	drain(t, store)
	assert.Equal(t, []core.UpdateInput{
		{ID: "x", Completed: true},
		{ID: "x", Completed: false},
	}, remote.Updates())
}

func TestStore_DeleteNote(t *testing.T) {
	a := core.Note{ID: "a"}
	b := core.Note{ID: "b"}
	c := core.Note{ID: "c"}
	d := core.Note{ID: "d"}
	remote := &MockRemote{}
	store := loadedStore(t, remote, a, b, c, d)

	removed, err := store.DeleteNote(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, b, removed)
	assert.Equal(t, []core.Note{a, c, d}, store.Notes())

	drain(t, store)
	assert.Equal(t, []string{"b"}, remote.Deleted())
}

func TestStore_StaleReference(t *testing.T) {
	a := core.Note{ID: "a"}
	remote := &MockRemote{}
	store := loadedStore(t, remote, a)
	ctx := context.Background()

	_, err := store.ToggleCompleted(ctx, "gone")
	assert.ErrorIs(t, err, core.ErrNoteNotFound)

	_, err = store.DeleteNote(ctx, "gone")
	assert.ErrorIs(t, err, core.ErrNoteNotFound)

	drain(t, store)
	assert.Equal(t, []core.Note{a}, store.Notes())
	assert.Empty(t, remote.Updates())
	assert.Empty(t, remote.Deleted())
}

func TestStore_OnRemoteNoteCreated(t *testing.T) {
	existing := core.Note{ID: "x", ClientID: "S1"}
	store := loadedStore(t, &MockRemote{}, existing)

	// Echo of our own create.
	applied := store.OnRemoteNoteCreated(core.Note{ID: "mine", ClientID: "S1", Name: "echo"})
	assert.False(t, applied)
	assert.Equal(t, []core.Note{existing}, store.Notes())

	peer := core.Note{ID: "peer", ClientID: "S2", Name: "from peer"}
	applied = store.OnRemoteNoteCreated(peer)
	assert.True(t, applied)
	assert.Equal(t, []core.Note{peer, existing}, store.Notes())

	// Known limitation: no de-duplication by id.
	assert.True(t, store.OnRemoteNoteCreated(peer))
	assert.Equal(t, []core.Note{peer, peer, existing}, store.Notes())
}

func TestStore_OwnCreateThenEcho(t *testing.T) {
	store := loadedStore(t, &MockRemote{})

	note, err := store.CreateNote(context.Background(), core.Form{Name: "A", Description: "d"})
	require.NoError(t, err)
	assert.False(t, store.OnRemoteNoteCreated(note))
	assert.Len(t, store.Notes(), 1)
}

func TestStore_HideCompleted(t *testing.T) {
	open := core.Note{ID: "open"}
	done := core.Note{ID: "done", Completed: true}
	remote := &MockRemote{}
	store := loadedStore(t, remote, open, done)

	assert.Equal(t, []core.Note{open, done}, store.Visible())

	assert.True(t, store.ToggleHideCompleted())
	assert.True(t, store.HideCompleted())
	assert.Equal(t, []core.Note{open}, store.Visible())
	assert.Equal(t, []core.Note{open, done}, store.Notes(), "filter must not touch the list")

	assert.False(t, store.ToggleHideCompleted())
	assert.Equal(t, []core.Note{open, done}, store.Visible())

	drain(t, store)
	assert.Empty(t, remote.Updates())
}

func TestStore_SetField_Unknown(t *testing.T) {
	store := newStore(t, &MockRemote{}, "S1")
	err := store.SetField("title", "x")
	assert.ErrorIs(t, err, core.ErrUnknownField)
	assert.Equal(t, core.Form{}, store.Form())
}

func TestStore_Events(t *testing.T) {
	store := loadedStore(t, &MockRemote{})
	ctx := context.Background()

	next := func() core.Event {
		t.Helper()
		select {
		case e := <-store.Events():
			return e
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
			return core.Event{}
		}
	}

	assert.Equal(t, core.EventLoad, next().Type)

	note, err := store.CreateNote(ctx, core.Form{Name: "A", Description: "d"})
	require.NoError(t, err)
	e := next()
	assert.Equal(t, core.EventCreate, e.Type)
	assert.Equal(t, note.ID, e.ID)
	assert.Equal(t, core.OriginLocal, e.Origin)

	store.OnRemoteNoteCreated(core.Note{ID: "p", ClientID: "S2"})
	e = next()
	assert.Equal(t, core.EventCreate, e.Type)
	assert.Equal(t, core.OriginRemote, e.Origin)
	assert.Equal(t, "CREATE p (remote)", e.String())

	store.ToggleHideCompleted()
	assert.Equal(t, core.EventFilter, next().Type)
}

func TestStore_FullEventBufferDoesNotBlock(t *testing.T) {
	remote := &MockRemote{}
	store := core.NewStore(remote, core.Session{ClientID: "S1"}, core.StoreConfig{EventBuffer: 1})
	defer store.Close(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			store.ToggleHideCompleted()
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing blocked on a full buffer")
	}
	assert.Len(t, store.Events(), 1)
}

func TestStore_Close(t *testing.T) {
	remote := &MockRemote{}
	store := core.NewStore(remote, core.Session{ClientID: "S1"}, core.StoreConfig{})
	ctx := context.Background()
	require.NoError(t, store.InitialLoad(ctx))
	_, err := store.CreateNote(ctx, core.Form{Name: "A", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, store.Close(ctx))
	assert.Len(t, remote.Created(), 1, "close drains in-flight mutations")

	_, err = store.CreateNote(ctx, core.Form{Name: "B", Description: "d"})
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.False(t, store.OnRemoteNoteCreated(core.Note{ID: "p", ClientID: "S2"}))

	// Events channel is closed after buffered events are consumed.
	for range store.Events() {
	}
	require.NoError(t, store.Close(ctx), "close is idempotent")
}

func TestStore_Subscribe_Unsupported(t *testing.T) {
	store := newStore(t, &MockRemote{}, "S1")
	_, err := store.Subscribe(context.Background())
	assert.ErrorIs(t, err, core.ErrLiveUnsupported)
}

func TestStore_State(t *testing.T) {
	store := loadedStore(t, &MockRemote{}, core.Note{ID: "a"})
	state, ok := store.State().(core.StoreState)
	require.True(t, ok)
	assert.Equal(t, "S1", state.ClientID)
	assert.Equal(t, 1, state.Notes)
	assert.Equal(t, "remote", state.RemoteType)
	assert.Equal(t, 100, state.EventBufferSize)
	assert.Equal(t, "store", store.ComponentType())
}

func TestNewSession(t *testing.T) {
	a := core.NewSession()
	b := core.NewSession()
	assert.NotEmpty(t, a.ClientID)
	assert.NotEqual(t, a.ClientID, b.ClientID)
}
