package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/core"
	"github.com/aretw0/quill/pkg/live"
)

func closeStore(t *testing.T, store *core.Store) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	})
}

func TestNew_Options(t *testing.T) {
	store, err := quill.New("",
		quill.WithAdapter("memory"),
		quill.WithSession(core.Session{ClientID: "fixed"}),
		quill.WithEventBuffer(5),
		quill.WithHideCompleted(true),
	)
	require.NoError(t, err)
	closeStore(t, store)

	assert.Equal(t, "fixed", store.Session().ClientID)
	assert.True(t, store.HideCompleted())
	state := store.State().(core.StoreState)
	assert.Equal(t, 5, state.EventBufferSize)
	assert.Equal(t, "memory", state.RemoteType)
}

func TestNew_GeneratesSession(t *testing.T) {
	a, err := quill.New("", quill.WithAdapter("memory"))
	require.NoError(t, err)
	closeStore(t, a)
	b, err := quill.New("", quill.WithAdapter("memory"))
	require.NoError(t, err)
	closeStore(t, b)

	assert.NotEmpty(t, a.Session().ClientID)
	assert.NotEqual(t, a.Session().ClientID, b.Session().ClientID)
}

// Two sessions sharing one service: each sees the other's creates once and
// never its own echo.
func TestTwoSessions_LiveSync(t *testing.T) {
	svc := memory.New(nil)
	ctx := context.Background()

	alice, err := quill.New("", quill.WithRemote(svc), quill.WithSession(core.Session{ClientID: "alice"}))
	require.NoError(t, err)
	closeStore(t, alice)
	bob, err := quill.New("", quill.WithRemote(svc), quill.WithSession(core.Session{ClientID: "bob"}))
	require.NoError(t, err)
	closeStore(t, bob)

	for _, s := range []*core.Store{alice, bob} {
		require.NoError(t, s.InitialLoad(ctx))
		w := live.New(s, nil)
		require.NoError(t, w.Start(ctx))
		t.Cleanup(func() { _ = w.Stop(context.Background()) })
	}
	require.Eventually(t, func() bool { return svc.Subscribers() == 2 }, time.Second, 5*time.Millisecond)

	_, err = alice.CreateNote(ctx, core.Form{Name: "From Alice", Description: "a"})
	require.NoError(t, err)
	_, err = bob.CreateNote(ctx, core.Form{Name: "From Bob", Description: "b"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(alice.Notes()) == 2 && len(bob.Notes()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Give late echoes a chance to show up as duplicates.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, alice.Notes(), 2)
	assert.Len(t, bob.Notes(), 2)
	assert.Len(t, svc.Snapshot(), 2)
}

func TestGraphQLStore_RoundTrip(t *testing.T) {
	var mu sync.Mutex
	var ops []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OperationName string `json:"operationName"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		ops = append(ops, req.OperationName)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if req.OperationName == "ListNotes" {
			_, _ = w.Write([]byte(`{"data":{"listNotes":{"items":[{"id":"n1","clientId":"x","name":"Seed","description":"d","completed":false}],"nextToken":null}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	store, err := quill.New(srv.URL, quill.WithAPIKey("k"), quill.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	closeStore(t, store)

	ctx := context.Background()
	require.NoError(t, store.InitialLoad(ctx))
	require.Len(t, store.Notes(), 1)

	_, err = store.ToggleCompleted(ctx, "n1")
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, core.Form{Name: "New", Description: "note"})
	require.NoError(t, err)
	require.NoError(t, store.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "ListNotes", ops[0])
	assert.ElementsMatch(t, []string{"UpdateNote", "CreateNote"}, ops[1:])
}
