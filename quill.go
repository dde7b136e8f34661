package quill

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/quill/internal/platform"
	"github.com/aretw0/quill/pkg/core"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// Note is a public alias for the domain note.
type Note = core.Note

// Form is a public alias for the draft form.
type Form = core.Form

// Store is a public alias for the note store.
type Store = core.Store

// Session is a public alias for the client session.
type Session = core.Session

// --- Configuration ---

// Option defines a functional option for configuring quill.
type Option = platform.Option

// WithLogger sets the logger for the store and its adapter.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRemote allows injecting a custom note service.
func WithRemote(remote core.Remote) Option {
	return platform.WithRemote(remote)
}

// WithAdapter selects the remote adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSession fixes the client session.
func WithSession(session core.Session) Option {
	return platform.WithSession(session)
}

// WithAPIKey sets the key sent to the GraphQL service.
func WithAPIKey(key string) Option {
	return platform.WithAPIKey(key)
}

// WithRealtimeEndpoint overrides the websocket endpoint used for live updates.
func WithRealtimeEndpoint(url string) Option {
	return platform.WithRealtimeEndpoint(url)
}

// WithTimeout bounds each GraphQL HTTP request.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithHTTPClient replaces the HTTP client of the GraphQL adapter.
func WithHTTPClient(client *http.Client) Option {
	return platform.WithHTTPClient(client)
}

// WithPageSize sets the listNotes page limit.
func WithPageSize(n int) Option {
	return platform.WithPageSize(n)
}

// WithEventBuffer allows specifying the size of the store event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithHideCompleted sets the initial display filter.
func WithHideCompleted(hide bool) Option {
	return platform.WithHideCompleted(hide)
}

// --- Factory ---

// New creates a Store bound to the selected remote and a fresh session.
func New(uri string, opts ...Option) (*core.Store, error) {
	return platform.New(uri, opts...)
}

// Init builds the remote note service explicitly.
func Init(uri string, opts ...Option) (core.Remote, error) {
	return platform.Init(uri, opts...)
}
