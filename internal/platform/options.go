package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/quill/pkg/core"
)

// options holds the internal configuration for a quill store.
type options struct {
	remote  core.Remote
	session *core.Session
	logger  *slog.Logger
	adapter string
	config  map[string]interface{}
}

// Option defines a functional option for configuring quill.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		remote:  nil,
		session: nil,
		logger:  nil,
		adapter: "graphql",
		config:  make(map[string]interface{}),
	}
}

// WithLogger sets the logger for the store and its adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRemote allows injecting a custom note service (e.g. mock, fixture).
// If provided, adapter selection is skipped.
func WithRemote(remote core.Remote) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithAdapter selects the remote adapter by name ("graphql" or "memory").
// Defaults to "graphql".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSession fixes the client session instead of generating one.
func WithSession(session core.Session) Option {
	return func(o *options) {
		o.session = &session
	}
}

// WithAPIKey sets the key sent to the GraphQL service.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.config["api_key"] = key
	}
}

// WithRealtimeEndpoint overrides the websocket endpoint used for live updates.
// By default it is derived from the GraphQL endpoint.
func WithRealtimeEndpoint(url string) Option {
	return func(o *options) {
		o.config["realtime_endpoint"] = url
	}
}

// WithTimeout bounds each GraphQL HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config["timeout"] = d
	}
}

// WithHTTPClient replaces the HTTP client of the GraphQL adapter.
// It takes precedence over WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.config["http_client"] = client
	}
}

// WithPageSize sets the listNotes page limit of the GraphQL adapter.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.config["page_size"] = n
	}
}

// WithEventBuffer allows specifying the size of the store event buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithHideCompleted sets the initial display filter.
func WithHideCompleted(hide bool) Option {
	return func(o *options) {
		o.config["hide_completed"] = hide
	}
}
