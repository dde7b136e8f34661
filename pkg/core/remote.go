package core

import "context"

// Remote defines the contract of the note service backing the store.
// Adhering to this interface keeps the core independent of the transport
// (GraphQL over HTTP, in-memory, etc).
type Remote interface {
	// ListNotes returns every note known to the service.
	ListNotes(ctx context.Context) ([]Note, error)

	// CreateNote persists a note built by the client, including its ID.
	CreateNote(ctx context.Context, n Note) error

	// UpdateNote sets the completion flag of a note.
	UpdateNote(ctx context.Context, in UpdateInput) error

	// DeleteNote removes a note by its ID.
	DeleteNote(ctx context.Context, id string) error
}

// Subscribable defines an interface for remotes that push newly created notes.
// The service delivers every creation to all listeners, including the creator.
type Subscribable interface {
	SubscribeNoteCreated(ctx context.Context) (Subscription, error)
}

// Subscription is a long-lived live-update channel.
type Subscription interface {
	// Notes delivers created notes. It is closed when the subscription ends.
	Notes() <-chan Note

	// Err reports why the channel was closed. Nil after a clean Close.
	Err() error

	// Close releases the underlying connection.
	Close() error
}

// Operation names shared by adapters, logs and metrics.
const (
	OpListNotes    = "listNotes"
	OpCreateNote   = "createNote"
	OpUpdateNote   = "updateNote"
	OpDeleteNote   = "deleteNote"
	OpOnCreateNote = "onCreateNote"
)
