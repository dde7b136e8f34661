// Package quill is the Composition Root for the quill note client.
//
// It connects the note store (Domain Layer) with the remote note service
// adapters (GraphQL over HTTP and websocket, or in-memory) using the Hexagonal
// Architecture pattern.
//
// Behaviour:
//
//   - **Optimistic**: create, toggle and delete change local state at once;
//     the remote call runs in the background and a failure is only logged.
//   - **Session tagged**: every note carries the clientId of the session that
//     created it.
//   - **Echo suppression**: the live subscription delivers every creation to
//     every client; notes tagged with the local session are dropped.
//
// Usage:
//
//	store, err := quill.New("https://example.com/graphql",
//		quill.WithAPIKey(key),
//		quill.WithLogger(logger),
//	)
//	if err := store.InitialLoad(ctx); err != nil { ... }
//
//	note, err := store.CreateNote(ctx, quill.Form{Name: "Milk", Description: "2L"})
package quill
