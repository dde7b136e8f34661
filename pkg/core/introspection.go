package core

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	ClientID         string `json:"client_id"`
	Notes            int    `json:"notes"`
	Loading          bool   `json:"loading"`
	LastError        bool   `json:"last_error"`
	HideCompleted    bool   `json:"hide_completed"`
	PendingMutations int    `json:"pending_mutations"`
	EventBufferSize  int    `json:"event_buffer_size"`
	RemoteType       string `json:"remote_type"`
	Closed           bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	remoteType := "unknown"
	if s.remote != nil {
		remoteType = "remote"
		if comp, ok := s.remote.(introspection.Component); ok {
			remoteType = comp.ComponentType()
		}
	}

	return StoreState{
		ClientID:         s.session.ClientID,
		Notes:            len(s.notes),
		Loading:          s.loading,
		LastError:        s.lastError,
		HideCompleted:    s.hideCompleted,
		PendingMutations: s.pending,
		EventBufferSize:  s.eventBufferSize,
		RemoteType:       remoteType,
		Closed:           s.closed,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
