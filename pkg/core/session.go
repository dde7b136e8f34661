package core

import "github.com/google/uuid"

// Session identifies one running client instance.
// It is created once at process start and handed to the Store explicitly.
type Session struct {
	ClientID string
}

// NewSession returns a Session with a freshly generated ClientID.
func NewSession() Session {
	return Session{ClientID: uuid.NewString()}
}
