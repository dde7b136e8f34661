package core

import "fmt"

// EventType represents the kind of change applied to the store.
type EventType string

const (
	EventLoad      EventType = "LOAD"
	EventLoadError EventType = "LOAD_ERROR"
	EventCreate    EventType = "CREATE"
	EventModify    EventType = "MODIFY"
	EventDelete    EventType = "DELETE"
	EventFilter    EventType = "FILTER"
	EventForm      EventType = "FORM"
)

// Origin tells whether a change was made by this session or received from a peer.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	ID        string
	Origin    Origin
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	if e.ID == "" {
		return fmt.Sprintf("%s (%s)", e.Type, e.Origin)
	}
	return fmt.Sprintf("%s %s (%s)", e.Type, e.ID, e.Origin)
}
