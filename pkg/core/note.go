package core

// Note is the central entity of the domain.
// It represents a to-do item identified by a client-generated ID.
// ClientID records the session that created it and is only used for echo suppression.
type Note struct {
	ID          string `json:"id"`
	ClientID    string `json:"clientId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// UpdateInput is the payload of a remote completion update.
type UpdateInput struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// Form is the draft used to create a note.
type Form struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// Form field names accepted by Store.SetField.
const (
	FieldName        = "name"
	FieldDescription = "description"
)
