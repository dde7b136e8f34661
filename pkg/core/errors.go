package core

import (
	"errors"
	"strings"
)

// Common errors.
var (
	ErrValidation      = errors.New("please enter a name and description")
	ErrNoteNotFound    = errors.New("note not found")
	ErrAlreadyLoaded   = errors.New("notes already loaded")
	ErrLiveUnsupported = errors.New("remote does not support live updates")
	ErrClosed          = errors.New("store is closed")
	ErrUnknownField    = errors.New("unknown form field")
)

// ValidationError lists the draft fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + " (missing: " + strings.Join(e.Fields, ", ") + ")"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
