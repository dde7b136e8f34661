package graphql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSubscriptionCompleted is reported by Subscription.Err when the server
// ended the stream.
var ErrSubscriptionCompleted = errors.New("subscription completed by server")

// HTTPError is returned when the service answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Error is one entry of a GraphQL "errors" array.
type Error struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
	Path      []any  `json:"path,omitempty"`
}

// ResponseError is returned when a response carries GraphQL errors.
type ResponseError struct {
	Operation string
	Errors    []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, gqlErr := range e.Errors {
		if gqlErr.ErrorType != "" {
			msgs = append(msgs, gqlErr.ErrorType+": "+gqlErr.Message)
			continue
		}
		msgs = append(msgs, gqlErr.Message)
	}
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(msgs, "; "))
}
