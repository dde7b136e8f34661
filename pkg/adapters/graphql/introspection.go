package graphql

import (
	"github.com/aretw0/introspection"
)

// ClientState exposes internal state for observability.
type ClientState struct {
	Endpoint            string `json:"endpoint"`
	RealtimeEndpoint    string `json:"realtime_endpoint"`
	Authenticated       bool   `json:"authenticated"`
	Requests            int64  `json:"requests"`
	Failures            int64  `json:"failures"`
	ActiveSubscriptions int64  `json:"active_subscriptions"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return ClientState{
		Endpoint:            c.endpoint,
		RealtimeEndpoint:    c.realtimeURL,
		Authenticated:       c.apiKey != "",
		Requests:            c.requests.Load(),
		Failures:            c.failures.Load(),
		ActiveSubscriptions: c.subscriptions.Load(),
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "graphql"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
