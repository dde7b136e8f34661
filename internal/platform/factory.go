package platform

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/quill/pkg/core"
)

// store, err := quill.New("https://example/graphql", quill.WithAPIKey(key))
// The URI argument is adapter-specific (the endpoint for 'graphql').
func New(uri string, opts ...Option) (*core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	remote, err := initRemote(uri, o)
	if err != nil {
		return nil, err
	}

	session := core.NewSession()
	if o.session != nil {
		session = *o.session
	}

	eventBuffer, _ := o.config["event_buffer"].(int)
	hideCompleted, _ := o.config["hide_completed"].(bool)

	if o.logger != nil {
		o.logger.Debug("store created", "adapter", adapterName(remote), "client_id", session.ClientID)
	}

	return core.NewStore(remote, session, core.StoreConfig{
		Logger:        o.logger,
		EventBuffer:   eventBuffer,
		HideCompleted: hideCompleted,
	}), nil
}

func adapterName(remote core.Remote) string {
	if c, ok := remote.(introspection.Component); ok {
		return c.ComponentType()
	}
	return "custom"
}
