package platform

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/quill/pkg/adapters/graphql"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/core"
)

// Init builds the remote note service selected by the options.
// The 'uri' argument is adapter-specific (the GraphQL endpoint for 'graphql',
// ignored by 'memory').
func Init(uri string, opts ...Option) (core.Remote, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initRemote(uri, o)
}

func initRemote(uri string, o *options) (core.Remote, error) {
	if o.remote != nil {
		return o.remote, nil
	}

	switch o.adapter {
	case "graphql":
		return initGraphQL(uri, o)
	case "memory":
		return memory.New(o.logger), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// initGraphQL handles the configuration of the GraphQL adapter.
func initGraphQL(endpoint string, o *options) (core.Remote, error) {
	apiKey, _ := o.config["api_key"].(string)
	realtime, _ := o.config["realtime_endpoint"].(string)
	pageSize, _ := o.config["page_size"].(int)
	httpClient, _ := o.config["http_client"].(*http.Client)

	if httpClient == nil {
		if timeout, ok := o.config["timeout"].(time.Duration); ok && timeout > 0 {
			httpClient = &http.Client{Timeout: timeout}
		}
	}

	if apiKey == "" && o.logger != nil {
		o.logger.Warn("no api key configured, requests are unauthenticated", "endpoint", endpoint)
	}

	client, err := graphql.NewClient(graphql.Config{
		Endpoint:         endpoint,
		RealtimeEndpoint: realtime,
		APIKey:           apiKey,
		HTTPClient:       httpClient,
		Logger:           o.logger,
		PageSize:         pageSize,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
