// Package graphql implements core.Remote and core.Subscribable against a
// hosted GraphQL note service.
//
// Queries and mutations are plain HTTP POSTs. The onCreateNote subscription
// uses the graphql-transport-ws protocol over a websocket.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/aretw0/quill/pkg/core"
	"github.com/aretw0/quill/pkg/metrics"
)

const (
	defaultPageSize   = 100
	maxPages          = 1000
	maxErrorBodyBytes = 512
)

// Config configures a Client.
type Config struct {
	// Endpoint is the HTTP GraphQL endpoint.
	Endpoint string

	// RealtimeEndpoint is the websocket endpoint for subscriptions.
	// Defaults to Endpoint with the scheme switched to ws/wss.
	RealtimeEndpoint string

	// APIKey is sent as the x-api-key header and in the connection_init payload.
	APIKey string

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *slog.Logger

	// PageSize is the listNotes page limit. Zero means 100.
	PageSize int

	// AckTimeout bounds the subscription handshake. Zero means 10s.
	AckTimeout time.Duration
}

// Client talks to the remote note service.
type Client struct {
	endpoint    string
	realtimeURL string
	apiKey      string
	httpClient  *http.Client
	dialer      *websocket.Dialer
	logger      *slog.Logger
	pageSize    int
	ackTimeout  time.Duration

	requests      atomic.Int64
	failures      atomic.Int64
	subscriptions atomic.Int64
}

// NewClient validates the configuration and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("graphql endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid graphql endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid graphql endpoint scheme %q", u.Scheme)
	}

	realtime := strings.TrimSpace(cfg.RealtimeEndpoint)
	if realtime == "" {
		realtime = realtimeFromEndpoint(u)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	ackTimeout := cfg.AckTimeout
	if ackTimeout <= 0 {
		ackTimeout = 10 * time.Second
	}

	return &Client{
		endpoint:    endpoint,
		realtimeURL: realtime,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		httpClient:  httpClient,
		dialer:      dialer,
		logger:      logger,
		pageSize:    pageSize,
		ackTimeout:  ackTimeout,
	}, nil
}

func realtimeFromEndpoint(u *url.URL) string {
	rt := *u
	switch u.Scheme {
	case "https":
		rt.Scheme = "wss"
	default:
		rt.Scheme = "ws"
	}
	return rt.String()
}

// ListNotes implements core.Remote. It follows nextToken until the last page.
func (c *Client) ListNotes(ctx context.Context) ([]core.Note, error) {
	var notes []core.Note
	var token *string
	seen := map[string]struct{}{}

	for page := 0; page < maxPages; page++ {
		vars := map[string]any{"limit": c.pageSize}
		if token != nil {
			vars["nextToken"] = *token
		}
		var out struct {
			ListNotes struct {
				Items     []core.Note `json:"items"`
				NextToken *string     `json:"nextToken"`
			} `json:"listNotes"`
		}
		if err := c.do(ctx, core.OpListNotes, opNameListNotes, listNotesQuery, vars, &out); err != nil {
			return nil, err
		}
		notes = append(notes, out.ListNotes.Items...)

		next := out.ListNotes.NextToken
		if next == nil || *next == "" {
			return notes, nil
		}
		if _, dup := seen[*next]; dup {
			return nil, fmt.Errorf("graphql %s: repeated nextToken", core.OpListNotes)
		}
		seen[*next] = struct{}{}
		token = next
	}
	return nil, fmt.Errorf("graphql %s: more than %d pages", core.OpListNotes, maxPages)
}

// CreateNote implements core.Remote.
func (c *Client) CreateNote(ctx context.Context, n core.Note) error {
	vars := map[string]any{"input": n}
	return c.do(ctx, core.OpCreateNote, opNameCreateNote, createNoteMutation, vars, nil)
}

// UpdateNote implements core.Remote.
func (c *Client) UpdateNote(ctx context.Context, in core.UpdateInput) error {
	vars := map[string]any{"input": in}
	return c.do(ctx, core.OpUpdateNote, opNameUpdateNote, updateNoteMutation, vars, nil)
}

// DeleteNote implements core.Remote.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	vars := map[string]any{"input": map[string]string{"id": id}}
	return c.do(ctx, core.OpDeleteNote, opNameDeleteNote, deleteNoteMutation, vars, nil)
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// do posts one GraphQL document and decodes "data" into out.
// There is no retry: a failed call is terminal for that attempt.
func (c *Client) do(ctx context.Context, op, operationName, query string, vars map[string]any, out any) (err error) {
	c.requests.Add(1)
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
			c.failures.Add(1)
		}
		metrics.RemoteRequests.WithLabelValues(op, outcome).Inc()
	}()

	body, err := json.Marshal(request{Query: query, OperationName: operationName, Variables: vars})
	if err != nil {
		return fmt.Errorf("graphql %s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graphql %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql %s: %w", op, err)
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("graphql %s: read response: %w", op, readErr)
	}
	c.logger.Debug("graphql request", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: truncate(strings.TrimSpace(string(payload)), maxErrorBodyBytes)}
	}

	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("graphql %s: decode response: %w", op, err)
	}
	if len(decoded.Errors) > 0 {
		return &ResponseError{Operation: op, Errors: decoded.Errors}
	}
	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("graphql %s: decode data: %w", op, err)
	}
	return nil
}

var _ core.Remote = (*Client)(nil)
var _ core.Subscribable = (*Client)(nil)

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
