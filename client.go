// Package springboardvr provides an authenticated client for the
// SpringboardVR booking GraphQL API and the session lifecycle operations
// built on top of it.
package springboardvr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the SpringboardVR GraphQL endpoint used when no other
// endpoint is configured.
const DefaultEndpoint = "https://api.springboardvr.com/graphql"

const defaultTimeout = 30 * time.Second

const loginMutation = `
mutation ($email: String, $password: String) {
    user: authenticateUser(email: $email, password: $password) {
        token
    }
}`

// Client is an authenticated connection to the SpringboardVR GraphQL API.
// The bearer token obtained at construction is attached to every request
// issued through the client and is never refreshed.
type Client struct {
	httpClient *http.Client
	graphqlURL string
	token      string
	logger     *zap.Logger
	now        func() time.Time

	// Sessions exposes the booking session operations.
	Sessions *SessionAPI
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint. A trailing /graphql is added
// when missing.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.graphqlURL = normalizeURL(url)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP request timeout. Zero or negative values keep
// the default of 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source used by StartSession and PauseSession.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New logs in with the given credentials and returns a Client carrying the
// issued bearer token. If the login response contains GraphQL errors, New
// returns ErrInvalidCredentials and no client.
func New(ctx context.Context, email, password string, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		graphqlURL: DefaultEndpoint,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.login(ctx, email, password); err != nil {
		return nil, err
	}

	c.Sessions = &SessionAPI{client: c}
	return c, nil
}

// loginResponse is the data shape of the authenticateUser mutation.
type loginResponse struct {
	User struct {
		Token string `json:"token"`
	} `json:"user"`
}

func (c *Client) login(ctx context.Context, email, password string) error {
	vars := map[string]any{
		"email":    email,
		"password": password,
	}

	data, err := c.Execute(ctx, loginMutation, vars)
	if err != nil {
		var opErr *OperationError
		if errors.As(err, &opErr) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("springboardvr: login: %w", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("springboardvr: login: parse response: %w", err)
	}
	if resp.User.Token == "" {
		return fmt.Errorf("springboardvr: login: response carried no token")
	}

	c.token = resp.User.Token
	return nil
}

// normalizeURL trims any trailing slash from rawURL and appends /graphql if
// the path does not already end with that suffix.
func normalizeURL(rawURL string) string {
	u := strings.TrimRight(rawURL, "/")
	if !strings.HasSuffix(u, "/graphql") {
		u += "/graphql"
	}
	return u
}

// graphqlRequest is the JSON body shape for a GraphQL HTTP request.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the JSON body shape for a GraphQL HTTP response. Errors
// is kept raw so that a present-but-empty list still counts as a failure.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Execute sends a GraphQL operation to the configured endpoint and returns
// the raw JSON of the "data" field on success. After login the request
// carries the client's bearer token.
//
// Execute returns:
//   - a *TransportError if the request cannot be sent or the server answers
//     with a non-2xx status and no GraphQL errors
//   - an *OperationError if the response body contains an "errors" key
//   - a wrapped decode error if the body is not valid JSON
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	start := time.Now()
	op := operationName(query)

	bodyBytes, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("graphql: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("graphql: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var gqlResp graphqlResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&gqlResp)

	if decodeErr == nil && hasErrors(gqlResp.Errors) {
		return nil, newOperationError(op, gqlResp.Errors)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected HTTP status %d", resp.StatusCode),
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("graphql: decode response: %w", decodeErr)
	}

	c.logger.Debug("graphql operation",
		zap.String("operation", op),
		zap.Duration("duration", time.Since(start)),
	)
	return gqlResp.Data, nil
}

// hasErrors reports whether the raw "errors" value was present and non-null.
func hasErrors(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// operationName extracts the name following "mutation" or "query" in a
// GraphQL document, or returns "anonymous".
func operationName(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		if (f == "mutation" || f == "query") && i+1 < len(fields) {
			name := fields[i+1]
			if idx := strings.IndexAny(name, "({"); idx >= 0 {
				name = name[:idx]
			}
			if name != "" {
				return name
			}
			break
		}
	}
	return "anonymous"
}

func (c *Client) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
