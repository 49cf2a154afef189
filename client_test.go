package springboardvr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// recordedRequest is one GraphQL request received by the fake API.
type recordedRequest struct {
	Header    http.Header
	Query     string
	Variables map[string]any
}

// fakeAPI is an httptest server that answers GraphQL requests from a queue
// of canned bodies and records everything it receives. The first entry
// answers the login mutation.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	responses []string
	status    int
	requests  []recordedRequest
}

const loginOK = `{"data":{"user":{"token":"tok-123"}}}`

func newFakeAPI(t *testing.T, responses ...string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, responses: responses, status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "failed to parse body", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Header:    r.Header.Clone(),
		Query:     req.Query,
		Variables: req.Variables,
	})
	resp := `{"data":{}}`
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// newTestClient logs in against f and fails the test on error.
func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithEndpoint(f.srv.URL)}, opts...)
	c, err := New(context.Background(), "ops@venue.test", "secret", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// normalizeURL tests
// ---------------------------------------------------------------------------

func Test_normalizeURL_Cases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare host", input: "https://api.springboardvr.com", want: "https://api.springboardvr.com/graphql"},
		{name: "trailing slash", input: "https://api.springboardvr.com/", want: "https://api.springboardvr.com/graphql"},
		{name: "already has suffix", input: "https://api.springboardvr.com/graphql", want: "https://api.springboardvr.com/graphql"},
		{name: "suffix with trailing slash", input: "https://api.springboardvr.com/graphql/", want: "https://api.springboardvr.com/graphql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeURL(tt.input); got != tt.want {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func Test_operationName_Cases(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "named mutation", query: storeBookingMutation, want: "storeBooking"},
		{name: "named without space", query: "mutation deleteBooking($booking: BookingInput) { x }", want: "deleteBooking"},
		{name: "anonymous mutation", query: loginMutation, want: "anonymous"},
		{name: "shorthand query", query: "{ me { id } }", want: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := operationName(tt.query); got != tt.want {
				t.Errorf("operationName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// New (login) tests
// ---------------------------------------------------------------------------

func Test_New_LoginSendsCredentialsOnce(t *testing.T) {
	f := newFakeAPI(t, loginOK)
	newTestClient(t, f)

	reqs := f.recorded()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want exactly 1 login request", len(reqs))
	}
	if !strings.Contains(reqs[0].Query, "authenticateUser") {
		t.Errorf("login query = %q, want it to call authenticateUser", reqs[0].Query)
	}
	if reqs[0].Variables["email"] != "ops@venue.test" {
		t.Errorf("email = %v, want %q", reqs[0].Variables["email"], "ops@venue.test")
	}
	if reqs[0].Variables["password"] != "secret" {
		t.Errorf("password = %v, want %q", reqs[0].Variables["password"], "secret")
	}
	if h := reqs[0].Header.Get("Authorization"); h != "" {
		t.Errorf("login request carried Authorization %q, want none", h)
	}
}

func Test_New_TokenAttachedToLaterRequests(t *testing.T) {
	f := newFakeAPI(t, loginOK, `{"data":{"probe":true}}`)
	c := newTestClient(t, f)

	if _, err := c.Execute(context.Background(), `query probe { probe }`, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	reqs := f.recorded()
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	if got := reqs[1].Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok-123")
	}
	if ct := reqs[1].Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func Test_New_InvalidCredentials(t *testing.T) {
	f := newFakeAPI(t, `{"errors":[{"message":"These credentials do not match our records."}],"data":{"user":null}}`)

	c, err := New(context.Background(), "ops@venue.test", "wrong", WithEndpoint(f.srv.URL))
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if c != nil {
		t.Error("expected nil client on invalid credentials")
	}
}

func Test_New_InvalidCredentialsWithEmptyErrorList(t *testing.T) {
	f := newFakeAPI(t, `{"errors":[]}`)

	_, err := New(context.Background(), "a", "b", WithEndpoint(f.srv.URL))
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func Test_New_InvalidCredentialsNoTokenAttached(t *testing.T) {
	f := newFakeAPI(t, `{"errors":[{"message":"nope"}]}`)

	c := &Client{httpClient: http.DefaultClient, graphqlURL: f.srv.URL, logger: zap.NewNop()}
	if err := c.login(context.Background(), "a", "b"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("login err = %v, want ErrInvalidCredentials", err)
	}
	if c.token != "" {
		t.Errorf("token = %q after failed login, want empty", c.token)
	}
}

func Test_New_MissingToken(t *testing.T) {
	f := newFakeAPI(t, `{"data":{"user":{"token":""}}}`)

	_, err := New(context.Background(), "a", "b", WithEndpoint(f.srv.URL))
	if err == nil {
		t.Fatal("expected error for missing token, got nil")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("missing token should not be reported as invalid credentials")
	}
}

func Test_New_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(context.Background(), "a", "b", WithEndpoint(url), WithTimeout(2*time.Second))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v (%T), want *TransportError", err, err)
	}
	if te.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for a connection failure", te.StatusCode)
	}
}

// ---------------------------------------------------------------------------
// Execute tests
// ---------------------------------------------------------------------------

func Test_Execute_ReturnsData(t *testing.T) {
	f := newFakeAPI(t, loginOK, `{"data":{"storeBooking":{"id":"b1"}}}`)
	c := newTestClient(t, f)

	data, err := c.Execute(context.Background(), storeBookingMutation, map[string]any{"booking": map[string]any{"id": "b1"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(string(data), `"b1"`) {
		t.Errorf("data = %s, want it to contain b1", data)
	}
}

func Test_Execute_GraphQLErrors(t *testing.T) {
	payload := `[{"message":"Booking not found","path":["storeBooking"]},{"message":"second"}]`
	f := newFakeAPI(t, loginOK, `{"errors":`+payload+`,"data":{"storeBooking":{"id":"should-not-be-read"}}}`)
	c := newTestClient(t, f)

	data, err := c.Execute(context.Background(), storeBookingMutation, nil)
	if data != nil {
		t.Errorf("data = %s, want nil when errors are present", data)
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v (%T), want *OperationError", err, err)
	}
	if opErr.Operation != "storeBooking" {
		t.Errorf("Operation = %q, want storeBooking", opErr.Operation)
	}
	if len(opErr.Errors) != 2 || opErr.Errors[0].Message != "Booking not found" {
		t.Errorf("Errors = %+v, want 2 entries starting with 'Booking not found'", opErr.Errors)
	}
	if string(opErr.Raw) != payload {
		t.Errorf("Raw = %s, want %s", opErr.Raw, payload)
	}
	if !strings.Contains(err.Error(), "Booking not found; second") {
		t.Errorf("error = %q, want joined messages", err.Error())
	}
}

func Test_Execute_NonListErrorsKeptRaw(t *testing.T) {
	f := newFakeAPI(t, loginOK, `{"errors":"boom"}`)
	c := newTestClient(t, f)

	_, err := c.Execute(context.Background(), storeBookingMutation, nil)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v, want *OperationError", err)
	}
	if string(opErr.Raw) != `"boom"` {
		t.Errorf("Raw = %s, want \"boom\"", opErr.Raw)
	}
}

func Test_Execute_NullErrorsIsSuccess(t *testing.T) {
	f := newFakeAPI(t, loginOK, `{"errors":null,"data":{"ok":true}}`)
	c := newTestClient(t, f)

	if _, err := c.Execute(context.Background(), storeBookingMutation, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func Test_Execute_HTTPStatusWithoutErrors(t *testing.T) {
	f := newFakeAPI(t, loginOK, `{"message":"Unauthenticated."}`)
	c := newTestClient(t, f)
	f.mu.Lock()
	f.status = http.StatusUnauthorized
	f.mu.Unlock()

	_, err := c.Execute(context.Background(), storeBookingMutation, nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v (%T), want *TransportError", err, err)
	}
	if te.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", te.StatusCode)
	}
}

func Test_Execute_HTTPStatusWithErrorsIsOperationError(t *testing.T) {
	f := newFakeAPI(t, loginOK, `{"errors":[{"message":"Unauthenticated."}]}`)
	c := newTestClient(t, f)
	f.mu.Lock()
	f.status = http.StatusUnauthorized
	f.mu.Unlock()

	_, err := c.Execute(context.Background(), storeBookingMutation, nil)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v (%T), want *OperationError", err, err)
	}
}

func Test_Execute_MalformedJSON(t *testing.T) {
	f := newFakeAPI(t, loginOK, `not json`)
	c := newTestClient(t, f)

	_, err := c.Execute(context.Background(), storeBookingMutation, nil)
	if err == nil {
		t.Fatal("expected error for malformed body, got nil")
	}
	if !strings.Contains(err.Error(), "decode response") {
		t.Errorf("error = %q, want it to mention decode response", err.Error())
	}
}

func Test_Execute_ContextCancelled(t *testing.T) {
	f := newFakeAPI(t, loginOK)
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, storeBookingMutation, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want it to wrap context.Canceled", err)
	}
}

func Test_New_ClientsAreIndependent(t *testing.T) {
	f1 := newFakeAPI(t, `{"data":{"user":{"token":"one"}}}`, `{"data":{}}`)
	f2 := newFakeAPI(t, `{"data":{"user":{"token":"two"}}}`, `{"data":{}}`)

	c1 := newTestClient(t, f1)
	c2 := newTestClient(t, f2)

	if _, err := c1.Execute(context.Background(), storeBookingMutation, nil); err != nil {
		t.Fatalf("c1 Execute: %v", err)
	}
	if _, err := c2.Execute(context.Background(), storeBookingMutation, nil); err != nil {
		t.Fatalf("c2 Execute: %v", err)
	}

	if got := f1.recorded()[1].Header.Get("Authorization"); got != "Bearer one" {
		t.Errorf("client 1 Authorization = %q, want Bearer one", got)
	}
	if got := f2.recorded()[1].Header.Get("Authorization"); got != "Bearer two" {
		t.Errorf("client 2 Authorization = %q, want Bearer two", got)
	}
}
