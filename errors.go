package springboardvr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCredentials is returned by New when the login mutation is
// rejected. It is terminal: retrying with the same credentials will not
// succeed.
var ErrInvalidCredentials = errors.New("springboardvr: invalid credentials")

// GraphQLError represents a single error returned in a GraphQL response.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Location is a position in the GraphQL document an error refers to.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// OperationError is returned when a GraphQL response carries an "errors"
// key. The remote service gives no structured discriminator, so validation,
// permission and server faults all surface as OperationError; Raw holds the
// payload verbatim for callers that need to inspect it.
type OperationError struct {
	Operation string
	Errors    []GraphQLError
	Raw       json.RawMessage
}

func newOperationError(op string, raw json.RawMessage) *OperationError {
	e := &OperationError{
		Operation: op,
		Raw:       append(json.RawMessage(nil), raw...),
	}
	// Payloads that are not a list of error objects are still kept in Raw.
	_ = json.Unmarshal(raw, &e.Errors)
	return e
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("graphql: %s: %s", e.Operation, string(e.Raw))
	}
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
	}
	return fmt.Sprintf("graphql: %s: %s", e.Operation, strings.Join(msgs, "; "))
}

// TransportError is returned when the request could not be completed at the
// HTTP level. StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("graphql: transport: HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("graphql: transport: %v", e.Err)
}

// Unwrap provides compatibility for errors.Is and errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
