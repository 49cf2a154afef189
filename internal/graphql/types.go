// Package graphql exposes the authenticated SpringboardVR GraphQL endpoint
// as a raw query MCP tool.
package graphql

import (
	"context"
	"encoding/json"
)

// Client defines the interface for executing GraphQL operations. It is
// satisfied by *springboardvr.Client.
type Client interface {
	Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}
