package graphql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jamesprial/springboardvr/internal/safety"
	"github.com/jamesprial/springboardvr/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const toolNameGraphQLQuery = "graphql_query"

// DestructiveTools lists tool names in this package that may require
// confirmation before execution.
var DestructiveTools = []string{toolNameGraphQLQuery}

// GraphQLTools returns the tool registrations for the GraphQL escape hatch.
// Queries run immediately; mutations need a confirmation token because they
// bypass the safety checks of the session tools.
func GraphQLTools(client Client, confirm *safety.ConfirmationTracker, rec tools.Recorder) []tools.Registration {
	return []tools.Registration{
		toolGraphQLQuery(client, confirm, rec),
	}
}

// isMutation reports whether any operation in the document is a mutation.
// Comments and string literals are skipped, and only names outside selection
// sets count, so a field or argument called "mutation" does not match.
func isMutation(query string) bool {
	depth := 0
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '#':
			for i < len(query) && query[i] != '\n' && query[i] != '\r' {
				i++
			}
		case c == '"':
			i = skipString(query, i)
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			i++
		case c == '$':
			// Variable names are not keywords.
			i++
			for i < len(query) && isNameChar(query[i]) {
				i++
			}
		case isNameStart(c):
			j := i
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			if depth == 0 && query[i:j] == "mutation" {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

// skipString returns the index just past the string literal starting at i.
// Unterminated strings run to the end of the document.
func skipString(query string, i int) int {
	if strings.HasPrefix(query[i:], `"""`) {
		end := strings.Index(query[i+3:], `"""`)
		if end < 0 {
			return len(query)
		}
		return i + 3 + end + 3
	}
	for i++; i < len(query); i++ {
		switch query[i] {
		case '\\':
			i++
		case '"', '\n':
			return i + 1
		}
	}
	return len(query)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// documentDigest identifies a GraphQL document for confirmation binding.
func documentDigest(query string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(query)))
	return "mutation " + hex.EncodeToString(sum[:8])
}

// toolGraphQLQuery constructs the graphql_query Registration.
func toolGraphQLQuery(client Client, confirm *safety.ConfirmationTracker, rec tools.Recorder) tools.Registration {
	tool := mcp.NewTool(toolNameGraphQLQuery,
		mcp.WithDescription("Execute an arbitrary GraphQL operation against the SpringboardVR API with the server's credentials. Use when the session tools do not cover the need. Mutations require a confirmation token."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The GraphQL query or mutation string to execute."),
		),
		mcp.WithString("variables",
			mcp.Description("Optional JSON object string of variables to pass with the query."),
		),
		mcp.WithString("confirmation_token",
			mcp.Description("Confirmation token returned by a prior call for mutations"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		query := req.GetString("query", "")
		variablesStr := req.GetString("variables", "")
		token := req.GetString("confirmation_token", "")

		params := map[string]any{
			"query":     query,
			"variables": variablesStr,
		}

		if strings.TrimSpace(query) == "" {
			rec.Record(toolNameGraphQLQuery, params, "error: query is required", start)
			return tools.ErrorResult("query is required"), nil
		}

		var parsedVars map[string]any
		if variablesStr != "" {
			if err := json.Unmarshal([]byte(variablesStr), &parsedVars); err != nil {
				errMsg := fmt.Sprintf("parse variables JSON: %v", err)
				rec.Record(toolNameGraphQLQuery, params, "error: "+errMsg, start)
				return tools.ErrorResult(errMsg), nil
			}
		}

		if isMutation(query) && confirm != nil {
			resource := documentDigest(query)
			if !confirm.Confirm(token, toolNameGraphQLQuery, resource) {
				desc := "This mutation runs against the live booking system with no further safety checks."
				rec.Record(toolNameGraphQLQuery, params, "confirmation required", start)
				return tools.ConfirmPrompt(confirm, toolNameGraphQLQuery, resource, desc), nil
			}
		}

		data, err := client.Execute(ctx, query, parsedVars)
		if err != nil {
			rec.Record(toolNameGraphQLQuery, params, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		// Re-decode so tools.JSONResult pretty-prints with consistent
		// indentation.
		var parsed any
		if len(data) > 0 {
			if err := json.Unmarshal(data, &parsed); err != nil {
				rec.Record(toolNameGraphQLQuery, params, "error: "+err.Error(), start)
				return tools.ErrorResult(err.Error()), nil
			}
		}

		rec.Record(toolNameGraphQLQuery, params, "ok", start)
		return tools.JSONResult(parsed), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
