// Package tools provides shared helper utilities for MCP tool handlers.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jamesprial/springboardvr"
	"github.com/jamesprial/springboardvr/internal/safety"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// JSONResult marshals v to indented JSON and returns an mcp.CallToolResult.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("error marshaling result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult returns an mcp.CallToolResult that describes an error condition.
func ErrorResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf("error: %s", msg))
}

// Recorder reports finished tool calls to the audit log and the structured
// logger. Either sink may be nil.
type Recorder struct {
	Audit  *safety.AuditLogger
	Logger *zap.Logger
}

// Record logs one tool invocation that began at start.
func (r Recorder) Record(toolName string, params map[string]any, result string, start time.Time) {
	elapsed := time.Since(start)

	if r.Audit != nil {
		if err := r.Audit.Log(safety.AuditEntry{
			Timestamp: start,
			Tool:      toolName,
			Params:    params,
			Result:    result,
			Duration:  elapsed,
		}); err != nil && r.Logger != nil {
			r.Logger.Warn("audit write failed", zap.String("tool", toolName), zap.Error(err))
		}
	}

	if r.Logger != nil {
		r.Logger.Info("tool call",
			zap.String("tool", toolName),
			zap.String("result", result),
			zap.Duration("duration", elapsed),
		)
	}
}

// ConfirmPrompt issues a confirmation token for toolName on resource and
// returns the prompt telling the caller how to proceed.
func ConfirmPrompt(confirm *safety.ConfirmationTracker, toolName, resource, description string) *mcp.CallToolResult {
	token := confirm.RequestConfirmation(toolName, resource)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Confirmation required for %s on %q.\n\n%s\n\nTo proceed, call %s again with confirmation_token=%q.",
		toolName, resource, description, toolName, token,
	))
}

// RequiredString returns the named string argument or an error when it is
// missing or empty.
func RequiredString(req mcp.CallToolRequest, name string) (string, error) {
	v := req.GetString(name, "")
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// TimeArg parses the named timestamp argument. Naive timestamps are read in
// loc.
func TimeArg(req mcp.CallToolRequest, name string, loc *time.Location) (time.Time, error) {
	raw, err := RequiredString(req, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := springboardvr.ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// MinutesArg returns the named whole-minute argument as a duration. Missing
// values, fractional or non-numeric values and values below atLeast are
// rejected.
func MinutesArg(req mcp.CallToolRequest, name string, atLeast int) (time.Duration, error) {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s is required", name)
	}
	if f, isFloat := raw.(float64); isFloat && f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be a whole number of minutes, got %v", name, f)
	}

	const invalid = -1 << 31
	n := req.GetInt(name, invalid)
	if n == invalid {
		return 0, fmt.Errorf("%s must be a whole number of minutes, got %v", name, raw)
	}
	if n < atLeast {
		return 0, fmt.Errorf("%s must be at least %d, got %d", name, atLeast, n)
	}
	return time.Duration(n) * time.Minute, nil
}
