// Package invoker executes single tool calls against the remote MCP server.
//
// Failures are data, not errors: the orchestration loop feeds every outcome
// back to the model as a tool result, so the model decides how to recover
// or how to explain the failure to the user.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/petasbytes/docsbot/internal/telemetry"
	"github.com/petasbytes/docsbot/tools"
)

// ToolCaller abstracts the remote invocation endpoint (MCP tools/call).
// *client.Client from mark3labs/mcp-go satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Options bound each invocation. Zero values take the defaults below.
type Options struct {
	Timeout        time.Duration // per-attempt bound
	Attempts       int           // total attempts; 1 disables retry
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

const (
	defaultTimeout        = 30 * time.Second
	defaultAttempts       = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Attempts < 1 {
		o.Attempts = defaultAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	return o
}

// Invoker validates and executes tool calls. Safe for concurrent use.
type Invoker struct {
	caller   ToolCaller
	registry *tools.Registry
	opts     Options
	logger   zerolog.Logger
}

func New(caller ToolCaller, registry *tools.Registry, logger zerolog.Logger, opts Options) *Invoker {
	return &Invoker{
		caller:   caller,
		registry: registry,
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("component", "invoker").Logger(),
	}
}

// Invoke runs one named tool call. Unknown names and schema-invalid
// arguments fail locally without touching the network; remote failures are
// retried with exponential backoff before being surfaced as outcomes.
func (v *Invoker) Invoke(ctx context.Context, name string, args json.RawMessage) Outcome {
	start := time.Now()
	turnID, _ := telemetry.TurnIDFromContext(ctx)

	if _, ok := v.registry.Lookup(name); !ok {
		v.emit(turnID, name, start, FailureUnknownTool)
		return failure(FailureUnknownTool, fmt.Sprintf("tool %q is not advertised by the server", name))
	}
	if err := v.registry.Validate(name, args); err != nil {
		v.emit(turnID, name, start, FailureInvalidArguments)
		return failure(FailureInvalidArguments, err.Error())
	}

	var argMap map[string]any
	if len(args) > 0 {
		// Validated above; a decode failure here means non-object arguments.
		if err := json.Unmarshal(args, &argMap); err != nil {
			v.emit(turnID, name, start, FailureInvalidArguments)
			return failure(FailureInvalidArguments, "arguments must be a JSON object")
		}
	}

	res, err := v.call(ctx, name, argMap)
	if err != nil {
		kind := FailureRemoteRejected
		if retryable(err) {
			kind = FailureRemoteError
		}
		v.emit(turnID, name, start, kind)
		return failure(kind, err.Error())
	}
	text := contentText(res)
	if res.IsError {
		// The server executed the call and reported a tool-level error;
		// retrying an identical request would fail identically.
		v.emit(turnID, name, start, FailureRemoteRejected)
		if text == "" {
			text = "the server rejected the tool call"
		}
		return failure(FailureRemoteRejected, text)
	}

	v.emit(turnID, name, start, 0)
	if text == "" {
		text = "No results found"
	}
	return Outcome{Content: text}
}

func (v *Invoker) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	attempt := func() (*mcp.CallToolResult, error) {
		cctx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
		defer cancel()

		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args

		res, err := v.caller.CallTool(cctx, req)
		if err != nil {
			if ctx.Err() != nil || !retryable(err) {
				return nil, backoff.Permanent(err)
			}
			v.logger.Warn().Str("tool", name).Err(err).Msg("transient tool call failure, retrying")
			return nil, err
		}
		return res, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = v.opts.InitialBackoff
	bo.MaxInterval = v.opts.MaxBackoff
	return backoff.RetryWithData(attempt,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(v.opts.Attempts-1)), ctx))
}

func (v *Invoker) emit(turnID, name string, start time.Time, kind FailureKind) {
	fields := map[string]any{
		"tool_name":   name,
		"duration_ms": time.Since(start).Milliseconds(),
		"turn_id":     turnID,
	}
	if kind != 0 {
		fields["failure"] = kind.String()
	}
	telemetry.Emit(v.logger, "tool_exec", fields)
}

// contentText flattens the textual content blocks of a result.
func contentText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok && tc.Text != "" {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
