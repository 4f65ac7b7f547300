package invoker

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strconv"
	"syscall"
)

// FailureKind classifies why a tool call did not produce a result.
type FailureKind int

const (
	// FailureUnknownTool: name not advertised by the registry; no network call.
	FailureUnknownTool FailureKind = iota + 1
	// FailureInvalidArguments: payload rejected by the input schema; no network call.
	FailureInvalidArguments
	// FailureRemoteError: transient remote failure that survived all retries.
	FailureRemoteError
	// FailureRemoteRejected: the server refused or failed the call in a way
	// retrying cannot fix.
	FailureRemoteRejected
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnknownTool:
		return "unknown_tool"
	case FailureInvalidArguments:
		return "invalid_arguments"
	case FailureRemoteError:
		return "remote_error"
	case FailureRemoteRejected:
		return "remote_rejected"
	}
	return "unknown"
}

// Failure describes an unsuccessful tool call.
type Failure struct {
	Kind   FailureKind
	Detail string
}

// Outcome is the tagged result of a tool call: either Content or Failure is
// set, never both, and never neither.
type Outcome struct {
	Content string
	Failure *Failure
}

// IsError reports whether the outcome carries a failure descriptor.
func (o Outcome) IsError() bool { return o.Failure != nil }

// ModelText renders the outcome as tool_result content for the model.
func (o Outcome) ModelText() string {
	if o.Failure == nil {
		return o.Content
	}
	return "tool call failed (" + o.Failure.Kind.String() + "): " + o.Failure.Detail
}

func failure(kind FailureKind, detail string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Detail: detail}}
}

// mcp-go's HTTP transports report non-2xx responses as formatted errors
// rather than typed values, so the status has to come out of the message.
// Matching their exact shapes keeps an unrelated error that merely mentions
// a status number from being misread as transient.
var transportStatusRe = regexp.MustCompile(
	`^(?:.*: )?(?:request failed with status(?: code)?|unexpected status code)[ :]+(\d{3})`)

// retryable reports whether err looks transient: timeouts, connection
// resets, rate limiting, or 5xx responses. Typed errors are classified
// first; the transport message match is the last resort. Anything else
// (including MCP protocol rejections) fails immediately.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if m := transportStatusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code == 429 || code >= 500
	}
	return false
}
