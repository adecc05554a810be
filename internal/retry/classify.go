// Package retry classifies provider errors so the pollers and the alert
// engine can decide between backing off and dropping a cycle.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err    error
	class  Class
	reason string
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Transient marks err as retryable regardless of its shape.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient, reason: "explicit_transient"}
}

// Terminal marks err as non-retryable regardless of its shape.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTerminal, reason: "explicit_terminal"}
}

// Classify decides whether err is worth retrying on the next cycle.
// Provider outages, rate limits, and timeouts are transient; malformed
// requests and canceled contexts are terminal.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		return classifyJSONRPCCode(rpcErr.Code)
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	// Unknown provider errors are retried: a poller must never die on a
	// surprise, the worst case is one wasted backoff interval.
	return Decision{Class: ClassTransient, Reason: "unknown_transient_default"}
}

func classifyJSONRPCCode(code int) Decision {
	// -32603 internal error and the -320xx server range are provider-side.
	if code == -32603 || (code <= -32000 && code >= -32099) {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_range"}
	}
	return Decision{Class: ClassTerminal, Reason: "jsonrpc_terminal"}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"econnreset",
	"econnrefused",
	"too many requests",
	"rate limit",
	"http status 429",
	"http status 500",
	"http status 502",
	"http status 503",
	"http status 504",
	"server closed idle connection",
	"eof",
}

var terminalMessageTokens = []string{
	"invalid argument",
	"invalid params",
	"method not found",
	"parse error",
	"unsupported chain",
	"not found",
}
