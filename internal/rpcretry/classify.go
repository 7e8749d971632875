// Package rpcretry wraps a single RPC operation with exponential backoff,
// generalizing the fixed-interval retry loop the teacher uses for its
// own Dgraph readiness probe (main.go's waitForDgraph) into the
// exponential-with-cap scheme spec.md §4.3 requires.
package rpcretry

import "strings"

// retryableCodes are JSON-RPC error codes classified as transient.
var retryableCodes = map[int]bool{
	-32000: true,
	-32005: true,
	-32603: true,
}

// retryableCodeStrings are transient error code strings some RPC clients use
// instead of (or alongside) numeric codes.
var retryableCodeStrings = map[string]bool{
	"NETWORK_ERROR": true,
	"SERVER_ERROR":  true,
	"TIMEOUT":       true,
	"ECONNRESET":    true,
	"ETIMEDOUT":     true,
	"ENOTFOUND":     true,
}

var retryableSubstrings = []string{
	"timeout",
	"timed out",
	"429",
	"rate limit",
	"network error",
	"missing response",
	"temporarily unavailable",
	"socket hang up",
	"gateway timeout",
}

// Classifiable is implemented by errors that carry a JSON-RPC-style numeric
// code, the shape go-ethereum's rpc.Error presents. Nested causes are
// handled separately through CauseHolder.
type Classifiable interface {
	error
	ErrorCode() int
}

// CodeStringer is implemented by errors that carry a string error code
// instead of (or in addition to) a numeric one.
type CodeStringer interface {
	ErrorCodeString() string
}

// CauseHolder is implemented by errors that wrap a nested cause, mirroring
// the "cause" field go-ethereum's JSON-RPC error payloads sometimes carry.
type CauseHolder interface {
	Cause() error
}

// IsTransient classifies err as retryable per spec.md §4.3: a matching
// numeric or string error code, or a case-insensitive substring match on the
// error message. It recurses into a nested cause once.
func IsTransient(err error) bool {
	return isTransient(err, true)
}

func isTransient(err error, allowRecurse bool) bool {
	if err == nil {
		return false
	}

	if c, ok := err.(Classifiable); ok {
		if retryableCodes[c.ErrorCode()] {
			return true
		}
	}
	if c, ok := err.(CodeStringer); ok {
		if retryableCodeStrings[strings.ToUpper(c.ErrorCodeString())] {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range retryableSubstrings {
		if strings.Contains(msg, sub) {
			return true
		}
	}

	if allowRecurse {
		if c, ok := err.(CauseHolder); ok && c.Cause() != nil {
			return isTransient(c.Cause(), false)
		}
	}

	return false
}
