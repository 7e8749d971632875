// Package fallback maps a failed source attempt — HTTP or contract/RPC —
// to the stable fallback taxonomy the Trust Client and Response Shaper
// share via internal/envelope, breaking the cyclic reference the source
// pipeline had between its client and fallback modules (spec.md Design
// Note 9.2).
package fallback

import "strings"

// HTTPFailure describes one failed HTTP attempt.
type HTTPFailure struct {
	// StatusCode is 0 when the request never produced a response (abort,
	// timeout, network failure).
	StatusCode int
	// Aborted marks a client-side cancellation or timeout.
	Aborted bool
	// Message is the failure's error text, carried for context;
	// ClassifyHTTP does not inspect it.
	Message string
}

// ClassifyHTTP implements spec.md §4.6's HTTP mapping.
func ClassifyHTTP(f HTTPFailure) string {
	switch {
	case f.StatusCode == 404:
		return "agent_not_found"
	case f.StatusCode == 402:
		return "payment_unavailable"
	case f.StatusCode >= 500:
		return "oracle_unavailable"
	case f.Aborted:
		return "api_timeout"
	default:
		return "oracle_unavailable"
	}
}

var networkSubstrings = []string{"network", "socket", "connect", "rpc"}

// ClassifyContract implements spec.md §4.6's contract/RPC mapping.
func ClassifyContract(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "call_exception") || strings.Contains(msg, "execution reverted") {
		return "agent_not_found"
	}
	if strings.Contains(msg, "timeout") {
		return "rpc_unavailable"
	}
	for _, sub := range networkSubstrings {
		if strings.Contains(msg, sub) {
			return "rpc_unavailable"
		}
	}
	return "oracle_unavailable"
}
