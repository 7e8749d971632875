package rpcretry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct {
	msg  string
	code int
}

func (e codedErr) Error() string  { return e.msg }
func (e codedErr) ErrorCode() int { return e.code }

type codeStringErr struct {
	msg  string
	code string
}

func (e codeStringErr) Error() string           { return e.msg }
func (e codeStringErr) ErrorCodeString() string { return e.code }

type causeErr struct {
	msg   string
	cause error
}

func (e causeErr) Error() string { return e.msg }
func (e causeErr) Cause() error  { return e.cause }

func TestIsTransient_NumericCode(t *testing.T) {
	assert.True(t, IsTransient(codedErr{msg: "boom", code: -32000}))
	assert.True(t, IsTransient(codedErr{msg: "boom", code: -32005}))
	assert.True(t, IsTransient(codedErr{msg: "boom", code: -32603}))
	assert.False(t, IsTransient(codedErr{msg: "boom", code: -32601}))
}

func TestIsTransient_CodeString(t *testing.T) {
	assert.True(t, IsTransient(codeStringErr{msg: "x", code: "network_error"}))
	assert.True(t, IsTransient(codeStringErr{msg: "x", code: "ETIMEDOUT"}))
	assert.False(t, IsTransient(codeStringErr{msg: "x", code: "INVALID_PARAMS"}))
}

func TestIsTransient_MessageSubstring(t *testing.T) {
	cases := []string{
		"request timeout",
		"connection TIMED OUT",
		"got HTTP 429 too many requests",
		"Rate Limit exceeded",
		"network error dialing peer",
		"missing response for request 4",
		"service temporarily unavailable",
		"socket hang up",
		"504 gateway timeout",
	}
	for _, msg := range cases {
		assert.True(t, IsTransient(errors.New(msg)), msg)
	}
}

func TestIsTransient_NonTransient(t *testing.T) {
	assert.False(t, IsTransient(errors.New("execution reverted: insufficient balance")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_NestedCauseOneLevel(t *testing.T) {
	wrapped := causeErr{msg: "request failed", cause: errors.New("socket hang up")}
	assert.True(t, IsTransient(wrapped))

	doubleWrapped := causeErr{msg: "outer", cause: causeErr{msg: "middle", cause: errors.New("socket hang up")}}
	assert.False(t, IsTransient(doubleWrapped), "recursion stops after one level")
}
