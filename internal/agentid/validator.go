// Package agentid validates and canonicalizes the agent identifiers used
// throughout the reputation oracle: an unsigned integer in [0, 2^256-1],
// serialized as base-10 digits only.
package agentid

import (
	"errors"
	"math/big"
)

// ErrMissing is returned when the raw identifier is empty.
var ErrMissing = errors.New("agentid: missing agent id")

// ErrNonNumeric is returned when the raw identifier contains anything other
// than ASCII digits.
var ErrNonNumeric = errors.New("agentid: agent id is not numeric")

// ErrOutOfRange is returned when the parsed value exceeds 2^256-1.
var ErrOutOfRange = errors.New("agentid: agent id out of range")

// maxAgentID is 2^256 - 1.
var maxAgentID = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ID is a validated agent identifier: the canonical big-integer value and
// its decimal string form.
type ID struct {
	Value  *big.Int
	Digits string
}

// String returns the canonical decimal form.
func (id ID) String() string {
	return id.Digits
}

// Parse validates raw as an agent identifier. raw must be non-empty, contain
// only ASCII digits (no leading '+', no hex, no whitespace), and fall within
// [0, 2^256-1].
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, ErrMissing
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return ID{}, ErrNonNumeric
		}
	}

	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return ID{}, ErrNonNumeric
	}
	if value.Cmp(maxAgentID) > 0 {
		return ID{}, ErrOutOfRange
	}

	// Canonicalize the digit string by round-tripping through big.Int, so
	// alternate representations of the same value ("007") yield "7".
	return ID{Value: value, Digits: value.String()}, nil
}
