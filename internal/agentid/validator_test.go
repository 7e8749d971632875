package agentid

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	id, err := Parse("42")
	require.NoError(t, err)
	assert.Equal(t, "42", id.String())
	assert.Equal(t, big.NewInt(42), id.Value)
}

func TestParse_Zero(t *testing.T) {
	id, err := Parse("0")
	require.NoError(t, err)
	assert.Equal(t, "0", id.String())
}

func TestParse_MaxValue(t *testing.T) {
	id, err := Parse(maxAgentID.String())
	require.NoError(t, err)
	assert.Equal(t, maxAgentID, id.Value)
}

func TestParse_OutOfRange(t *testing.T) {
	tooBig := new(big.Int).Add(maxAgentID, big.NewInt(1))
	_, err := Parse(tooBig.String())
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParse_Missing(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestParse_NonNumeric(t *testing.T) {
	cases := []string{"abc", "0x1A", "+42", " 42", "42 ", "4.2", "-1"}
	for _, c := range cases {
		_, err := Parse(c)
		assert.ErrorIsf(t, err, ErrNonNumeric, "input %q", c)
	}
}
