package x402

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestAttach_SetsValidBase64JSONHeader(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	payee := common.HexToAddress("0x2222222222222222222222222222222222222222")
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	attacher := NewProofAttacher(key, payee, token, "USDC", 8453, 20000)

	req, err := http.NewRequest(http.MethodGet, "https://example.org/score/1", nil)
	require.NoError(t, err)

	require.NoError(t, attacher.Attach(req))

	header := req.Header.Get("X-PAYMENT")
	require.NotEmpty(t, header)

	raw, err := base64.StdEncoding.DecodeString(header)
	require.NoError(t, err)

	var payload proofPayload
	require.NoError(t, json.Unmarshal(raw, &payload))

	expectedFrom := crypto.PubkeyToAddress(key.PublicKey).Hex()
	require.Equal(t, expectedFrom, payload.From)
	require.Equal(t, payee.Hex(), payload.To)
	require.Equal(t, "20000", payload.Value)
	require.NotEmpty(t, payload.Nonce)
	require.NotEmpty(t, payload.R)
	require.NotEmpty(t, payload.S)
}

func TestAttach_NoncesDiffer(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	attacher := NewProofAttacher(key, common.Address{}, common.Address{}, "USDC", 1, 1000)

	req1, _ := http.NewRequest(http.MethodGet, "https://example.org", nil)
	req2, _ := http.NewRequest(http.MethodGet, "https://example.org", nil)
	require.NoError(t, attacher.Attach(req1))
	require.NoError(t, attacher.Attach(req2))

	require.NotEqual(t, req1.Header.Get("X-PAYMENT"), req2.Header.Get("X-PAYMENT"))
}

func TestDirectTransferCalldata_Shape(t *testing.T) {
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")
	data := DirectTransferCalldata(recipient, big.NewInt(1_000_000))

	require.Len(t, data, 4+32+32)
	// transfer(address,uint256) selector is 0xa9059cbb.
	require.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])
}
