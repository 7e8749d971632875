// Package x402 attaches an x402 payment-authorization proof to outbound
// paid-source HTTP requests. It is trimmed from
// subnet/payment_coordinator.go's much larger escrow/session payment
// coordinator down to the one piece the Trust Client's paid source needs:
// a signed EIP-3009 TransferWithAuthorization header, not a full payment
// lifecycle (deposit/release/refund are out of scope here).
package x402

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// ProofAttacher signs x402 payment proofs for one payer against one
// payment-token contract.
type ProofAttacher struct {
	privateKey  *ecdsa.PrivateKey
	payer       common.Address
	payee       common.Address
	tokenAddr   common.Address
	tokenName   string
	chainID     *big.Int
	maxAtomic   *big.Int
	validWindow time.Duration
}

// NewProofAttacher builds an attacher that authorizes transfers of up to
// maxPaymentAtomic base units of the token at tokenAddr, from privateKey's
// address to payee.
func NewProofAttacher(privateKey *ecdsa.PrivateKey, payee, tokenAddr common.Address, tokenName string, chainID int64, maxPaymentAtomic int64) *ProofAttacher {
	return &ProofAttacher{
		privateKey:  privateKey,
		payer:       crypto.PubkeyToAddress(privateKey.PublicKey),
		payee:       payee,
		tokenAddr:   tokenAddr,
		tokenName:   tokenName,
		chainID:     big.NewInt(chainID),
		maxAtomic:   big.NewInt(maxPaymentAtomic),
		validWindow: 5 * time.Minute,
	}
}

// NewProofAttacherFromHex is NewProofAttacher for callers holding the
// payer's key as a hex string (optionally 0x-prefixed), the same parsing
// chain.NewWriter uses for the updater signer.
func NewProofAttacherFromHex(privateKeyHex string, payee, tokenAddr common.Address, tokenName string, chainID int64, maxPaymentAtomic int64) (*ProofAttacher, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("x402: invalid payer private key: %w", err)
	}
	return NewProofAttacher(privateKey, payee, tokenAddr, tokenName, chainID, maxPaymentAtomic), nil
}

// proofPayload is the JSON shape carried in the X-PAYMENT header, an
// EIP-3009 TransferWithAuthorization envelope.
type proofPayload struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
	V           uint8  `json:"v"`
	R           string `json:"r"`
	S           string `json:"s"`
}

// Attach signs a fresh authorization bounded to maxAtomic and sets it as
// req's X-PAYMENT header, base64-encoded JSON per the x402 convention.
func (a *ProofAttacher) Attach(req *http.Request) error {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("x402: generate nonce: %w", err)
	}

	now := time.Now()
	validAfter := big.NewInt(0)
	validBefore := big.NewInt(now.Add(a.validWindow).Unix())

	v, r, s, err := signTransferAuthorization(a.privateKey, a.tokenAddr, a.tokenName, a.chainID,
		a.payer, a.payee, a.maxAtomic, validAfter, validBefore, nonce)
	if err != nil {
		return fmt.Errorf("x402: sign transfer authorization: %w", err)
	}

	payload := proofPayload{
		From:        a.payer.Hex(),
		To:          a.payee.Hex(),
		Value:       a.maxAtomic.String(),
		ValidAfter:  validAfter.String(),
		ValidBefore: validBefore.String(),
		Nonce:       "0x" + common.Bytes2Hex(nonce[:]),
		V:           v,
		R:           "0x" + common.Bytes2Hex(r[:]),
		S:           "0x" + common.Bytes2Hex(s[:]),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("x402: marshal payment proof: %w", err)
	}

	req.Header.Set("X-PAYMENT", base64.StdEncoding.EncodeToString(data))
	return nil
}

// DirectTransferCalldata encodes a plain ERC-20 transfer(address,uint256)
// call, the fallback path a payer uses to settle on-chain directly when no
// facilitator is configured, mirroring
// subnet/payment_coordinator.go's createSignedPaymentTransaction.
func DirectTransferCalldata(recipient common.Address, amountAtomic *big.Int) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte("transfer(address,uint256)"))
	methodID := hash.Sum(nil)[:4]

	data := make([]byte, 0, 4+32+32)
	data = append(data, methodID...)
	data = append(data, common.LeftPadBytes(recipient.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amountAtomic.Bytes(), 32)...)
	return data
}

// signTransferAuthorization reproduces the EIP-712 TransferWithAuthorization
// digest subnet/payment_coordinator.go's GenerateEIP712Signature computes.
func signTransferAuthorization(
	privateKey *ecdsa.PrivateKey,
	tokenAddr common.Address,
	tokenName string,
	chainID *big.Int,
	from, to common.Address,
	value, validAfter, validBefore *big.Int,
	nonce [32]byte,
) (v uint8, r [32]byte, s [32]byte, err error) {
	domainSeparator := domainSeparator(tokenAddr, chainID, tokenName)
	structHash := transferAuthorizationHash(from, to, value, validAfter, validBefore, nonce)

	message := crypto.Keccak256(
		[]byte("\x19\x01"),
		domainSeparator[:],
		structHash[:],
	)

	signature, err := crypto.Sign(message, privateKey)
	if err != nil {
		return 0, [32]byte{}, [32]byte{}, err
	}

	v = signature[64] + 27
	copy(r[:], signature[0:32])
	copy(s[:], signature[32:64])
	return v, r, s, nil
}

func domainSeparator(tokenAddr common.Address, chainID *big.Int, tokenName string) [32]byte {
	typeHash := crypto.Keccak256Hash(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)
	nameHash := crypto.Keccak256Hash([]byte(tokenName))
	versionHash := crypto.Keccak256Hash([]byte("1"))

	encoded := crypto.Keccak256(
		typeHash.Bytes(),
		nameHash.Bytes(),
		versionHash.Bytes(),
		common.LeftPadBytes(chainID.Bytes(), 32),
		common.LeftPadBytes(tokenAddr.Bytes(), 32),
	)

	var result [32]byte
	copy(result[:], encoded)
	return result
}

func transferAuthorizationHash(from, to common.Address, value, validAfter, validBefore *big.Int, nonce [32]byte) [32]byte {
	typeHash := crypto.Keccak256Hash(
		[]byte("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"),
	)

	encoded := crypto.Keccak256(
		typeHash.Bytes(),
		common.LeftPadBytes(from.Bytes(), 32),
		common.LeftPadBytes(to.Bytes(), 32),
		common.LeftPadBytes(value.Bytes(), 32),
		common.LeftPadBytes(validAfter.Bytes(), 32),
		common.LeftPadBytes(validBefore.Bytes(), 32),
		nonce[:],
	)

	var result [32]byte
	copy(result[:], encoded)
	return result
}
