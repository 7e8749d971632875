package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hetu-project/trust-oracle/internal/metrics"
	"github.com/hetu-project/trust-oracle/internal/rpcretry"
)

// Writer submits batchUpdateScores transactions to the TrustScore contract.
// It owns the updater signer and its nonce exclusively (spec.md §5: "no
// external caller submits updates"), the same single-signer discipline
// subnet/reputation_feedback.go's ReputationBatchSubmitter uses for its own
// giveFeedback submissions.
type Writer struct {
	client     *ethclient.Client
	abi        abi.ABI
	address    common.Address
	privateKey *ecdsa.PrivateKey
	from       common.Address
	chainID    *big.Int
	retry      rpcretry.Policy
}

// NewWriter dials rpcURL and prepares a signer for address using
// privateKeyHex (optionally 0x-prefixed), following the chain ID the caller
// observed for the network.
func NewWriter(rpcURL string, address common.Address, privateKeyHex string, chainID uint64) (*Writer, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: invalid updater private key: %w", err)
	}

	parsed, err := parsedTrustScoreABI()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: parse TrustScore ABI: %w", err)
	}

	return &Writer{
		client:     client,
		abi:        parsed,
		address:    address,
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    new(big.Int).SetUint64(chainID),
		retry:      rpcretry.DefaultPolicy(),
	}, nil
}

// Close releases the underlying RPC connection.
func (w *Writer) Close() { w.client.Close() }

// BatchUpdateScores packs, signs, sends, and waits for a single
// batchUpdateScores(ids, scores, totals, positives) transaction. The call is
// idempotent in effect on the contract side (spec.md §4.5), so a caller may
// safely re-submit the same slices after an ambiguous failure.
func (w *Writer) BatchUpdateScores(ctx context.Context, ids, scores, totals, positives []*big.Int) (string, error) {
	data, err := w.abi.Pack("batchUpdateScores", ids, scores, totals, positives)
	if err != nil {
		return "", fmt.Errorf("chain: pack batchUpdateScores: %w", err)
	}

	var nonce uint64
	err = rpcretry.Do(ctx, w.retry, func(ctx context.Context) error {
		var nonceErr error
		nonce, nonceErr = w.client.PendingNonceAt(ctx, w.from)
		if nonceErr != nil {
			metrics.RecordRPCRetry("pendingNonce")
		}
		return nonceErr
	})
	if err != nil {
		return "", fmt.Errorf("chain: fetch nonce: %w", err)
	}

	var gasPrice *big.Int
	err = rpcretry.Do(ctx, w.retry, func(ctx context.Context) error {
		var gasErr error
		gasPrice, gasErr = w.client.SuggestGasPrice(ctx)
		if gasErr != nil {
			metrics.RecordRPCRetry("suggestGasPrice")
		}
		return gasErr
	})
	if err != nil {
		return "", fmt.Errorf("chain: suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, w.address, big.NewInt(0), 1_500_000, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), w.privateKey)
	if err != nil {
		return "", fmt.Errorf("chain: sign batchUpdateScores tx: %w", err)
	}

	err = rpcretry.Do(ctx, w.retry, func(ctx context.Context) error {
		sendErr := w.client.SendTransaction(ctx, signedTx)
		if sendErr != nil {
			metrics.RecordRPCRetry("sendTransaction")
		}
		return sendErr
	})
	if err != nil {
		return "", fmt.Errorf("chain: send batchUpdateScores tx: %w", err)
	}

	if _, err := bind.WaitMined(ctx, w.client, signedTx); err != nil {
		return "", fmt.Errorf("chain: wait for batchUpdateScores receipt: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}
