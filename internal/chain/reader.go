// Package chain adapts the external TrustScore contract and reputation
// registry event logs to Go types, in the inline-ABI style
// subnet/reputation_feedback.go uses (no abigen-generated bindings)
// generalized from a single feedback-submission flow into a general
// read/write/event-scan surface (spec.md §6).
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hetu-project/trust-oracle/internal/metrics"
	"github.com/hetu-project/trust-oracle/internal/rpcretry"
)

// DetailedReport mirrors getDetailedReport's return tuple.
type DetailedReport struct {
	Score            *big.Int
	TotalFeedback    *big.Int
	PositiveFeedback *big.Int
	LastUpdated      *big.Int
	Exists           bool
}

// Reader is a read-only view onto the TrustScore contract.
type Reader struct {
	client  *ethclient.Client
	abi     abi.ABI
	address common.Address
	retry   rpcretry.Policy
}

// NewReader dials rpcURL and prepares calls against the TrustScore contract
// deployed at address.
func NewReader(rpcURL string, address common.Address) (*Reader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	parsed, err := parsedTrustScoreABI()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: parse TrustScore ABI: %w", err)
	}
	return &Reader{client: client, abi: parsed, address: address, retry: rpcretry.DefaultPolicy()}, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() { r.client.Close() }

// GetScore returns the agent's current cached score.
func (r *Reader) GetScore(ctx context.Context, agentID *big.Int) (*big.Int, error) {
	data, err := r.abi.Pack("getScore", agentID)
	if err != nil {
		return nil, fmt.Errorf("chain: pack getScore: %w", err)
	}

	var result []byte
	err = rpcretry.Do(ctx, r.retry, func(ctx context.Context) error {
		var callErr error
		result, callErr = r.client.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
		if callErr != nil {
			metrics.RecordRPCRetry("getScore")
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("chain: call getScore: %w", err)
	}

	var score *big.Int
	if err := r.abi.UnpackIntoInterface(&score, "getScore", result); err != nil {
		return nil, fmt.Errorf("chain: unpack getScore: %w", err)
	}
	return score, nil
}

// GetDetailedReport returns the agent's full on-chain score record.
func (r *Reader) GetDetailedReport(ctx context.Context, agentID *big.Int) (DetailedReport, error) {
	data, err := r.abi.Pack("getDetailedReport", agentID)
	if err != nil {
		return DetailedReport{}, fmt.Errorf("chain: pack getDetailedReport: %w", err)
	}

	var result []byte
	err = rpcretry.Do(ctx, r.retry, func(ctx context.Context) error {
		var callErr error
		result, callErr = r.client.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
		if callErr != nil {
			metrics.RecordRPCRetry("getDetailedReport")
		}
		return callErr
	})
	if err != nil {
		return DetailedReport{}, fmt.Errorf("chain: call getDetailedReport: %w", err)
	}

	var report DetailedReport
	if err := r.abi.UnpackIntoInterface(&report, "getDetailedReport", result); err != nil {
		return DetailedReport{}, fmt.Errorf("chain: unpack getDetailedReport: %w", err)
	}
	return report, nil
}

// Client exposes the underlying ethclient for callers (Event Source,
// block-timestamp lookups) that need lower-level access.
func (r *Reader) Client() *ethclient.Client { return r.client }
