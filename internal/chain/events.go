package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hetu-project/trust-oracle/internal/metrics"
	"github.com/hetu-project/trust-oracle/internal/rpcretry"
)

// FeedbackLog is one decoded feedback event, carrying both the reputation
// fields the Scoring Engine needs and the dedup/ordering fields spec.md §3
// requires (blockNumber, logIndex, txHash).
type FeedbackLog struct {
	AgentID       *big.Int
	ClientAddress common.Address
	FeedbackIndex uint64
	Value         *big.Int
	ValueDecimals uint8
	Tag1          string
	Tag2          string
	Endpoint      string
	FeedbackURI   string
	FeedbackHash  [32]byte
	BlockNumber   uint64
	LogIndex      uint
	TxHash        common.Hash
}

// IsPositive implements spec.md §3's sentiment rule: value > 0 is positive,
// zero and negative are not.
func (f FeedbackLog) IsPositive() bool { return f.Value.Sign() > 0 }

// dedupKey is the composite identity spec.md §3 defines: every payload
// field plus blockNumber and txHash, deliberately excluding logIndex.
func (f FeedbackLog) dedupKey() string {
	return fmt.Sprintf("%s|%s|%d|%s|%d|%s|%s|%s|%s|%x|%d|%s",
		f.AgentID, f.ClientAddress.Hex(), f.FeedbackIndex, f.Value, f.ValueDecimals,
		f.Tag1, f.Tag2, f.Endpoint, f.FeedbackURI, f.FeedbackHash, f.BlockNumber, f.TxHash.Hex())
}

// EventSource queries the reputation registry's feedback logs. It memoizes
// block timestamps for the life of one cycle; the cache MUST be reset at the
// start of every cycle (spec.md Design Notes §9, "block-timestamp cache"),
// since a prior cycle's view is invalidated by reorgs and clock skew.
type EventSource struct {
	client           *ethclient.Client
	registryAddress  common.Address
	abi              abi.ABI
	feedbackPostedID common.Hash
	newFeedbackID    common.Hash
	blockTimeCache   map[uint64]int64

	// seenFeedbackPosted/seenNewFeedback/overlapRecorded track, for the
	// current cycle only, which of the two feedback event synonyms
	// (spec.md Design Notes §9) have been decoded, so the overlap metric
	// fires at most once per cycle.
	seenFeedbackPosted bool
	seenNewFeedback    bool
	overlapRecorded    bool
}

// NewEventSource prepares an EventSource reading logs emitted by
// registryAddress over client.
func NewEventSource(client *ethclient.Client, registryAddress common.Address) (*EventSource, error) {
	parsed, err := parsedFeedbackEventABI()
	if err != nil {
		return nil, fmt.Errorf("chain: parse feedback event ABI: %w", err)
	}
	return &EventSource{
		client:           client,
		registryAddress:  registryAddress,
		abi:              parsed,
		feedbackPostedID: parsed.Events["FeedbackPosted"].ID,
		newFeedbackID:    parsed.Events["NewFeedback"].ID,
		blockTimeCache:   make(map[uint64]int64),
	}, nil
}

// ResetBlockTimeCache clears the per-cycle timestamp memo. Callers must
// invoke this once at the start of every indexer cycle.
func (es *EventSource) ResetBlockTimeCache() {
	es.blockTimeCache = make(map[uint64]int64)
	es.seenFeedbackPosted = false
	es.seenNewFeedback = false
	es.overlapRecorded = false
}

// GlobalScan returns the deduplicated set of agent IDs with at least one
// feedback event in [from, to], used only to discover the dirty set.
func (es *EventSource) GlobalScan(ctx context.Context, from, to uint64) ([]*big.Int, error) {
	logs, err := es.fetch(ctx, from, to, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(logs))
	var agents []*big.Int
	for _, l := range logs {
		key := l.AgentID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		agents = append(agents, new(big.Int).Set(l.AgentID))
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].Cmp(agents[j]) < 0 })
	return agents, nil
}

// PerAgentScan returns every deduplicated feedback log for agentID across
// [from, to], sorted by (blockNumber, logIndex) ascending, so that a full
// per-agent history can be reconstructed from the contract's genesis rather
// than just the cycle window.
func (es *EventSource) PerAgentScan(ctx context.Context, agentID *big.Int, from, to uint64) ([]FeedbackLog, error) {
	logs, err := es.fetch(ctx, from, to, agentID)
	if err != nil {
		return nil, err
	}

	dedup := dedupeFeedback(logs)
	sort.Slice(dedup, func(i, j int) bool {
		if dedup[i].BlockNumber != dedup[j].BlockNumber {
			return dedup[i].BlockNumber < dedup[j].BlockNumber
		}
		return dedup[i].LogIndex < dedup[j].LogIndex
	})
	return dedup, nil
}

// BlockTimestamp returns the block's timestamp in milliseconds, memoized
// for the life of the current cycle. A missing block is a fatal cycle error
// per spec.md §4.4.
func (es *EventSource) BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error) {
	if ms, ok := es.blockTimeCache[blockNumber]; ok {
		return ms, nil
	}
	var header *types.Header
	err := rpcretry.Do(ctx, rpcretry.DefaultPolicy(), func(ctx context.Context) error {
		var headerErr error
		header, headerErr = es.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
		if headerErr != nil {
			metrics.RecordRPCRetry("headerByNumber")
		}
		return headerErr
	})
	if err != nil {
		return 0, fmt.Errorf("chain: fetch block %d header: %w", blockNumber, err)
	}
	ms := int64(header.Time) * 1000
	es.blockTimeCache[blockNumber] = ms
	return ms, nil
}

// fetch runs the underlying log filter, optionally constrained to one
// agent ID via the indexed agentId topic, and decodes every matching log.
func (es *EventSource) fetch(ctx context.Context, from, to uint64, agentID *big.Int) ([]FeedbackLog, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{es.registryAddress},
		Topics:    [][]common.Hash{{es.feedbackPostedID, es.newFeedbackID}},
	}
	if agentID != nil {
		query.Topics = append(query.Topics, []common.Hash{common.BigToHash(agentID)})
	}

	var logs []types.Log
	err := rpcretry.Do(ctx, rpcretry.DefaultPolicy(), func(ctx context.Context) error {
		var filterErr error
		logs, filterErr = es.client.FilterLogs(ctx, query)
		if filterErr != nil {
			metrics.RecordRPCRetry("filterLogs")
		}
		return filterErr
	})
	if err != nil {
		return nil, fmt.Errorf("chain: filter feedback logs: %w", err)
	}

	decoded := make([]FeedbackLog, 0, len(logs))
	for _, log := range logs {
		fl, err := es.decode(log)
		if err != nil {
			return nil, fmt.Errorf("chain: decode feedback log (tx %s): %w", log.TxHash.Hex(), err)
		}
		decoded = append(decoded, fl)
	}
	return decoded, nil
}

func (es *EventSource) decode(log types.Log) (FeedbackLog, error) {
	eventName := "FeedbackPosted"
	if log.Topics[0] == es.newFeedbackID {
		eventName = "NewFeedback"
	}
	es.markSynonymSeen(eventName)

	var nonIndexed struct {
		FeedbackIndex uint64
		Value         *big.Int
		ValueDecimals uint8
		Tag1          string
		Tag2          string
		Endpoint      string
		FeedbackURI   string
		FeedbackHash  [32]byte
	}
	if err := es.abi.UnpackIntoInterface(&nonIndexed, eventName, log.Data); err != nil {
		return FeedbackLog{}, fmt.Errorf("unpack non-indexed fields: %w", err)
	}

	if len(log.Topics) < 3 {
		return FeedbackLog{}, fmt.Errorf("expected 3 topics, got %d", len(log.Topics))
	}

	return FeedbackLog{
		AgentID:       log.Topics[1].Big(),
		ClientAddress: common.BytesToAddress(log.Topics[2].Bytes()),
		FeedbackIndex: nonIndexed.FeedbackIndex,
		Value:         nonIndexed.Value,
		ValueDecimals: nonIndexed.ValueDecimals,
		Tag1:          nonIndexed.Tag1,
		Tag2:          nonIndexed.Tag2,
		Endpoint:      nonIndexed.Endpoint,
		FeedbackURI:   nonIndexed.FeedbackURI,
		FeedbackHash:  nonIndexed.FeedbackHash,
		BlockNumber:   log.BlockNumber,
		LogIndex:      log.Index,
		TxHash:        log.TxHash,
	}, nil
}

// markSynonymSeen records that eventName was decoded this cycle and, the
// first time both FeedbackPosted and NewFeedback have been observed within
// the same cycle, surfaces reputation_oracle_event_synonym_overlap_total
// per spec.md Design Notes §9's event synonym semantics.
func (es *EventSource) markSynonymSeen(eventName string) {
	switch eventName {
	case "FeedbackPosted":
		es.seenFeedbackPosted = true
	case "NewFeedback":
		es.seenNewFeedback = true
	}
	if !es.overlapRecorded && es.seenFeedbackPosted && es.seenNewFeedback {
		es.overlapRecorded = true
		metrics.RecordEventSynonymOverlap()
	}
}

func dedupeFeedback(logs []FeedbackLog) []FeedbackLog {
	seen := make(map[string]bool, len(logs))
	out := make([]FeedbackLog, 0, len(logs))
	for _, l := range logs {
		key := l.dedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
