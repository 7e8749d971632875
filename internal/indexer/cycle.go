// Package indexer orchestrates one checkpointed indexer cycle: load
// checkpoint, discover dirty agents, recompute scores, submit a batch,
// persist the new checkpoint (spec.md §4.5). There is at most one cycle in
// flight at any time — a hard invariant, since the updater signer holds a
// single monotonic nonce (spec.md §5).
package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/hetu-project/trust-oracle/internal/chain"
	"github.com/hetu-project/trust-oracle/internal/checkpoint"
	"github.com/hetu-project/trust-oracle/internal/metrics"
	"github.com/hetu-project/trust-oracle/internal/rpcretry"
	"github.com/hetu-project/trust-oracle/internal/scoring"
)

// ChainHead reports the latest observed block number.
type ChainHead interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// EventSource is the subset of *chain.EventSource a Cycle depends on,
// narrowed to an interface so tests can substitute a scripted fake without
// a live RPC endpoint (the same narrowing trustclient.ContractReader uses).
type EventSource interface {
	ResetBlockTimeCache()
	GlobalScan(ctx context.Context, from, to uint64) ([]*big.Int, error)
	PerAgentScan(ctx context.Context, agentID *big.Int, from, to uint64) ([]chain.FeedbackLog, error)
	BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error)
}

// Config holds the fixed parameters of one indexer's cycles.
type Config struct {
	StartBlock   uint64 // the reputation registry's deployment block
	MaxBatchSize int    // default 100
	ScoringCfg   scoring.Config
}

// Cycle runs one complete pass over a Store, EventSource, chain head
// reader, and Writer.
type Cycle struct {
	store       *checkpoint.Store
	events      EventSource
	head        ChainHead
	writer      *chain.Writer
	cfg         Config
	retryPolicy rpcretry.Policy
}

// New builds a Cycle. A nil writer is permitted for read-only runs
// (cmd/indexer without an updater key); Run still scans and scores but
// skips the batch submission step.
func New(store *checkpoint.Store, events EventSource, head ChainHead, writer *chain.Writer, cfg Config) *Cycle {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	return &Cycle{store: store, events: events, head: head, writer: writer, cfg: cfg, retryPolicy: rpcretry.DefaultPolicy()}
}

// Result summarizes one completed cycle.
type Result struct {
	LastProcessedBlock uint64
	ProcessedAgentIDs  []string
	QueuedAgentIDs     []string
}

// Run executes one cycle per spec.md §4.5's seven steps. A cycle that fails
// before the batch submission completes does not advance the checkpoint; a
// failure after submission but before persisting the checkpoint may cause
// a safe re-submission on the next cycle (batchUpdateScores is idempotent
// in effect on the contract side).
func (c *Cycle) Run(ctx context.Context, nowMs int64) (Result, error) {
	start := time.Now()
	c.events.ResetBlockTimeCache()

	cp, err := c.store.Load()
	if err != nil {
		metrics.RecordCycle(time.Since(start).Seconds(), false)
		return Result{}, fmt.Errorf("indexer: load checkpoint: %w", err)
	}

	baselineLast := maxUint64(subtractOrZero(c.cfg.StartBlock, 1), 0)
	if cp.LastProcessedBlock != nil {
		baselineLast = *cp.LastProcessedBlock
	}
	from := baselineLast + 1

	var latest uint64
	err = rpcretry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		var headErr error
		latest, headErr = c.head.BlockNumber(ctx)
		if headErr != nil {
			metrics.RecordRPCRetry("blockNumber")
		}
		return headErr
	})
	if err != nil {
		metrics.RecordCycle(time.Since(start).Seconds(), false)
		return Result{}, fmt.Errorf("indexer: observe chain head: %w", err)
	}

	dirty := map[string]*big.Int{}
	for _, id := range cp.PendingAgentIDs {
		v, _ := new(big.Int).SetString(id, 10)
		dirty[id] = v
	}

	if from <= latest {
		discovered, err := c.events.GlobalScan(ctx, from, latest)
		if err != nil {
			metrics.RecordCycle(time.Since(start).Seconds(), false)
			return Result{}, fmt.Errorf("indexer: global scan [%d,%d]: %w", from, latest, err)
		}
		for _, id := range discovered {
			dirty[id.String()] = id
		}
	}

	sortedDirty := make([]*big.Int, 0, len(dirty))
	for _, v := range dirty {
		sortedDirty = append(sortedDirty, v)
	}
	sort.Slice(sortedDirty, func(i, j int) bool { return sortedDirty[i].Cmp(sortedDirty[j]) < 0 })

	n := c.cfg.MaxBatchSize
	if n > len(sortedDirty) {
		n = len(sortedDirty)
	}
	toProcess := sortedDirty[:n]
	toQueue := sortedDirty[n:]
	metrics.RecordOverflow(len(toQueue))

	var ids, scores, totals, positives []*big.Int
	for _, agentID := range toProcess {
		res, err := c.scoreAgent(ctx, agentID, latest, nowMs)
		if err != nil {
			metrics.RecordCycle(time.Since(start).Seconds(), false)
			return Result{}, fmt.Errorf("indexer: score agent %s: %w", agentID, err)
		}
		ids = append(ids, agentID)
		scores = append(scores, big.NewInt(int64(res.Score)))
		totals = append(totals, big.NewInt(res.TotalFeedback))
		positives = append(positives, big.NewInt(res.PositiveFeedback))
		metrics.RecordScore(agentID.String(), res.Score)
	}

	if len(ids) > 0 && c.writer != nil {
		if _, err := c.writer.BatchUpdateScores(ctx, ids, scores, totals, positives); err != nil {
			metrics.RecordCycle(time.Since(start).Seconds(), false)
			return Result{}, fmt.Errorf("indexer: submit batch update: %w", err)
		}
	}

	newCheckpoint := checkpoint.Checkpoint{
		LastProcessedBlock: &latest,
		PendingAgentIDs:    stringify(toQueue),
	}
	if err := c.store.Save(newCheckpoint); err != nil {
		metrics.RecordCycle(time.Since(start).Seconds(), false)
		return Result{}, fmt.Errorf("indexer: persist checkpoint: %w", err)
	}

	metrics.RecordCycle(time.Since(start).Seconds(), true)
	return Result{
		LastProcessedBlock: latest,
		ProcessedAgentIDs:  stringify(toProcess),
		QueuedAgentIDs:     stringify(toQueue),
	}, nil
}

// scoreAgent reconstructs an agent's full history from the contract's
// genesis (not just this cycle's window) and passes it through the Scoring
// Engine.
func (c *Cycle) scoreAgent(ctx context.Context, agentID *big.Int, latest uint64, nowMs int64) (scoring.Result, error) {
	logs, err := c.events.PerAgentScan(ctx, agentID, c.cfg.StartBlock, latest)
	if err != nil {
		return scoring.Result{}, fmt.Errorf("per-agent scan: %w", err)
	}

	feedbacks := make([]scoring.Feedback, 0, len(logs))
	for _, l := range logs {
		ts, err := c.events.BlockTimestamp(ctx, l.BlockNumber)
		if err != nil {
			return scoring.Result{}, fmt.Errorf("block timestamp for block %d: %w", l.BlockNumber, err)
		}
		t := time.UnixMilli(ts)
		positive := l.IsPositive()
		feedbacks = append(feedbacks, scoring.Feedback{Time: &t, IsPositive: &positive})
	}

	return scoring.Compute(feedbacks, c.cfg.ScoringCfg, nowMs)
}

func stringify(ids []*big.Int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func subtractOrZero(v, sub uint64) uint64 {
	if v < sub {
		return 0
	}
	return v - sub
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
