// Package checkpoint persists the indexer's (lastProcessedBlock,
// pendingAgentIds) pair durably (spec.md §4.2). Writes go to a sibling
// temporary file and are then atomically renamed into place, the same
// durability discipline ashita-ai-akashi/internal/service/trace/wal.go uses
// for its own on-disk state.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// Checkpoint is the durable cycle boundary: the highest block whose events
// have been folded in (nil on first run) and the ordered, deduplicated set
// of agent IDs deferred from a prior cycle due to the batch-size cap.
type Checkpoint struct {
	LastProcessedBlock *uint64
	PendingAgentIDs    []string
}

// Zero is the checkpoint returned when no file exists yet.
func Zero() Checkpoint {
	return Checkpoint{LastProcessedBlock: nil, PendingAgentIDs: []string{}}
}

type wireCheckpoint struct {
	LastProcessedBlock *uint64  `json:"lastProcessedBlock"`
	PendingAgentIDs    []string `json:"pendingAgentIds"`
}

// Store reads and writes a Checkpoint to a single JSON file on disk.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the checkpoint file. A missing file returns the zero checkpoint,
// not an error. Pending IDs are sanitized on read: non-numeric, negative, or
// duplicate entries are dropped, preserving first-seen order.
func (s *Store) Load() (Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Zero(), nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}

	var wire wireCheckpoint
	if err := json.Unmarshal(data, &wire); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: parse %s: %w", s.path, err)
	}

	return Checkpoint{
		LastProcessedBlock: wire.LastProcessedBlock,
		PendingAgentIDs:    sanitizePending(wire.PendingAgentIDs),
	}, nil
}

// Save writes cp to a sibling temp file and renames it into place, so a
// reader never observes a partially written checkpoint.
func (s *Store) Save(cp Checkpoint) error {
	wire := wireCheckpoint{
		LastProcessedBlock: cp.LastProcessedBlock,
		PendingAgentIDs:    sanitizePending(cp.PendingAgentIDs),
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

// sanitizePending drops non-numeric, negative, or duplicate entries while
// preserving first-seen order.
func sanitizePending(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok || v.Sign() < 0 {
			continue
		}
		canonical := v.String()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}
