package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func sampleLog(value int64, block uint64, logIndex uint, tx byte) FeedbackLog {
	return FeedbackLog{
		AgentID:       big.NewInt(7),
		ClientAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		FeedbackIndex: 1,
		Value:         big.NewInt(value),
		ValueDecimals: 0,
		Tag1:          "flux-mining",
		Tag2:          "compute",
		Endpoint:      "https://example.org",
		FeedbackURI:   "ipfs://abc",
		FeedbackHash:  [32]byte{1, 2, 3},
		BlockNumber:   block,
		LogIndex:      logIndex,
		TxHash:        common.BytesToHash([]byte{tx}),
	}
}

func TestFeedbackLog_IsPositive(t *testing.T) {
	assert.True(t, sampleLog(1, 1, 0, 1).IsPositive())
	assert.False(t, sampleLog(0, 1, 0, 1).IsPositive())
	assert.False(t, sampleLog(-1, 1, 0, 1).IsPositive())
}

func TestDedupeFeedback_DropsExactDuplicates(t *testing.T) {
	a := sampleLog(1, 100, 0, 5)
	b := sampleLog(1, 100, 1, 5) // same payload+block+tx, different logIndex: same event per spec
	c := sampleLog(1, 101, 0, 6) // different block+tx: distinct event

	out := dedupeFeedback([]FeedbackLog{a, b, c})
	assert.Len(t, out, 2)
}

func TestDedupeFeedback_DuplicatedListEqualsUnduplicated(t *testing.T) {
	logs := []FeedbackLog{sampleLog(1, 1, 0, 1), sampleLog(-1, 2, 0, 2)}
	doubled := append(append([]FeedbackLog{}, logs...), logs...)

	assert.Equal(t, dedupeFeedback(logs), dedupeFeedback(doubled))
}

func TestDedupeFeedback_DifferingValueIsDistinctEvent(t *testing.T) {
	a := sampleLog(1, 100, 0, 5)
	b := sampleLog(-1, 100, 0, 5) // differs only in value: not a duplicate
	out := dedupeFeedback([]FeedbackLog{a, b})
	assert.Len(t, out, 2)
}

func TestMarkSynonymSeen_RecordsOverlapOnceBothSignaturesSeen(t *testing.T) {
	es := &EventSource{}

	es.markSynonymSeen("FeedbackPosted")
	assert.True(t, es.seenFeedbackPosted)
	assert.False(t, es.overlapRecorded)

	es.markSynonymSeen("FeedbackPosted")
	assert.False(t, es.overlapRecorded, "repeats of the same synonym must not trip overlap")

	es.markSynonymSeen("NewFeedback")
	assert.True(t, es.seenNewFeedback)
	assert.True(t, es.overlapRecorded)
}

func TestMarkSynonymSeen_OnlyOneSignatureNeverOverlaps(t *testing.T) {
	es := &EventSource{}
	es.markSynonymSeen("FeedbackPosted")
	es.markSynonymSeen("FeedbackPosted")
	assert.False(t, es.overlapRecorded)
}

func TestResetBlockTimeCache_ClearsSynonymOverlapState(t *testing.T) {
	es := &EventSource{}
	es.markSynonymSeen("FeedbackPosted")
	es.markSynonymSeen("NewFeedback")
	assert.True(t, es.overlapRecorded)

	es.ResetBlockTimeCache()
	assert.False(t, es.seenFeedbackPosted)
	assert.False(t, es.seenNewFeedback)
	assert.False(t, es.overlapRecorded)
}
