package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCycle_LabelsOutcomeCommittedOrFailed(t *testing.T) {
	before := testutil.ToFloat64(CyclesTotal.WithLabelValues("committed"))
	RecordCycle(0.5, true)
	assert.Equal(t, before+1, testutil.ToFloat64(CyclesTotal.WithLabelValues("committed")))

	before = testutil.ToFloat64(CyclesTotal.WithLabelValues("failed"))
	RecordCycle(0.1, false)
	assert.Equal(t, before+1, testutil.ToFloat64(CyclesTotal.WithLabelValues("failed")))
}

func TestRecordOverflow_AddsCountAndIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(OverflowedAgentsTotal)
	RecordOverflow(3)
	assert.Equal(t, before+3, testutil.ToFloat64(OverflowedAgentsTotal))

	RecordOverflow(0)
	RecordOverflow(-5)
	assert.Equal(t, before+3, testutil.ToFloat64(OverflowedAgentsTotal), "non-positive counts must not touch the counter")
}

func TestRecordEventSynonymOverlap_Increments(t *testing.T) {
	before := testutil.ToFloat64(EventSynonymOverlapTotal)
	RecordEventSynonymOverlap()
	assert.Equal(t, before+1, testutil.ToFloat64(EventSynonymOverlapTotal))
}
