package scoring

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Feedback is one input to the scoring engine. At least one of the sentiment
// fields and at least one of the timestamp fields needs to carry a value —
// when several are set, the engine resolves sentiment and the effective
// timestamp according to the priority order in spec.md §4.1.
type Feedback struct {
	// Timestamp shapes, checked in order: Time, then RawTimestamp (number or
	// RFC-3339 string).
	Time         *time.Time
	RawTimestamp interface{} // number (seconds or ms) or RFC-3339 string

	// Sentiment shapes, checked in order: explicit IsPositive flag, then
	// SentimentLabel, then Rating.
	IsPositive     *bool
	SentimentLabel string
	Rating         *float64
}

// InvalidFeedbackError signals a feedback entry with no resolvable timestamp
// or sentiment. It is fatal to the whole ScoringResult computation.
type InvalidFeedbackError struct {
	Index  int
	Reason string
}

func (e *InvalidFeedbackError) Error() string {
	return fmt.Sprintf("scoring: invalid feedback at index %d: %s", e.Index, e.Reason)
}

// resolvedFeedback is a Feedback reduced to the two numbers the algorithm
// actually needs.
type resolvedFeedback struct {
	timestampMs int64
	positive    bool
}

func resolve(index int, f Feedback) (resolvedFeedback, error) {
	ts, ok := resolveTimestamp(f)
	if !ok {
		return resolvedFeedback{}, &InvalidFeedbackError{Index: index, Reason: "missing or unparsable timestamp"}
	}
	pos, ok := resolveSentiment(f)
	if !ok {
		return resolvedFeedback{}, &InvalidFeedbackError{Index: index, Reason: "missing or unparsable sentiment"}
	}
	return resolvedFeedback{timestampMs: ts, positive: pos}, nil
}

func resolveTimestamp(f Feedback) (int64, bool) {
	if f.Time != nil {
		return f.Time.UnixMilli(), true
	}
	switch v := f.RawTimestamp.(type) {
	case nil:
		return 0, false
	case int64:
		return normalizeEpoch(float64(v)), true
	case int:
		return normalizeEpoch(float64(v)), true
	case float64:
		return normalizeEpoch(v), true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, false
		}
		return t.UnixMilli(), true
	default:
		return 0, false
	}
}

// normalizeEpoch interprets a bare number as seconds if it is smaller than
// 10^12, otherwise as milliseconds (spec.md §4.1).
func normalizeEpoch(v float64) int64 {
	if v < 1e12 {
		return int64(v * 1000)
	}
	return int64(v)
}

func resolveSentiment(f Feedback) (bool, bool) {
	if f.IsPositive != nil {
		return *f.IsPositive, true
	}
	if f.SentimentLabel != "" {
		switch strings.ToLower(f.SentimentLabel) {
		case "positive":
			return true, true
		case "negative":
			return false, true
		default:
			return false, false
		}
	}
	if f.Rating != nil {
		return *f.Rating > 0, true
	}
	return false, false
}

// PositiveFromValue parses a base-10 feedback value (within int64 range) and
// applies the same "positive means > 0" rule from spec.md §3 ("value > 0 is
// positive, else negative, zero treated as negative").
func PositiveFromValue(raw string) (bool, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("scoring: parse feedback value %q: %w", raw, err)
	}
	return v > 0, nil
}
