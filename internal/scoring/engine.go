package scoring

import "math"

// Result is the output of Compute: the bounded score plus every intermediate
// counter a caller (the response shaper, or a cycle's metrics) might need.
type Result struct {
	Score                  float64
	BaseScore              float64
	ConfidenceAdjustedScore float64
	Flagged                bool
	TotalFeedback          int64
	PositiveFeedback       int64
	RecentNegativeRateBps  int64
	RecentFeedbackCount    int64
	ConfidenceApplied      bool
}

// Compute transforms a feedback set into a bounded trust score. It is a pure
// function: feedbacks is never mutated, nowMs is the caller's clock, and
// identical inputs always produce a byte-for-byte identical Result
// (spec.md §4.1, "Determinism").
func Compute(feedbacks []Feedback, cfg Config, nowMs int64) (Result, error) {
	cutoffRecent := nowMs - int64(cfg.DecayWindowDays)*86400000
	cutoffNeg := nowMs - int64(cfg.RecentNegativeWindowDays)*86400000

	var (
		weightedTotal       float64
		weightedPositive    float64
		totalFeedback       int64
		positiveFeedback    int64
		recentFeedbackCount int64
		recentNegativeCount int64
	)

	for i, f := range feedbacks {
		rf, err := resolve(i, f)
		if err != nil {
			return Result{}, err
		}

		weight := cfg.OlderFeedbackWeight
		if rf.timestampMs >= cutoffRecent {
			weight = cfg.RecentFeedbackWeight
		}

		weightedTotal += weight
		totalFeedback++
		if rf.positive {
			weightedPositive += weight
			positiveFeedback++
		}

		if rf.timestampMs >= cutoffNeg {
			recentFeedbackCount++
			if !rf.positive {
				recentNegativeCount++
			}
		}
	}

	if weightedTotal == 0 {
		return Result{}, nil
	}

	baseRaw := (weightedPositive / weightedTotal) * cfg.MaxScore
	confidenceApplied := totalFeedback >= int64(cfg.ConfidenceThresholdFeedbackCount)

	confidenceAdjustedRaw := baseRaw
	if confidenceApplied {
		confidenceAdjustedRaw = baseRaw * cfg.ConfidenceMultiplier
	}

	var recentNegativeRateBps int64
	if recentFeedbackCount > 0 {
		recentNegativeRateBps = int64(math.Round((float64(recentNegativeCount) / float64(recentFeedbackCount)) * 10000))
	}

	flagged := recentFeedbackCount > 0 && recentNegativeRateBps > cfg.NegativeFlagThresholdBps

	penalizedRaw := confidenceAdjustedRaw
	if flagged {
		penalizedRaw = confidenceAdjustedRaw * cfg.FlaggedScoreMultiplier
	}

	return Result{
		Score:                   clampRound(penalizedRaw, cfg.MaxScore),
		BaseScore:               clampRound(baseRaw, cfg.MaxScore),
		ConfidenceAdjustedScore: clampRound(confidenceAdjustedRaw, cfg.MaxScore),
		Flagged:                 flagged,
		TotalFeedback:           totalFeedback,
		PositiveFeedback:        positiveFeedback,
		RecentNegativeRateBps:   recentNegativeRateBps,
		RecentFeedbackCount:     recentFeedbackCount,
		ConfidenceApplied:       confidenceApplied,
	}, nil
}

func clampRound(v, maxScore float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > maxScore {
		v = maxScore
	}
	return math.Round(v)
}
