// Package shaper computes the verdict/recommendation/confidence and
// data fields of a structured response envelope from raw source data
// (spec.md §4.8). It fills in everything Shape can derive from the data
// itself; the Trust Client layers status/fallback/error/timing/
// correlationId/agentId on top once the source sequence is resolved.
package shaper

import (
	"math"

	"github.com/hetu-project/trust-oracle/internal/envelope"
)

// RawData is the source-reported payload before shaping. A field left nil
// means the source didn't report it explicitly.
type RawData struct {
	Score            *float64
	Confidence       *float64
	ConfidenceBand   string // "high" | "low" | "none" | "" (unset)
	TotalFeedback    *int64
	PositiveFeedback *int64
	LastUpdated      *int64
	Flagged          *bool
	RiskFactors      []string
	NegativeRateBps  *int64
}

// Input configures one Shape call.
type Input struct {
	Source envelope.Source
	Raw    RawData
	// FromContract marks a contract-sourced report: analytics (negative
	// rate, flagged, risk factors) are re-derived locally from
	// total/positive rather than trusted from Raw.
	FromContract bool
	// ConfidenceThreshold mirrors scoring.Config.ConfidenceThresholdFeedbackCount,
	// used both to derive an implicit confidence and to flag low volume.
	ConfidenceThreshold int64
	NegativeFlagThresholdBps int64
	// DisableNoHistoryMask turns off the score=0-as-UNKNOWN special case
	// (spec.md Design Notes §9, "confidence = 0 edge case").
	DisableNoHistoryMask bool
}

// Shape derives {score, confidence, verdict, recommendation, data} from in.
// Status, fallback, error, timing, correlationId and agentId are the Trust
// Client's responsibility, not Shape's.
func Shape(in Input) envelope.Response {
	score := normalizeScore(in.Raw.Score)
	confidence := deriveConfidence(in.Raw, in.ConfidenceThreshold)

	totalFeedback := deref(in.Raw.TotalFeedback)
	positiveFeedback := deref(in.Raw.PositiveFeedback)

	var negativeRateBps int64
	var flagged bool
	var riskFactors []string

	if in.FromContract {
		negative := totalFeedback - positiveFeedback
		if negative < 0 {
			negative = 0
		}
		if totalFeedback > 0 {
			negativeRateBps = int64(math.Round((float64(negative) / float64(totalFeedback)) * 10000))
		}
		flagged = totalFeedback > 0 && negativeRateBps > in.NegativeFlagThresholdBps
		riskFactors = deriveRiskFactors(totalFeedback, flagged, score, in.ConfidenceThreshold)
	} else {
		negativeRateBps = deref(in.Raw.NegativeRateBps)
		flagged = derefBool(in.Raw.Flagged)
		riskFactors = in.Raw.RiskFactors
	}

	verdict := deriveVerdict(score, confidence, totalFeedback, positiveFeedback, in.DisableNoHistoryMask)
	recommendation := deriveRecommendation(verdict)

	return envelope.Response{
		Score:          score,
		Confidence:     confidence,
		Verdict:        verdict,
		Recommendation: recommendation,
		Source:         in.Source,
		Data: &envelope.Data{
			TotalFeedback:    in.Raw.TotalFeedback,
			PositiveFeedback: in.Raw.PositiveFeedback,
			LastUpdated:      in.Raw.LastUpdated,
			Flagged:          &flagged,
			RiskFactors:      riskFactors,
			NegativeRateBps:  &negativeRateBps,
		},
	}
}

func normalizeScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	if v < 0 {
		v = 0
	}
	return &v
}

func deriveConfidence(raw RawData, threshold int64) *float64 {
	if raw.Confidence != nil {
		return clampConfidence(*raw.Confidence)
	}
	if raw.TotalFeedback != nil && threshold > 0 {
		v := float64(*raw.TotalFeedback) / float64(threshold)
		return clampConfidence(v)
	}
	switch raw.ConfidenceBand {
	case "high":
		return clampConfidence(1)
	case "low":
		return clampConfidence(0.4)
	case "none":
		return clampConfidence(0)
	default:
		return nil
	}
}

func clampConfidence(v float64) *float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	rounded := math.Round(v*10000) / 10000
	return &rounded
}

func deriveRiskFactors(total int64, flagged bool, score *float64, threshold int64) []string {
	var tags []string
	if total < threshold {
		tags = append(tags, envelope.RiskLowFeedbackVolume)
	}
	if flagged {
		tags = append(tags, envelope.RiskHighNegativeFeedback)
	}
	if score != nil && *score < 500 {
		tags = append(tags, envelope.RiskLowTrustScore)
	}
	return tags
}

func deriveVerdict(score, confidence *float64, total, positive int64, disableMask bool) envelope.Verdict {
	if score == nil {
		return envelope.VerdictUnknown
	}

	noHistory := *score == 0 && !disableMask && ((total == 0 && positive == 0) || (confidence != nil && *confidence == 0))
	if noHistory {
		return envelope.VerdictUnknown
	}

	switch {
	case *score > 700:
		return envelope.VerdictTrusted
	case *score >= 400:
		return envelope.VerdictCaution
	default:
		return envelope.VerdictDangerous
	}
}

func deriveRecommendation(v envelope.Verdict) envelope.Recommendation {
	switch v {
	case envelope.VerdictTrusted:
		return envelope.RecommendationProceed
	case envelope.VerdictDangerous:
		return envelope.RecommendationAbort
	default:
		return envelope.RecommendationManualReview
	}
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefBool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}
