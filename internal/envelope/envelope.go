// Package envelope defines the leaf response and fallback types shared by the
// fallback classifier, response shaper, and trust client. Keeping them here
// (rather than inside the trust client itself) breaks the cyclic dependency
// the source system had between its client and fallback-mapping modules
// (see Design Note 9.2).
package envelope

import "time"

// Status is the top-level outcome of a trust query.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Verdict is the categorical trust label derived from a score.
type Verdict string

const (
	VerdictTrusted   Verdict = "TRUSTED"
	VerdictCaution   Verdict = "CAUTION"
	VerdictDangerous Verdict = "DANGEROUS"
	VerdictUnknown   Verdict = "UNKNOWN"
)

// Recommendation is the action tier derived from a Verdict.
type Recommendation string

const (
	RecommendationProceed      Recommendation = "proceed"
	RecommendationManualReview Recommendation = "manual_review"
	RecommendationAbort        Recommendation = "abort"
)

// Source identifies which backend produced (or was last attempted for) a response.
type Source string

const (
	SourceAPIPaid           Source = "api_paid"
	SourceAPIDemo           Source = "api_demo"
	SourceTrustScoreOnChain Source = "trustscore_contract"
)

// FallbackCode is the stable, machine-readable cause classification for any
// unsuccessful source attempt (spec.md §7).
type FallbackCode string

const (
	FallbackNone                FallbackCode = ""
	FallbackInvalidAgentID      FallbackCode = "invalid_agent_id"
	FallbackAPITimeout          FallbackCode = "api_timeout"
	FallbackPaymentUnavailable  FallbackCode = "payment_unavailable"
	FallbackOracleUnavailable   FallbackCode = "oracle_unavailable"
	FallbackRPCUnavailable      FallbackCode = "rpc_unavailable"
	FallbackAgentNotFound       FallbackCode = "agent_not_found"
)

// RiskFactor tags, in the fixed insertion order the response shaper produces them.
const (
	RiskLowFeedbackVolume      = "low_feedback_volume"
	RiskHighNegativeFeedback   = "high_negative_feedback_ratio"
	RiskLowTrustScore          = "low_trust_score"
)

// Data carries source-specific analytics attached to a response.
type Data struct {
	TotalFeedback    *int64   `json:"totalFeedback,omitempty"`
	PositiveFeedback *int64   `json:"positiveFeedback,omitempty"`
	LastUpdated      *int64   `json:"lastUpdated,omitempty"`
	Flagged          *bool    `json:"flagged,omitempty"`
	RiskFactors      []string `json:"riskFactors,omitempty"`
	NegativeRateBps  *int64   `json:"negativeRateBps,omitempty"`
}

// Response is the structured envelope returned by the trust client for every query.
type Response struct {
	Status         Status         `json:"status"`
	AgentID        string         `json:"agentId"`
	Score          *float64       `json:"score"`
	Confidence     *float64       `json:"confidence"`
	Verdict        Verdict        `json:"verdict"`
	Recommendation Recommendation `json:"recommendation"`
	Source         Source         `json:"source"`
	Fallback       FallbackCode   `json:"fallback"`
	Error          string         `json:"error,omitempty"`
	TimingMs       int64          `json:"timingMs"`
	Timestamp      time.Time      `json:"timestamp"`
	CorrelationID  string         `json:"correlationId"`
	Data           *Data          `json:"data,omitempty"`
}

// Valid reports whether the envelope upholds the status/fallback invariant:
// status=ok implies fallback is empty, and status in {degraded, error} implies
// fallback is set.
func (r Response) Valid() bool {
	if r.Status == StatusOK {
		return r.Fallback == FallbackNone
	}
	return r.Fallback != FallbackNone
}
