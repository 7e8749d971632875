package trustclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/hetu-project/trust-oracle/internal/agentid"
	"github.com/hetu-project/trust-oracle/internal/chain"
	"github.com/hetu-project/trust-oracle/internal/envelope"
	"github.com/hetu-project/trust-oracle/internal/fallback"
	"github.com/hetu-project/trust-oracle/internal/shaper"
	"github.com/hetu-project/trust-oracle/internal/x402"
)

// ContractReader is the subset of *chain.Reader the Trust Client depends
// on, narrowed to an interface so tests can substitute a fake on-chain
// source without a live RPC endpoint.
type ContractReader interface {
	GetDetailedReport(ctx context.Context, agentID *big.Int) (chain.DetailedReport, error)
}

// Kind distinguishes the two HTTP routes the Trust Client resolves against.
type Kind string

const (
	KindScore  Kind = "score"
	KindReport Kind = "report"
)

// wireResponse mirrors both GET /score/:agentId and GET /report/:agentId
// response shapes (spec.md §6); report adds a handful of fields score
// omits.
type wireResponse struct {
	AgentID          string   `json:"agentId"`
	Score            *float64 `json:"score"`
	Confidence       *float64 `json:"confidence,omitempty"`
	ConfidenceBand   string   `json:"confidenceBand,omitempty"`
	TotalFeedback    *int64   `json:"totalFeedback,omitempty"`
	PositiveFeedback *int64   `json:"positiveFeedback,omitempty"`
	LastUpdated      *int64   `json:"lastUpdated,omitempty"`
	Flagged          *bool    `json:"flagged,omitempty"`
	RiskFactors      []string `json:"riskFactors,omitempty"`
	NegativeRateBps  *int64   `json:"negativeRateBps,omitempty"`
	Demo             bool     `json:"demo,omitempty"`
	Note             string   `json:"note,omitempty"`
}

// attemptResult is the sum type Design Note 9.2 calls for: either raw
// shapeable data, or a classified failure — never a raw error crossing the
// sequence walk.
type attemptResult struct {
	raw          shaper.RawData
	fromContract bool
	fallbackCode envelope.FallbackCode
	errText      string
}

func (r attemptResult) ok() bool { return r.fallbackCode == envelope.FallbackNone }

// attemptHTTP performs one GET against path, attaching a payment proof for
// paid (non-demo) requests, and enforces a single-shot timeoutMs abort.
func attemptHTTP(ctx context.Context, httpClient *http.Client, attacher *x402.ProofAttacher, baseURL string, kind Kind, id agentid.ID, demo bool) attemptResult {
	path := "score"
	if kind == KindReport {
		path = "report"
	}

	u := fmt.Sprintf("%s/%s/%s", baseURL, path, id.String())
	if demo {
		u += "?demo=true"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return attemptResult{fallbackCode: envelope.FallbackOracleUnavailable, errText: err.Error()}
	}

	if !demo && attacher != nil {
		if err := attacher.Attach(req); err != nil {
			return attemptResult{fallbackCode: envelope.FallbackPaymentUnavailable, errText: err.Error()}
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		aborted := ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
		code := fallback.ClassifyHTTP(fallback.HTTPFailure{Aborted: aborted, Message: err.Error()})
		return attemptResult{fallbackCode: envelope.FallbackCode(code), errText: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := fallback.ClassifyHTTP(fallback.HTTPFailure{StatusCode: resp.StatusCode})
		return attemptResult{fallbackCode: envelope.FallbackCode(code), errText: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return attemptResult{fallbackCode: envelope.FallbackOracleUnavailable, errText: err.Error()}
	}

	return attemptResult{raw: shaper.RawData{
		Score:            wire.Score,
		Confidence:       wire.Confidence,
		ConfidenceBand:   wire.ConfidenceBand,
		TotalFeedback:    wire.TotalFeedback,
		PositiveFeedback: wire.PositiveFeedback,
		LastUpdated:      wire.LastUpdated,
		Flagged:          wire.Flagged,
		RiskFactors:      wire.RiskFactors,
		NegativeRateBps:  wire.NegativeRateBps,
	}}
}

// attemptContract reads getDetailedReport from the on-chain TrustScore
// contract directly.
func attemptContract(ctx context.Context, reader ContractReader, id agentid.ID) attemptResult {
	report, err := reader.GetDetailedReport(ctx, id.Value)
	if err != nil {
		code := fallback.ClassifyContract(err)
		return attemptResult{fallbackCode: envelope.FallbackCode(code), errText: err.Error()}
	}
	if !report.Exists {
		return attemptResult{fallbackCode: envelope.FallbackAgentNotFound, errText: "agent not found on-chain"}
	}

	score := float64(report.Score.Int64())
	total := report.TotalFeedback.Int64()
	positive := report.PositiveFeedback.Int64()
	lastUpdated := report.LastUpdated.Int64()

	return attemptResult{
		fromContract: true,
		raw: shaper.RawData{
			Score:            &score,
			TotalFeedback:    &total,
			PositiveFeedback: &positive,
			LastUpdated:      &lastUpdated,
		},
	}
}
