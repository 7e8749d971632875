// Package trustclient resolves a trust query across a prioritized source
// sequence (paid HTTP → demo HTTP → on-chain read), producing a structured,
// degradation-aware envelope (spec.md §4.7). It is a cooperative,
// single-in-flight-per-call pipeline: a query never parallelizes across
// sources, to preserve fallback ordering (spec.md §5).
package trustclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hetu-project/trust-oracle/internal/agentid"
	"github.com/hetu-project/trust-oracle/internal/envelope"
	"github.com/hetu-project/trust-oracle/internal/metrics"
	"github.com/hetu-project/trust-oracle/internal/shaper"
	"github.com/hetu-project/trust-oracle/internal/x402"
)

// Options configures one Resolve call.
type Options struct {
	Mode                 envelope.Source // defaults to SourceAPIPaid when empty
	AllowDemoFallback    bool
	AllowOnchainFallback bool
	TimeoutMs            int64 // defaults to 8000
	DisableNoHistoryMask bool
}

// Config is the Client's fixed, construction-time configuration.
type Config struct {
	BaseURL                  string
	ContractReader           ContractReader // may be nil if on-chain reads are never used
	ConfidenceThreshold      int64
	NegativeFlagThresholdBps int64
}

// Client resolves trust queries. It carries no per-call shared state beyond
// the lazily-built paid fetcher (spec.md §5); construction-after-use of that
// fetcher is forbidden by the single sync.Once guard below.
type Client struct {
	cfg Config

	paidFetcherOnce sync.Once
	paidHTTPClient  *http.Client
	proofAttacher   *x402.ProofAttacher

	demoHTTPClient *http.Client
}

// New builds a Client. attacher may be nil when the deployment never serves
// paid-mode queries; Resolve degrades a paid attempt to "no proof attached"
// in that case, which the upstream API will reject with 402.
func New(cfg Config, attacher *x402.ProofAttacher) *Client {
	return &Client{
		cfg:            cfg,
		proofAttacher:  attacher,
		demoHTTPClient: &http.Client{},
	}
}

func (c *Client) paidFetcher() *http.Client {
	c.paidFetcherOnce.Do(func() {
		c.paidHTTPClient = &http.Client{}
	})
	return c.paidHTTPClient
}

// sourceSequence computes the ordered source list per spec.md §4.7 step 2.
func sourceSequence(opts Options) []envelope.Source {
	switch opts.Mode {
	case envelope.SourceTrustScoreOnChain:
		return []envelope.Source{envelope.SourceTrustScoreOnChain}
	case envelope.SourceAPIDemo:
		seq := []envelope.Source{envelope.SourceAPIDemo}
		if opts.AllowOnchainFallback {
			seq = append(seq, envelope.SourceTrustScoreOnChain)
		}
		return seq
	default: // api_paid, the default mode
		seq := []envelope.Source{envelope.SourceAPIPaid}
		if opts.AllowDemoFallback {
			seq = append(seq, envelope.SourceAPIDemo)
		}
		if opts.AllowOnchainFallback {
			seq = append(seq, envelope.SourceTrustScoreOnChain)
		}
		return seq
	}
}

// Resolve answers one (kind, rawAgentID) query.
func (c *Client) Resolve(ctx context.Context, kind Kind, rawAgentID string, opts Options) envelope.Response {
	correlationID := uuid.New().String()
	start := time.Now()
	seq := sourceSequence(opts)

	id, err := agentid.Parse(rawAgentID)
	if err != nil {
		resp := envelope.Response{
			Status:        envelope.StatusError,
			AgentID:       rawAgentID,
			Verdict:       envelope.VerdictUnknown,
			Recommendation: envelope.RecommendationManualReview,
			Source:        seq[0],
			Fallback:      envelope.FallbackInvalidAgentID,
			Error:         err.Error(),
			TimingMs:      time.Since(start).Milliseconds(),
			Timestamp:     time.Now().UTC(),
			CorrelationID: correlationID,
		}
		metrics.RecordQuery(string(resp.Source), string(resp.Status), time.Since(start).Seconds())
		return resp
	}

	timeoutMs := opts.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 8000
	}

	var lastFallback envelope.FallbackCode
	var lastErrText string
	var lastSource envelope.Source

	for i, source := range seq {
		lastSource = source
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		result := c.attempt(attemptCtx, source, kind, id)
		cancel()

		if result.ok() {
			shaped := shaper.Shape(shaper.Input{
				Source:                   source,
				Raw:                      result.raw,
				FromContract:             result.fromContract,
				ConfidenceThreshold:      c.cfg.ConfidenceThreshold,
				NegativeFlagThresholdBps: c.cfg.NegativeFlagThresholdBps,
				DisableNoHistoryMask:     opts.DisableNoHistoryMask,
			})

			status := envelope.StatusOK
			fb := envelope.FallbackNone
			errText := ""
			if i > 0 {
				// spec.md §4.7 step 4 walks the chain mechanically and
				// leaves the envelope holding whichever failure classification
				// was current when the walk reached the source that finally
				// answered — i.e. the *last* prior failure, not the first.
				// §7's "fallback code of the first failure" reads the other
				// way, but the two only disagree when two or more sources in
				// the chain fail with *different* fallback codes (paid fails
				// with a timeout, demo fails with a 404, contract answers);
				// with exactly one prior failure, as in §8 scenario 5, first
				// and last are the same value and the passages can't be told
				// apart. We follow §4.7's mechanical walk: last failure wins.
				status = envelope.StatusDegraded
				fb = lastFallback
				errText = lastErrText
			}

			shaped.Status = status
			shaped.AgentID = id.String()
			shaped.Fallback = fb
			shaped.Error = errText
			shaped.TimingMs = time.Since(start).Milliseconds()
			shaped.Timestamp = time.Now().UTC()
			shaped.CorrelationID = correlationID

			metrics.RecordFallback(string(source), string(fb))
			metrics.RecordQuery(string(source), string(status), time.Since(start).Seconds())
			return shaped
		}

		lastFallback = result.fallbackCode
		lastErrText = result.errText
		metrics.RecordFallback(string(source), string(result.fallbackCode))
	}

	status := envelope.StatusDegraded
	if lastFallback == envelope.FallbackAgentNotFound {
		status = envelope.StatusError
	}

	resp := envelope.Response{
		Status:         status,
		AgentID:        id.String(),
		Verdict:        envelope.VerdictUnknown,
		Recommendation: envelope.RecommendationManualReview,
		Source:         lastSource,
		Fallback:       lastFallback,
		Error:          lastErrText,
		TimingMs:       time.Since(start).Milliseconds(),
		Timestamp:      time.Now().UTC(),
		CorrelationID:  correlationID,
	}
	metrics.RecordQuery(string(resp.Source), string(resp.Status), time.Since(start).Seconds())
	return resp
}

func (c *Client) attempt(ctx context.Context, source envelope.Source, kind Kind, id agentid.ID) attemptResult {
	switch source {
	case envelope.SourceAPIPaid:
		return attemptHTTP(ctx, c.paidFetcher(), c.proofAttacher, c.cfg.BaseURL, kind, id, false)
	case envelope.SourceAPIDemo:
		return attemptHTTP(ctx, c.demoHTTPClient, nil, c.cfg.BaseURL, kind, id, true)
	case envelope.SourceTrustScoreOnChain:
		if c.cfg.ContractReader == nil {
			return attemptResult{fallbackCode: envelope.FallbackOracleUnavailable, errText: "no contract reader configured"}
		}
		return attemptContract(ctx, c.cfg.ContractReader, id)
	default:
		return attemptResult{fallbackCode: envelope.FallbackOracleUnavailable, errText: "unknown source"}
	}
}
