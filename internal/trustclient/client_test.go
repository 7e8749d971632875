package trustclient

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetu-project/trust-oracle/internal/chain"
	"github.com/hetu-project/trust-oracle/internal/envelope"
	"github.com/hetu-project/trust-oracle/internal/trustclient/trustclienttest"
)

type fakeContractReader struct {
	report chain.DetailedReport
	err    error
}

func (f fakeContractReader) GetDetailedReport(ctx context.Context, agentID *big.Int) (chain.DetailedReport, error) {
	return f.report, f.err
}

func TestResolve_InvalidAgentID(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, nil)
	resp := c.Resolve(context.Background(), KindScore, "abc", Options{})

	assert.Equal(t, envelope.StatusError, resp.Status)
	assert.Equal(t, envelope.FallbackInvalidAgentID, resp.Fallback)
	assert.Nil(t, resp.Score)
	assert.Equal(t, envelope.RecommendationManualReview, resp.Recommendation)
	assert.True(t, resp.Valid())
}

func TestResolve_PaidSourceSuccess(t *testing.T) {
	srv := trustclienttest.NewServer()
	defer srv.Close()
	srv.SetScore("42", trustclienttest.Response{Body: map[string]interface{}{
		"agentId": "42", "score": 850.0, "totalFeedback": 120.0,
	}})

	c := New(Config{BaseURL: srv.URL, ConfidenceThreshold: 50}, nil)
	resp := c.Resolve(context.Background(), KindScore, "42", Options{Mode: envelope.SourceAPIPaid})

	assert.Equal(t, envelope.StatusOK, resp.Status)
	assert.Equal(t, envelope.FallbackNone, resp.Fallback)
	assert.Equal(t, envelope.SourceAPIPaid, resp.Source)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 850.0, *resp.Score)
	assert.Equal(t, envelope.VerdictTrusted, resp.Verdict)
	assert.True(t, resp.Valid())
}

func TestResolve_FallbackChainToContract(t *testing.T) {
	srv := trustclienttest.NewServer()
	defer srv.Close()
	srv.SetScore("42", trustclienttest.Response{Status: 500, Body: map[string]string{"error": "upstream exploded"}})

	fake := fakeContractReader{report: chain.DetailedReport{
		Score:            big.NewInt(800),
		TotalFeedback:    big.NewInt(80),
		PositiveFeedback: big.NewInt(70),
		LastUpdated:      big.NewInt(1700000000),
		Exists:           true,
	}}

	c := New(Config{BaseURL: srv.URL, ContractReader: fake, ConfidenceThreshold: 50, NegativeFlagThresholdBps: 2000}, nil)
	resp := c.Resolve(context.Background(), KindScore, "42", Options{Mode: envelope.SourceAPIPaid, AllowOnchainFallback: true})

	assert.Equal(t, envelope.StatusDegraded, resp.Status)
	assert.Equal(t, envelope.SourceTrustScoreOnChain, resp.Source)
	assert.Equal(t, envelope.FallbackOracleUnavailable, resp.Fallback)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 800.0, *resp.Score)
	assert.Equal(t, envelope.VerdictTrusted, resp.Verdict)
	assert.True(t, resp.Valid())
}

func TestResolve_AllSourcesFailAgentNotFound(t *testing.T) {
	srv := trustclienttest.NewServer()
	defer srv.Close()
	// no script for "999": fixture returns 404 for unscripted agents

	fake := fakeContractReader{err: errors.New("execution reverted: agent not found")}

	c := New(Config{BaseURL: srv.URL, ContractReader: fake}, nil)
	resp := c.Resolve(context.Background(), KindScore, "999", Options{Mode: envelope.SourceAPIPaid, AllowOnchainFallback: true})

	assert.Equal(t, envelope.StatusError, resp.Status)
	assert.Equal(t, envelope.FallbackAgentNotFound, resp.Fallback)
	assert.True(t, resp.Valid())
}

func TestResolve_AllSourcesFailNonNotFound(t *testing.T) {
	srv := trustclienttest.NewServer()
	defer srv.Close()
	srv.SetScore("7", trustclienttest.Response{Status: 500})

	fake := fakeContractReader{err: errors.New("socket hang up")}

	c := New(Config{BaseURL: srv.URL, ContractReader: fake}, nil)
	resp := c.Resolve(context.Background(), KindScore, "7", Options{Mode: envelope.SourceAPIPaid, AllowOnchainFallback: true})

	assert.Equal(t, envelope.StatusDegraded, resp.Status)
	assert.Equal(t, envelope.FallbackRPCUnavailable, resp.Fallback)
	assert.True(t, resp.Valid())
}

func TestResolve_DemoModeNoPaymentHeaderRequired(t *testing.T) {
	srv := trustclienttest.NewServer()
	defer srv.Close()
	srv.RequirePayment(true)
	srv.SetScore("5", trustclienttest.Response{Body: map[string]interface{}{"agentId": "5", "score": 600.0}})

	c := New(Config{BaseURL: srv.URL}, nil)
	resp := c.Resolve(context.Background(), KindScore, "5", Options{Mode: envelope.SourceAPIDemo})

	assert.Equal(t, envelope.StatusOK, resp.Status)
	assert.Equal(t, envelope.SourceAPIDemo, resp.Source)
}

func TestResolve_PaidModeWithoutProofGets402(t *testing.T) {
	srv := trustclienttest.NewServer()
	defer srv.Close()
	srv.RequirePayment(true)
	srv.SetScore("5", trustclienttest.Response{Body: map[string]interface{}{"agentId": "5", "score": 600.0}})

	c := New(Config{BaseURL: srv.URL}, nil) // no attacher configured
	resp := c.Resolve(context.Background(), KindScore, "5", Options{Mode: envelope.SourceAPIPaid})

	assert.Equal(t, envelope.StatusDegraded, resp.Status)
	assert.Equal(t, envelope.FallbackPaymentUnavailable, resp.Fallback)
}

func TestSourceSequence(t *testing.T) {
	assert.Equal(t, []envelope.Source{envelope.SourceTrustScoreOnChain}, sourceSequence(Options{Mode: envelope.SourceTrustScoreOnChain}))

	assert.Equal(t, []envelope.Source{envelope.SourceAPIDemo}, sourceSequence(Options{Mode: envelope.SourceAPIDemo}))
	assert.Equal(t,
		[]envelope.Source{envelope.SourceAPIDemo, envelope.SourceTrustScoreOnChain},
		sourceSequence(Options{Mode: envelope.SourceAPIDemo, AllowOnchainFallback: true}))

	assert.Equal(t, []envelope.Source{envelope.SourceAPIPaid}, sourceSequence(Options{}))
	assert.Equal(t,
		[]envelope.Source{envelope.SourceAPIPaid, envelope.SourceAPIDemo, envelope.SourceTrustScoreOnChain},
		sourceSequence(Options{AllowDemoFallback: true, AllowOnchainFallback: true}))
}
