// Command trustctl resolves one trust query through the Trust Client and
// prints the resulting envelope as JSON, the CLI counterpart to the
// teacher's AGENT_SERVER_MODE/VALIDATION_ONLY_MODE env switches
// (here: TRUSTCTL_MODE, TRUSTCTL_KIND, TRUSTCTL_AGENT_ID).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/hetu-project/trust-oracle/internal/chain"
	"github.com/hetu-project/trust-oracle/internal/config"
	"github.com/hetu-project/trust-oracle/internal/envelope"
	"github.com/hetu-project/trust-oracle/internal/trustclient"
	"github.com/hetu-project/trust-oracle/internal/x402"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("warning: could not load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}

	agentID := os.Getenv("TRUSTCTL_AGENT_ID")
	if agentID == "" && len(os.Args) > 1 {
		agentID = os.Args[1]
	}
	if agentID == "" {
		fmt.Println("usage: trustctl <agentId>  (or set TRUSTCTL_AGENT_ID)")
		os.Exit(1)
	}

	kind := trustclient.KindScore
	if os.Getenv("TRUSTCTL_KIND") == "report" {
		kind = trustclient.KindReport
	}

	mode := cfg.DefaultMode
	if m := os.Getenv("TRUSTCTL_MODE"); m != "" {
		mode = envelope.Source(m)
	}

	var reader *chain.Reader
	if cfg.AllowOnchainFallback || mode == envelope.SourceTrustScoreOnChain {
		reader, err = chain.NewReader(cfg.RPCURL, common.HexToAddress(cfg.TrustScoreAddress))
		if err != nil {
			fmt.Printf("warning: on-chain fallback unavailable: %v\n", err)
			reader = nil
		} else {
			defer reader.Close()
		}
	}

	var attacher *x402.ProofAttacher
	if cfg.X402PayerPrivateKey != "" {
		attacher, err = x402.NewProofAttacherFromHex(
			cfg.X402PayerPrivateKey,
			common.HexToAddress(cfg.X402PayeeAddress),
			common.HexToAddress(cfg.X402TokenAddress),
			cfg.X402TokenName,
			int64(cfg.ChainID),
			cfg.X402MaxPaymentAtomic,
		)
		if err != nil {
			fmt.Printf("warning: x402 proof attacher unavailable: %v\n", err)
			attacher = nil
		}
	}

	clientCfg := trustclient.Config{
		BaseURL:                  cfg.BaseURL,
		ConfidenceThreshold:      cfg.ConfidenceThresholdCount,
		NegativeFlagThresholdBps: cfg.NegativeFlagThresholdBps,
	}
	if reader != nil {
		clientCfg.ContractReader = reader
	}

	client := trustclient.New(clientCfg, attacher)

	resp := client.Resolve(context.Background(), kind, agentID, trustclient.Options{
		Mode:                 mode,
		AllowDemoFallback:    cfg.AllowDemoFallback,
		AllowOnchainFallback: cfg.AllowOnchainFallback,
		TimeoutMs:            cfg.TimeoutMs,
	})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Printf("failed to encode response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if resp.Status == envelope.StatusError {
		os.Exit(1)
	}
}
