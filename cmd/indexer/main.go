// Command indexer runs the reputation oracle's checkpointed indexer cycle,
// either once (for cron-style invocation) or as a polling loop, mirroring
// the teacher's env-switch-on-mode main.go (AGENT_SERVER_MODE,
// VALIDATION_ONLY_MODE become INDEXER_ONCE below).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/hetu-project/trust-oracle/internal/chain"
	"github.com/hetu-project/trust-oracle/internal/checkpoint"
	"github.com/hetu-project/trust-oracle/internal/config"
	"github.com/hetu-project/trust-oracle/internal/indexer"
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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	fmt.Println("=== Reputation Oracle Indexer ===")
	fmt.Printf("RPC: %s   TrustScore: %s   Registry: %s\n", cfg.RPCURL, cfg.TrustScoreAddress, cfg.RegistryAddress)

	reader, err := chain.NewReader(cfg.RPCURL, common.HexToAddress(cfg.TrustScoreAddress))
	if err != nil {
		fmt.Printf("failed to connect to RPC endpoint: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	events, err := chain.NewEventSource(reader.Client(), common.HexToAddress(cfg.RegistryAddress))
	if err != nil {
		fmt.Printf("failed to prepare event source: %v\n", err)
		os.Exit(1)
	}

	var writer *chain.Writer
	if cfg.UpdaterPrivateKey != "" {
		writer, err = chain.NewWriter(cfg.RPCURL, common.HexToAddress(cfg.TrustScoreAddress), cfg.UpdaterPrivateKey, cfg.ChainID)
		if err != nil {
			fmt.Printf("failed to prepare updater signer: %v\n", err)
			os.Exit(1)
		}
		defer writer.Close()
	} else {
		fmt.Println("TRUST_ORACLE_UPDATER_PRIVATE_KEY not set: running read-only, scores will not be submitted")
	}

	store := checkpoint.NewStore(cfg.CheckpointFilePath)
	cyc := indexer.New(store, events, reader.Client(), writer, indexer.Config{
		StartBlock:   cfg.RegistryStartBlock,
		MaxBatchSize: cfg.MaxBatchSize,
		ScoringCfg:   cfg.Scoring,
	})

	once := os.Getenv("INDEXER_ONCE") == "true"
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if once {
		runCycle(ctx, logger, cyc)
		return
	}

	fmt.Printf("Starting polling loop (interval %dms)\n", cfg.PollIntervalMs)
	startIndexer(ctx, logger, cyc, time.Duration(cfg.PollIntervalMs)*time.Millisecond)
}

// startIndexer runs cycles spaced by interval; a cycle failure is logged
// and the loop continues on the next tick (spec.md §4.5).
func startIndexer(ctx context.Context, logger *slog.Logger, cyc *indexer.Cycle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runCycle(ctx, logger, cyc)
	for {
		select {
		case <-ctx.Done():
			logger.Info("indexer_stopped")
			return
		case <-ticker.C:
			runCycle(ctx, logger, cyc)
		}
	}
}

func runCycle(ctx context.Context, logger *slog.Logger, cyc *indexer.Cycle) {
	logger.Info("cycle_start")
	res, err := cyc.Run(ctx, time.Now().UnixMilli())
	if err != nil {
		logger.Error("cycle_failed", "error", err.Error())
		return
	}
	logger.Info("cycle_committed",
		"lastProcessedBlock", res.LastProcessedBlock,
		"processedAgentCount", len(res.ProcessedAgentIDs),
		"queuedAgentCount", len(res.QueuedAgentIDs),
	)
}
