package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/thanhnp/ledger-node/internal/api"
	"github.com/thanhnp/ledger-node/internal/config"
	"github.com/thanhnp/ledger-node/internal/consensus"
	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/logging"
	"github.com/thanhnp/ledger-node/internal/miner"
	"github.com/thanhnp/ledger-node/internal/rpc"
	"github.com/thanhnp/ledger-node/internal/storage"
	"github.com/thanhnp/ledger-node/internal/sync"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	nodeID := cfg.Node.ID
	if nodeID == "" {
		nodeID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	logger.WithField("node_id", nodeID).Info("Starting ledger node...")

	// Open the block index
	db, err := storage.NewPebbleDB(cfg.Pebble.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open Pebble database")
	}
	if db.InMemory() {
		logger.Info("Block index kept in memory")
	} else {
		logger.WithField("path", cfg.Pebble.Path).Info("Block index opened on disk")
	}
	stores := storage.NewChainStores(db)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := ledger.New()
	for _, peer := range cfg.Node.Peers {
		if err := l.RegisterNode(peer); err != nil {
			logger.WithError(err).WithField("peer", peer).Warn("Ignoring seed peer")
		}
	}

	resolver := consensus.NewResolver(
		l,
		rpc.NewPeerClient(cfg.Consensus.FetchTimeoutDuration()),
		consensus.Config{
			FetchTimeout:  cfg.Consensus.FetchTimeoutDuration(),
			MaxConcurrent: cfg.Consensus.MaxConcurrent,
			StrictIndex:   cfg.Consensus.StrictIndex,
		},
		logger,
	)

	// The syncer must subscribe before anything else can mutate the ledger
	syncer := sync.NewSyncer(l, stores.BlockStore, resolver, cfg.Consensus.ResolveIntervalDuration(), logger)
	if err := syncer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start syncer")
	}

	m := miner.New(l, miner.Config{
		NodeID:  nodeID,
		Reward:  cfg.Mining.Reward,
		Timeout: cfg.Mining.TimeoutDuration(),
	}, logger)
	if err := m.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start miner")
	}

	router := api.NewRouter(nodeID, l, m, resolver, stores.BlockStore, logger)

	// Create HTTP server. WriteTimeout stays generous since /mine blocks
	// until a proof is found.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.WithField("addr", addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Cancel context first so an in-flight /mine aborts instead of holding
	// up the HTTP shutdown
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
	}

	if err := m.Stop(); err != nil {
		logger.WithError(err).Error("Error stopping miner")
	}
	if err := syncer.Stop(); err != nil {
		logger.WithError(err).Error("Error stopping syncer")
	}
	if err := stores.Close(); err != nil {
		logger.WithError(err).Error("Error closing block index")
	}

	logger.Info("Server stopped")
}
