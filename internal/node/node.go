// Package node wires storage, the chain, the ledger service and the RPC
// server into one embeddable process.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/stockchain/config"
	"github.com/Klingon-tech/stockchain/internal/chain"
	"github.com/Klingon-tech/stockchain/internal/consensus"
	"github.com/Klingon-tech/stockchain/internal/ledger"
	klog "github.com/Klingon-tech/stockchain/internal/log"
	"github.com/Klingon-tech/stockchain/internal/rpc"
	"github.com/Klingon-tech/stockchain/internal/storage"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db     storage.DB // nil for the file engine
	ch     *chain.Chain
	ledger *ledger.Service

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, consensus, chain, ledger, RPC) but does NOT start the
// batch miner. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	if err := klog.Init(klog.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       expandHome(cfg.Log.File),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		MaxBackups: cfg.Log.MaxBackups,
	}); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("version", config.Version).
		Str("storage", cfg.Storage.Engine).
		Int("difficulty", cfg.Mining.Difficulty).
		Bool("auto_mine", cfg.Mining.Auto).
		Msg("Starting Stockchain Node")

	// ── 2. Consensus engine ─────────────────────────────────────────
	engine, err := consensus.NewPoW(cfg.Mining.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("create pow engine: %w", err)
	}

	// ── 3. Open storage ─────────────────────────────────────────────
	store, db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := checkDifficulty(storage.NewPrefixDB(db, metaPrefix), cfg.Mining.Difficulty, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("check stored difficulty: %w", err)
		}
	}
	logger.Info().Str("engine", cfg.Storage.Engine).Msg("Chain store opened")

	// ── 4. Chain ────────────────────────────────────────────────────
	done := klog.Benchmark("load chain")
	ch, err := chain.New(store, engine)
	done()
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("create chain: %w", err)
	}
	if loadErr := ch.LoadErr(); loadErr != nil {
		logger.Warn().Err(loadErr).Msg("Running on a fresh chain; the stored ledger is kept until the next block is mined")
	}

	// ── 5. Ledger service ───────────────────────────────────────────
	svc := ledger.NewService(ch, ledger.Options{AutoMine: cfg.Mining.Auto})

	// ── 6. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcServer = rpc.New(cfg.RPCListenAddr(), svc, cfg.RPC)
		if cfg.Metrics.Enabled {
			rpcServer.EnableMetrics()
		}
		if err := rpcServer.Start(); err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("start rpc: %w", err)
		}
	} else {
		if cfg.Metrics.Enabled {
			logger.Warn().Msg("metrics.enabled is true but RPC is disabled; /metrics unavailable")
		}
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		ch:        ch,
		ledger:    svc,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches the batch miner when adjustments are queued rather than
// mined on submission.
func (n *Node) Start() error {
	interval := time.Duration(n.cfg.Mining.Interval) * time.Second
	batching := !n.cfg.Mining.Auto && interval > 0
	if batching {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runMiner(interval)
		}()
	}

	latest, err := n.ch.Latest()
	if err != nil {
		return err
	}
	n.logger.Info().
		Int("blocks", n.ch.Len()).
		Str("tip", latest.Hash.Short()).
		Bool("batch_mining", batching).
		Msg("Node started successfully")

	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
	klog.Close()
}

// Ledger returns the node's ledger service.
func (n *Node) Ledger() *ledger.Service {
	return n.ledger
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// ChainLength returns the number of blocks including genesis.
func (n *Node) ChainLength() int {
	return n.ch.Len()
}

// runMiner seals whatever is pending on every tick.
func (n *Node) runMiner(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n.logger.Info().Dur("interval", interval).Msg("Batch mining enabled")

	for {
		select {
		case <-n.ctx.Done():
			n.logger.Info().Msg("Batch mining stopped")
			return
		case <-ticker.C:
			if len(n.ledger.Pending()) == 0 {
				continue
			}
			blk, err := n.ledger.Mine()
			if err != nil {
				if blk != nil && errors.Is(err, chain.ErrPersistence) {
					n.logger.Error().Err(err).Uint64("index", blk.Index).Msg("Block mined but not saved")
					continue
				}
				n.logger.Error().Err(err).Msg("Failed to mine pending adjustments")
				continue
			}
			if blk == nil {
				continue
			}
			n.logger.Info().
				Uint64("index", blk.Index).
				Str("hash", blk.Hash.Short()).
				Int("txs", len(blk.Transactions)).
				Msg("Batch sealed")
		}
	}
}
