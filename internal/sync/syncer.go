package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thanhnp/ledger-node/internal/consensus"
	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/models"
	"github.com/thanhnp/ledger-node/internal/notifier"
	"github.com/thanhnp/ledger-node/internal/storage"
)

// Resolver runs one conflict resolution pass
type Resolver interface {
	ResolveConflicts(ctx context.Context) (consensus.Result, error)
}

// Source is the ledger as seen by the syncer
type Source interface {
	notifier.ChainNotifier
	Chain() []models.Block
}

// Syncer mirrors the ledger into the block index and, when configured,
// periodically resolves conflicts with peers
type Syncer struct {
	source          Source
	blockStore      *storage.BlockStore
	resolver        Resolver
	resolveInterval time.Duration
	log             logrus.FieldLogger

	mu      sync.Mutex
	syncing bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSyncer creates a new Syncer. A zero resolveInterval disables the
// background resolution loop.
func NewSyncer(
	source Source,
	blockStore *storage.BlockStore,
	resolver Resolver,
	resolveInterval time.Duration,
	log logrus.FieldLogger,
) *Syncer {
	return &Syncer{
		source:          source,
		blockStore:      blockStore,
		resolver:        resolver,
		resolveInterval: resolveInterval,
		log:             log.WithField("component", "sync"),
	}
}

// Start indexes the current chain, subscribes to ledger events and starts
// the resolution loop. It must run before the ledger is mutated concurrently,
// otherwise a block mined during the initial copy could be dropped from the index.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return nil
	}
	s.syncing = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.source.OnBlockConnected(s.handleBlockConnected)
	s.source.OnChainReplaced(s.handleChainReplaced)

	if err := s.indexChain(s.source.Chain()); err != nil {
		return fmt.Errorf("failed to index chain: %w", err)
	}

	if s.resolveInterval > 0 && s.resolver != nil {
		s.wg.Add(1)
		go s.resolveLoop(ctx)
	}

	return nil
}

// Stop stops the resolution loop
func (s *Syncer) Stop() error {
	s.mu.Lock()
	if !s.syncing {
		s.mu.Unlock()
		return nil
	}
	s.syncing = false
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Syncer) indexChain(chain []models.Block) error {
	blocks := make([]*models.IndexedBlock, len(chain))
	for i, b := range chain {
		blocks[i] = &models.IndexedBlock{Hash: ledger.Hash(b), Block: b}
	}
	if err := s.blockStore.ReplaceAll(blocks); err != nil {
		return err
	}
	s.log.WithField("blocks", len(blocks)).Info("[sync] block index rebuilt")
	return nil
}

// handleBlockConnected indexes a newly mined block
func (s *Syncer) handleBlockConnected(block models.Block) {
	hash := ledger.Hash(block)
	if err := s.blockStore.Save(&models.IndexedBlock{Hash: hash, Block: block}); err != nil {
		s.log.WithError(err).WithField("index", block.Index).Error("[sync] failed to index block")
		return
	}
	s.log.WithFields(logrus.Fields{"index": block.Index, "hash": hash}).Debug("[sync] block indexed")
}

// handleChainReplaced rebuilds the index after the ledger adopted a peer chain
func (s *Syncer) handleChainReplaced(chain []models.Block) {
	if err := s.indexChain(chain); err != nil {
		s.log.WithError(err).Error("[sync] failed to rebuild block index")
	}
}

func (s *Syncer) resolveLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.resolveInterval)
	defer ticker.Stop()

	s.log.WithField("interval", s.resolveInterval).Info("[sync] background resolution enabled")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.resolver.ResolveConflicts(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.WithError(err).Warn("[sync] resolution failed")
				continue
			}
			s.log.WithFields(logrus.Fields{
				"replaced": res.Replaced,
				"length":   res.Length,
				"peers":    res.Consulted,
				"skipped":  res.Skipped,
			}).Debug("[sync] resolution pass finished")
		}
	}
}
