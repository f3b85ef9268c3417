package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/models"
)

// Fetcher retrieves the chain a peer currently reports
type Fetcher interface {
	FetchChain(ctx context.Context, peer string) (*models.ChainResponse, error)
}

// Ledger is the subset of *ledger.Ledger the resolver needs
type Ledger interface {
	Nodes() []string
	Len() int
	ReplaceChain(chain []models.Block) bool
}

// Config tunes a resolution pass
type Config struct {
	FetchTimeout  time.Duration
	MaxConcurrent int
	StrictIndex   bool
}

// Result describes the outcome of one resolution pass
type Result struct {
	Replaced  bool
	Length    int    // local length after the pass
	Source    string // peer whose chain won, when Replaced
	Consulted int
	Skipped   int
}

// Resolver applies the longest-valid-chain rule against a Ledger
type Resolver struct {
	ledger  Ledger
	fetcher Fetcher
	cfg     Config
	log     logrus.FieldLogger
}

// NewResolver creates a Resolver
func NewResolver(l Ledger, f Fetcher, cfg Config, log logrus.FieldLogger) *Resolver {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Resolver{
		ledger:  l,
		fetcher: f,
		cfg:     cfg,
		log:     log.WithField("component", "consensus"),
	}
}

type fetchResult struct {
	peer  string
	chain *models.ChainResponse
	err   error
}

// ResolveConflicts fetches every registered peer's chain and replaces the
// local chain with the longest valid one that beats it. Unreachable peers and
// invalid chains are skipped. The only error returned is ctx's.
func (r *Resolver) ResolveConflicts(ctx context.Context) (Result, error) {
	peers := r.ledger.Nodes()
	results := r.fetchAll(ctx, peers)
	if err := ctx.Err(); err != nil {
		return Result{Length: r.ledger.Len()}, err
	}

	res := Result{Consulted: len(peers)}
	maxLength := r.ledger.Len()
	var best *fetchResult

	for i := range results {
		fr := &results[i]
		log := r.log.WithField("peer", fr.peer)

		if fr.err != nil {
			log.WithError(fr.err).Warn("[consensus] skipping peer")
			res.Skipped++
			continue
		}
		if fr.chain.Length != len(fr.chain.Chain) {
			log.WithField("length", fr.chain.Length).Warn("[consensus] reported length disagrees with chain body")
			res.Skipped++
			continue
		}
		if fr.chain.Length <= maxLength {
			log.WithField("length", fr.chain.Length).Debug("[consensus] peer chain not longer")
			continue
		}
		if err := ledger.VerifyChain(fr.chain.Chain, r.cfg.StrictIndex); err != nil {
			log.WithError(err).Warn("[consensus] discarding invalid chain")
			res.Skipped++
			continue
		}

		maxLength = fr.chain.Length
		best = fr
	}

	if best != nil && r.ledger.ReplaceChain(best.chain.Chain) {
		res.Replaced = true
		res.Source = best.peer
		r.log.WithFields(logrus.Fields{
			"peer":   best.peer,
			"length": best.chain.Length,
		}).Info("[consensus] local chain replaced")
	}

	res.Length = r.ledger.Len()
	return res, nil
}

// fetchAll fetches peers concurrently, at most MaxConcurrent at a time.
// Results keep the order of peers so the decision is deterministic.
func (r *Resolver) fetchAll(ctx context.Context, peers []string) []fetchResult {
	results := make([]fetchResult, len(peers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrent)
	for i, peer := range peers {
		i, peer := i, peer
		g.Go(func() error {
			results[i] = r.fetchOne(gctx, peer)
			// never fail the group: one peer must not cancel the others
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *Resolver) fetchOne(ctx context.Context, peer string) fetchResult {
	if r.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()
	}

	chain, err := r.fetcher.FetchChain(ctx, peer)
	if err == nil && chain == nil {
		err = fmt.Errorf("peer %s returned no chain", peer)
	}
	return fetchResult{peer: peer, chain: chain, err: err}
}
