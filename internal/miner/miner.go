package miner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/models"
)

// RewardSender marks the coinbase transaction paid to the miner
const RewardSender = "0"

var ErrNotRunning = errors.New("miner is not running")

// Chain is the subset of *ledger.Ledger the miner needs
type Chain interface {
	LastBlock() models.Block
	Forge(parentHash string, proof int64, coinbase ...models.Transaction) (models.Block, error)
}

// Config tunes the miner
type Config struct {
	NodeID  string
	Reward  float64
	Timeout time.Duration // per job, zero for none
}

type job struct {
	ctx    context.Context
	result chan jobResult
}

type jobResult struct {
	block models.Block
	err   error
}

// Miner runs proof-of-work searches on a dedicated goroutine, one at a time.
// Each search can be cancelled by its caller or by stopping the miner.
type Miner struct {
	chain Chain
	cfg   Config
	log   logrus.FieldLogger

	jobs chan job

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Miner
func New(chain Chain, cfg Config, log logrus.FieldLogger) *Miner {
	return &Miner{
		chain: chain,
		cfg:   cfg,
		log:   log.WithField("component", "miner"),
		jobs:  make(chan job),
	}
}

// Start launches the worker goroutine
func (m *Miner) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.running = true

	go m.run(ctx, m.done)
	return nil
}

// Stop cancels any search in progress and waits for the worker to exit
func (m *Miner) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.cancel()
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// Mine searches a proof for the current tip and forges the next block with
// the pending pool plus the mining reward
func (m *Miner) Mine(ctx context.Context) (models.Block, error) {
	m.mu.Lock()
	running, done := m.running, m.done
	m.mu.Unlock()
	if !running {
		return models.Block{}, ErrNotRunning
	}

	j := job{ctx: ctx, result: make(chan jobResult, 1)}
	select {
	case m.jobs <- j:
	case <-ctx.Done():
		return models.Block{}, ctx.Err()
	case <-done:
		return models.Block{}, ErrNotRunning
	}

	select {
	case r := <-j.result:
		return r.block, r.err
	case <-ctx.Done():
		return models.Block{}, ctx.Err()
	}
}

func (m *Miner) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-m.jobs:
			block, err := m.runJob(ctx, j.ctx)
			j.result <- jobResult{block: block, err: err}
		}
	}
}

// runJob mines under a context that ends with either the worker or the caller
func (m *Miner) runJob(workerCtx, callerCtx context.Context) (models.Block, error) {
	ctx, cancel := context.WithCancel(callerCtx)
	defer cancel()
	stop := context.AfterFunc(workerCtx, cancel)
	defer stop()

	if m.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancelTimeout()
	}

	return m.mine(ctx)
}

func (m *Miner) mine(ctx context.Context) (models.Block, error) {
	reward := models.Transaction{
		Sender:    RewardSender,
		Recipient: m.cfg.NodeID,
		Amount:    m.cfg.Reward,
	}

	for {
		tip := m.chain.LastBlock()
		start := time.Now()

		proof, err := ledger.ProofOfWork(ctx, tip.Proof)
		if err != nil {
			m.log.WithError(err).WithField("height", tip.Index).Warn("[miner] proof search aborted")
			return models.Block{}, err
		}

		block, err := m.chain.Forge(ledger.Hash(tip), proof, reward)
		if errors.Is(err, ledger.ErrStaleTip) {
			m.log.WithField("height", tip.Index).Info("[miner] tip moved during search, retrying")
			continue
		}
		if err != nil {
			return models.Block{}, err
		}

		m.log.WithFields(logrus.Fields{
			"index":   block.Index,
			"proof":   proof,
			"txs":     len(block.Transactions),
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("[miner] new block forged")
		return block, nil
	}
}
