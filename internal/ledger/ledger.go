package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/thanhnp/ledger-node/internal/models"
	"github.com/thanhnp/ledger-node/internal/notifier"
)

const (
	// GenesisProof is the proof carried by the first block
	GenesisProof int64 = 100
	// GenesisPreviousHash is the sentinel link of the first block
	GenesisPreviousHash = "1"
)

var (
	ErrStaleTip       = errors.New("chain tip changed")
	ErrInvalidProof   = errors.New("proof does not satisfy the work target")
	ErrInvalidAddress = errors.New("invalid node address")
	ErrInvalidAmount  = errors.New("amount must be a finite number")
)

// Clock supplies block timestamps
type Clock func() time.Time

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the wall clock used for block timestamps
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// Ledger owns the chain, the pending pool and the peer set.
// Appends, mining and replacement are serialized by mu; reads share it.
type Ledger struct {
	mu      sync.RWMutex
	chain   []models.Block
	pending []models.Transaction
	nodes   map[string]struct{}
	clock   Clock

	blockHandlers   []notifier.BlockHandler
	replaceHandlers []notifier.ReplaceHandler
}

var _ notifier.ChainNotifier = (*Ledger)(nil)

// New creates a Ledger with the genesis block already appended
func New(opts ...Option) *Ledger {
	l := &Ledger{
		nodes: make(map[string]struct{}),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.appendBlock(GenesisProof, GenesisPreviousHash)
	return l
}

// OnBlockConnected registers a handler invoked after every new block
func (l *Ledger) OnBlockConnected(handler notifier.BlockHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blockHandlers = append(l.blockHandlers, handler)
}

// OnChainReplaced registers a handler invoked after every chain replacement
func (l *Ledger) OnChainReplaced(handler notifier.ReplaceHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replaceHandlers = append(l.replaceHandlers, handler)
}

// NewTransaction queues a transaction for the next mined block and returns
// the index of that block, len(chain)+1. NaN and infinite amounts have no
// canonical encoding and are refused with ErrInvalidAmount.
func (l *Ledger) NewTransaction(sender, recipient string, amount float64) (int64, error) {
	if !finite(amount) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, models.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	})
	return int64(len(l.chain)) + 1, nil
}

// NewBlock appends a block carrying the whole pending pool. The proof must
// already be valid for the current tip. An empty previousHash links the block
// to the current tip.
func (l *Ledger) NewBlock(proof int64, previousHash string) models.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	if previousHash == "" {
		previousHash = Hash(l.lastBlock())
	}
	return l.appendBlock(proof, previousHash)
}

// Forge appends a block on top of parentHash. It fails with ErrStaleTip when
// the tip moved since the proof search started, and with ErrInvalidProof when
// proof does not satisfy the target for the tip. Coinbase transactions join
// the pool only when the block is forged.
func (l *Ledger) Forge(parentHash string, proof int64, coinbase ...models.Transaction) (models.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.lastBlock()
	if tipHash := Hash(tip); tipHash != parentHash {
		return models.Block{}, fmt.Errorf("%w: expected parent %s, tip is %s", ErrStaleTip, parentHash, tipHash)
	}
	if !ValidProof(tip.Proof, proof) {
		return models.Block{}, fmt.Errorf("%w: last proof %d, proof %d", ErrInvalidProof, tip.Proof, proof)
	}
	for _, tx := range coinbase {
		if !finite(tx.Amount) {
			return models.Block{}, fmt.Errorf("%w: coinbase %v", ErrInvalidAmount, tx.Amount)
		}
	}

	l.pending = append(l.pending, coinbase...)
	return l.appendBlock(proof, parentHash), nil
}

// appendBlock builds the next block from the pending pool. Caller holds mu.
func (l *Ledger) appendBlock(proof int64, previousHash string) models.Block {
	txs := l.pending
	if txs == nil {
		txs = []models.Transaction{}
	}
	block := models.Block{
		Index:        int64(len(l.chain)) + 1,
		Timestamp:    unixSeconds(l.clock()),
		Transactions: txs,
		Proof:        proof,
		PreviousHash: previousHash,
	}
	l.pending = nil
	l.chain = append(l.chain, block)

	for _, h := range l.blockHandlers {
		h(block.Clone())
	}
	return block.Clone()
}

// ReplaceChain swaps the local chain for candidate when candidate is still
// longer than the local chain. It does not validate candidate; callers run
// VerifyChain first.
func (l *Ledger) ReplaceChain(candidate []models.Block) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(candidate) <= len(l.chain) {
		return false
	}
	l.chain = models.CloneChain(candidate)

	for _, h := range l.replaceHandlers {
		h(models.CloneChain(l.chain))
	}
	return true
}

// Chain returns a copy of the full chain
func (l *Ledger) Chain() []models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.CloneChain(l.chain)
}

// Len returns the number of blocks in the chain
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// LastBlock returns the tip of the chain
func (l *Ledger) LastBlock() models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastBlock().Clone()
}

func (l *Ledger) lastBlock() models.Block {
	return l.chain[len(l.chain)-1]
}

// PendingTransactions returns a copy of the pending pool
func (l *Ledger) PendingTransactions() []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Transaction, len(l.pending))
	copy(out, l.pending)
	return out
}

// RegisterNode adds the host:port authority of address to the peer set
func (l *Ledger) RegisterNode(address string) error {
	return l.RegisterNodes([]string{address})
}

// RegisterNodes adds every address to the peer set, or none of them when any
// address is invalid
func (l *Ledger) RegisterNodes(addresses []string) error {
	authorities := make([]string, 0, len(addresses))
	for _, address := range addresses {
		authority, err := parseAuthority(address)
		if err != nil {
			return err
		}
		authorities = append(authorities, authority)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, authority := range authorities {
		l.nodes[authority] = struct{}{}
	}
	return nil
}

// Nodes returns the registered peers in sorted order
func (l *Ledger) Nodes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.nodes))
	for n := range l.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
