package miner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/logging"
	"github.com/thanhnp/ledger-node/internal/models"
)

func startMiner(t *testing.T, chain Chain, cfg Config) *Miner {
	t.Helper()
	m := New(chain, cfg, logging.Discard())
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}

func TestMineForgesBlockWithReward(t *testing.T) {
	l := ledger.New()
	l.NewTransaction("A", "B", 10)
	genesis := l.LastBlock()

	m := startMiner(t, l, Config{NodeID: "node-1", Reward: 1})
	block, err := m.Mine(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if block.Index != 2 || block.PreviousHash != ledger.Hash(genesis) {
		t.Fatalf("unexpected block %+v", block)
	}
	if !ledger.ValidProof(genesis.Proof, block.Proof) {
		t.Fatal("forged proof is not valid")
	}
	want := []models.Transaction{
		{Sender: "A", Recipient: "B", Amount: 10},
		{Sender: RewardSender, Recipient: "node-1", Amount: 1},
	}
	if len(block.Transactions) != 2 || block.Transactions[0] != want[0] || block.Transactions[1] != want[1] {
		t.Fatalf("transactions = %+v", block.Transactions)
	}
	if !ledger.ValidChain(l.Chain()) {
		t.Fatal("chain invalid after mining")
	}
}

func TestMineConcurrentCallsSerialize(t *testing.T) {
	l := ledger.New()
	m := startMiner(t, l, Config{NodeID: "n", Reward: 1})

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Mine(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	if l.Len() != 4 {
		t.Fatalf("len = %d, want 4", l.Len())
	}
	if !ledger.ValidChain(l.Chain()) {
		t.Fatal("chain invalid after concurrent mining")
	}
}

func TestMineCancelledByCaller(t *testing.T) {
	l := ledger.New()
	m := startMiner(t, l, Config{NodeID: "n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Mine(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatal("cancelled mine must not append")
	}

	// the worker is still usable afterwards
	if _, err := m.Mine(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestMineNotRunning(t *testing.T) {
	m := New(ledger.New(), Config{}, logging.Discard())
	if _, err := m.Mine(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Stop()
	if _, err := m.Mine(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after stop, got %v", err)
	}
}

// staleChain reports a tip that is replaced before the first forge lands
type staleChain struct {
	*ledger.Ledger
	once sync.Once
}

func (s *staleChain) Forge(parent string, proof int64, coinbase ...models.Transaction) (models.Block, error) {
	s.once.Do(func() {
		p, _ := ledger.ProofOfWork(context.Background(), s.Ledger.LastBlock().Proof)
		s.Ledger.NewBlock(p, "")
	})
	return s.Ledger.Forge(parent, proof, coinbase...)
}

func TestMineRetriesOnStaleTip(t *testing.T) {
	sc := &staleChain{Ledger: ledger.New()}
	m := startMiner(t, sc, Config{NodeID: "n", Reward: 1, Timeout: 30 * time.Second})

	block, err := m.Mine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if block.Index != 3 {
		t.Fatalf("index = %d, want 3 after retry", block.Index)
	}
	if !ledger.ValidChain(sc.Chain()) {
		t.Fatal("chain invalid after retry")
	}
}
