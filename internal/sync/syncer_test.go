package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thanhnp/ledger-node/internal/consensus"
	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/logging"
	"github.com/thanhnp/ledger-node/internal/storage"
)

func newIndex(t *testing.T) *storage.ChainStores {
	t.Helper()
	db, err := storage.NewPebbleDB("")
	if err != nil {
		t.Fatal(err)
	}
	stores := storage.NewChainStores(db)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func mine(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	proof, err := ledger.ProofOfWork(context.Background(), l.LastBlock().Proof)
	if err != nil {
		t.Fatal(err)
	}
	l.NewBlock(proof, "")
}

func TestSyncerIndexesLedger(t *testing.T) {
	l := ledger.New()
	mine(t, l)
	stores := newIndex(t)

	s := NewSyncer(l, stores.BlockStore, nil, 0, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	latest, err := stores.BlockStore.GetLatest()
	if err != nil || latest == nil || latest.Index != 2 {
		t.Fatalf("initial index: %+v %v", latest, err)
	}

	l.NewTransaction("A", "B", 4)
	mine(t, l)

	latest, err = stores.BlockStore.GetLatest()
	if err != nil || latest == nil || latest.Index != 3 {
		t.Fatalf("after mining: %+v %v", latest, err)
	}
	if latest.Hash != ledger.Hash(l.LastBlock()) {
		t.Fatal("indexed hash differs from ledger hash")
	}
	byHash, _ := stores.BlockStore.GetByHash(latest.Hash)
	if byHash == nil || byHash.Transactions[0].Amount != 4 {
		t.Fatalf("lookup by hash: %+v", byHash)
	}
}

func TestSyncerRebuildsOnReplace(t *testing.T) {
	l := ledger.New()
	mine(t, l)
	stores := newIndex(t)

	s := NewSyncer(l, stores.BlockStore, nil, 0, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	oldTip := ledger.Hash(l.LastBlock())

	donor := ledger.New()
	for i := 0; i < 3; i++ {
		mine(t, donor)
	}
	if !l.ReplaceChain(donor.Chain()) {
		t.Fatal("replace refused")
	}

	if b, _ := stores.BlockStore.GetByHash(oldTip); b != nil {
		t.Fatal("stale block still indexed")
	}
	latest, _ := stores.BlockStore.GetLatest()
	if latest == nil || latest.Index != 4 || latest.Hash != ledger.Hash(donor.LastBlock()) {
		t.Fatalf("latest after replace: %+v", latest)
	}
}

type countingResolver struct {
	calls int32
}

func (c *countingResolver) ResolveConflicts(ctx context.Context) (consensus.Result, error) {
	atomic.AddInt32(&c.calls, 1)
	return consensus.Result{}, nil
}

func TestSyncerResolveLoop(t *testing.T) {
	l := ledger.New()
	r := &countingResolver{}
	s := NewSyncer(l, newIndex(t).BlockStore, r, 20*time.Millisecond, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&r.calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	calls := atomic.LoadInt32(&r.calls)
	if calls < 2 {
		t.Fatalf("resolver called %d times", calls)
	}
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&r.calls) != calls {
		t.Fatal("resolver still running after Stop")
	}
}
