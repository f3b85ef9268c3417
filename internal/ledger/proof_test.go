package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestProofOfWorkFirstMatch(t *testing.T) {
	for _, last := range []int64{100, 35293, 0, 7} {
		proof, err := ProofOfWork(context.Background(), last)
		if err != nil {
			t.Fatalf("last=%d: %v", last, err)
		}
		if !ValidProof(last, proof) {
			t.Fatalf("last=%d: returned proof %d is not valid", last, proof)
		}
		for p := int64(0); p < proof; p++ {
			if ValidProof(last, p) {
				t.Fatalf("last=%d: smaller proof %d also valid", last, p)
			}
		}
	}
}

func TestProofOfWorkKnownValue(t *testing.T) {
	proof, err := ProofOfWork(context.Background(), GenesisProof)
	if err != nil {
		t.Fatal(err)
	}
	if proof != 35293 {
		t.Fatalf("proof after genesis = %d, want 35293", proof)
	}
}

func TestProofOfWorkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ProofOfWork(ctx, 100); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLeadingZeroNibbles(t *testing.T) {
	tests := []struct {
		digest []byte
		want   int
	}{
		{[]byte{0x00, 0x00, 0x1f}, 5},
		{[]byte{0x00, 0x0f}, 3},
		{[]byte{0x10}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x00, 0x00}, 4},
	}
	for _, tt := range tests {
		if got := leadingZeroNibbles(tt.digest); got != tt.want {
			t.Errorf("leadingZeroNibbles(%x) = %d, want %d", tt.digest, got, tt.want)
		}
	}
}
