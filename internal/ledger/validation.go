package ledger

import (
	"errors"
	"fmt"

	"github.com/thanhnp/ledger-node/internal/models"
)

var (
	ErrEmptyChain = errors.New("chain is empty")
	ErrBrokenLink = errors.New("previous_hash does not match predecessor")
	ErrBadProof   = errors.New("proof of work check failed")
	ErrIndexGap   = errors.New("block index is not contiguous")
)

// ValidChain reports whether every consecutive pair of blocks is linked by
// hash and satisfies the proof predicate. Index fields are not inspected.
func ValidChain(chain []models.Block) bool {
	return VerifyChain(chain, false) == nil
}

// VerifyChain walks consecutive block pairs and returns the first failure.
// With strictIndex set it also requires each index to be one more than its
// predecessor's, which the plain longest-chain rule does not check.
func VerifyChain(chain []models.Block, strictIndex bool) error {
	if len(chain) == 0 {
		return ErrEmptyChain
	}

	prev := chain[0]
	for i := 1; i < len(chain); i++ {
		curr := chain[i]
		if curr.PreviousHash != Hash(prev) {
			return fmt.Errorf("%w at block %d", ErrBrokenLink, curr.Index)
		}
		if !ValidProof(prev.Proof, curr.Proof) {
			return fmt.Errorf("%w at block %d", ErrBadProof, curr.Index)
		}
		if strictIndex && curr.Index != prev.Index+1 {
			return fmt.Errorf("%w: %d follows %d", ErrIndexGap, curr.Index, prev.Index)
		}
		prev = curr
	}
	return nil
}
