package ledger

import (
	"context"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Difficulty is the number of leading zero hex digits a proof digest needs
const Difficulty = 4

// cancelCheckInterval is how many candidates are tried between context checks
const cancelCheckInterval = 1024

// ValidProof reports whether sha256(lastProof || proof), both in decimal,
// starts with Difficulty zero hex digits
func ValidProof(lastProof, proof int64) bool {
	guess := strconv.AppendInt(strconv.AppendInt(nil, lastProof, 10), proof, 10)
	return leadingZeroNibbles(chainhash.HashB(guess)) >= Difficulty
}

func leadingZeroNibbles(digest []byte) int {
	n := 0
	for _, b := range digest {
		if b>>4 != 0 {
			return n
		}
		n++
		if b&0x0f != 0 {
			return n
		}
		n++
	}
	return n
}

// ProofOfWork scans proofs from zero upwards and returns the first one valid
// for lastProof. The scan is unbounded; it stops early only when ctx is done.
func ProofOfWork(ctx context.Context, lastProof int64) (int64, error) {
	for proof := int64(0); ; proof++ {
		if proof%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if ValidProof(lastProof, proof) {
			return proof, nil
		}
	}
}
