package ledger

import (
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/thanhnp/ledger-node/internal/models"
)

// Hash returns the SHA-256 hex digest of the canonical encoding of block.
// Every peer must agree on this encoding for previous_hash links to verify.
// Amounts and timestamps must be finite.
func Hash(block models.Block) string {
	return hex.EncodeToString(chainhash.HashB(canonicalBytes(block)))
}

// canonicalBytes encodes block as compact JSON with lexicographically sorted
// keys at every level. encoding/json sorts map keys, so the layout of the Go
// structs never leaks into the digest.
func canonicalBytes(block models.Block) []byte {
	txs := make([]map[string]interface{}, len(block.Transactions))
	for i, tx := range block.Transactions {
		txs[i] = map[string]interface{}{
			"sender":    tx.Sender,
			"recipient": tx.Recipient,
			"amount":    tx.Amount,
		}
	}

	doc := map[string]interface{}{
		"index":         block.Index,
		"timestamp":     block.Timestamp,
		"transactions":  txs,
		"proof":         block.Proof,
		"previous_hash": block.PreviousHash,
	}

	// NewTransaction and Forge refuse non-finite amounts and peer chains
	// arrive as JSON, so every float here is encodable.
	data, _ := json.Marshal(doc)
	return data
}
