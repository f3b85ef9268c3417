package models

// Block represents one entry of the chain
type Block struct {
	Index        int64         `json:"index"`
	Timestamp    float64       `json:"timestamp"` // seconds since epoch
	Transactions []Transaction `json:"transactions"`
	Proof        int64         `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// Clone returns a deep copy so callers can't alias the ledger's transaction slices
func (b Block) Clone() Block {
	c := b
	c.Transactions = make([]Transaction, len(b.Transactions))
	copy(c.Transactions, b.Transactions)
	return c
}

// CloneChain deep-copies a sequence of blocks
func CloneChain(chain []Block) []Block {
	out := make([]Block, len(chain))
	for i, b := range chain {
		out[i] = b.Clone()
	}
	return out
}

// IndexedBlock is a block together with its hash, as kept by the block index
type IndexedBlock struct {
	Hash string `json:"hash"`
	Block
}
