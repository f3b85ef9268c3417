package storage

// ChainStores holds the stores backing the block index
type ChainStores struct {
	DB         *PebbleDB
	BlockStore *BlockStore
	SyncStore  *SyncStore
}

// NewChainStores creates all stores using the given database
func NewChainStores(db *PebbleDB) *ChainStores {
	syncStore := NewSyncStore(db)
	return &ChainStores{
		DB:         db,
		BlockStore: NewBlockStore(db, syncStore),
		SyncStore:  syncStore,
	}
}

// Close closes the database
func (cs *ChainStores) Close() error {
	return cs.DB.Close()
}
