package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/thanhnp/ledger-node/internal/models"
)

// BlockStore indexes blocks by hash and by chain position
type BlockStore struct {
	db        *PebbleDB
	syncStore *SyncStore
}

// NewBlockStore creates a new BlockStore
func NewBlockStore(db *PebbleDB, syncStore *SyncStore) *BlockStore {
	return &BlockStore{db: db, syncStore: syncStore}
}

// blockKey creates a key for the blocks column family
func blockKey(hash string) []byte {
	return []byte(hash)
}

// blockIndexKey creates a key for the blocks_by_index column family.
// Big-endian with the sign bit flipped, so byte order matches numeric order
// for every int64, negatives included.
func blockIndexKey(index int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(index)^(1<<63))
	return key
}

func (s *BlockStore) putBatch(batch *WriteBatch, block *models.IndexedBlock) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	// Store block by hash
	if err := s.db.PutBatch(batch, CFBlocks, blockKey(block.Hash), data); err != nil {
		return err
	}

	// Store hash by index for lookup
	return s.db.PutBatch(batch, CFBlocksByIndex, blockIndexKey(block.Index), []byte(block.Hash))
}

// Save stores a block and advances the indexed tip
func (s *BlockStore) Save(block *models.IndexedBlock) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	if err := s.putBatch(batch, block); err != nil {
		return err
	}
	if err := s.syncStore.putBatch(batch, block.Index); err != nil {
		return err
	}

	return s.db.WriteBatch(batch)
}

// ReplaceAll drops every indexed block and stores blocks in their place,
// in a single atomic batch
func (s *BlockStore) ReplaceAll(blocks []*models.IndexedBlock) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	if err := s.db.ClearBatch(batch, CFBlocks); err != nil {
		return err
	}
	if err := s.db.ClearBatch(batch, CFBlocksByIndex); err != nil {
		return err
	}

	for _, block := range blocks {
		if err := s.putBatch(batch, block); err != nil {
			return err
		}
	}
	if len(blocks) > 0 {
		if err := s.syncStore.putBatch(batch, blocks[len(blocks)-1].Index); err != nil {
			return err
		}
	} else if err := s.db.DeleteBatch(batch, CFSyncState, tipKey); err != nil {
		return err
	}

	return s.db.WriteBatch(batch)
}

// GetByHash retrieves a block by its hash
func (s *BlockStore) GetByHash(hash string) (*models.IndexedBlock, error) {
	data, err := s.db.Get(CFBlocks, blockKey(hash))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var block models.IndexedBlock
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}
	return &block, nil
}

// GetByIndex retrieves a block by its chain position
func (s *BlockStore) GetByIndex(index int64) (*models.IndexedBlock, error) {
	hashData, err := s.db.Get(CFBlocksByIndex, blockIndexKey(index))
	if err != nil {
		return nil, err
	}
	if hashData == nil {
		return nil, nil
	}

	return s.GetByHash(string(hashData))
}

// GetLatest retrieves the most recently indexed tip
func (s *BlockStore) GetLatest() (*models.IndexedBlock, error) {
	height, ok, err := s.syncStore.GetIndexedHeight()
	if err != nil || !ok {
		return nil, err
	}

	return s.GetByIndex(height)
}

// Range returns up to limit blocks starting at index from, in chain order
func (s *BlockStore) Range(from int64, limit int) ([]*models.IndexedBlock, error) {
	iter, err := s.db.NewPrefixIterator(CFBlocksByIndex, blockIndexKey(from))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	blocks := []*models.IndexedBlock{}
	for ; iter.Valid() && len(blocks) < limit; iter.Next() {
		block, err := s.GetByHash(string(iter.Value()))
		if err != nil {
			return nil, err
		}
		if block != nil {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}
