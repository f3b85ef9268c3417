package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/ledger-node/internal/storage"
)

const maxBlocksPerPage = 100

// BlockHandler handles block lookups against the block index
type BlockHandler struct {
	blockStore *storage.BlockStore
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(blockStore *storage.BlockStore) *BlockHandler {
	return &BlockHandler{
		blockStore: blockStore,
	}
}

// GetByHash returns a block by its hash
// GET /blocks/:hash
func (h *BlockHandler) GetByHash(c *gin.Context) {
	block, err := h.blockStore.GetByHash(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
		return
	}

	c.JSON(http.StatusOK, block)
}

// GetByIndex returns a block by its position in the chain
// GET /blocks/index/:index
func (h *BlockHandler) GetByIndex(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil || index < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
		return
	}

	block, err := h.blockStore.GetByIndex(index)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
		return
	}

	c.JSON(http.StatusOK, block)
}

// GetLatest returns the tip of the chain
// GET /blocks/latest
func (h *BlockHandler) GetLatest(c *gin.Context) {
	block, err := h.blockStore.GetLatest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No blocks found"})
		return
	}

	c.JSON(http.StatusOK, block)
}

// List returns a page of blocks in chain order
// GET /blocks?from=1&limit=20
func (h *BlockHandler) List(c *gin.Context) {
	from, err := strconv.ParseInt(c.DefaultQuery("from", "1"), 10, 64)
	if err != nil || from < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if limit > maxBlocksPerPage {
		limit = maxBlocksPerPage
	}

	blocks, err := h.blockStore.Range(from, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"blocks": blocks, "count": len(blocks)})
}
