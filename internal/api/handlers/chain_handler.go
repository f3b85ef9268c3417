package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/models"
)

// Miner forges the next block
type Miner interface {
	Mine(ctx context.Context) (models.Block, error)
}

// ChainHandler serves the chain and triggers mining
type ChainHandler struct {
	ledger *ledger.Ledger
	miner  Miner
}

// NewChainHandler creates a new ChainHandler
func NewChainHandler(l *ledger.Ledger, m Miner) *ChainHandler {
	return &ChainHandler{ledger: l, miner: m}
}

// Get returns the full chain
// GET /chain
func (h *ChainHandler) Get(c *gin.Context) {
	chain := h.ledger.Chain()
	c.JSON(http.StatusOK, models.ChainResponse{
		Chain:  chain,
		Length: len(chain),
	})
}

// Mine runs proof of work and forges a new block
// GET /mine
func (h *ChainHandler) Mine(c *gin.Context) {
	block, err := h.miner.Mine(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "New Block Forged",
		"index":         block.Index,
		"transactions":  block.Transactions,
		"proof":         block.Proof,
		"previous_hash": block.PreviousHash,
	})
}
