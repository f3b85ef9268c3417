package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/ledger-node/internal/ledger"
)

// TransactionHandler handles transaction submission
type TransactionHandler struct {
	ledger *ledger.Ledger
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(l *ledger.Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

type newTransactionRequest struct {
	Sender    *string  `json:"sender" binding:"required"`
	Recipient *string  `json:"recipient" binding:"required"`
	Amount    *float64 `json:"amount" binding:"required"`
}

// Create queues a transaction for the next block
// POST /transactions/new
func (h *TransactionHandler) Create(c *gin.Context) {
	var req newTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing values"})
		return
	}

	index, err := h.ledger.NewTransaction(*req.Sender, *req.Recipient, *req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("Transaction will be added to Block %d", index),
	})
}

// Pending returns the transactions waiting for the next block
// GET /transactions/pending
func (h *TransactionHandler) Pending(c *gin.Context) {
	pending := h.ledger.PendingTransactions()
	c.JSON(http.StatusOK, gin.H{
		"transactions": pending,
		"length":       len(pending),
	})
}
