package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/ledger-node/internal/consensus"
	"github.com/thanhnp/ledger-node/internal/ledger"
)

// Resolver runs the longest-valid-chain rule against the peer set
type Resolver interface {
	ResolveConflicts(ctx context.Context) (consensus.Result, error)
}

// NodeHandler handles peer registration and conflict resolution
type NodeHandler struct {
	ledger   *ledger.Ledger
	resolver Resolver
}

// NewNodeHandler creates a new NodeHandler
func NewNodeHandler(l *ledger.Ledger, r Resolver) *NodeHandler {
	return &NodeHandler{ledger: l, resolver: r}
}

type registerNodesRequest struct {
	Nodes []string `json:"nodes" binding:"required,min=1"`
}

// Register adds peers to the node set
// POST /nodes/register
func (h *NodeHandler) Register(c *gin.Context) {
	var req registerNodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error: Please supply a valid list of nodes"})
		return
	}

	if err := h.ledger.RegisterNodes(req.Nodes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "New nodes have been added",
		"total_nodes": h.ledger.Nodes(),
	})
}

// List returns the registered peers
// GET /nodes
func (h *NodeHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.ledger.Nodes()})
}

// Resolve applies the consensus rule
// GET /nodes/resolve
func (h *NodeHandler) Resolve(c *gin.Context) {
	res, err := h.resolver.ResolveConflicts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	chain := h.ledger.Chain()
	if res.Replaced {
		c.JSON(http.StatusOK, gin.H{
			"message":   "Our chain was replaced",
			"new_chain": chain,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Our chain is authoritative",
		"chain":   chain,
	})
}
