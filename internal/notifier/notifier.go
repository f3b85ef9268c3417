package notifier

import (
	"github.com/thanhnp/ledger-node/internal/models"
)

// BlockHandler is called when a new block is appended to the tip
type BlockHandler func(block models.Block)

// ReplaceHandler is called when the whole chain is swapped for a peer's chain
type ReplaceHandler func(chain []models.Block)

// ChainNotifier defines the interface for sources of chain events
type ChainNotifier interface {
	// OnBlockConnected registers a handler for new blocks
	OnBlockConnected(handler BlockHandler)

	// OnChainReplaced registers a handler for wholesale chain replacement
	OnChainReplaced(handler ReplaceHandler)
}
