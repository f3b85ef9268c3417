package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thanhnp/ledger-node/internal/api/handlers"
	"github.com/thanhnp/ledger-node/internal/api/middleware"
	"github.com/thanhnp/ledger-node/internal/ledger"
	"github.com/thanhnp/ledger-node/internal/storage"
	"github.com/thanhnp/ledger-node/internal/version"
)

// Router wraps the Gin router with handlers
type Router struct {
	engine             *gin.Engine
	nodeID             string
	ledger             *ledger.Ledger
	chainHandler       *handlers.ChainHandler
	transactionHandler *handlers.TransactionHandler
	nodeHandler        *handlers.NodeHandler
	blockHandler       *handlers.BlockHandler
}

// NewRouter creates a new Router with all handlers
func NewRouter(
	nodeID string,
	l *ledger.Ledger,
	miner handlers.Miner,
	resolver handlers.Resolver,
	blockStore *storage.BlockStore,
	log logrus.FieldLogger,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:             gin.New(),
		nodeID:             nodeID,
		ledger:             l,
		chainHandler:       handlers.NewChainHandler(l, miner),
		transactionHandler: handlers.NewTransactionHandler(l),
		nodeHandler:        handlers.NewNodeHandler(l, resolver),
		blockHandler:       handlers.NewBlockHandler(blockStore),
	}

	r.setupMiddleware(log)
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware(log logrus.FieldLogger) {
	r.engine.Use(middleware.Recovery(log))
	r.engine.Use(middleware.Logger(log))
	r.engine.Use(middleware.CORS())
	r.engine.Use(middleware.Version())
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"node_id": r.nodeID,
			"version": version.Current.String(),
			"length":  r.ledger.Len(),
		})
	})

	// Routes of the original node protocol; peers depend on GET /chain
	r.engine.GET("/mine", r.chainHandler.Mine)
	r.engine.GET("/chain", r.chainHandler.Get)

	txs := r.engine.Group("/transactions")
	{
		txs.POST("/new", r.transactionHandler.Create)
		txs.GET("/pending", r.transactionHandler.Pending)
	}

	nodes := r.engine.Group("/nodes")
	{
		nodes.GET("", r.nodeHandler.List)
		nodes.POST("/register", r.nodeHandler.Register)
		nodes.GET("/resolve", r.nodeHandler.Resolve)
	}

	// Block index lookups
	blocks := r.engine.Group("/blocks")
	{
		blocks.GET("", r.blockHandler.List)
		blocks.GET("/latest", r.blockHandler.GetLatest)
		blocks.GET("/index/:index", r.blockHandler.GetByIndex)
		blocks.GET("/:hash", r.blockHandler.GetByHash)
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
