package loanpool

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Handler exposes the loan pool over HTTP
type Handler struct {
	contract *Contract
	logger   *zap.Logger
}

// NewHandler creates a new loan pool handler
func NewHandler(contract *Contract, logger *zap.Logger) *Handler {
	return &Handler{
		contract: contract,
		logger:   logger,
	}
}

// RegisterRoutes registers loan pool routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	pool := router.Group("/pool")
	{
		pool.POST("/initialize", h.initialize)
		pool.GET("/balance", h.getPoolBalance)

		pool.POST("/assets", h.createAsset)
		pool.GET("/assets", h.getAllAssets)
		pool.GET("/assets/:id", h.getAsset)
		pool.POST("/assets/:id/investments", h.invest)
		pool.GET("/assets/:id/investments", h.getAssetInvestments)
		pool.POST("/assets/:id/deploy", h.deployAsset)
		pool.POST("/assets/:id/complete", h.completeAsset)
	}
}

// initialize handles POST /api/v1/pool/initialize
func (h *Handler) initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.Initialize(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to initialize loan pool", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "initialized"})
}

// createAsset handles POST /api/v1/pool/assets
func (h *Handler) createAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.CreateAsset(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to create asset", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"asset_id": req.AssetID})
}

// invest handles POST /api/v1/pool/assets/:id/investments
func (h *Handler) invest(c *gin.Context) {
	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Investor = gateway.Principal(c)
	req.AssetID = ledger.Symbol(c.Param("id"))

	bonus, err := h.contract.Invest(c.Request.Context(), req.Investor, req)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to invest", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"equity_bonus": bonus})
}

// deployAsset handles POST /api/v1/pool/assets/:id/deploy
func (h *Handler) deployAsset(c *gin.Context) {
	if err := h.contract.DeployAsset(c.Request.Context(), gateway.Principal(c), ledger.Symbol(c.Param("id"))); err != nil {
		gateway.RespondError(c, h.logger, "Failed to deploy asset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": AssetDeployed})
}

// completeAsset handles POST /api/v1/pool/assets/:id/complete
func (h *Handler) completeAsset(c *gin.Context) {
	if err := h.contract.CompleteAsset(c.Request.Context(), gateway.Principal(c), ledger.Symbol(c.Param("id"))); err != nil {
		gateway.RespondError(c, h.logger, "Failed to complete asset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": AssetCompleted})
}

// getAsset handles GET /api/v1/pool/assets/:id
func (h *Handler) getAsset(c *gin.Context) {
	asset, err := h.contract.GetAsset(c.Request.Context(), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get asset", err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

// getAllAssets handles GET /api/v1/pool/assets
func (h *Handler) getAllAssets(c *gin.Context) {
	assets, err := h.contract.GetAllAssets(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to list assets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// getAssetInvestments handles GET /api/v1/pool/assets/:id/investments
func (h *Handler) getAssetInvestments(c *gin.Context) {
	investments, err := h.contract.GetAssetInvestments(c.Request.Context(), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to list investments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": investments})
}

// getPoolBalance handles GET /api/v1/pool/balance
func (h *Handler) getPoolBalance(c *gin.Context) {
	balance, err := h.contract.GetPoolBalance(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get pool balance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
