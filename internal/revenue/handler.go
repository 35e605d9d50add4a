package revenue

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Handler exposes the revenue distributor over HTTP
type Handler struct {
	contract *Contract
	logger   *zap.Logger
}

// NewHandler creates a new revenue handler
func NewHandler(contract *Contract, logger *zap.Logger) *Handler {
	return &Handler{
		contract: contract,
		logger:   logger,
	}
}

// RegisterRoutes registers revenue routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	rev := router.Group("/revenue")
	{
		rev.POST("/initialize", h.initialize)
		rev.GET("/config", h.getConfig)
		rev.GET("/stats", h.getStats)
		rev.GET("/impact", h.getImpactMetrics)
		rev.PUT("/rates/equity-bonus", h.updateEquityBonusRate)
		rev.PUT("/rates/impact-bonus", h.updateImpactBonusRate)

		rev.PUT("/assets/:asset_id", h.recordRevenue)
		rev.GET("/assets/:asset_id", h.getRevenue)
		rev.GET("/assets/:asset_id/distributions", h.getAssetDistributions)

		rev.POST("/distributions", h.distributeRevenue)
		rev.GET("/distributions/:id", h.getDistribution)
	}
}

// initialize handles POST /api/v1/revenue/initialize
func (h *Handler) initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.Initialize(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to initialize revenue distributor", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "initialized"})
}

// recordRevenue handles PUT /api/v1/revenue/assets/:asset_id
func (h *Handler) recordRevenue(c *gin.Context) {
	var req RecordRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.AssetID = ledger.Symbol(c.Param("asset_id"))

	if err := h.contract.RecordRevenue(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to record revenue", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset_id": req.AssetID})
}

// distributeRevenue handles POST /api/v1/revenue/distributions
func (h *Handler) distributeRevenue(c *gin.Context) {
	var req DistributeRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.contract.DistributeRevenue(c.Request.Context(), gateway.Principal(c), req)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to distribute revenue", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"distribution_id": id})
}

// updateEquityBonusRate handles PUT /api/v1/revenue/rates/equity-bonus
func (h *Handler) updateEquityBonusRate(c *gin.Context) {
	var req UpdateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.UpdateEquityBonusRate(c.Request.Context(), gateway.Principal(c), req.Rate); err != nil {
		gateway.RespondError(c, h.logger, "Failed to update equity bonus rate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity_bonus_rate": req.Rate})
}

// updateImpactBonusRate handles PUT /api/v1/revenue/rates/impact-bonus
func (h *Handler) updateImpactBonusRate(c *gin.Context) {
	var req UpdateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.UpdateImpactBonusRate(c.Request.Context(), gateway.Principal(c), req.Rate); err != nil {
		gateway.RespondError(c, h.logger, "Failed to update impact bonus rate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"impact_bonus_rate": req.Rate})
}

// getRevenue handles GET /api/v1/revenue/assets/:asset_id
func (h *Handler) getRevenue(c *gin.Context) {
	rev, err := h.contract.GetRevenue(c.Request.Context(), ledger.Symbol(c.Param("asset_id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get revenue", err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// getAssetDistributions handles GET /api/v1/revenue/assets/:asset_id/distributions
func (h *Handler) getAssetDistributions(c *gin.Context) {
	dists, err := h.contract.GetAssetDistributions(c.Request.Context(), ledger.Symbol(c.Param("asset_id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to list distributions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributions": dists})
}

// getDistribution handles GET /api/v1/revenue/distributions/:id
func (h *Handler) getDistribution(c *gin.Context) {
	dist, err := h.contract.GetDistribution(c.Request.Context(), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get distribution", err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

// getImpactMetrics handles GET /api/v1/revenue/impact
func (h *Handler) getImpactMetrics(c *gin.Context) {
	metrics, err := h.contract.GetImpactMetrics(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get impact metrics", err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// getStats handles GET /api/v1/revenue/stats
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.contract.GetStats(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get revenue stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// getConfig handles GET /api/v1/revenue/config
func (h *Handler) getConfig(c *gin.Context) {
	cfg, err := h.contract.GetConfig(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get revenue config", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
