package equity

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Handler exposes the rate adjuster over HTTP
type Handler struct {
	contract *Contract
	logger   *zap.Logger
}

// NewHandler creates a new rate adjuster handler
func NewHandler(contract *Contract, logger *zap.Logger) *Handler {
	return &Handler{
		contract: contract,
		logger:   logger,
	}
}

// RegisterRoutes registers rate adjuster routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	equity := router.Group("/equity")
	{
		equity.POST("/initialize", h.initialize)
		equity.GET("/stats", h.getStats)

		equity.POST("/applications", h.submitApplication)
		equity.GET("/applications/:id", h.getApplication)
		equity.POST("/applications/:id/approve", h.approveApplication)
		equity.POST("/applications/:id/reject", h.rejectApplication)
		equity.GET("/borrowers/:address/applications", h.getBorrowerApplications)

		equity.PUT("/urban-data/:location", h.updateUrbanData)
		equity.GET("/urban-data/:location", h.getUrbanData)
		equity.GET("/urban-data/:location/rate-adjustment", h.calculateRateAdjustment)
	}
}

// initialize handles POST /api/v1/equity/initialize
func (h *Handler) initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.Initialize(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to initialize rate adjuster", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "initialized"})
}

// submitApplication handles POST /api/v1/equity/applications
func (h *Handler) submitApplication(c *gin.Context) {
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Borrower = gateway.Principal(c)

	id, err := h.contract.SubmitApplication(c.Request.Context(), req.Borrower, req)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to submit application", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application_id": id})
}

// getApplication handles GET /api/v1/equity/applications/:id
func (h *Handler) getApplication(c *gin.Context) {
	app, err := h.contract.GetApplication(c.Request.Context(), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get application", err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// approveApplication handles POST /api/v1/equity/applications/:id/approve
func (h *Handler) approveApplication(c *gin.Context) {
	if err := h.contract.ApproveApplication(c.Request.Context(), gateway.Principal(c), ledger.Symbol(c.Param("id"))); err != nil {
		gateway.RespondError(c, h.logger, "Failed to approve application", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusApproved})
}

// rejectApplication handles POST /api/v1/equity/applications/:id/reject
func (h *Handler) rejectApplication(c *gin.Context) {
	if err := h.contract.RejectApplication(c.Request.Context(), gateway.Principal(c), ledger.Symbol(c.Param("id"))); err != nil {
		gateway.RespondError(c, h.logger, "Failed to reject application", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusRejected})
}

// getBorrowerApplications handles GET /api/v1/equity/borrowers/:address/applications
func (h *Handler) getBorrowerApplications(c *gin.Context) {
	apps, err := h.contract.GetBorrowerApplications(c.Request.Context(), ledger.Address(c.Param("address")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to list borrower applications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// updateUrbanData handles PUT /api/v1/equity/urban-data/:location
func (h *Handler) updateUrbanData(c *gin.Context) {
	var req UpdateUrbanDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Location = ledger.Symbol(c.Param("location"))

	if err := h.contract.UpdateUrbanData(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to update urban data", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": req.Location})
}

// getUrbanData handles GET /api/v1/equity/urban-data/:location
func (h *Handler) getUrbanData(c *gin.Context) {
	data, err := h.contract.GetUrbanDataForLocation(c.Request.Context(), ledger.Symbol(c.Param("location")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get urban data", err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// calculateRateAdjustment handles GET /api/v1/equity/urban-data/:location/rate-adjustment
func (h *Handler) calculateRateAdjustment(c *gin.Context) {
	delta, err := h.contract.CalculateRateAdjustment(c.Request.Context(), ledger.Symbol(c.Param("location")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to calculate rate adjustment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate_adjustment": delta})
}

// getStats handles GET /api/v1/equity/stats
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.contract.GetStats(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
