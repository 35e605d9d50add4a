package statements

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Handler serves statements as file downloads
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new statements handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers statement routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	st := router.Group("/statements")
	{
		st.GET("/distributions/:id", h.getDistributionStatement)
		st.GET("/assets/:asset_id", h.getAssetStatement)
	}
}

// getDistributionStatement handles GET /api/v1/statements/distributions/:id?format=
func (h *Handler) getDistributionStatement(c *gin.Context) {
	format, err := ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := ledger.Symbol(c.Param("id"))
	st, err := h.service.ForDistribution(c.Request.Context(), id)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to load distribution", err)
		return
	}
	h.send(c, format, "distribution_"+string(id), st)
}

// getAssetStatement handles GET /api/v1/statements/assets/:asset_id?format=
func (h *Handler) getAssetStatement(c *gin.Context) {
	format, err := ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetID := ledger.Symbol(c.Param("asset_id"))
	st, err := h.service.ForAsset(c.Request.Context(), assetID)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to load asset distributions", err)
		return
	}
	h.send(c, format, "asset_"+string(assetID), st)
}

// send renders into a buffer first so a failed render still gets a JSON error
func (h *Handler) send(c *gin.Context, format Format, name string, st *Statement) {
	var buf bytes.Buffer
	if err := Render(&buf, format, st); err != nil {
		gateway.RespondError(c, h.logger, "Failed to render statement", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
