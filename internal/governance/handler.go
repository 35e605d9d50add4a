package governance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Handler exposes governance over HTTP
type Handler struct {
	contract *Contract
	logger   *zap.Logger
}

// NewHandler creates a new governance handler
func NewHandler(contract *Contract, logger *zap.Logger) *Handler {
	return &Handler{
		contract: contract,
		logger:   logger,
	}
}

// RegisterRoutes registers governance routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	gov := router.Group("/governance")
	{
		gov.POST("/initialize", h.initialize)
		gov.GET("/stats", h.getStats)

		gov.POST("/proposals", h.createProposal)
		gov.GET("/proposals/active", h.getActiveProposals)
		gov.GET("/proposals/:id", h.getProposal)
		gov.GET("/proposals/:id/votes", h.getProposalVotes)
		gov.POST("/proposals/:id/votes", h.vote)
		gov.POST("/proposals/:id/finalize", h.finalizeProposal)
		gov.POST("/proposals/:id/execute", h.executeProposal)

		gov.PUT("/voters/:address", h.updateVoterData)
		gov.GET("/voters/:address", h.getVoterData)
	}
}

// initialize handles POST /api/v1/governance/initialize
func (h *Handler) initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.contract.Initialize(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to initialize governance", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "initialized"})
}

// createProposal handles POST /api/v1/governance/proposals
func (h *Handler) createProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Proposer = gateway.Principal(c)

	id, err := h.contract.CreateProposal(c.Request.Context(), req.Proposer, req)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to create proposal", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal_id": id})
}

// vote handles POST /api/v1/governance/proposals/:id/votes
func (h *Handler) vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Voter = gateway.Principal(c)
	req.ProposalID = ledger.Symbol(c.Param("id"))

	power, err := h.contract.Vote(c.Request.Context(), req.Voter, req)
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to record vote", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"total_power": power})
}

// finalizeProposal handles POST /api/v1/governance/proposals/:id/finalize
func (h *Handler) finalizeProposal(c *gin.Context) {
	outcome, err := h.contract.FinalizeProposal(c.Request.Context(), gateway.Principal(c), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to finalize proposal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

// executeProposal handles POST /api/v1/governance/proposals/:id/execute
func (h *Handler) executeProposal(c *gin.Context) {
	if err := h.contract.ExecuteProposal(c.Request.Context(), gateway.Principal(c), ledger.Symbol(c.Param("id"))); err != nil {
		gateway.RespondError(c, h.logger, "Failed to execute proposal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusExecuted})
}

// updateVoterData handles PUT /api/v1/governance/voters/:address
func (h *Handler) updateVoterData(c *gin.Context) {
	var req UpdateVoterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Voter = ledger.Address(c.Param("address"))

	if err := h.contract.UpdateVoterData(c.Request.Context(), gateway.Principal(c), req); err != nil {
		gateway.RespondError(c, h.logger, "Failed to update voter data", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voter": req.Voter})
}

// getProposal handles GET /api/v1/governance/proposals/:id
func (h *Handler) getProposal(c *gin.Context) {
	proposal, err := h.contract.GetProposal(c.Request.Context(), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get proposal", err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// getProposalVotes handles GET /api/v1/governance/proposals/:id/votes
func (h *Handler) getProposalVotes(c *gin.Context) {
	votes, err := h.contract.GetProposalVotes(c.Request.Context(), ledger.Symbol(c.Param("id")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to list votes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

// getActiveProposals handles GET /api/v1/governance/proposals/active
func (h *Handler) getActiveProposals(c *gin.Context) {
	proposals, err := h.contract.GetActiveProposals(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to list active proposals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// getVoterData handles GET /api/v1/governance/voters/:address
func (h *Handler) getVoterData(c *gin.Context) {
	voter, err := h.contract.GetVoterData(c.Request.Context(), ledger.Address(c.Param("address")))
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get voter data", err)
		return
	}
	c.JSON(http.StatusOK, voter)
}

// getStats handles GET /api/v1/governance/stats
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.contract.GetStats(c.Request.Context())
	if err != nil {
		gateway.RespondError(c, h.logger, "Failed to get governance stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
