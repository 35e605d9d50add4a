package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
)

var conflictCodes = map[ledger.Code]bool{
	ledger.ErrAlreadyInitialized: true,
	"ALREADY_VOTED":              true,
}

// StatusFor maps a transaction error to an HTTP status
func StatusFor(err error) int {
	code, ok := ledger.AsCode(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch {
	case code == ledger.ErrUnauthorized:
		return http.StatusForbidden
	case strings.HasSuffix(string(code), "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(string(code), "_EXISTS"), conflictCodes[code]:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// RespondError writes the error body for err. Host faults are logged and
// hidden from the client.
func RespondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg,
			zap.String("request_id", RequestIDFrom(c)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
