package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers principal introspection routes behind auth
func RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/ping", ping)
		authGroup.GET("/me", me)
	}
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ledger gateway alive"})
}

func me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"principal": Principal(c)})
}
