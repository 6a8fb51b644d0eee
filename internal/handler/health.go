package handler

import (
	"github.com/gin-gonic/gin"

	"wallet-gas/internal/handler/response"
)

// HealthCheck 存活探针
func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "UP",
		"version": "1.0.0",
		"service": "gas-server",
	})
}
