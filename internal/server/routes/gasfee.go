package routes

import (
	"github.com/gin-gonic/gin"

	"wallet-gas/internal/handler"
)

func RegisterGasFeeRoutes(rg *gin.RouterGroup, h *handler.GasFeeHandler) {
	rg.GET("/tiers", h.ListTiers)

	drafts := rg.Group("/drafts")
	{
		drafts.POST("", h.CreateDraft)
		drafts.GET("/:id", h.GetDraft)
		drafts.DELETE("/:id", h.DiscardDraft)

		drafts.POST("/:id/edit", h.OpenEdit)
		drafts.GET("/:id/edit", h.GetEdit)
		drafts.DELETE("/:id/edit", h.CancelEdit)
		drafts.PUT("/:id/edit/tier", h.SelectTier)
		drafts.PUT("/:id/edit/custom", h.SetCustomFee)
		drafts.PUT("/:id/edit/gas-limit", h.SetGasLimit)
		drafts.PUT("/:id/edit/save-default", h.ToggleSaveAsDefault)
		drafts.POST("/:id/edit/confirm", h.ConfirmEdit)
	}
}
