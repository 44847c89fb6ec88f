package state

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	"github.com/alanyang/prompt-manager/internal/service/notify"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
	"github.com/alanyang/prompt-manager/internal/transport/httperr"
)

// Register mounts the shared view-state endpoints: search query and selection.
func Register(rg *gin.RouterGroup, svc *promptsvc.Service) {
	rg.GET("", getState(svc))
	rg.PUT("/query", setQuery(svc))
	rg.PUT("/selection", setSelection(svc))
	rg.DELETE("/selection", clearSelection(svc))
}

// RegisterNotification mounts the toast endpoints.
func RegisterNotification(rg *gin.RouterGroup, notifier *notify.Notifier) {
	rg.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, notifier.Current())
	})
	rg.DELETE("", func(c *gin.Context) {
		notifier.Hide(c.Request.Context())
		c.JSON(http.StatusOK, notifier.Current())
	})
}

// RegisterColors mounts the palette endpoint.
func RegisterColors(rg *gin.RouterGroup) {
	rg.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"default": domainprompt.DefaultColor,
			"palette": domainprompt.Palette,
		})
	})
}

func getState(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.View())
	}
}

type queryReq struct {
	Query string `json:"query"`
}

func setQuery(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req queryReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		svc.SetQuery(req.Query)
		c.JSON(http.StatusOK, svc.View())
	}
}

type selectionReq struct {
	ID string `json:"id" binding:"required"`
}

func setSelection(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req selectionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if _, err := svc.Select(req.ID); err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, svc.View())
	}
}

func clearSelection(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearSelection()
		c.JSON(http.StatusOK, svc.View())
	}
}
