package prompt

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	"github.com/alanyang/prompt-manager/internal/service/notify"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
	"github.com/alanyang/prompt-manager/internal/transport/httperr"
)

// CopiedMessage is the notification shown after a successful copy.
const CopiedMessage = "Copied to clipboard!"

// Register mounts the prompt CRUD endpoints on the given router group.
// [SRP] HTTP handler only. Validation and persistence live in promptSvc.
func Register(rg *gin.RouterGroup, svc *promptsvc.Service, notifier *notify.Notifier) {
	rg.GET("", listPrompts(svc))
	rg.POST("", addPrompt(svc))
	rg.POST("/refresh", refreshPrompts(svc))
	rg.GET("/:id", getPrompt(svc))
	rg.PUT("/:id", updatePrompt(svc))
	rg.DELETE("/:id", deletePrompt(svc))
	rg.POST("/:id/copy", copyPrompt(svc, notifier))
}

// draftReq leaves field presence to domain validation so every missing field is
// reported at once.
type draftReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (r draftReq) draft() domainprompt.Draft {
	return domainprompt.Draft{Title: r.Title, Description: r.Description, Color: r.Color}
}

// mutationResp carries the affected prompt and the collection snapshot that
// replaced the previous one.
type mutationResp struct {
	Prompt  *domainprompt.Prompt  `json:"prompt,omitempty"`
	Prompts []domainprompt.Prompt `json:"prompts"`
}

func listPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		prompts := svc.Prompts()
		if q, ok := c.GetQuery("q"); ok {
			prompts = domainprompt.Filter(prompts, q)
		}
		c.JSON(http.StatusOK, prompts)
	}
}

func getPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Param("id"))
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func addPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req draftReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Add(c.Request.Context(), req.draft())
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusCreated, mutationResp{Prompt: &p, Prompts: svc.Prompts()})
	}
}

func updatePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req draftReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Update(c.Request.Context(), c.Param("id"), req.draft())
		if err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, mutationResp{Prompt: &p, Prompts: svc.Prompts()})
	}
}

func deletePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, mutationResp{Prompts: svc.Prompts()})
	}
}

func refreshPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Refresh(c.Request.Context()); err != nil {
			httperr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, svc.Prompts())
	}
}

// copyPrompt returns the text a client places on its clipboard and raises the
// confirmation notification.
func copyPrompt(svc *promptsvc.Service, notifier *notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(strings.TrimSpace(c.Param("id")))
		if err != nil {
			httperr.Write(c, err)
			return
		}
		notifier.Show(c.Request.Context(), CopiedMessage)
		c.JSON(http.StatusOK, gin.H{"text": p.Description})
	}
}
