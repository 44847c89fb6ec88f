package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/prompt-manager/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-manager/internal/port/eventbus"
	"github.com/alanyang/prompt-manager/internal/service/notify"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"

	prompthandler "github.com/alanyang/prompt-manager/internal/transport/prompt"
	statehandler "github.com/alanyang/prompt-manager/internal/transport/state"
	wshandler "github.com/alanyang/prompt-manager/internal/transport/ws"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Prompts   *promptsvc.Service
	Notifier  *notify.Notifier
	EventBus  porteventbus.EventBus
	Responses ResponseCache
	// MCP is mounted at /mcp when set.
	MCP http.Handler
	// OnEvent receives every bus event in addition to the WebSocket hub.
	OnEvent porteventbus.Handler
}

func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())
	r.Use(IdempotencyMiddleware(d.Responses))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": d.Prompts.Backend()})
	})

	api := r.Group("/api")

	prompthandler.Register(api.Group("/prompts"), d.Prompts, d.Notifier)
	statehandler.Register(api.Group("/state"), d.Prompts)
	statehandler.RegisterNotification(api.Group("/notification"), d.Notifier)
	statehandler.RegisterColors(api.Group("/colors"))

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	if d.MCP != nil {
		r.Any("/mcp", gin.WrapH(d.MCP))
	}

	// One subscription per channel. Events carry ids only; clients refetch state.
	for _, ch := range event.Channels {
		c := ch
		if _, err := d.EventBus.Subscribe(ctx, c, func(ctx context.Context, e event.Event) {
			hub.Broadcast(e)
			if d.OnEvent != nil {
				d.OnEvent(ctx, e)
			}
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
