package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alanyang/prompt-manager/internal/adapter/memory"
	natsbus "github.com/alanyang/prompt-manager/internal/adapter/nats"
	"github.com/alanyang/prompt-manager/internal/config"
	"github.com/alanyang/prompt-manager/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-manager/internal/port/eventbus"
	"github.com/alanyang/prompt-manager/internal/service/notify"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"

	"github.com/alanyang/prompt-manager/internal/transport"
	mcptransport "github.com/alanyang/prompt-manager/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Server    *http.Server
	PromptSvc *promptsvc.Service
	Notifier  *notify.Notifier
	Storage   *Storage
	MCPServer *mcptransport.Server

	closeBus func()
}

// Close stops background work and releases connections. Call after the HTTP
// server has shut down.
func (a *App) Close() {
	a.PromptSvc.Close()
	a.Notifier.Close()
	if a.closeBus != nil {
		a.closeBus()
	}
	a.Storage.Close()
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	// ── Storage ──────────────────────────────────────────────────────────────
	st, err := BuildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// ── Event bus ────────────────────────────────────────────────────────────
	bus, closeBus, err := buildEventBus(cfg.NATS)
	if err != nil {
		st.Close()
		return nil, err
	}

	// ── Services ─────────────────────────────────────────────────────────────
	promptSvcInstance := promptsvc.NewService(st.Store, promptsvc.Options{
		Cache:       st.Cache,
		Bus:         bus,
		SearchDelay: cfg.Search.Delay(),
	})
	notifier := notify.NewNotifier(cfg.Notification.TTL(), bus)

	// A failed first load is already recorded in the service's displayable
	// error; the server still starts.
	if err := promptSvcInstance.Start(ctx); err != nil {
		slog.Error("initial prompt load failed", "error", err)
	}

	reg := mcptransport.NewSessionRegistry()
	mcpServer := mcptransport.New(reg, promptSvcInstance)

	// ── Transport ─────────────────────────────────────────────────────────────
	responses := memory.NewCache()
	startSweeper(ctx, responses, transport.IdempotencyTTL)

	router := transport.NewRouter(ctx, transport.Deps{
		Prompts:   promptSvcInstance,
		Notifier:  notifier,
		EventBus:  bus,
		Responses: responses,
		MCP:       mcpServer.Handler(),
		OnEvent: func(ctx context.Context, e event.Event) {
			if event.ChannelFor(e.Type) != event.ChannelPrompt {
				return
			}
			if err := reg.Notify(ctx, e); err != nil {
				slog.Warn("mcp notify failed", "type", e.Type, "error", err)
			}
		},
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
	}

	slog.Info("application wired",
		"addr", server.Addr,
		"backend", st.Store.Backend(),
		"nats", cfg.NATS.URL != "",
	)

	return &App{
		Server:    server,
		PromptSvc: promptSvcInstance,
		Notifier:  notifier,
		Storage:   st,
		MCPServer: mcpServer,
		closeBus:  closeBus,
	}, nil
}

func buildEventBus(cfg config.NATSConfig) (porteventbus.EventBus, func(), error) {
	if cfg.URL == "" {
		return memory.NewEventBus(), nil, nil
	}
	bus, err := natsbus.Connect(cfg.URL, cfg.ClientID)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting event bus: %w", err)
	}
	return bus, bus.Close, nil
}
