package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyang/prompt-manager/internal/adapter/local"
	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// ErrMisconfigured is returned by every operation when a production build has
// no remote credentials. It never falls back to the local store.
var ErrMisconfigured = portprompt.ErrMisconfigured

// Options selects the backend. Remote is nil when no valid credentials exist.
type Options struct {
	Remote     portprompt.Table
	Local      portprompt.KV
	Production bool
}

// Adapter implements port/prompt.Store over either a remote table or a local blob.
// The backend is chosen once in New and never re-evaluated.
type Adapter struct {
	backend portprompt.Backend
	remote  portprompt.Table
	local   *local.Store

	mu   sync.Mutex
	last []domainprompt.Prompt
}

var _ portprompt.Store = (*Adapter)(nil)

func New(opts Options) (*Adapter, error) {
	a := &Adapter{}
	switch {
	case opts.Remote != nil:
		a.backend = portprompt.BackendRemote
		a.remote = opts.Remote
	case opts.Production:
		a.backend = portprompt.BackendMisconfigured
		slog.Error("storage: remote credentials not found, cloud sync is disabled for this build")
	default:
		if opts.Local == nil {
			return nil, fmt.Errorf("local backend selected but no local store configured")
		}
		a.backend = portprompt.BackendLocal
		a.local = local.New(opts.Local, local.PromptsKey)
		slog.Warn("storage: remote credentials not found, using local store")
	}
	return a, nil
}

func (a *Adapter) Backend() portprompt.Backend { return a.backend }

// FetchAll returns the whole collection. A failing remote read is logged and
// degrades to the last good remote snapshot (empty if none) instead of an error.
func (a *Adapter) FetchAll(ctx context.Context) ([]domainprompt.Prompt, error) {
	switch a.backend {
	case portprompt.BackendRemote:
		return a.fetchRemote(ctx), nil
	case portprompt.BackendLocal:
		prompts, err := a.local.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch prompts: %w", err)
		}
		return prompts, nil
	default:
		return nil, fmt.Errorf("fetch prompts: %w", ErrMisconfigured)
	}
}

func (a *Adapter) Add(ctx context.Context, p domainprompt.Prompt) ([]domainprompt.Prompt, error) {
	switch a.backend {
	case portprompt.BackendRemote:
		if err := a.remote.Insert(ctx, p); err != nil {
			slog.Error("storage: remote insert failed", "id", p.ID, "error", err)
			return nil, fmt.Errorf("add prompt: %w", err)
		}
		return a.fetchRemote(ctx), nil
	case portprompt.BackendLocal:
		prompts, err := a.local.Add(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("add prompt: %w", err)
		}
		return prompts, nil
	default:
		return nil, fmt.Errorf("add prompt: %w", ErrMisconfigured)
	}
}

func (a *Adapter) Update(ctx context.Context, p domainprompt.Prompt) ([]domainprompt.Prompt, error) {
	switch a.backend {
	case portprompt.BackendRemote:
		if err := a.remote.UpdateByID(ctx, p); err != nil {
			slog.Error("storage: remote update failed", "id", p.ID, "error", err)
			return nil, fmt.Errorf("update prompt: %w", err)
		}
		return a.fetchRemote(ctx), nil
	case portprompt.BackendLocal:
		prompts, err := a.local.Update(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("update prompt: %w", err)
		}
		return prompts, nil
	default:
		return nil, fmt.Errorf("update prompt: %w", ErrMisconfigured)
	}
}

func (a *Adapter) Delete(ctx context.Context, id string) ([]domainprompt.Prompt, error) {
	switch a.backend {
	case portprompt.BackendRemote:
		if err := a.remote.DeleteByID(ctx, id); err != nil {
			slog.Error("storage: remote delete failed", "id", id, "error", err)
			return nil, fmt.Errorf("delete prompt: %w", err)
		}
		return a.fetchRemote(ctx), nil
	case portprompt.BackendLocal:
		prompts, err := a.local.Delete(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("delete prompt: %w", err)
		}
		return prompts, nil
	default:
		return nil, fmt.Errorf("delete prompt: %w", ErrMisconfigured)
	}
}

func (a *Adapter) fetchRemote(ctx context.Context) []domainprompt.Prompt {
	prompts, err := a.remote.SelectAll(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		slog.Error("storage: remote fetch failed, serving last snapshot", "cached", len(a.last), "error", err)
		return domainprompt.Clone(a.last)
	}
	a.last = domainprompt.Clone(prompts)
	return domainprompt.Clone(prompts)
}
