package prompt

import (
	"context"
	"errors"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
)

// Backend names the persistence mode the Store settled on at startup.
type Backend string

const (
	BackendRemote        Backend = "remote"
	BackendLocal         Backend = "local"
	BackendMisconfigured Backend = "misconfigured"
)

// ErrNotFound is returned by KV.Get for a key that was never written.
var ErrNotFound = errors.New("key not found")

// ErrMisconfigured is returned by every Store operation when a production build
// has no remote credentials.
var ErrMisconfigured = errors.New("cloud sync is not configured")

// MisconfigurationMessage is the operator-facing banner for ErrMisconfigured.
const MisconfigurationMessage = "Cloud sync is not configured for this deployed app. " +
	"Set PROMPTS_REMOTE_URL and PROMPTS_REMOTE_KEY in the hosting environment settings, then redeploy."

// Store is the storage abstraction for prompts.
// Every operation returns the complete current collection, never a delta,
// so callers replace their cached copy instead of merging.
// [DIP] service/prompt depends on this interface, not on any concrete backend.
type Store interface {
	FetchAll(ctx context.Context) ([]domainprompt.Prompt, error)
	Add(ctx context.Context, p domainprompt.Prompt) ([]domainprompt.Prompt, error)
	Update(ctx context.Context, p domainprompt.Prompt) ([]domainprompt.Prompt, error)
	Delete(ctx context.Context, id string) ([]domainprompt.Prompt, error)

	// Backend reports the mode chosen at construction. It never changes.
	Backend() Backend
}

// Table is the remote prompts table: select-all, insert-one, update-by-id,
// delete-by-id. Column names are snake_case on the remote side.
// [LSP] Postgres and PostgREST implementations are both valid substitutes.
type Table interface {
	// SelectAll returns every row ordered by created_at descending.
	SelectAll(ctx context.Context) ([]domainprompt.Prompt, error)
	Insert(ctx context.Context, p domainprompt.Prompt) error
	// UpdateByID rewrites title, description, color and updated_at. An absent
	// id is not an error.
	UpdateByID(ctx context.Context, p domainprompt.Prompt) error
	DeleteByID(ctx context.Context, id string) error
}

// KV is the local key-value primitive the local backend serializes into.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// SnapshotCache holds the last known collection for fast startup rendering.
type SnapshotCache interface {
	// Load returns ok=false when nothing usable is cached.
	Load(ctx context.Context) (prompts []domainprompt.Prompt, ok bool)
	Save(ctx context.Context, prompts []domainprompt.Prompt) error
}
