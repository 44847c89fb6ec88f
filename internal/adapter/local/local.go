package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

const (
	// PromptsKey holds the authoritative collection when running locally.
	PromptsKey = "prompt-manager-prompts"
	// CacheKey holds the last snapshot seen from any backend, for fast startup.
	CacheKey = "prompt-manager-cache"
)

// ErrDuplicateID is returned when adding a prompt whose id is already stored.
var ErrDuplicateID = errors.New("prompt id already exists")

// Store keeps the whole collection as one JSON array under one key.
// Every mutation reads the blob, applies the change and rewrites the blob.
// There is no locking here; callers serialize writes.
type Store struct {
	kv  portprompt.KV
	key string
}

func New(kv portprompt.KV, key string) *Store {
	return &Store{kv: kv, key: key}
}

// Load returns the stored collection. A missing or corrupt blob yields an empty
// collection; only a failing KV read is an error.
func (s *Store) Load(ctx context.Context) ([]domainprompt.Prompt, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, portprompt.ErrNotFound) {
			return []domainprompt.Prompt{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.key, err)
	}
	return decode(s.key, data), nil
}

func (s *Store) Save(ctx context.Context, prompts []domainprompt.Prompt) error {
	data, err := json.Marshal(domainprompt.Clone(prompts))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("writing %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, p domainprompt.Prompt) ([]domainprompt.Prompt, error) {
	prompts, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if domainprompt.Index(prompts, p.ID) >= 0 {
		return nil, fmt.Errorf("add prompt %s: %w", p.ID, ErrDuplicateID)
	}
	prompts = append(prompts, p)
	if err := s.Save(ctx, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// Update replaces the prompt with the same id. An absent id leaves the
// collection as it was.
func (s *Store) Update(ctx context.Context, p domainprompt.Prompt) ([]domainprompt.Prompt, error) {
	prompts, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := domainprompt.Index(prompts, p.ID)
	if i < 0 {
		return prompts, nil
	}
	prompts[i] = p
	if err := s.Save(ctx, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// Delete removes the prompt with the given id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) ([]domainprompt.Prompt, error) {
	prompts, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := domainprompt.Index(prompts, id)
	if i < 0 {
		return prompts, nil
	}
	prompts = append(prompts[:i], prompts[i+1:]...)
	if err := s.Save(ctx, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

func decode(key string, data []byte) []domainprompt.Prompt {
	if len(data) == 0 {
		return []domainprompt.Prompt{}
	}
	var prompts []domainprompt.Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		slog.Warn("local: discarding unreadable blob", "key", key, "error", err)
		return []domainprompt.Prompt{}
	}
	if prompts == nil {
		prompts = []domainprompt.Prompt{}
	}
	return prompts
}
