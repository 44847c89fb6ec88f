package memory

import (
	"context"
	"sync"

	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// KV implements port/prompt.KV in process memory. Nothing survives a restart.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ portprompt.KV = (*KV)(nil)

func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, ok := k.data[key]
	if !ok {
		return nil, portprompt.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (k *KV) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	k.mu.Lock()
	k.data[key] = v
	k.mu.Unlock()
	return nil
}
