package local_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/prompt-manager/internal/adapter/local"
	"github.com/alanyang/prompt-manager/internal/adapter/memory"
	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
)

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }

func TestStore_EmptyWhenMissing(t *testing.T) {
	s := local.New(memory.NewKV(), local.PromptsKey)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_CorruptBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	require.NoError(t, kv.Set(ctx, local.PromptsKey, []byte("{not json")))

	s := local.New(kv, local.PromptsKey)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	after, err := s.Add(ctx, domainprompt.Prompt{ID: "a", Title: "t", Description: "d"})
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestStore_AddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := local.New(memory.NewKV(), local.PromptsKey)

	a := domainprompt.Prompt{ID: "a", Title: "A", Description: "first"}
	b := domainprompt.Prompt{ID: "b", Title: "B", Description: "second"}

	got, err := s.Add(ctx, a)
	require.NoError(t, err)
	got, err = s.Add(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{a, b}, got)

	a2 := a
	a2.Title = "A2"
	got, err = s.Update(ctx, a2)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{a2, b}, got)

	got, err = s.Update(ctx, domainprompt.Prompt{ID: "ghost", Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{a2, b}, got)

	got, err = s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{b}, got)

	got, err = s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{b}, got)

	persisted, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{b}, persisted)
}

func TestStore_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := local.New(memory.NewKV(), local.PromptsKey)

	p := domainprompt.Prompt{ID: "a", Title: "A", Description: "d"}
	_, err := s.Add(ctx, p)
	require.NoError(t, err)

	_, err = s.Add(ctx, p)
	assert.ErrorIs(t, err, local.ErrDuplicateID)
}

func TestStore_KVFailureIsAnError(t *testing.T) {
	s := local.New(failingKV{}, local.PromptsKey)
	_, err := s.Load(context.Background())
	assert.Error(t, err)
}

func TestCache_LoadSave(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	c := local.NewCache(kv)

	_, ok := c.Load(ctx)
	assert.False(t, ok)

	ps := []domainprompt.Prompt{{ID: "a", Title: "A", Description: "d"}}
	require.NoError(t, c.Save(ctx, ps))

	got, ok := c.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, ps, got)

	require.NoError(t, kv.Set(ctx, local.CacheKey, []byte("][")))
	_, ok = c.Load(ctx)
	assert.False(t, ok)
}

func TestCache_EmptySnapshotIsStillAHit(t *testing.T) {
	ctx := context.Background()
	c := local.NewCache(memory.NewKV())
	require.NoError(t, c.Save(ctx, nil))

	got, ok := c.Load(ctx)
	assert.True(t, ok)
	assert.Empty(t, got)
}
