//go:build integration

package prompt_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgprompt "github.com/alanyang/prompt-manager/internal/adapter/postgres/prompt"
	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	"github.com/alanyang/prompt-manager/internal/testutil"
)

func newPrompt(title string, at time.Time) domainprompt.Prompt {
	return domainprompt.New(domainprompt.Draft{Title: title, Description: title + " body", Color: domainprompt.Palette[0]}, uuid.NewString(), at)
}

func find(ps []domainprompt.Prompt, id string) (domainprompt.Prompt, bool) {
	i := domainprompt.Index(ps, id)
	if i < 0 {
		return domainprompt.Prompt{}, false
	}
	return ps[i], true
}

func TestTable_InsertRoundTrip(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	table := pgprompt.New(pool)

	p := newPrompt("roundtrip", time.Now())
	require.NoError(t, table.Insert(ctx, p))
	t.Cleanup(func() { _ = table.DeleteByID(ctx, p.ID) })

	all, err := table.SelectAll(ctx)
	require.NoError(t, err)
	got, ok := find(all, p.ID)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestTable_OrderedNewestFirst(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	table := pgprompt.New(pool)

	base := time.Now().Add(24 * time.Hour)
	older := newPrompt("older", base)
	newer := newPrompt("newer", base.Add(time.Minute))
	require.NoError(t, table.Insert(ctx, older))
	require.NoError(t, table.Insert(ctx, newer))
	t.Cleanup(func() {
		_ = table.DeleteByID(ctx, older.ID)
		_ = table.DeleteByID(ctx, newer.ID)
	})

	all, err := table.SelectAll(ctx)
	require.NoError(t, err)
	assert.Less(t, domainprompt.Index(all, newer.ID), domainprompt.Index(all, older.ID))
}

func TestTable_UpdateAndDelete(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	table := pgprompt.New(pool)

	p := newPrompt("editable", time.Now())
	require.NoError(t, table.Insert(ctx, p))

	revised := p.Revise(domainprompt.Draft{Title: "edited", Description: "new body"}, time.Now().Add(time.Second))
	require.NoError(t, table.UpdateByID(ctx, revised))

	all, err := table.SelectAll(ctx)
	require.NoError(t, err)
	got, ok := find(all, p.ID)
	require.True(t, ok)
	assert.Equal(t, "edited", got.Title)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
	assert.Empty(t, got.Color)

	require.NoError(t, table.DeleteByID(ctx, p.ID))
	require.NoError(t, table.DeleteByID(ctx, p.ID))

	all, err = table.SelectAll(ctx)
	require.NoError(t, err)
	_, ok = find(all, p.ID)
	assert.False(t, ok)
}
