package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/prompt-manager/internal/adapter/memory"
	"github.com/alanyang/prompt-manager/internal/adapter/storage"
	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	"github.com/alanyang/prompt-manager/internal/mocks"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

func draftPrompt(title, desc string, at time.Time) domainprompt.Prompt {
	return domainprompt.New(domainprompt.Draft{Title: title, Description: desc}, uuid.NewString(), at)
}

func newLocal(t *testing.T) *storage.Adapter {
	t.Helper()
	a, err := storage.New(storage.Options{Local: memory.NewKV()})
	require.NoError(t, err)
	return a
}

func newRemote(t *testing.T) (*storage.Adapter, *mocks.MockTable) {
	t.Helper()
	ctrl := gomock.NewController(t)
	table := mocks.NewMockTable(ctrl)
	a, err := storage.New(storage.Options{Remote: table, Local: memory.NewKV(), Production: true})
	require.NoError(t, err)
	return a, table
}

// ── Backend selection ────────────────────────────────────────────────────────

func TestNew_SelectsBackend(t *testing.T) {
	ctrl := gomock.NewController(t)

	remote, err := storage.New(storage.Options{Remote: mocks.NewMockTable(ctrl), Local: memory.NewKV()})
	require.NoError(t, err)
	assert.Equal(t, portprompt.BackendRemote, remote.Backend())

	local, err := storage.New(storage.Options{Local: memory.NewKV()})
	require.NoError(t, err)
	assert.Equal(t, portprompt.BackendLocal, local.Backend())

	broken, err := storage.New(storage.Options{Local: memory.NewKV(), Production: true})
	require.NoError(t, err)
	assert.Equal(t, portprompt.BackendMisconfigured, broken.Backend())
}

func TestNew_LocalWithoutKV(t *testing.T) {
	_, err := storage.New(storage.Options{})
	assert.Error(t, err)
}

func TestMisconfigured_EveryOperationFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKV(ctrl) // no expectations: any local access fails the test

	a, err := storage.New(storage.Options{Local: kv, Production: true})
	require.NoError(t, err)
	ctx := context.Background()
	p := draftPrompt("t", "d", time.Now())

	_, err = a.FetchAll(ctx)
	assert.ErrorIs(t, err, storage.ErrMisconfigured)
	_, err = a.Add(ctx, p)
	assert.ErrorIs(t, err, storage.ErrMisconfigured)
	_, err = a.Update(ctx, p)
	assert.ErrorIs(t, err, storage.ErrMisconfigured)
	_, err = a.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrMisconfigured)
}

// ── Local backend ────────────────────────────────────────────────────────────

func TestLocal_EmptyThenAdd(t *testing.T) {
	a := newLocal(t)
	ctx := context.Background()

	got, err := a.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	p := draftPrompt("t", "d", time.Now())
	got, err = a.Add(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{p}, got)
}

func TestLocal_AddThenFetchRoundTrip(t *testing.T) {
	a := newLocal(t)
	ctx := context.Background()

	prior := []domainprompt.Prompt{draftPrompt("a", "1", time.Now()), draftPrompt("b", "2", time.Now())}
	for _, p := range prior {
		_, err := a.Add(ctx, p)
		require.NoError(t, err)
	}

	p := draftPrompt("new", "body", time.Now())
	p.Color = domainprompt.Palette[2]
	_, err := a.Add(ctx, p)
	require.NoError(t, err)

	got, err := a.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	matches := 0
	for _, q := range got {
		if q.ID == p.ID {
			matches++
			assert.Equal(t, p, q)
		}
	}
	assert.Equal(t, 1, matches)
}

func TestLocal_UpdateLeavesOthersUnchanged(t *testing.T) {
	a := newLocal(t)
	ctx := context.Background()
	now := time.Now()

	x := draftPrompt("x", "1", now)
	y := draftPrompt("y", "2", now)
	_, err := a.Add(ctx, x)
	require.NoError(t, err)
	_, err = a.Add(ctx, y)
	require.NoError(t, err)

	x2 := x.Revise(domainprompt.Draft{Title: "x2", Description: "1"}, now.Add(time.Second))
	got, err := a.Update(ctx, x2)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{x2, y}, got)
	assert.GreaterOrEqual(t, got[0].UpdatedAt, x.UpdatedAt)

	ghost := draftPrompt("ghost", "g", now)
	got, err = a.Update(ctx, ghost)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{x2, y}, got)
}

func TestLocal_DeleteIsIdempotent(t *testing.T) {
	a := newLocal(t)
	ctx := context.Background()

	x := draftPrompt("x", "1", time.Now())
	y := draftPrompt("y", "2", time.Now())
	_, _ = a.Add(ctx, x)
	_, _ = a.Add(ctx, y)

	got, err := a.Delete(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{y}, got)

	got, err = a.Delete(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{y}, got)
}

// ── Remote backend ───────────────────────────────────────────────────────────

func TestRemote_FetchFailureDegradesToEmpty(t *testing.T) {
	a, table := newRemote(t)
	table.EXPECT().SelectAll(gomock.Any()).Return(nil, errors.New("network down"))

	got, err := a.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRemote_FetchFailureServesLastSnapshot(t *testing.T) {
	a, table := newRemote(t)
	snap := []domainprompt.Prompt{draftPrompt("a", "b", time.Now())}
	gomock.InOrder(
		table.EXPECT().SelectAll(gomock.Any()).Return(snap, nil),
		table.EXPECT().SelectAll(gomock.Any()).Return(nil, errors.New("timeout")),
	)

	_, err := a.FetchAll(context.Background())
	require.NoError(t, err)

	got, err := a.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestRemote_AddReturnsFreshSnapshot(t *testing.T) {
	a, table := newRemote(t)
	p := draftPrompt("t", "d", time.Now())
	snap := []domainprompt.Prompt{p}

	gomock.InOrder(
		table.EXPECT().Insert(gomock.Any(), p).Return(nil),
		table.EXPECT().SelectAll(gomock.Any()).Return(snap, nil),
	)

	got, err := a.Add(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestRemote_MutationFailurePropagates(t *testing.T) {
	a, table := newRemote(t)
	p := draftPrompt("t", "d", time.Now())
	ctx := context.Background()

	table.EXPECT().Insert(gomock.Any(), p).Return(errors.New("insert refused"))
	table.EXPECT().UpdateByID(gomock.Any(), p).Return(errors.New("update refused"))
	table.EXPECT().DeleteByID(gomock.Any(), p.ID).Return(errors.New("delete refused"))

	_, err := a.Add(ctx, p)
	assert.ErrorContains(t, err, "add prompt: insert refused")
	_, err = a.Update(ctx, p)
	assert.ErrorContains(t, err, "update prompt: update refused")
	_, err = a.Delete(ctx, p.ID)
	assert.ErrorContains(t, err, "delete prompt: delete refused")
}

func TestRemote_UpdateAndDelete(t *testing.T) {
	a, table := newRemote(t)
	p := draftPrompt("t", "d", time.Now())
	ctx := context.Background()

	gomock.InOrder(
		table.EXPECT().UpdateByID(gomock.Any(), p).Return(nil),
		table.EXPECT().SelectAll(gomock.Any()).Return([]domainprompt.Prompt{p}, nil),
		table.EXPECT().DeleteByID(gomock.Any(), p.ID).Return(nil),
		table.EXPECT().SelectAll(gomock.Any()).Return([]domainprompt.Prompt{}, nil),
	)

	got, err := a.Update(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []domainprompt.Prompt{p}, got)

	got, err = a.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
