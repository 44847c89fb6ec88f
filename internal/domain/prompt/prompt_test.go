package prompt_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/alanyang/prompt-manager/internal/domain/prompt"
)

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name   string
		draft  Draft
		fields []string
	}{
		{name: "valid without color", draft: Draft{Title: "t", Description: "d"}},
		{name: "valid palette color", draft: Draft{Title: "t", Description: "d", Color: Palette[1]}},
		{name: "empty title", draft: Draft{Description: "d"}, fields: []string{"title"}},
		{name: "blank description", draft: Draft{Title: "t", Description: "   "}, fields: []string{"description"}},
		{name: "both missing", draft: Draft{}, fields: []string{"title", "description"}},
		{name: "off-palette color", draft: Draft{Title: "t", Description: "d", Color: "#000000"}, fields: []string{"color"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Normalize().Validate()
			if len(tc.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tc.fields))
			for _, f := range tc.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestValidationError_Messages(t *testing.T) {
	err := Draft{}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Title is required", verr.Fields["title"])
	assert.Equal(t, "Description is required", verr.Fields["description"])
	assert.Equal(t, "invalid prompt: description: Description is required; title: Title is required", err.Error())
}

func TestNormalize_TrimsFields(t *testing.T) {
	d := Draft{Title: "  Foo ", Description: "\tbar\n", Color: " #22c55e "}.Normalize()
	assert.Equal(t, Draft{Title: "Foo", Description: "bar", Color: "#22c55e"}, d)
}

func TestNew_StampsBothTimestamps(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.FixedZone("X", 3600))
	p := New(Draft{Title: "t", Description: "d"}, "id-1", now)

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "2025-03-01T11:00:00.123456Z", p.CreatedAt)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.Equal(t, DefaultColor, p.ColorOrDefault())
}

func TestRevise_PreservesIdentity(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New(Draft{Title: "a", Description: "b", Color: Palette[0]}, "id-1", created)

	later := created.Add(time.Hour)
	r := p.Revise(Draft{Title: "A", Description: "B", Color: Palette[2]}, later)

	assert.Equal(t, p.ID, r.ID)
	assert.Equal(t, p.CreatedAt, r.CreatedAt)
	assert.Equal(t, FormatTime(later), r.UpdatedAt)
	assert.Equal(t, "A", r.Title)
	assert.Equal(t, Palette[2], r.ColorOrDefault())
}

func TestRevise_UpdatedAtNeverMovesBackwards(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New(Draft{Title: "a", Description: "b"}, "id-1", created)

	r := p.Revise(Draft{Title: "a", Description: "c"}, created.Add(-time.Hour))
	assert.Equal(t, p.UpdatedAt, r.UpdatedAt)
	assert.GreaterOrEqual(t, r.UpdatedAt, r.CreatedAt)
}

func TestRevise_RefreshesWithinSameSecond(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 1, 0, time.UTC)
	p := New(Draft{Title: "a", Description: "b"}, "id-1", created)
	assert.Equal(t, "2025-06-01T09:00:01.000000Z", p.UpdatedAt)

	r := p.Revise(Draft{Title: "a", Description: "c"}, created.Add(500*time.Millisecond))
	assert.Equal(t, "2025-06-01T09:00:01.500000Z", r.UpdatedAt)
	assert.Greater(t, r.UpdatedAt, p.UpdatedAt)
}

func TestRevise_ComparesForeignStampsAsInstants(t *testing.T) {
	p := Prompt{ID: "id-1", CreatedAt: "2025-06-01T09:00:01.000Z", UpdatedAt: "2025-06-01T09:00:01.000Z"}

	r := p.Revise(Draft{Title: "a", Description: "b"}, time.Date(2025, 6, 1, 9, 0, 1, 250_000_000, time.UTC))
	assert.Equal(t, "2025-06-01T09:00:01.250000Z", r.UpdatedAt)
	assert.Equal(t, p.CreatedAt, r.CreatedAt)
}

func TestFormatTime_SortsLikeInstants(t *testing.T) {
	whole := time.Date(2025, 6, 1, 9, 0, 1, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	assert.Less(t, FormatTime(whole), FormatTime(half))
	assert.Len(t, FormatTime(whole), len(FormatTime(half)))
}

func TestNormalizeTime(t *testing.T) {
	assert.Equal(t, "2024-05-01T10:00:00.500000Z", NormalizeTime("2024-05-01T10:00:00.5+00:00"))
	assert.Equal(t, "2024-05-01T08:00:00.000000Z", NormalizeTime("2024-05-01T10:00:00+02:00"))
	assert.Equal(t, "garbage", NormalizeTime("garbage"))
}

func TestIndexAndClone(t *testing.T) {
	ps := []Prompt{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 1, Index(ps, "b"))
	assert.Equal(t, -1, Index(ps, "zzz"))

	c := Clone(ps)
	c[0].Title = "changed"
	assert.Empty(t, ps[0].Title)

	assert.NotNil(t, Clone(nil))
	assert.Empty(t, Clone(nil))
}
