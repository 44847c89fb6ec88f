package prompt

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// DefaultColor is the card color used when a prompt carries no color tag.
const DefaultColor = "#6366f1"

// Palette is the fixed set of colors a prompt may be tagged with.
var Palette = []string{
	"#22c55e", // green
	"#8b5cf6", // purple
	"#f97316", // orange
}

// Prompt is the sole persisted entity. The JSON form is the local blob format.
// CreatedAt and UpdatedAt are RFC 3339 UTC strings so that they sort lexically.
type Prompt struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	Color       string `json:"color,omitempty"`
}

// ColorOrDefault returns the prompt's color, or DefaultColor when unset.
func (p Prompt) ColorOrDefault() string {
	if p.Color == "" {
		return DefaultColor
	}
	return p.Color
}

// Draft is user input for a prompt before it is stamped with an id and timestamps.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
}

// Normalize trims surrounding whitespace from title, description and color.
func (d Draft) Normalize() Draft {
	return Draft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Color:       strings.TrimSpace(d.Color),
	}
}

// Validate reports every invalid field at once. It expects a normalized draft.
func (d Draft) Validate() error {
	fields := make(map[string]string)
	if strings.TrimSpace(d.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		fields["description"] = "Description is required"
	}
	if d.Color != "" && !slices.Contains(Palette, d.Color) {
		fields["color"] = "Color must be one of the palette colors"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidationError is returned for input rejected before any storage call.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid prompt: " + strings.Join(parts, "; ")
}

// New stamps a draft with an id and sets both timestamps to now.
func New(d Draft, id string, now time.Time) Prompt {
	ts := FormatTime(now)
	return Prompt{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Color:       d.Color,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// Revise replaces the editable fields. ID and CreatedAt are preserved and
// UpdatedAt never moves backwards.
func (p Prompt) Revise(d Draft, now time.Time) Prompt {
	for _, prev := range []string{p.UpdatedAt, p.CreatedAt} {
		if t, err := time.Parse(time.RFC3339Nano, prev); err == nil && now.Before(t) {
			now = t
		}
	}
	p.Title = d.Title
	p.Description = d.Description
	p.Color = d.Color
	p.UpdatedAt = FormatTime(now)
	return p
}

// TimeLayout is the persisted timestamp form: UTC with a fixed six-digit
// fraction, so stamps order the same as strings and as instants.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders t in TimeLayout. Precision is cut to microseconds so
// values survive a round trip through Postgres unchanged.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(TimeLayout)
}

// NormalizeTime re-renders a timestamp produced by another backend (for example
// "2024-05-01T10:00:00.5+00:00") into the persisted form. Unparseable input is
// returned unchanged.
func NormalizeTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}

// Index returns the position of the prompt with the given id, or -1.
func Index(prompts []Prompt, id string) int {
	return slices.IndexFunc(prompts, func(p Prompt) bool { return p.ID == id })
}

// Clone returns a copy of the collection that never aliases the input.
// A nil input yields an empty, non-nil slice so that JSON renders [].
func Clone(prompts []Prompt) []Prompt {
	out := make([]Prompt, len(prompts))
	copy(out, prompts)
	return out
}
