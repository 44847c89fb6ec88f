package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

const (
	// TableName is the remote table the prompts live in.
	TableName = "prompts"

	defaultTimeout = 15 * time.Second
)

// Table implements port/prompt.Table against a PostgREST-compatible endpoint
// (e.g. a Supabase project URL plus its anon key).
type Table struct {
	endpoint string
	key      string
	client   *http.Client
}

var _ portprompt.Table = (*Table)(nil)

type Option func(*Table)

// WithHTTPClient overrides the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(t *Table) { t.client = c }
}

// New builds a table client for baseURL (the project URL, without /rest/v1).
func New(baseURL, key string, opts ...Option) (*Table, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url %q: scheme must be http or https", baseURL)
	}
	if key == "" {
		return nil, fmt.Errorf("remote access key is empty")
	}

	t := &Table{
		endpoint: strings.TrimRight(u.String(), "/") + "/rest/v1/" + TableName,
		key:      key,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// APIError is a non-2xx response from the remote table.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("remote table: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("remote table: %d: %s", e.Status, msg)
}

// record is the remote (snake_case) row shape.
type record struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       *string `json:"color"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// changes is the PATCH body; id and created_at are never rewritten.
type changes struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       *string `json:"color"`
	UpdatedAt   string  `json:"updated_at"`
}

func toRecord(p domainprompt.Prompt) record {
	return record{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Color:       optional(p.Color),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromRecord(r record) domainprompt.Prompt {
	p := domainprompt.Prompt{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   domainprompt.NormalizeTime(r.CreatedAt),
		UpdatedAt:   domainprompt.NormalizeTime(r.UpdatedAt),
	}
	if r.Color != nil {
		p.Color = *r.Color
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *Table) SelectAll(ctx context.Context) ([]domainprompt.Prompt, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []record
	if err := t.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}

	prompts := make([]domainprompt.Prompt, 0, len(rows))
	for _, r := range rows {
		prompts = append(prompts, fromRecord(r))
	}
	return prompts, nil
}

func (t *Table) Insert(ctx context.Context, p domainprompt.Prompt) error {
	if err := t.do(ctx, http.MethodPost, nil, []record{toRecord(p)}, nil); err != nil {
		return fmt.Errorf("inserting prompt %s: %w", p.ID, err)
	}
	return nil
}

func (t *Table) UpdateByID(ctx context.Context, p domainprompt.Prompt) error {
	body := changes{
		Title:       p.Title,
		Description: p.Description,
		Color:       optional(p.Color),
		UpdatedAt:   p.UpdatedAt,
	}
	if err := t.do(ctx, http.MethodPatch, byID(p.ID), body, nil); err != nil {
		return fmt.Errorf("updating prompt %s: %w", p.ID, err)
	}
	return nil
}

func (t *Table) DeleteByID(ctx context.Context, id string) error {
	if err := t.do(ctx, http.MethodDelete, byID(id), nil, nil); err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, err)
	}
	return nil
}

func byID(id string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return q
}

func (t *Table) do(ctx context.Context, method string, query url.Values, body, out any) error {
	target := t.endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("apikey", t.key)
	req.Header.Set("Authorization", "Bearer "+t.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
