package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// Table implements port/prompt.Table using Postgres.
// [LSP] The PostgREST table in adapter/rest is a drop-in substitute.
type Table struct {
	pool *pgxpool.Pool
}

var _ portprompt.Table = (*Table)(nil)

func New(pool *pgxpool.Pool) *Table {
	return &Table{pool: pool}
}

// SelectAll returns every prompt, newest first.
func (t *Table) SelectAll(ctx context.Context) ([]domainprompt.Prompt, error) {
	query := `
		SELECT id, title, description, COALESCE(color, ''), created_at, updated_at
		FROM prompts
		ORDER BY created_at DESC`

	rows, err := t.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	prompts := []domainprompt.Prompt{}
	for rows.Next() {
		var (
			p                    domainprompt.Prompt
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Color, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		p.CreatedAt = domainprompt.FormatTime(createdAt)
		p.UpdatedAt = domainprompt.FormatTime(updatedAt)
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

func (t *Table) Insert(ctx context.Context, p domainprompt.Prompt) error {
	createdAt, err := parseTime(p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting prompt %s: created_at: %w", p.ID, err)
	}
	updatedAt, err := parseTime(p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting prompt %s: updated_at: %w", p.ID, err)
	}

	query := `
		INSERT INTO prompts (id, title, description, color, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	if _, err := t.pool.Exec(ctx, query, p.ID, p.Title, p.Description, p.Color, createdAt, updatedAt); err != nil {
		return fmt.Errorf("inserting prompt %s: %w", p.ID, err)
	}
	return nil
}

// UpdateByID rewrites the editable columns. id and created_at are never touched.
func (t *Table) UpdateByID(ctx context.Context, p domainprompt.Prompt) error {
	updatedAt, err := parseTime(p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating prompt %s: updated_at: %w", p.ID, err)
	}

	query := `
		UPDATE prompts
		SET title = $2, description = $3, color = NULLIF($4, ''), updated_at = $5
		WHERE id = $1`

	if _, err := t.pool.Exec(ctx, query, p.ID, p.Title, p.Description, p.Color, updatedAt); err != nil {
		return fmt.Errorf("updating prompt %s: %w", p.ID, err)
	}
	return nil
}

func (t *Table) DeleteByID(ctx context.Context, id string) error {
	if _, err := t.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
