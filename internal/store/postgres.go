package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortkit/internal/shortener"
)

// PostgresRepository is a PostgreSQL implementation of shortener.Repository.
// The unique constraint on code is the arbiter for concurrent creates.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-backed repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const shortURLColumns = `code, original_url, owner_kind, owner_id, created_at, expires_at, is_active, click_count, click_history`

func (p *PostgresRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	query := `SELECT ` + shortURLColumns + ` FROM short_urls WHERE code = $1`

	row := p.pool.QueryRow(ctx, query, string(code))

	return scanShortURL(row)
}

func (p *PostgresRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool

	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM short_urls WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (p *PostgresRepository) Insert(ctx context.Context, url *shortener.ShortURL) error {
	query := `
		INSERT INTO short_urls (` + shortURLColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		string(url.Code),
		url.OriginalURL,
		string(url.OwnerKind),
		url.OwnerID,
		url.CreatedAt,
		url.ExpiresAt,
		url.IsActive,
		url.ClickCount,
		clickHistoryJSON(url.ClickHistory),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrDuplicateCode
	}

	return nil
}

func (p *PostgresRepository) UpdateFields(
	ctx context.Context, code shortener.Code, ownerID string, update shortener.Update,
) (*shortener.ShortURL, error) {
	assignments := make([]string, 0, 3)
	args := []any{string(code), ownerID}

	addArg := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.OriginalURL != nil {
		addArg("original_url", *update.OriginalURL)
	}

	if update.IsActive != nil {
		addArg("is_active", *update.IsActive)
	}

	switch {
	case update.ClearExpiresAt:
		assignments = append(assignments, "expires_at = NULL")
	case update.ExpiresAt != nil:
		addArg("expires_at", *update.ExpiresAt)
	}

	if len(assignments) == 0 {
		// Nothing to change; still verify existence and ownership.
		return p.findOwned(ctx, code, ownerID)
	}

	query := `
		UPDATE short_urls SET ` + strings.Join(assignments, ", ") + `
		WHERE code = $1 AND owner_id = $2
		RETURNING ` + shortURLColumns

	row := p.pool.QueryRow(ctx, query, args...)

	return scanShortURL(row)
}

func (p *PostgresRepository) DeleteByCode(ctx context.Context, code shortener.Code, ownerID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM short_urls WHERE code = $1 AND owner_id = $2`,
		string(code), ownerID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM short_urls WHERE expires_at IS NOT NULL AND expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresRepository) RecordClick(ctx context.Context, code shortener.Code, click shortener.Click) error {
	payload, err := json.Marshal(click)
	if err != nil {
		return err
	}

	// jsonb - 0 drops the oldest history entry once the ring is full.
	query := `
		UPDATE short_urls
		SET click_count = click_count + 1,
		    click_history = CASE
		        WHEN jsonb_array_length(click_history) >= $3 THEN (click_history - 0) || $2::jsonb
		        ELSE click_history || $2::jsonb
		    END
		WHERE code = $1
	`

	tag, err := p.pool.Exec(ctx, query, string(code), payload, shortener.MaxClickHistory)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresRepository) findOwned(
	ctx context.Context, code shortener.Code, ownerID string,
) (*shortener.ShortURL, error) {
	query := `SELECT ` + shortURLColumns + ` FROM short_urls WHERE code = $1 AND owner_id = $2`

	row := p.pool.QueryRow(ctx, query, string(code), ownerID)

	return scanShortURL(row)
}

func scanShortURL(row pgx.Row) (*shortener.ShortURL, error) {
	var (
		url     shortener.ShortURL
		history []byte
	)

	err := row.Scan(
		&url.Code,
		&url.OriginalURL,
		&url.OwnerKind,
		&url.OwnerID,
		&url.CreatedAt,
		&url.ExpiresAt,
		&url.IsActive,
		&url.ClickCount,
		&history,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &url.ClickHistory); err != nil {
			return nil, err
		}
	}

	return &url, nil
}

func clickHistoryJSON(history []shortener.Click) []byte {
	if len(history) == 0 {
		return []byte("[]")
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return []byte("[]")
	}

	return payload
}

// Compile-time check.
var _ shortener.Repository = (*PostgresRepository)(nil)
