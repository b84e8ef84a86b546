package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/spacedrep/internal/domain"
)

// InsertSource registers a deck source for a user and returns its ID.
func (db *DB) InsertSource(ctx context.Context, userID, path string, typ domain.SourceType) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (user_id, path, type)
		VALUES (?, ?, ?)
	`, userID, path, string(typ))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("source %s: %w", path, domain.ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a user's source by its path. It returns nil
// when there is none.
func (db *DB) FindSourceByPath(ctx context.Context, userID, path string) (*domain.Source, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, path, type, last_scanned
		FROM sources WHERE user_id = ? AND path = ?
	`, userID, path)

	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// ListSources retrieves a user's sources.
func (db *DB) ListSources(ctx context.Context, userID string) ([]domain.Source, error) {
	return db.querySources(ctx, `
		SELECT id, user_id, path, type, last_scanned
		FROM sources WHERE user_id = ? ORDER BY id
	`, userID)
}

// AllSources retrieves every stored source.
func (db *DB) AllSources(ctx context.Context) ([]domain.Source, error) {
	return db.querySources(ctx, `
		SELECT id, user_id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
}

func (db *DB) querySources(ctx context.Context, query string, args ...any) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source rows: %w", err)
	}
	return sources, nil
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		s   domain.Source
		typ string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Path, &typ, &s.LastScanned); err != nil {
		return domain.Source{}, err
	}
	s.Type = domain.SourceType(typ)
	return s, nil
}

// TouchSource records that a source was scanned at now.
func (db *DB) TouchSource(ctx context.Context, sourceID int64, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, now.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a user's source along with every card imported from it.
func (db *DB) DeleteSource(ctx context.Context, userID string, sourceID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ? AND user_id = ?`, sourceID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete source %d: %w", sourceID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("source %d: %w", sourceID, domain.ErrNotFound)
		}
		if err := deleteCards(ctx, tx, `source_id = ?`, sourceID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to delete cards of source %d: %w", sourceID, err)
		}
		return nil
	})
}
