package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/spacedrep/internal/domain"
)

const cardColumns = `id, user_id, hash, front, back, context, ease_factor, interval_days,
	repetitions, next_review, last_review, version, source_id, created_at`

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c          domain.Card
		lastReview sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Hash,
		&c.Front,
		&c.Back,
		&c.Context,
		&c.EaseFactor,
		&c.Interval,
		&c.Repetitions,
		&c.NextReviewDate,
		&lastReview,
		&c.Version,
		&c.SourceID,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Card{}, err
	}
	if lastReview.Valid {
		t := lastReview.Time
		c.LastReviewDate = &t
	}
	return c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// InsertCard stores a newly authored card. The card's Version is ignored
// and starts at 1. A user may own each piece of content only once; a
// duplicate hash returns domain.ErrConflict.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (id, user_id, hash, front, back, context, ease_factor, interval_days,
			repetitions, next_review, last_review, version, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`,
		card.ID,
		card.UserID,
		card.Hash,
		card.Front,
		card.Back,
		card.Context,
		card.EaseFactor,
		card.Interval,
		card.Repetitions,
		card.NextReviewDate.UTC(),
		nullTime(card.LastReviewDate),
		card.SourceID,
		card.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("card %s for user %s: %w", card.Hash, card.UserID, domain.ErrConflict)
		}
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// Load retrieves a card by its ID.
func (db *DB) Load(ctx context.Context, id string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to load card %s: %w", id, err)
	}
	return card, nil
}

// FindCardByHash retrieves a user's card by its content hash. It returns
// nil when the user has no such card.
func (db *DB) FindCardByHash(ctx context.Context, userID, hash string) (*domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = ? AND hash = ?`, userID, hash)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return &card, nil
}

// Save writes the card's scheduling state and appends the review log in one
// transaction. The update only applies if the stored version still equals
// card.Version; otherwise someone else saved first and domain.ErrConflict is
// returned so the caller can reload and recompute.
func (db *DB) Save(ctx context.Context, card domain.Card, log domain.ReviewLog) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE cards
			SET ease_factor = ?, interval_days = ?, repetitions = ?, next_review = ?, last_review = ?,
				version = version + 1
			WHERE id = ? AND version = ?
		`,
			card.EaseFactor,
			card.Interval,
			card.Repetitions,
			card.NextReviewDate.UTC(),
			nullTime(card.LastReviewDate),
			card.ID,
			card.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update card state for %s: %w", card.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result for %s: %w", card.ID, err)
		}
		if n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, card.ID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("failed to check card %s: %w", card.ID, err)
			}
			return fmt.Errorf("card %s at version %d: %w", card.ID, card.Version, domain.ErrConflict)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO review_logs (card_id, user_id, response, quality, ease_before, ease_after,
				interval_before, interval_after, repetitions_before, repetitions_after, reviewed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			card.ID,
			log.UserID,
			log.Response.String(),
			log.Quality,
			log.EaseBefore,
			log.EaseAfter,
			log.IntervalBefore,
			log.IntervalAfter,
			log.RepetitionsBefore,
			log.RepetitionsAfter,
			log.ReviewedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert review log for %s: %w", card.ID, err)
		}
		return nil
	})
}

// ListForUser returns all of a user's cards in the order they were created.
func (db *DB) ListForUser(ctx context.Context, userID string) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = ? ORDER BY seq`, userID)
}

// ListBySource returns all cards imported from a specific source.
func (db *DB) ListBySource(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE source_id = ? ORDER BY seq`, sourceID)
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	return cards, nil
}

// Delete removes a card and its review history.
func (db *DB) Delete(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteCards(ctx, tx, `id = ?`, id); err != nil {
			return fmt.Errorf("card %s: %w", id, err)
		}
		return nil
	})
}

// deleteCards removes the cards matching where, together with their logs.
// It returns domain.ErrNotFound when nothing matched.
func deleteCards(ctx context.Context, tx *sql.Tx, where string, arg any) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM review_logs WHERE card_id IN (SELECT id FROM cards WHERE `+where+`)
	`, arg); err != nil {
		return fmt.Errorf("failed to delete review logs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE `+where, arg)
	if err != nil {
		return fmt.Errorf("failed to delete cards: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReviewLogs returns the review history of a card, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_id, user_id, response, quality, ease_before, ease_after,
			interval_before, interval_after, repetitions_before, repetitions_after, reviewed_at
		FROM review_logs WHERE card_id = ? ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			l        domain.ReviewLog
			response string
		)
		if err := rows.Scan(
			&l.ID,
			&l.CardID,
			&l.UserID,
			&response,
			&l.Quality,
			&l.EaseBefore,
			&l.EaseAfter,
			&l.IntervalBefore,
			&l.IntervalAfter,
			&l.RepetitionsBefore,
			&l.RepetitionsAfter,
			&l.ReviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review log for %s: %w", cardID, err)
		}
		if l.Response, err = domain.ParseResponse(response); err != nil {
			return nil, fmt.Errorf("review log %d: %w", l.ID, err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review logs for %s: %w", cardID, err)
	}
	return logs, nil
}
