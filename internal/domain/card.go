package domain

import (
	"database/sql"
	"time"
)

// Defaults for a freshly authored card.
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// CardState is the scheduling state of a card. It is only ever changed by
// the scheduler in response to a review.
type CardState struct {
	EaseFactor     float64
	Interval       int // days
	Repetitions    int // consecutive successful reviews since the last failure
	NextReviewDate time.Time
	LastReviewDate *time.Time // nil until the first review
}

// NewCardState returns the state of a card that has never been reviewed.
// It is due immediately.
func NewCardState(now time.Time) CardState {
	return CardState{
		EaseFactor:     DefaultEaseFactor,
		Interval:       0,
		Repetitions:    0,
		NextReviewDate: now,
	}
}

// IsNew reports whether the card has never been reviewed.
func (s CardState) IsNew() bool {
	return s.LastReviewDate == nil
}

// Card is a single question/answer entry owned by one user.
type Card struct {
	ID        string
	UserID    string
	Front     string
	Back      string
	Context   string
	Hash      string
	SourceID  sql.NullInt64 // set when the card was imported from a deck source
	CreatedAt time.Time
	Version   int64

	CardState
}

// ReviewLog records a single accepted review of a card.
type ReviewLog struct {
	ID                int64
	CardID            string
	UserID            string
	Response          Response
	Quality           int
	EaseBefore        float64
	EaseAfter         float64
	IntervalBefore    int
	IntervalAfter     int
	RepetitionsBefore int
	RepetitionsAfter  int
	ReviewedAt        time.Time
}

// Source is a place cards are imported from, either a local directory or a
// git repository.
type Source struct {
	ID          int64
	UserID      string
	Path        string
	Type        SourceType
	LastScanned sql.NullTime
}

// SourceType distinguishes local directories from git remotes.
type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceGit   SourceType = "git"
)
