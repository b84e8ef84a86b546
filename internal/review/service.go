// Package review runs review sessions: authoring cards, submitting review
// outcomes and building the due queue on top of the sm2 scheduler.
package review

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/sm2"
)

// Store is the persistence the service needs. Save must fail with
// domain.ErrConflict when card.Version is no longer the stored version.
type Store interface {
	InsertCard(ctx context.Context, card domain.Card) error
	Load(ctx context.Context, id string) (domain.Card, error)
	Save(ctx context.Context, card domain.Card, log domain.ReviewLog) error
	ListForUser(ctx context.Context, userID string) ([]domain.Card, error)
	Delete(ctx context.Context, id string) error
	ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error)
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	MaxAttempts   int
	NewCardPolicy sm2.NewCardPolicy
	Clock         func() time.Time
	NewID         func() string
}

// Service coordinates the scheduler with storage.
type Service struct {
	store     Store
	scheduler *sm2.Scheduler
	logger    *zap.Logger
	validate  *validator.Validate

	maxAttempts   int
	newCardPolicy sm2.NewCardPolicy
	now           func() time.Time
	newID         func() string
}

// NewService creates a Service.
func NewService(store Store, scheduler *sm2.Scheduler, logger *zap.Logger, opts Options) *Service {
	s := &Service{
		store:         store,
		scheduler:     scheduler,
		logger:        logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		maxAttempts:   opts.MaxAttempts,
		newCardPolicy: opts.NewCardPolicy,
		now:           opts.Clock,
		newID:         opts.NewID,
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 3
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = newCardID
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}
