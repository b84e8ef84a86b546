package review

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/sm2"
)

// SubmitReview records the learner's response to a card and reschedules it.
//
// The card is loaded, rescheduled and saved as one attempt. If another
// review of the same card was saved in between, the save fails with
// domain.ErrConflict and the whole attempt is repeated from a fresh load,
// up to the configured number of attempts.
func (s *Service) SubmitReview(ctx context.Context, input SubmitReviewInput) (domain.Card, error) {
	if err := s.validate.Struct(input); err != nil {
		return domain.Card{}, validationError(err)
	}
	quality, err := sm2.Classify(input.Response)
	if err != nil {
		return domain.Card{}, err
	}

	log := s.logger.With(
		zap.String("user_id", input.UserID),
		zap.String("card_id", input.CardID),
		zap.Stringer("response", input.Response),
	)

	for attempt := 1; ; attempt++ {
		card, err := s.submitOnce(ctx, input, quality)
		if err == nil {
			log.Info("review recorded",
				zap.Int("interval", card.Interval),
				zap.Int("repetitions", card.Repetitions),
				zap.Float64("ease_factor", card.EaseFactor),
				zap.Time("next_review", card.NextReviewDate),
				zap.Int("attempt", attempt),
			)
			return card, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			if errors.Is(err, domain.ErrInvalidState) {
				log.Error("stored card state is invalid", zap.Error(err))
			}
			return domain.Card{}, err
		}
		if attempt >= s.maxAttempts {
			log.Warn("review abandoned after concurrent updates", zap.Int("attempts", attempt), zap.Error(err))
			return domain.Card{}, fmt.Errorf("submit review after %d attempts: %w", attempt, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Card{}, ctxErr
		}
		log.Debug("concurrent update, retrying review", zap.Int("attempt", attempt))
	}
}

func (s *Service) submitOnce(ctx context.Context, input SubmitReviewInput, quality sm2.Quality) (domain.Card, error) {
	card, err := s.GetCard(ctx, input.UserID, input.CardID)
	if err != nil {
		return domain.Card{}, err
	}

	now := s.now()
	next, err := s.scheduler.Schedule(card.CardState, quality, now)
	if err != nil {
		return domain.Card{}, fmt.Errorf("schedule card %s: %w", card.ID, err)
	}

	entry := domain.ReviewLog{
		CardID:            card.ID,
		UserID:            card.UserID,
		Response:          input.Response,
		Quality:           int(quality),
		EaseBefore:        card.EaseFactor,
		EaseAfter:         next.EaseFactor,
		IntervalBefore:    card.Interval,
		IntervalAfter:     next.Interval,
		RepetitionsBefore: card.Repetitions,
		RepetitionsAfter:  next.Repetitions,
		ReviewedAt:        now,
	}

	card.CardState = next
	if err := s.store.Save(ctx, card, entry); err != nil {
		return domain.Card{}, fmt.Errorf("save card %s: %w", card.ID, err)
	}
	card.Version++
	return card, nil
}
