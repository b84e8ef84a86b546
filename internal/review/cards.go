package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/knol"
)

func newCardID() string {
	return uuid.NewString()
}

// CreateCard authors a new card with the default scheduling state. The
// card is due immediately. Authoring content the user already owns returns
// domain.ErrConflict.
func (s *Service) CreateCard(ctx context.Context, input CreateCardInput) (domain.Card, error) {
	if err := s.validate.Struct(input); err != nil {
		return domain.Card{}, validationError(err)
	}

	now := s.now()
	card := domain.Card{
		ID:        s.newID(),
		UserID:    input.UserID,
		Front:     input.Front,
		Back:      input.Back,
		Context:   input.Context,
		CreatedAt: now,
		Version:   1,
		CardState: domain.NewCardState(now),
	}
	card.Hash = knol.Hash(card)

	if err := s.store.InsertCard(ctx, card); err != nil {
		return domain.Card{}, fmt.Errorf("create card: %w", err)
	}
	s.logger.Info("card created", zap.String("user_id", card.UserID), zap.String("card_id", card.ID))
	return card, nil
}

// GetCard returns one of the user's cards. Cards owned by someone else are
// reported as not found.
func (s *Service) GetCard(ctx context.Context, userID, cardID string) (domain.Card, error) {
	card, err := s.store.Load(ctx, cardID)
	if err != nil {
		return domain.Card{}, fmt.Errorf("get card: %w", err)
	}
	if card.UserID != userID {
		return domain.Card{}, fmt.Errorf("get card %s: %w", cardID, domain.ErrNotFound)
	}
	return card, nil
}

// DeleteCard removes one of the user's cards and its history.
func (s *Service) DeleteCard(ctx context.Context, userID, cardID string) error {
	if _, err := s.GetCard(ctx, userID, cardID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.logger.Info("card deleted", zap.String("user_id", userID), zap.String("card_id", cardID))
	return nil
}

// History returns the review log of one of the user's cards, oldest first.
func (s *Service) History(ctx context.Context, userID, cardID string) ([]domain.ReviewLog, error) {
	if _, err := s.GetCard(ctx, userID, cardID); err != nil {
		return nil, err
	}
	logs, err := s.store.ReviewLogs(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("card history: %w", err)
	}
	return logs, nil
}
