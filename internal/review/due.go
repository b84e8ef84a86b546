package review

import (
	"context"
	"fmt"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/sm2"
)

// DueCards returns the user's review queue at the current time, at most
// limit cards (0 means all).
func (s *Service) DueCards(ctx context.Context, userID string, limit int) ([]domain.Card, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", domain.ErrInvalidInput, limit)
	}

	cards, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	due := []domain.Card{}
	for card := range sm2.DueCards(cards, s.now(), sm2.WithNewCardPolicy(s.newCardPolicy)) {
		if limit > 0 && len(due) == limit {
			break
		}
		due = append(due, card)
	}
	return due, nil
}
