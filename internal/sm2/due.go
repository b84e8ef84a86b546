package sm2

import (
	"iter"
	"slices"
	"time"

	"github.com/conorfennell/spacedrep/internal/domain"
)

// NewCardPolicy decides where never-reviewed cards go in a review session.
type NewCardPolicy int

const (
	// NewFirst puts new cards ahead of every reviewed card.
	NewFirst NewCardPolicy = iota
	// NewLast puts new cards after every reviewed card that is due.
	NewLast
)

type dueOptions struct {
	newCards NewCardPolicy
}

// DueOption configures DueCards.
type DueOption func(*dueOptions)

// WithNewCardPolicy overrides the default NewFirst ordering.
func WithNewCardPolicy(p NewCardPolicy) DueOption {
	return func(o *dueOptions) {
		o.newCards = p
	}
}

// DueCards returns the cards in cards that should be reviewed at now.
//
// Never-reviewed cards are always due. Reviewed cards are due once their
// NextReviewDate is not after now and come out most overdue first. Cards
// that tie keep their order from cards. The sequence is computed each time
// it is ranged over, and cards itself is never reordered.
func DueCards(cards []domain.Card, now time.Time, opts ...DueOption) iter.Seq[domain.Card] {
	o := dueOptions{newCards: NewFirst}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(domain.Card) bool) {
		var fresh, due []int
		for i := range cards {
			switch {
			case cards[i].IsNew():
				fresh = append(fresh, i)
			case IsDue(cards[i].CardState, now):
				due = append(due, i)
			}
		}
		slices.SortStableFunc(due, func(a, b int) int {
			return cards[a].NextReviewDate.Compare(cards[b].NextReviewDate)
		})

		groups := [2][]int{fresh, due}
		if o.newCards == NewLast {
			groups = [2][]int{due, fresh}
		}
		for _, group := range groups {
			for _, i := range group {
				if !yield(cards[i]) {
					return
				}
			}
		}
	}
}

// IsDue reports whether a single card is due at now.
func IsDue(state domain.CardState, now time.Time) bool {
	return state.IsNew() || !state.NextReviewDate.After(now)
}
