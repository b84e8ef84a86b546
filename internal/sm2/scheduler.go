package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/spacedrep/internal/domain"
)

// CeilingIntervalDays is the longest interval the scheduler ever produces,
// about 1000 years. It keeps next review dates within four-digit years,
// which storage can round-trip, and keeps interval arithmetic far from int
// overflow. It applies even when MaxIntervalDays is zero.
const CeilingIntervalDays = 365_000

// Params holds the tunable parts of the scheduler.
type Params struct {
	// MaxIntervalDays caps interval growth. Zero means uncapped.
	MaxIntervalDays int
}

// DefaultParams returns the uncapped classic SM-2 configuration.
func DefaultParams() Params {
	return Params{}
}

// Scheduler computes the next state of a card after a review.
// It is stateless apart from its parameters and safe for concurrent use.
type Scheduler struct {
	params Params
}

// NewScheduler returns a Scheduler using p.
func NewScheduler(p Params) (*Scheduler, error) {
	if p.MaxIntervalDays < 0 {
		return nil, fmt.Errorf("sm2: max interval %d must not be negative", p.MaxIntervalDays)
	}
	return &Scheduler{params: p}, nil
}

// Review classifies r and schedules the card in one step.
func (s *Scheduler) Review(state domain.CardState, r domain.Response, now time.Time) (domain.CardState, error) {
	q, err := Classify(r)
	if err != nil {
		return domain.CardState{}, err
	}
	return s.Schedule(state, q, now)
}

// Schedule applies one review of quality q at time now and returns the new
// state. The input state is not modified.
//
// A failed review (q < 3) resets repetitions and schedules the card for the
// next day. A passing review schedules it 1 day out, then 6, then
// round(interval * easeFactor) using the ease factor from before the review.
// The ease factor is adjusted on every review and never drops below 1.3.
func (s *Scheduler) Schedule(state domain.CardState, q Quality, now time.Time) (domain.CardState, error) {
	if !q.valid() {
		return domain.CardState{}, fmt.Errorf("%w: quality %d outside [%d,%d]", domain.ErrInvalidState, q, MinQuality, MaxQuality)
	}
	if err := Validate(state); err != nil {
		return domain.CardState{}, err
	}

	var interval, reps int
	if q.Passed() {
		switch state.Repetitions {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = growInterval(state.Interval, state.EaseFactor)
		}
		reps = state.Repetitions + 1
	} else {
		interval = 1
		reps = 0
	}

	// A card with repetitions >= 2 but a zero interval would otherwise stay
	// due on the same day.
	if interval < 1 {
		interval = 1
	}
	if limit := s.params.MaxIntervalDays; limit > 0 && interval > limit {
		interval = limit
	}
	interval = min(interval, CeilingIntervalDays)

	reviewed := now
	return domain.CardState{
		EaseFactor:     nextEaseFactor(state.EaseFactor, q),
		Interval:       interval,
		Repetitions:    reps,
		NextReviewDate: NextReviewDate(now, interval),
		LastReviewDate: &reviewed,
	}, nil
}

// growInterval is round(interval * ef), saturated at CeilingIntervalDays
// before the conversion back to int.
func growInterval(interval int, ef float64) int {
	grown := math.Round(float64(interval) * ef)
	if grown >= CeilingIntervalDays {
		return CeilingIntervalDays
	}
	return int(grown)
}

// nextEaseFactor is the SM-2 ease update, clamped at the floor.
func nextEaseFactor(ef float64, q Quality) float64 {
	d := float64(MaxQuality - q)
	ef += 0.1 - d*(0.08+d*0.02)
	return math.Max(ef, domain.MinEaseFactor)
}

// Validate checks state against the scheduling invariants. It does not
// repair anything.
func Validate(state domain.CardState) error {
	switch {
	case state.Interval < 0:
		return fmt.Errorf("%w: negative interval %d", domain.ErrInvalidState, state.Interval)
	case state.Repetitions < 0:
		return fmt.Errorf("%w: negative repetitions %d", domain.ErrInvalidState, state.Repetitions)
	case math.IsNaN(state.EaseFactor) || math.IsInf(state.EaseFactor, 0):
		return fmt.Errorf("%w: ease factor %v", domain.ErrInvalidState, state.EaseFactor)
	case state.EaseFactor < domain.MinEaseFactor:
		return fmt.Errorf("%w: ease factor %.4f below %.1f", domain.ErrInvalidState, state.EaseFactor, domain.MinEaseFactor)
	}
	return nil
}

// NextReviewDate is the calendar date days after reviewed.
func NextReviewDate(reviewed time.Time, days int) time.Time {
	return reviewed.AddDate(0, 0, days)
}
