package sm2

import (
	"fmt"

	"github.com/conorfennell/spacedrep/internal/domain"
)

// Quality is the 0-5 recall grade consumed by the scheduler.
type Quality int

const (
	MinQuality Quality = 0
	MaxQuality Quality = 5

	// PassingQuality is the lowest grade that counts as a successful review.
	PassingQuality Quality = 3
)

// Classify maps a user-facing response onto the quality scale.
//
//	Forgot -> 0
//	Hard   -> 3
//	Good   -> 4
//	Easy   -> 5
//
// Hard is still a pass: only Forgot resets a card.
func Classify(r domain.Response) (Quality, error) {
	switch r {
	case domain.Forgot:
		return 0, nil
	case domain.Hard:
		return 3, nil
	case domain.Good:
		return 4, nil
	case domain.Easy:
		return 5, nil
	}
	return 0, fmt.Errorf("%w: unrecognized response %v", domain.ErrInvalidInput, r)
}

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= PassingQuality
}

func (q Quality) valid() bool {
	return q >= MinQuality && q <= MaxQuality
}
