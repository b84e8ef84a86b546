package sm2

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conorfennell/spacedrep/internal/domain"
)

func schedulerProperties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	return gopter.NewProperties(parameters)
}

func genEase() gopter.Gen      { return gen.Float64Range(domain.MinEaseFactor, 5.0) }
func genInterval() gopter.Gen  { return gen.IntRange(0, 3650) }
func genReps() gopter.Gen      { return gen.IntRange(0, 30) }
func genQuality() gopter.Gen   { return gen.IntRange(int(MinQuality), int(MaxQuality)) }
func genPassing() gopter.Gen   { return gen.IntRange(int(PassingQuality), int(MaxQuality)) }
func genFailing() gopter.Gen   { return gen.IntRange(int(MinQuality), int(PassingQuality)-1) }
func genResponses() gopter.Gen { return gen.SliceOf(gen.IntRange(int(domain.Forgot), int(domain.Easy))) }

func TestSchedulerProperties(t *testing.T) {
	s := newTestScheduler(t)
	properties := schedulerProperties(t)

	properties.Property("ease factor never drops below the floor", prop.ForAll(
		func(ef float64, interval, reps, q int) bool {
			got, err := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps}, Quality(q), testNow)
			return err == nil && got.EaseFactor >= domain.MinEaseFactor
		},
		genEase(), genInterval(), genReps(), genQuality(),
	))

	properties.Property("failure resets repetitions and interval", prop.ForAll(
		func(ef float64, interval, reps, q int) bool {
			got, err := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps}, Quality(q), testNow)
			return err == nil && got.Repetitions == 0 && got.Interval == 1
		},
		genEase(), genInterval(), genReps(), genFailing(),
	))

	properties.Property("success increments repetitions by one", prop.ForAll(
		func(ef float64, interval, reps, q int) bool {
			got, err := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps}, Quality(q), testNow)
			return err == nil && got.Repetitions == reps+1
		},
		genEase(), genInterval(), genReps(), genPassing(),
	))

	properties.Property("first two successes give fixed intervals", prop.ForAll(
		func(ef float64, interval, q int) bool {
			first, err1 := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: 0}, Quality(q), testNow)
			second, err2 := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: 1}, Quality(q), testNow)
			return err1 == nil && err2 == nil && first.Interval == 1 && second.Interval == 6
		},
		genEase(), genInterval(), genPassing(),
	))

	properties.Property("intervals grow multiplicatively from the third success", prop.ForAll(
		func(ef float64, interval, reps, q int) bool {
			got, err := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps}, Quality(q), testNow)
			if err != nil {
				return false
			}
			return got.Interval == int(math.Round(float64(interval)*ef)) && got.Interval >= interval
		},
		genEase(), gen.IntRange(1, 3650), gen.IntRange(2, 30), genPassing(),
	))

	properties.Property("a perfect answer never lowers the ease factor", prop.ForAll(
		func(ef float64, interval, reps int) bool {
			got, err := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps}, MaxQuality, testNow)
			return err == nil && got.EaseFactor >= ef
		},
		genEase(), genInterval(), genReps(),
	))

	properties.Property("schedule is deterministic", prop.ForAll(
		func(ef float64, interval, reps, q int) bool {
			in := domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps, NextReviewDate: testNow}
			a, errA := s.Schedule(in, Quality(q), testNow)
			b, errB := s.Schedule(in, Quality(q), testNow)
			return errA == nil && errB == nil && cmp.Equal(a, b)
		},
		genEase(), genInterval(), genReps(), genQuality(),
	))

	properties.Property("next review is derived from the interval", prop.ForAll(
		func(ef float64, interval, reps, q int) bool {
			got, err := s.Schedule(domain.CardState{EaseFactor: ef, Interval: interval, Repetitions: reps}, Quality(q), testNow)
			if err != nil || got.LastReviewDate == nil {
				return false
			}
			return got.Interval >= 1 &&
				got.LastReviewDate.Equal(testNow) &&
				got.NextReviewDate.Equal(got.LastReviewDate.AddDate(0, 0, got.Interval))
		},
		genEase(), genInterval(), genReps(), genQuality(),
	))

	properties.Property("any response history keeps the state valid", prop.ForAll(
		func(responses []int) bool {
			state := domain.NewCardState(testNow)
			now := testNow
			for _, r := range responses {
				next, err := s.Review(state, domain.Response(r), now)
				if err != nil || Validate(next) != nil || next.Interval < 1 {
					return false
				}
				state, now = next, next.NextReviewDate
			}
			return true
		},
		genResponses(),
	))

	properties.TestingRun(t)
}
