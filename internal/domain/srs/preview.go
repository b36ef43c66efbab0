package srs

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// Preview reports what answering with outcome at now would do to state.
// It returns the would-be state and the time from now until it is due.
// Because algorithms are pure, the caller's state is left untouched.
func Preview(
	alg Algorithm,
	state *domain.ReviewState,
	outcome domain.Outcome,
	now time.Time,
) (*domain.ReviewState, time.Duration, error) {
	next, err := alg.Apply(state, outcome, now)
	if err != nil {
		return nil, 0, err
	}
	return next, next.NextDueAt.Sub(now), nil
}

// FormatInterval renders a waiting time for display next to an answer
// button. Sub-day waits use minutes and hours; longer waits use the largest
// of days, weeks, months (30 days) and years (365 days) that fits.
func FormatInterval(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "< 1 min"
	case d < time.Hour:
		return plural(int(d/time.Minute), "min", "min")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour", "hours")
	}

	days := int(d / (24 * time.Hour))
	switch {
	case days < 7:
		return plural(days, "day", "days")
	case days < 30:
		return plural(days/7, "week", "weeks")
	case days < 365:
		return plural(days/30, "month", "months")
	default:
		return plural(days/365, "year", "years")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
