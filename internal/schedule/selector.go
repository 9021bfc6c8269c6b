package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Sentinel is returned by Earliest when there is nothing to wake for.
// It lies far before any real clock reading, so it never falls inside an
// arrival window.
func Sentinel() time.Time {
	return time.Time{}
}

// IsSentinel reports whether t is the Sentinel value.
func IsSentinel(t time.Time) bool {
	return t.IsZero()
}

// Earliest returns the earliest occurrence after now across all expressions.
// Expressions without a future occurrence are logged and skipped; when none
// is left the Sentinel is returned. A parse failure is returned as *InvalidExpressionError.
func Earliest(ctx context.Context, expressions []string, now time.Time, zone *time.Location) (time.Time, error) {
	earliest := Sentinel()

	for _, expression := range expressions {
		next, err := NextAfter(expression, now, zone)
		if errors.Is(err, ErrNoOccurrence) {
			logger.WarnKV(ctx, "Schedule never fires again, skipping", "expression", expression)

			continue
		}

		if err != nil {
			return time.Time{}, err
		}

		if next.Before(now) {
			continue
		}

		if IsSentinel(earliest) || next.Before(earliest) {
			earliest = next
		}
	}

	return earliest, nil
}
