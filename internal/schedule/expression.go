package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// fieldsWithoutYear is the number of fields handled by the cron parser.
	fieldsWithoutYear = 6
	// fieldsWithYear is fieldsWithoutYear plus the trailing year field.
	fieldsWithYear = 7

	// domStarBit mirrors robfig/cron's marker for an unrestricted field.
	// Setting it on the day-of-month field turns the OR of restricted day
	// fields into an AND.
	domStarBit = 1 << 63

	// searchHorizonYears is how far a single robfig/cron search is trusted to look.
	searchHorizonYears = 5
)

var (
	// ErrNoOccurrence is returned when an expression never matches again.
	ErrNoOccurrence = errors.New("expression has no future occurrence")

	errFieldCount = errors.New("expected 6 or 7 fields")

	//nolint:gochecknoglobals // The parser is stateless and safe for reuse.
	parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
)

// InvalidExpressionError reports a schedule expression that cannot be parsed.
// It is a configuration defect, not a transient failure.
type InvalidExpressionError struct {
	// Expression is the offending input.
	Expression string
	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid schedule expression %q: %v", e.Expression, e.Err)
}

// Unwrap returns the underlying parse failure.
func (e *InvalidExpressionError) Unwrap() error {
	return e.Err
}

// Expression is a parsed schedule expression.
type Expression struct {
	source string
	spec   *cron.SpecSchedule
	years  yearSet
}

// Parse parses a schedule expression.
func Parse(expression string) (*Expression, error) {
	fields := strings.Fields(expression)
	if len(fields) != fieldsWithoutYear && len(fields) != fieldsWithYear {
		return nil, &InvalidExpressionError{Expression: expression, Err: errFieldCount}
	}

	years := allYears()

	if len(fields) == fieldsWithYear {
		var err error

		years, err = parseYears(fields[fieldsWithoutYear])
		if err != nil {
			return nil, &InvalidExpressionError{Expression: expression, Err: err}
		}
	}

	parsed, err := parser.Parse(strings.Join(fields[:fieldsWithoutYear], " "))
	if err != nil {
		return nil, &InvalidExpressionError{Expression: expression, Err: err}
	}

	spec, ok := parsed.(*cron.SpecSchedule)
	if !ok {
		return nil, &InvalidExpressionError{
			Expression: expression,
			Err:        fmt.Errorf("unexpected schedule type %T", parsed),
		}
	}

	spec.Dom |= domStarBit

	return &Expression{
		source: expression,
		spec:   spec,
		years:  years,
	}, nil
}

// Validate reports whether expression can be parsed.
func Validate(expression string) error {
	_, err := Parse(expression)

	return err
}

// String returns the expression as it was given.
func (e *Expression) String() string {
	return e.source
}

// NextAfter returns the first instant strictly after t matching the
// expression, expressed in zone.
func (e *Expression) NextAfter(t time.Time, zone *time.Location) (time.Time, error) {
	spec := *e.spec
	spec.Location = zone

	ref := t.In(zone)

	for {
		year, ok := e.years.next(ref.Year())
		if !ok {
			return time.Time{}, ErrNoOccurrence
		}

		if year > ref.Year() {
			ref = time.Date(year, time.January, 1, 0, 0, 0, 0, zone).Add(-time.Second)
		}

		next := spec.Next(ref)
		if next.IsZero() {
			// The cron search gives up a few years past ref; resume from there.
			ref = time.Date(ref.Year()+searchHorizonYears, time.January, 1, 0, 0, 0, 0, zone).Add(-time.Second)

			continue
		}

		if e.years.contains(next.Year()) {
			return next, nil
		}

		ref = time.Date(next.Year()+1, time.January, 1, 0, 0, 0, 0, zone).Add(-time.Second)
	}
}

// Next returns the first occurrence of expression after the current time.
func Next(expression string, zone *time.Location) (time.Time, error) {
	return NextAfter(expression, time.Now(), zone)
}

// NextAfter returns the first occurrence of expression strictly after t.
func NextAfter(expression string, t time.Time, zone *time.Location) (time.Time, error) {
	parsed, err := Parse(expression)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.NextAfter(t, zone)
}

// Zone returns a fixed zone for an offset in seconds east of UTC.
func Zone(offsetSeconds int32) *time.Location {
	return time.FixedZone(formatOffset(offsetSeconds), int(offsetSeconds))
}

func formatOffset(offsetSeconds int32) string {
	sign := '+'
	if offsetSeconds < 0 {
		sign = '-'
		offsetSeconds = -offsetSeconds
	}

	return fmt.Sprintf("UTC%c%02d:%02d", sign, offsetSeconds/3600, offsetSeconds%3600/60)
}
