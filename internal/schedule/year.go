package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	minYear = 1970
	maxYear = 2199
)

var errYearRange = fmt.Errorf("year must be within %d-%d", minYear, maxYear)

// yearSet marks the years an expression may fire in.
type yearSet [maxYear - minYear + 1]bool

func allYears() yearSet {
	var set yearSet
	for i := range set {
		set[i] = true
	}

	return set
}

func (s *yearSet) contains(year int) bool {
	if year < minYear || year > maxYear {
		return false
	}

	return s[year-minYear]
}

// next returns the smallest allowed year not before year.
func (s *yearSet) next(year int) (int, bool) {
	for y := max(year, minYear); y <= maxYear; y++ {
		if s[y-minYear] {
			return y, true
		}
	}

	return 0, false
}

// parseYears parses the year field: "*", "2024", "2023-2100", "2024,2026",
// "*/2" and "2024-2030/2" forms.
func parseYears(field string) (yearSet, error) {
	var set yearSet

	for part := range strings.SplitSeq(field, ",") {
		if err := set.add(part); err != nil {
			return yearSet{}, fmt.Errorf("year field %q: %w", field, err)
		}
	}

	return set, nil
}

func (s *yearSet) add(part string) error {
	rangePart, stepPart, hasStep := strings.Cut(part, "/")

	step := 1

	if hasStep {
		var err error

		step, err = strconv.Atoi(stepPart)
		if err != nil || step <= 0 {
			return errors.New("step must be a positive number")
		}
	}

	var low, high int

	switch {
	case rangePart == "*":
		low, high = minYear, maxYear
	case strings.Contains(rangePart, "-"):
		lowPart, highPart, _ := strings.Cut(rangePart, "-")

		var err error
		if low, err = parseYear(lowPart); err != nil {
			return err
		}

		if high, err = parseYear(highPart); err != nil {
			return err
		}

		if high < low {
			return fmt.Errorf("range %q is reversed", rangePart)
		}
	default:
		year, err := parseYear(rangePart)
		if err != nil {
			return err
		}

		low, high = year, year
		if hasStep {
			high = maxYear
		}
	}

	for y := low; y <= high; y += step {
		s[y-minYear] = true
	}

	return nil
}

func parseYear(value string) (int, error) {
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse year %q: %w", value, err)
	}

	if year < minYear || year > maxYear {
		return 0, errYearRange
	}

	return year, nil
}
