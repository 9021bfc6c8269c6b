package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSameMinuteAndSecond verifies the once-per-minute and once-per-second gates.
func TestSameMinuteAndSecond(t *testing.T) {
	t.Parallel()

	a := at(2023, time.October, 16, 8, 45, 10)

	require.True(t, SameMinute(a, at(2023, time.October, 16, 8, 45, 59)))
	require.True(t, SameMinute(a, at(2023, time.October, 20, 8, 45, 0)))
	require.False(t, SameMinute(a, at(2023, time.October, 16, 8, 46, 10)))

	require.True(t, SameSecond(a, a.Add(900*time.Millisecond)))
	require.False(t, SameSecond(a, a.Add(time.Second)))

	// Instants are compared in the zone of the second argument.
	require.True(t, SameSecond(a.UTC(), a))
}

// TestInArrivalWindow checks the window bounds, including the exact upper boundary.
func TestInArrivalWindow(t *testing.T) {
	t.Parallel()

	alarm := at(2023, time.October, 16, 8, 45, 0)

	cases := []struct {
		name   string
		now    time.Time
		window uint32
		want   bool
	}{
		{"scheduled minute", at(2023, time.October, 16, 8, 45, 30), 1, true},
		{"upper boundary minute", at(2023, time.October, 16, 8, 46, 59), 1, true},
		{"after window", at(2023, time.October, 16, 8, 47, 0), 1, false},
		{"before alarm", at(2023, time.October, 16, 8, 44, 59), 1, false},
		{"zero window", at(2023, time.October, 16, 8, 45, 59), 0, true},
		{"zero window next minute", at(2023, time.October, 16, 8, 46, 0), 0, false},
		{"another day", at(2023, time.October, 17, 8, 45, 30), 1, false},
		{"another hour", at(2023, time.October, 16, 9, 45, 30), 1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, InArrivalWindow(alarm, tc.now, tc.window))
		})
	}
}

// TestInArrivalWindow_MinuteWrap documents that the window does not cross the hour.
func TestInArrivalWindow_MinuteWrap(t *testing.T) {
	t.Parallel()

	alarm := at(2023, time.October, 16, 8, 59, 0)

	require.True(t, InArrivalWindow(alarm, at(2023, time.October, 16, 8, 59, 30), 2))
	require.False(t, InArrivalWindow(alarm, at(2023, time.October, 16, 9, 0, 30), 2))
	require.False(t, InArrivalWindow(alarm, at(2023, time.October, 16, 9, 1, 0), 2))
}
