package orchestrator

import (
	"time"

	"github.com/oshokin/alarm-clock/internal/domain/clock"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

// Session is the mutable state shared by the coordinators during a tick.
// Only the orchestrator holds it between ticks.
type Session struct {
	// Configuration is the active configuration; it is only ever replaced whole.
	Configuration *clock.Configuration
	// NextAlarm is when the alert should fire next.
	NextAlarm time.Time
	// AlarmIsFresh is false when NextAlarm must be recomputed before use.
	AlarmIsFresh bool
}

// Zone returns the fixed zone of the active configuration.
func (s *Session) Zone() *time.Location {
	return schedule.Zone(s.Configuration.TimeZoneOffsetSeconds)
}

// ReplaceConfiguration installs a new configuration and invalidates NextAlarm.
func (s *Session) ReplaceConfiguration(configuration *clock.Configuration) {
	s.Configuration = configuration
	s.AlarmIsFresh = false
}
