package clock

// Schedule is a single wake event described by a cron-like expression.
type Schedule struct {
	// Expression selects recurring instants: sec min hour dom month dow [year].
	Expression string `yaml:"expression"`
	// Description is a free-form label shown in logs.
	Description string `yaml:"description"`
}

// Configuration holds the device operating parameters.
type Configuration struct {
	// LivenessEndpoint is the address liveness pings are sent to.
	LivenessEndpoint string `yaml:"liveness_endpoint"`
	// LivenessIntervalSeconds is added to the boot second to pick the ping second.
	LivenessIntervalSeconds uint32 `yaml:"liveness_interval_seconds"`
	// Schedules are evaluated as a set; order carries no meaning.
	Schedules []Schedule `yaml:"schedules"`
	// TimeZoneOffsetSeconds is the user's fixed offset east of UTC.
	TimeZoneOffsetSeconds int32 `yaml:"time_zone_offset_seconds"`
	// AlarmWindowMinutes is how long after the scheduled minute the alert stays active.
	AlarmWindowMinutes uint32 `yaml:"alarm_window_minutes"`
}

// Expressions returns the schedule expressions in their configured order.
func (c *Configuration) Expressions() []string {
	expressions := make([]string, 0, len(c.Schedules))
	for _, s := range c.Schedules {
		expressions = append(expressions, s.Expression)
	}

	return expressions
}

// Clone returns a deep copy of the configuration.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}

	cloned := *c
	if c.Schedules != nil {
		cloned.Schedules = make([]Schedule, len(c.Schedules))
		copy(cloned.Schedules, c.Schedules)
	}

	return &cloned
}
