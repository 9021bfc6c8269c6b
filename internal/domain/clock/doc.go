// Package clock contains the core domain types of the alarm clock.
//
// Configuration is the set of operating parameters delivered by the remote
// server (or compiled in as a fallback). It is always replaced as a whole,
// so Clone is used wherever a value crosses a component boundary.
package clock
