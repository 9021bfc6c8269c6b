// Package orchestrator runs the alarm clock.
//
// A single loop ticks at a fixed period. Each tick reads the time once and
// either fires the alert, when the next alarm's arrival window is open, or
// lets the coordinators decide whether their own window has come: time
// sync once a day, configuration refresh on the check schedule, liveness
// once a minute. Each coordinator owns a latch so its action runs at most
// once per window however many ticks fall into it.
//
// Nothing here runs concurrently. The only blocking calls are the bounded
// network waits performed by the coordinators themselves.
package orchestrator
