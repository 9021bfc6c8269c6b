// Package schedule evaluates cron-like wake expressions.
//
// An expression has six or seven whitespace-separated fields:
//
//	second minute hour day-of-month month day-of-week [year]
//
// The first six fields follow robfig/cron syntax (names, lists, ranges and
// steps). The optional year field accepts the same list/range/step forms
// over the years 1970-2199. Day-of-month and day-of-week must both match.
//
// Besides next-occurrence evaluation the package provides the earliest
// occurrence of a set of expressions and the window predicates the
// orchestrator uses to gate its periodic actions. Everything here is pure.
package schedule
