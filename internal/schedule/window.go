package schedule

import "time"

// SameMinute reports whether a and b share hour and minute in b's zone.
func SameMinute(a, b time.Time) bool {
	a = a.In(b.Location())

	return a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

// SameSecond reports whether a and b share hour, minute and second in b's zone.
func SameSecond(a, b time.Time) bool {
	a = a.In(b.Location())

	return SameMinute(a, b) && a.Second() == b.Second()
}

// InArrivalWindow reports whether now lies in the alert window opened by
// alarm: same calendar date and hour, and now's minute within
// [alarm minute, alarm minute + windowMinutes].
//
// The window never spills into the next hour: an alarm at minute 59 with a
// two-minute window is active only during minute 59.
func InArrivalWindow(alarm, now time.Time, windowMinutes uint32) bool {
	alarm = alarm.In(now.Location())

	ay, am, ad := alarm.Date()
	ny, nm, nd := now.Date()

	if ay != ny || am != nm || ad != nd || alarm.Hour() != now.Hour() {
		return false
	}

	return now.Minute() >= alarm.Minute() && now.Minute() <= alarm.Minute()+int(windowMinutes)
}
