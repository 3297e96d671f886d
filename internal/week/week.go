// Package week holds the calendar rules every boundary decision runs on.
// All arithmetic happens in one canonical time zone; per-user local time is
// never consulted.
package week

import (
	"time"

	_ "time/tzdata"
)

// Location is the canonical time zone for week boundaries.
var Location = mustLoadLocation("Europe/Paris")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("week: cannot load canonical time zone: " + err.Error())
	}
	return loc
}

// Of returns the ISO-8601 week number and ISO year of t in the canonical
// time zone.
func Of(t time.Time) (weekNumber, year int) {
	y, w := t.In(Location).ISOWeek()
	return w, y
}

// DaysRemaining returns how many days are left in t's ISO week, Sunday
// included. Sunday itself returns 0.
func DaysRemaining(t time.Time) int {
	wd := t.In(Location).Weekday()
	if wd == time.Sunday {
		return 0
	}
	return 7 - int(wd)
}

// ChallengeWeek returns the ordinal week of a challenge since its start
// date (1 for the first seven days), floored at 1.
func ChallengeWeek(start, now time.Time) int {
	days := int(now.Sub(start).Hours() / 24)
	n := days/7 + 1
	if n < 1 {
		return 1
	}
	return n
}

// IsWarmup reports whether the week identified by (evalWeek, evalYear) is a
// partial first week for a challenge: the challenge still carries that week
// as its stored creation week and it was not created on a Monday. Warm-up
// weeks are never evaluated.
func IsWarmup(storedWeek, storedYear int, start time.Time, evalWeek, evalYear int) bool {
	if storedWeek != evalWeek || storedYear != evalYear {
		return false
	}
	return start.In(Location).Weekday() != time.Monday
}

// IsBoundary reports whether a tick at t falls in the weekly evaluation
// window: all of Monday in the canonical time zone. The window spans the
// whole day rather than the midnight minute so a challenge whose
// evaluation faulted gets retried by later ticks; the stored-week guard
// keeps reruns from judging twice.
func IsBoundary(t time.Time) bool {
	return t.In(Location).Weekday() == time.Monday
}

// IsGoalChangeDay reports whether a goal change requested at t applies
// immediately. Changes requested on the boundary day take effect at once,
// anything else is deferred to the next boundary.
func IsGoalChangeDay(t time.Time) bool {
	return t.In(Location).Weekday() == time.Monday
}

// Evaluated returns the ISO week a boundary firing at t must judge: the
// week that ended the instant before, i.e. yesterday's week.
func Evaluated(t time.Time) (weekNumber, year int) {
	return Of(t.In(Location).AddDate(0, 0, -1))
}

// HoursUntilBoundary returns the whole hours from t to the next Monday
// 00:00 in the canonical time zone.
func HoursUntilBoundary(t time.Time) int {
	lt := t.In(Location)
	days := (int(time.Monday) - int(lt.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, Location)
	next := midnight.AddDate(0, 0, days)
	return int(next.Sub(lt).Hours())
}

// IsReminderDay reports whether t falls on a reminder day (Friday or
// Saturday in the canonical time zone).
func IsReminderDay(t time.Time) bool {
	wd := t.In(Location).Weekday()
	return wd == time.Friday || wd == time.Saturday
}
