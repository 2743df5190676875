// Package schedule holds the pure time calculations behind reminder scheduling.
// All functions are free of I/O; "now" is always passed in.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTimezone = fmt.Errorf("invalid timezone")
var ErrInvalidTimeOfDay = fmt.Errorf("invalid time of day")

// TimeOfDay is a local wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM" and the "HH:MM:SS" form returned by Postgres TIME columns.
// Seconds, when present, must be zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 2 || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On returns the instant at this time of day on the calendar day of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

// LoadLocation resolves an IANA timezone name. The empty name means UTC.
// Unknown names are an error, never a silent UTC fallback.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

// Window is an optional daily active-hours window. Either bound may be absent.
type Window struct {
	Start *TimeOfDay
	End   *TimeOfDay
}

// ParseWindow parses optional start and end strings; an empty string means no bound.
func ParseWindow(start, end string) (Window, error) {
	var w Window
	if strings.TrimSpace(start) != "" {
		t, err := ParseTimeOfDay(start)
		if err != nil {
			return Window{}, err
		}
		w.Start = &t
	}
	if strings.TrimSpace(end) != "" {
		t, err := ParseTimeOfDay(end)
		if err != nil {
			return Window{}, err
		}
		w.End = &t
	}
	return w, nil
}

func (w Window) bounded() bool { return w.Start != nil && w.End != nil }

// Contains reports inclusive membership of the local time of day in [start, end].
// A window missing either bound contains everything.
func (w Window) Contains(local time.Time) bool {
	if !w.bounded() {
		return true
	}
	m := local.Hour()*60 + local.Minute()
	return m >= w.Start.Minutes() && m <= w.End.Minutes()
}

// Recurrence describes the schedule settings of a recurring reminder.
type Recurrence struct {
	IntervalMinutes int
	Timezone        string
	ActiveStart     string
	ActiveEnd       string
	SkipWeekends    bool
}

// NextRecurring computes the next due instant (UTC) for a recurring reminder.
//
// The candidate now+interval is taken in the user's timezone. A weekend candidate moves
// to Monday, pinned to the window start when one is set. With a full window, a candidate
// before the start moves to that day's start and one after the end moves to the next
// day's start, skipping the weekend again if needed. The computation is single pass.
func NextRecurring(now time.Time, rec Recurrence) (time.Time, error) {
	if rec.IntervalMinutes <= 0 {
		return time.Time{}, fmt.Errorf("interval must be positive, got %d", rec.IntervalMinutes)
	}
	loc, err := LoadLocation(rec.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	w, err := ParseWindow(rec.ActiveStart, rec.ActiveEnd)
	if err != nil {
		return time.Time{}, err
	}

	candidate := now.Add(time.Duration(rec.IntervalMinutes) * time.Minute).In(loc)

	if rec.SkipWeekends && isWeekendDay(candidate) {
		candidate = nextWeekday(candidate)
		if w.Start != nil {
			candidate = w.Start.On(candidate)
		}
	}

	if w.bounded() {
		m := candidate.Hour()*60 + candidate.Minute()
		switch {
		case m < w.Start.Minutes():
			candidate = w.Start.On(candidate)
		case m > w.End.Minutes():
			next := w.Start.On(addDays(candidate, 1))
			if rec.SkipWeekends && isWeekendDay(next) {
				next = w.Start.On(nextWeekday(next))
			}
			candidate = next
		}
	}

	return candidate.UTC(), nil
}

// WithinActiveHours reports whether instant falls inside the window in the given timezone.
// It is true when either bound is empty.
func WithinActiveHours(instant time.Time, timezone, start, end string) (bool, error) {
	w, err := ParseWindow(start, end)
	if err != nil {
		return false, err
	}
	if !w.bounded() {
		return true, nil
	}
	loc, err := LoadLocation(timezone)
	if err != nil {
		return false, err
	}
	return w.Contains(instant.In(loc)), nil
}

// IsWeekend reports whether instant is a Saturday or Sunday in the given timezone.
func IsWeekend(instant time.Time, timezone string) (bool, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return false, err
	}
	return isWeekendDay(instant.In(loc)), nil
}

// HoursSince returns the whole hours elapsed since last. ok is false when there was no
// previous send or less than an hour has passed.
func HoursSince(now time.Time, last *time.Time) (hours int, ok bool) {
	if last == nil {
		return 0, false
	}
	h := int(now.Sub(*last) / time.Hour)
	if h <= 0 {
		return 0, false
	}
	return h, true
}

func isWeekendDay(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// nextWeekday moves a weekend day to the following Monday, keeping the time of day.
func nextWeekday(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return addDays(t, 2)
	case time.Sunday:
		return addDays(t, 1)
	}
	return t
}

// addDays shifts the calendar date, keeping the wall clock time across DST changes.
func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
