// Package recurrence decides whether a schedule is due at a given
// instant. Matching is minute-exact in the schedule's timezone, so the
// dispatch loop must tick at least once per minute.
package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// DayKey discriminates which time list applies for an evaluation.
type DayKey string

const (
	DayDaily      DayKey = "daily"
	DayCustomDate DayKey = "custom_date"
	DaySingleDate DayKey = "single_date"
)

// DefaultTimezone is the business zone used when a schedule carries no
// usable zone of its own.
const DefaultTimezone = "Asia/Kolkata"

var weekdayKeys = map[time.Weekday]DayKey{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

var knownDayKeys = func() map[DayKey]bool {
	m := map[DayKey]bool{
		DayDaily:      true,
		DayCustomDate: true,
		DaySingleDate: true,
	}
	for _, k := range weekdayKeys {
		m[k] = true
	}
	return m
}()

// Slot is one (day-key, time-of-day) combination that fired.
type Slot struct {
	Day  DayKey
	Time string // normalized "HH:MM"
}

// Config is the raw recurrence payload as stored. Days and Times come
// from user-edited JSON, so every field is parsed defensively: anything
// malformed degrades to "no match" rather than an error.
type Config struct {
	Days           []string
	Times          map[string]interface{}
	CustomDateFrom *time.Time
	CustomDateTo   *time.Time
	SingleDate     *time.Time
	Timezone       string
}

// Rule is the parsed, immutable form of a schedule's recurrence. Zero
// I/O, safe for concurrent use.
type Rule struct {
	days       map[DayKey]bool
	times      map[DayKey][]string
	customFrom *time.Time
	customTo   *time.Time
	singleDate *time.Time
	loc        *time.Location
}

// New parses a recurrence payload. It never fails: unknown day keys,
// unparseable time strings and invalid timezones are dropped or
// defaulted so that illegal input yields a rule that matches nothing.
func New(cfg Config) *Rule {
	r := &Rule{
		days:       make(map[DayKey]bool),
		times:      make(map[DayKey][]string),
		customFrom: cfg.CustomDateFrom,
		customTo:   cfg.CustomDateTo,
		singleDate: cfg.SingleDate,
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if cfg.Timezone == "" || err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	r.loc = loc

	for _, d := range cfg.Days {
		key := DayKey(strings.ToLower(strings.TrimSpace(d)))
		if knownDayKeys[key] {
			r.days[key] = true
		}
	}

	for rawKey, rawValue := range cfg.Times {
		key := DayKey(strings.ToLower(strings.TrimSpace(rawKey)))
		if !knownDayKeys[key] {
			continue
		}
		for _, entry := range stringList(rawValue) {
			if normalized, ok := parseClock(entry); ok {
				r.times[key] = append(r.times[key], normalized)
			}
		}
	}

	return r
}

// stringList coerces a decoded JSON value into a list of strings.
func stringList(v interface{}) []string {
	switch value := v.(type) {
	case []string:
		return value
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{value}
	default:
		return nil
	}
}

// parseClock normalizes a time-of-day string to "HH:MM".
func parseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()), true
		}
	}
	return "", false
}

// governing selects the single branch that rules this evaluation:
// single_date, then custom_date, then daily, then today's weekday.
// The second return reports whether the branch's date-level condition
// holds at now.
func (r *Rule) governing(now time.Time) (DayKey, bool) {
	local := now.In(r.loc)

	switch {
	case r.days[DaySingleDate]:
		return DaySingleDate, r.singleDate != nil && sameDate(*r.singleDate, local)
	case r.days[DayCustomDate]:
		if r.customFrom == nil || r.customTo == nil {
			return DayCustomDate, false
		}
		return DayCustomDate, !dateBefore(local, *r.customFrom) && !dateAfter(local, *r.customTo)
	case r.days[DayDaily]:
		return DayDaily, true
	default:
		key := weekdayKeys[local.Weekday()]
		if r.days[key] {
			return key, true
		}
		return "", false
	}
}

// IsDue reports whether the rule fires at now: the governing branch's
// date condition holds and its time list contains now's HH:MM exactly.
func (r *Rule) IsDue(now time.Time) bool {
	return len(r.MatchingSlots(now)) > 0
}

// MatchingSlots enumerates every (day-key, time) combination that fires
// at now. Multiple equal entries under one key are independent
// triggers and produce one slot each.
func (r *Rule) MatchingSlots(now time.Time) []Slot {
	key, dateOK := r.governing(now)
	if key == "" || !dateOK {
		return nil
	}

	clock := now.In(r.loc).Format("15:04")
	var slots []Slot
	for _, t := range r.times[key] {
		if t == clock {
			slots = append(slots, Slot{Day: key, Time: t})
		}
	}
	return slots
}

// SlotMatches reports whether the given day-key both governs the
// evaluation at now and has a time entry equal to now's HH:MM.
func (r *Rule) SlotMatches(day DayKey, now time.Time) bool {
	for _, slot := range r.MatchingSlots(now) {
		if slot.Day == day {
			return true
		}
	}
	return false
}

// Location returns the zone all matching is evaluated in.
func (r *Rule) Location() *time.Location {
	return r.loc
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

func dateAfter(a, b time.Time) bool {
	return dateBefore(b, a)
}
