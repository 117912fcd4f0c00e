// Package bizdate converts instants into business-calendar dates for the
// configured operating timezone. Accounting boundaries (ticket dates, sales
// day reuse, deduction dates) are always compared as dates from this package.
package bizdate

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const DefaultTimezone = "America/Chicago"

const DateLayout = "2006-01-02"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type Resolver struct {
	loc *time.Location
	now func() time.Time
}

func New(tz string) (*Resolver, error) {
	if strings.TrimSpace(tz) == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", tz, err)
	}
	return &Resolver{loc: loc, now: time.Now}, nil
}

// WithNow overrides the clock, mostly for tests.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *Resolver) Location() *time.Location { return r.loc }

func (r *Resolver) Now() time.Time { return r.now() }

// DateOf returns the business date of t as midnight UTC.
func (r *Resolver) DateOf(t time.Time) time.Time {
	local := t.In(r.loc)
	return Date(local.Year(), local.Month(), local.Day())
}

func (r *Resolver) Today() time.Time {
	return r.DateOf(r.now())
}

// ParseTimestamp accepts RFC3339 and zone-less layouts. A zone-less value is
// read as UTC.
func (r *Resolver) ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of a date value without changing its
// calendar day.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
