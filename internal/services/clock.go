package services

import (
	"time"

	"budgeter/internal/core"
)

// Clock tells the backfill flow what day it is in the user's timezone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock uses the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock always reports day d. Useful for tools and tests.
func FixedClock(d core.Date) Clock {
	return Clock{Now: func() time.Time { return d.Time.Add(12 * time.Hour) }, Location: time.UTC}
}

// Today returns the current calendar day.
func (c Clock) Today() core.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(now().In(loc))
}
