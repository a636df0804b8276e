package clock

import (
	"fmt"
	"time"
)

// DayFormat is the storage format of civil dates (submit_day, day keys).
const DayFormat = "2006-01-02"

// Clock resolves civil days and lifecycle boundaries in the bot's fixed
// time zone, independent of the host's local zone. It carries no mutable
// state, so "current day" is always computed on demand.
type Clock struct {
	loc        *time.Location
	bonusStart int // minutes since midnight, inclusive
	bonusEnd   int // minutes since midnight, exclusive
}

func New(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", zone, err)
	}
	return &Clock{loc: loc, bonusStart: -1, bonusEnd: -1}, nil
}

// SetBonusWindow configures the happy-hour window from "15:04" wall-clock
// strings. The window may wrap midnight (start > end).
func (c *Clock) SetBonusWindow(start, end string) error {
	s, err := parseWallClock(start)
	if err != nil {
		return fmt.Errorf("invalid bonus window start: %w", err)
	}
	e, err := parseWallClock(end)
	if err != nil {
		return fmt.Errorf("invalid bonus window end: %w", err)
	}
	c.bonusStart = s
	c.bonusEnd = e
	return nil
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// CivilDay returns the calendar date of t in the fixed zone.
func (c *Clock) CivilDay(t time.Time) string {
	return t.In(c.loc).Format(DayFormat)
}

func (c *Clock) Today() string {
	return c.CivilDay(time.Now())
}

func (c *Clock) Yesterday() string {
	return c.Now().AddDate(0, 0, -1).Format(DayFormat)
}

// DayStart returns midnight of the given civil day in the fixed zone.
func (c *Clock) DayStart(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, day, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return t, nil
}

// ExpiryFor returns the lifetime bound of a photo submitted on day: the
// start of day+2 minus one microsecond. A photo lives through its
// submission day plus one full following day.
func (c *Clock) ExpiryFor(day string) (time.Time, error) {
	start, err := c.DayStart(day)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, 2).Add(-time.Microsecond), nil
}

// InBonusWindow reports whether t falls inside the configured happy-hour
// window. Always false when no window is configured.
func (c *Clock) InBonusWindow(t time.Time) bool {
	if c.bonusStart < 0 || c.bonusEnd < 0 {
		return false
	}
	local := t.In(c.loc)
	m := local.Hour()*60 + local.Minute()
	if c.bonusStart <= c.bonusEnd {
		return m >= c.bonusStart && m < c.bonusEnd
	}
	// window wraps midnight
	return m >= c.bonusStart || m < c.bonusEnd
}

// ParseLegacyTime recovers a timestamp from historical free-text storage.
// Unparseable input falls back to the supplied instant, never to an error.
func (c *Clock) ParseLegacyTime(raw string, fallback time.Time) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		DayFormat,
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, c.loc); err == nil {
			return t
		}
	}
	return fallback
}

func parseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
