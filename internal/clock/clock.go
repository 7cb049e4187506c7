package clock

import (
	"fmt"
	"time"

	"mareeba/internal/models"
)

// Clock supplies club-local time. Services take a Clock instead of
// calling time.Now so tests can pin "today".
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

// New returns a Clock fixed to the given IANA timezone. An empty name
// falls back to the club default.
func New(tz string) (Clock, error) {
	if tz == "" {
		tz = models.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return &realClock{loc: loc}, nil
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Location() *time.Location {
	return c.loc
}

// Fixed returns a Clock frozen at t. Test helper.
func Fixed(t time.Time) Clock {
	return &fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time           { return c.t }
func (c *fixedClock) Location() *time.Location { return c.t.Location() }
