package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"mareeba/internal/models"
)

var timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Catalog is the in-memory weekly session catalog. It is loaded once at
// startup and read-only afterwards, so no locking.
type Catalog struct {
	sessions []models.Session
	byID     map[string]models.Session
}

// NewCatalog validates the configured sessions and builds lookup maps.
func NewCatalog(sessions []models.Session) (*Catalog, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session catalog is empty")
	}
	c := &Catalog{byID: make(map[string]models.Session, len(sessions))}
	for _, s := range sessions {
		if s.ID == "" {
			return nil, fmt.Errorf("session without id")
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate session id %q", s.ID)
		}
		if _, err := parseWeekday(s.DayOfWeek); err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		if !timeRe.MatchString(s.StartTime) || !timeRe.MatchString(s.EndTime) {
			return nil, fmt.Errorf("session %s: times must be HH:MM", s.ID)
		}
		if s.EndTime <= s.StartTime {
			return nil, fmt.Errorf("session %s: end %s not after start %s", s.ID, s.EndTime, s.StartTime)
		}
		if s.MaxPlayers <= 0 {
			return nil, fmt.Errorf("session %s: max_players must be positive", s.ID)
		}
		if s.Fee < 0 {
			return nil, fmt.Errorf("session %s: negative fee", s.ID)
		}
		c.byID[s.ID] = s
		c.sessions = append(c.sessions, s)
	}
	return c, nil
}

// Sessions returns the full catalog sorted by weekday then start time.
func (c *Catalog) Sessions() []models.Session {
	out := make([]models.Session, len(c.sessions))
	copy(out, c.sessions)
	sort.Slice(out, func(i, j int) bool {
		wi, _ := parseWeekday(out[i].DayOfWeek)
		wj, _ := parseWeekday(out[j].DayOfWeek)
		if wi != wj {
			return wi < wj
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// ByID looks up a session by its catalog id.
func (c *Catalog) ByID(id string) (models.Session, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// ForDate returns the sessions that run on the given date, sorted by
// start time. Empty on days with no scheduled sessions.
func (c *Catalog) ForDate(date time.Time) []models.Session {
	var out []models.Session
	for _, s := range c.sessions {
		wd, _ := parseWeekday(s.DayOfWeek)
		if wd == date.Weekday() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// Match resolves a session from a date and a time string in either
// accepted form: the canonical "19:30-21:30" range or the bare "19:30"
// start carried by older records.
func (c *Catalog) Match(date time.Time, sessionTime string) (models.Session, bool) {
	start, full, ok := NormalizeTime(sessionTime)
	if !ok {
		return models.Session{}, false
	}
	for _, s := range c.ForDate(date) {
		if full != "" && s.TimeRange() == full {
			return s, true
		}
		if full == "" && s.StartTime == start {
			return s, true
		}
	}
	return models.Session{}, false
}

// NormalizeTime splits a session time into its start and, when present,
// its full range. Returns ok=false for anything else.
func NormalizeTime(raw string) (start, full string, ok bool) {
	raw = strings.TrimSpace(raw)
	if timeRe.MatchString(raw) {
		return raw, "", true
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) == 2 && timeRe.MatchString(parts[0]) && timeRe.MatchString(parts[1]) {
		return parts[0], parts[0] + "-" + parts[1], true
	}
	return "", "", false
}

// TimeKeys returns both stored spellings of a session's time, range
// first. Queries that count bookings must match either one.
func TimeKeys(s models.Session) []string {
	return []string{s.TimeRange(), s.StartTime}
}

// Available returns remaining capacity, clamped at zero so an operator
// override past the cap never reports negative spots.
func Available(s models.Session, booked int) int {
	if left := s.MaxPlayers - booked; left > 0 {
		return left
	}
	return 0
}

// Ended reports whether the session's end time has passed on the given
// day. Times are zero-padded HH:MM, so string comparison is ordering.
func Ended(s models.Session, now time.Time) bool {
	return now.Format(models.TimeFormat) >= s.EndTime
}

// NextOccurrence scans forward from now, day by day, for the nearest
// dated session. Today's sessions count only while they have not ended.
// The scan stops after the two-week horizon.
func (c *Catalog) NextOccurrence(now time.Time) (models.Session, string, bool) {
	for offset := 0; offset <= models.NextSessionHorizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		for _, s := range c.ForDate(day) {
			if offset == 0 && Ended(s, now) {
				continue
			}
			return s, day.Format(models.DateFormat), true
		}
	}
	return models.Session{}, "", false
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
