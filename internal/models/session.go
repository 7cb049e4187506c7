package models

// Session is a recurring weekly time slot from the club catalog,
// loaded from the sessions block of config.yaml at startup.
type Session struct {
	ID         string  `yaml:"id" json:"id"`
	DayOfWeek  string  `yaml:"day_of_week" json:"day_of_week"`
	StartTime  string  `yaml:"start_time" json:"start_time"` // HH:MM, club-local
	EndTime    string  `yaml:"end_time" json:"end_time"`     // HH:MM, club-local
	MaxPlayers int     `yaml:"max_players" json:"max_players"`
	Fee        float64 `yaml:"fee" json:"fee"`
}

// TimeRange returns the canonical session time key, e.g. "19:30-21:30".
func (s Session) TimeRange() string {
	return s.StartTime + "-" + s.EndTime
}
