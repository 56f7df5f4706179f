package reviewer

import (
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/review-assigner/pkg/config"
)

// withinWorkingHours reports whether a user's local time falls inside the
// configured working-hours window. Users with no recorded timezone pass, and
// an unloadable timezone name passes with a warning rather than dropping the
// candidate. Windows where start > end wrap past midnight.
func withinWorkingHours(tz config.Timezone, user string, now time.Time) bool {
	name, ok := tz.UserTimezones[user]
	if !ok || name == "" {
		return true
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Unknown timezone for user, keeping candidate", "user", user, "timezone", name, "error", err)
		return true
	}

	hour := now.In(loc).Hour()
	start, end := tz.WorkingHours.Start, tz.WorkingHours.End
	if start <= end {
		return hour >= start && hour < end
	}
	// Overnight window, e.g. 22-6.
	return hour >= start || hour < end
}

// filterByWorkingHours drops candidates currently outside their working hours.
func (s *Selector) filterByWorkingHours(candidates *set) {
	now := s.now()
	candidates.keep(func(user string) bool {
		if withinWorkingHours(s.cfg.Timezone, user, now) {
			return true
		}
		slog.Info("Dropping candidate outside working hours", "user", user, "timezone", s.cfg.Timezone.UserTimezones[user])
		return false
	})
}
