package poller

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseInterval parses the poll interval.
//
// Supported forms:
//   - Go duration: "300s", "5m"
//   - cron descriptor: "@every 5m"
//
// Only fixed delays of whole seconds, at least 1s, are accepted. Calendar
// cron expressions would turn the loop into a fixed-rate schedule, which it
// is not.
func ParseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultInterval, nil
	}
	if strings.HasPrefix(s, "@") {
		sched, err := cron.ParseStandard(s)
		if err != nil {
			return 0, fmt.Errorf("poll interval %q: %w", raw, err)
		}
		if _, ok := sched.(cron.ConstantDelaySchedule); !ok {
			return 0, fmt.Errorf("poll interval %q: only @every descriptors are supported", raw)
		}
		// cron.Every rounds to whole seconds and clamps to 1s; check the
		// duration as written instead.
		s = strings.TrimSpace(strings.TrimPrefix(s, "@every"))
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("poll interval %q: %w", raw, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("poll interval %q: must be at least 1s", raw)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("poll interval %q: must be a whole number of seconds", raw)
	}
	return d, nil
}
