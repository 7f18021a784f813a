package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the config for errors that should block a commit.
// It is installed as the Manager's validator and run on initial load.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if _, err := ParseDurationField("scheduler.tick_period", cfg.Scheduler.TickPeriod); err != nil {
		return err
	}
	if cfg.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
		if cfg.Storage.KeepRuns < 0 {
			return fmt.Errorf("storage.keep_runs: must be >= 0")
		}
	}

	seen := map[string]struct{}{}
	for i, j := range cfg.Jobs {
		where := fmt.Sprintf("jobs[%d]", i)
		name := strings.TrimSpace(j.Name)
		if name == "" {
			return fmt.Errorf("%s: name is required", where)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%s: duplicate job name %q", where, name)
		}
		seen[name] = struct{}{}

		if len(j.Command) == 0 || strings.TrimSpace(j.Command[0]) == "" {
			return fmt.Errorf("%s (%s): command is required", where, name)
		}
		if j.IntervalMinutes < 0 {
			return fmt.Errorf("%s (%s): interval_minutes must be >= 0", where, name)
		}
		if j.DelayMinutes < 0 {
			return fmt.Errorf("%s (%s): delay_minutes must be >= 0", where, name)
		}
		if s := strings.TrimSpace(j.StartAt); s != "" {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				return fmt.Errorf("%s (%s): start_at: %w", where, name, err)
			}
		}
		if _, err := ParseDurationField(where+".timeout", j.Timeout); err != nil {
			return err
		}
	}
	return nil
}
