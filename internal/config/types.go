package config

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// Storage controls the optional run-history store.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Jobs are command jobs registered into the engine at startup.
	Jobs []JobConfig `json:"jobs,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the engine.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// TickPeriod is the fixed delay between due-job scans. Default "30s".
	TickPeriod string `json:"tick_period,omitempty"`
}

// StorageConfig controls the optional run-history persistence.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./tickd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	KeepRuns    int    `json:"keep_runs,omitempty"`
}

// JobConfig defines a command job.
//
// Either DelayMinutes (relative, from process start) or StartAt (absolute,
// RFC 3339 UTC) gates the first run; StartAt wins when both are set.
type JobConfig struct {
	Name            string   `json:"name"`
	Command         []string `json:"command"`
	Repeat          bool     `json:"repeat"`
	DelayMinutes    int      `json:"delay_minutes,omitempty"`
	StartAt         string   `json:"start_at,omitempty"`
	IntervalMinutes int      `json:"interval_minutes,omitempty"`

	// Timeout bounds one execution of the command. Default "5m".
	Timeout string `json:"timeout,omitempty"`
	Workdir string `json:"workdir,omitempty"`
}
