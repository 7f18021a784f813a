package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// KeepRuns bounds the retained history (sqlite prunes periodically).
	// 0 means the default (10000).
	KeepRuns int
}

// RunRecord is one finished job execution. Keep it compact and
// schema-stable.
type RunRecord struct {
	At      time.Time `json:"at"`
	Job     string    `json:"job"`
	Outcome string    `json:"outcome"` // "ok" or "failed"
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

const defaultKeepRuns = 10000
