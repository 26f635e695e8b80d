// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package audit

import "time"

// Mode names how a pipeline was executed.
type Mode string

const (
	ModeRun         Mode = "run"         // single shot
	ModeIncremental Mode = "incremental" // one run per stage prefix
)

// Entry represents a single audit log record.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	RunID    string    `json:"run_id,omitempty"`
	Mode     Mode      `json:"mode"`
	Command  string    `json:"command"`         // pipeline text as run
	Stages   []string  `json:"stages"`          // module type of each stage
	ExitCode int       `json:"exit_code"`       // 0 = success
	Error    string    `json:"error,omitempty"` // set when the run could not complete
	Duration float64   `json:"duration_ms"`     // execution time in milliseconds
	Cwd      string    `json:"cwd"`             // working directory
	Hash     string    `json:"hash"`            // SHA-256 of this entry (with hash field empty)
}

// SetDuration stores d in milliseconds.
func (e *Entry) SetDuration(d time.Duration) {
	e.Duration = float64(d.Microseconds()) / 1000.0
}
