// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultShell is the interpreter used when ProcessShell.Path is empty.
const DefaultShell = "/bin/sh"

// Output is what one shell invocation produced.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Shell runs a command line.
type Shell interface {
	// Run executes command and waits for it. A non-zero exit is reported
	// in Output.ExitCode, not as an error; errors mean the command could
	// not be run at all or ctx ended first.
	Run(ctx context.Context, command string) (Output, error)
}

// ProcessShell runs commands as "Path -c command" child processes.
type ProcessShell struct {
	Path     string   // defaults to DefaultShell
	Preamble string   // run before every command, joined with &&
	Dir      string   // working directory; empty means inherit
	Env      []string // extra KEY=VALUE entries on top of the environment
}

var _ Shell = (*ProcessShell)(nil)

func (s *ProcessShell) Run(ctx context.Context, command string) (Output, error) {
	path := s.Path
	if path == "" {
		path = DefaultShell
	}
	script := command
	if s.Preamble != "" {
		script = s.Preamble + " && " + command
	}

	cmd := exec.CommandContext(ctx, path, "-c", script)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	// Grandchildren can hold the output pipes open after a kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, fmt.Errorf("run %s: %w", path, err)
}
