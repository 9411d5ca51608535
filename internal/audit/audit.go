// Package audit is the JSONL trail for CLI-level policy checks: one line
// per check, rotated the way the teacher's logger rotates. It sits above
// the core engine packages (facade, matcher, sudoers), which never touch
// it — the engine is a pure function, logging is a concern of the tool
// wrapped around it.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sudoersgo/policyengine/internal/redact"
)

const defaultMaxLogBytes = 10 * 1024 * 1024

// Event is one recorded check: who asked to run what, as whom, and what
// the policy decided.
type Event struct {
	Timestamp        string `json:"timestamp"`
	Invoker          string `json:"invoker"`
	Host             string `json:"host"`
	TargetUser       string `json:"target_user"`
	CommandPath      string `json:"command_path"`
	CommandArguments string `json:"command_arguments,omitempty"`
	Decision         string `json:"decision"`
	RequiresPassword bool   `json:"requires_password,omitempty"`
	Error            string `json:"error,omitempty"`
}

type Logger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, file: file}, nil
}

// rotateIfNeeded renames the current file to <path>.1 once it reaches
// defaultMaxLogBytes and opens a fresh one. Must be called with l.mu held.
func (l *Logger) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < defaultMaxLogBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log before rotation: %w", err)
	}

	rotated := l.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("rotate log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open fresh log after rotation: %w", err)
	}
	l.file = f
	return nil
}

// Log writes event as one JSON line, redacting argument text that looks
// like a secret before it ever reaches disk.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log rotation failed: %v\n", err)
	}

	event.CommandArguments = redact.Redact(event.CommandArguments)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
