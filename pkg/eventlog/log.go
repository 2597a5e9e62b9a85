// Package eventlog implements the append-only, newline-delimited event
// log. The log is the system of record: the event store and all indexes
// can be rebuilt from it.
package eventlog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Scanner buffer large enough for events with big payloads.
const maxLineBytes = 16 * 1024 * 1024

// FsyncPolicy controls whether appends are flushed to stable storage.
type FsyncPolicy int

const (
	// FsyncNever leaves flushing to the OS (the default; matches the
	// per-event durability stance of the ledger).
	FsyncNever FsyncPolicy = iota
	// FsyncAlways fsyncs after every append.
	FsyncAlways
)

// Log appends and replays one-event-per-line UTF-8 serializations. The
// file is opened in append-only mode per write; the ledger's writer lock
// serializes appends. Log itself holds no lock.
type Log struct {
	path  string
	fsync FsyncPolicy
}

// New creates a log handle for path, creating the parent directory if
// needed.
func New(path string, fsync FsyncPolicy) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("eventlog: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("eventlog: create log directory %s: %w", dir, err)
		}
	}
	return &Log{path: path, fsync: fsync}, nil
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Exists reports whether the log file exists on disk.
func (l *Log) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Append writes one serialized event followed by a newline. The line must
// not itself contain a newline.
func (l *Log) Append(line []byte) error {
	if bytes.ContainsRune(line, '\n') {
		return fmt.Errorf("eventlog: line contains embedded newline")
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("eventlog: open %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("eventlog: append to %s: %w", l.path, err)
	}
	if l.fsync == FsyncAlways {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("eventlog: fsync %s: %w", l.path, err)
		}
	}
	return nil
}

// Replay streams every line to fn in file order, skipping empty lines.
// Line numbers are 1-based. A partial trailing line (no final newline) is
// still delivered; callers treat undecodable lines as skippable. Replay of
// a missing file is a no-op.
func (l *Log) Replay(fn func(lineNo int, line []byte) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("eventlog: open %s: %w", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("eventlog: read %s: %w", l.path, err)
	}
	return nil
}
