// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package report routes match results to the console and to dated,
// append-only log files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/scanner/scanner/internal/event"
	"github.com/scanner/scanner/internal/filter"
	"github.com/scanner/scanner/internal/metrics"
)

// Level determines which results are persisted to disk. Ordered: matches
// are logged at LevelMatch and above, full event content is additionally
// kept at LevelAll.
type Level int

const (
	LevelNone Level = iota
	LevelMatch
	LevelAll
)

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none":
		return LevelNone, nil
	case "match":
		return LevelMatch, nil
	case "all":
		return LevelAll, nil
	}
	return LevelNone, fmt.Errorf("unknown log level %q", s)
}

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelMatch:
		return "match"
	case LevelAll:
		return "all"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Option adjusts a Reporter. Used by tests to inject the console writer and
// the clock.
type Option func(*Reporter)

// WithConsole redirects console output, default os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(r *Reporter) { r.out = w }
}

// WithClock replaces the wall clock used for log rotation.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// Reporter writes match results. Log writes are serialized by an internal
// mutex so a concurrent caller cannot interleave entries; log files rotate
// at the local-date boundary.
type Reporter struct {
	dir   string
	level Level
	out   io.Writer
	now   func() time.Time

	mu   sync.Mutex
	file *os.File
	day  string
}

// New builds a Reporter over the given logging directory. The directory is
// created up front when the level calls for disk writes, so an unwritable
// location fails at startup rather than on the first match.
func New(dir string, level Level, opts ...Option) (*Reporter, error) {
	r := &Reporter{
		dir:   dir,
		level: level,
		out:   os.Stdout,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if level > LevelNone {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log directory %s is not writable: %w", dir, err)
		}
	}
	return r, nil
}

// Report applies the reporting policy to one result: matches always print
// and are persisted per the level; non-matches print a summary only when
// verbose and are never persisted.
func (r *Reporter) Report(res filter.Result, verbose bool) error {
	if !res.Matched {
		if verbose {
			fmt.Fprintf(r.out, "no match: %s\n", describe(res.Event))
		}
		return nil
	}

	fmt.Fprintf(r.out, "%s\n", describe(res.Event))
	fmt.Fprintf(r.out, "***MATCH*** with filter `%s` (%q): %s\n",
		res.Filter, res.Excerpt, res.Event.URI())

	if r.level < LevelMatch {
		return nil
	}
	if err := r.writeEntry(res); err != nil {
		return err
	}
	if r.level >= LevelAll {
		return r.writeContent(res)
	}
	return nil
}

// Skip notes an event excluded by the edit-count gate. Console only, and
// only when verbose.
func (r *Reporter) Skip(ev event.Event, editCount, max int, verbose bool) {
	if verbose {
		fmt.Fprintf(r.out, "skipping %s - edit count was %d > %d\n",
			ev.User(), editCount, max)
	}
}

// Close releases the open log file handle. Safe to call with no file open.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// writeEntry appends one self-contained line to the dated match log. The
// entry is assembled first and written with a single call so a crash
// mid-cycle cannot leave a torn record ahead of the newline.
func (r *Reporter) writeEntry(res filter.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rotate(); err != nil {
		return err
	}

	ev := res.Event
	line := strings.Join([]string{
		ev.Timestamp.Format(time.RFC3339),
		res.Filter,
		res.Excerpt,
		ev.Title(),
		ev.User(),
		ev.URI(),
	}, "\t") + "\n"

	if _, err := r.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to append match log entry: %w", err)
	}
	metrics.LogWrites.Inc()
	return nil
}

// writeContent keeps the full raw frame alongside the match log. Colons are
// invalid in most filenames.
func (r *Reporter) writeContent(res filter.Result) error {
	r.mu.Lock()
	day := r.day
	r.mu.Unlock()

	ev := res.Event
	name := strings.ReplaceAll(fmt.Sprintf("%s_%d.json", ev.User(), ev.Revision()), ":", "-")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "-")
	path := filepath.Join(r.dir, day, name)

	if err := os.WriteFile(path, []byte(ev.Raw), 0o644); err != nil {
		return fmt.Errorf("failed to write event content: %w", err)
	}
	return nil
}

// rotate opens the match log for the current local date, closing the
// previous day's handle at the boundary. Caller holds the mutex.
func (r *Reporter) rotate() error {
	day := r.now().Format("2006-01-02")
	if r.file != nil && day == r.day {
		return nil
	}

	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	folder := filepath.Join(r.dir, day)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", folder, err)
	}

	file, err := os.OpenFile(filepath.Join(folder, "matches.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open match log: %w", err)
	}

	r.file = file
	r.day = day
	return nil
}

// describe renders the one-line event summary used on the console.
func describe(ev event.Event) string {
	delta := ev.ByteDelta()
	sign := "+"
	if delta < 0 {
		sign = "-"
		delta = -delta
	}
	return fmt.Sprintf("%s %s %q at %s (%s%s bytes)",
		ev.User(), verb(ev.Kind), ev.Title(),
		ev.Timestamp.Format(time.RFC3339), sign, humanize.Comma(delta))
}

// verb renders the feed's change type as a past-tense verb.
func verb(kind string) string {
	switch kind {
	case "edit":
		return "edited"
	case "new", "create":
		return "created"
	case "log":
		return "logged"
	case "categorize":
		return "categorized"
	case "":
		return "changed"
	}
	return kind
}
