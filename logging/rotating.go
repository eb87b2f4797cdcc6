package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const filePrefix = "desprescricao-"

var numberedFile = regexp.MustCompile(`^desprescricao-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger writes to one file per ISO week and starts a numbered file
// when the current one reaches maxFileSize.
type RotatingLogger struct {
	dir         string
	retention   time.Duration
	maxFileSize int64

	mu   sync.Mutex
	file *os.File
	week string
	size int64

	now func() time.Time
}

// NewRotatingLogger creates dir if needed and opens the file for the current week
func NewRotatingLogger(dir string, retentionWeeks int, maxFileSize int64) (*RotatingLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rl := &RotatingLogger{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if err := rl.rotate(weekKey(rl.now()), false); err != nil {
		return nil, err
	}
	return rl, nil
}

// weekKey returns the week in YYYY-Www format (ISO week)
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write implements io.Writer
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(rl.now())
	full := rl.maxFileSize > 0 && rl.size+int64(len(p)) > rl.maxFileSize

	if rl.file == nil || week != rl.week || full {
		if err := rl.rotate(week, full && week == rl.week); err != nil {
			return 0, err
		}
	}

	if rl.file == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// rotate switches to the file for week. Caller holds mu.
func (rl *RotatingLogger) rotate(week string, sizeExceeded bool) error {
	if rl.file != nil {
		if err := rl.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		rl.file = nil
	}

	name := rl.fileName(week, sizeExceeded)
	path := filepath.Join(rl.dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.file = file
	rl.week = week
	rl.size = 0
	if info, err := file.Stat(); err == nil {
		rl.size = info.Size()
	}
	return nil
}

// fileName picks the base file for week, or the latest numbered one that
// still has room. sizeExceeded always starts a new numbered file.
func (rl *RotatingLogger) fileName(week string, sizeExceeded bool) string {
	base := filePrefix + week + ".log"
	if !sizeExceeded && !rl.isFull(filepath.Join(rl.dir, base)) {
		return base
	}

	matches, _ := filepath.Glob(filepath.Join(rl.dir, filePrefix+week+"_??.log"))
	highest := 0
	for _, m := range matches {
		sub := numberedFile.FindStringSubmatch(filepath.Base(m))
		if len(sub) < 2 {
			continue
		}
		if n, _ := strconv.Atoi(sub[1]); n > highest {
			highest = n
		}
	}

	if highest > 0 && !sizeExceeded {
		last := fmt.Sprintf("%s%s_%02d.log", filePrefix, week, highest)
		if !rl.isFull(filepath.Join(rl.dir, last)) {
			return last
		}
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, highest+1)
}

func (rl *RotatingLogger) isFull(path string) bool {
	if rl.maxFileSize <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() >= rl.maxFileSize
}

// CleanupOldLogs removes log files last modified before the retention
// period and returns how many were deleted. The file being written is kept.
func (rl *RotatingLogger) CleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	rl.mu.Lock()
	current := ""
	if rl.file != nil {
		current = filepath.Base(rl.file.Name())
	}
	rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.dir, name)); err == nil {
				deleted++
			}
		}
	}

	return deleted, nil
}

// Files lists the log files currently on disk, oldest name first
func (rl *RotatingLogger) Files() []string {
	matches, _ := filepath.Glob(filepath.Join(rl.dir, filePrefix+"*.log"))
	sort.Strings(matches)
	return matches
}

// Close closes the current file
func (rl *RotatingLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}
