package scheduler

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/tribunal/internal/rawlogs"
)

// journal mirrors run log lines into the raw log so the stored document
// carries its own narrative.
type journal struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []rawlogs.LogEntry
}

func newJournal(logger *slog.Logger, now func() time.Time) *journal {
	return &journal{logger: logger, now: now}
}

func (j *journal) Info(msg string, args ...any) {
	j.logger.Info(msg, args...)
	j.record("info", msg, args)
}

func (j *journal) Warn(msg string, args ...any) {
	j.logger.Warn(msg, args...)
	j.record("warn", msg, args)
}

func (j *journal) Error(msg string, args ...any) {
	j.logger.Error(msg, args...)
	j.record("error", msg, args)
}

// Entries returns a copy of the recorded lines.
func (j *journal) Entries() []rawlogs.LogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]rawlogs.LogEntry(nil), j.entries...)
}

func (j *journal) record(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, rawlogs.LogEntry{At: j.now(), Level: level, Message: b.String()})
}
