package run

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ReportEntry is one line of the run report log.
type ReportEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Run
}

// ReportLogger appends one JSON line per run. Safe for concurrent use.
type ReportLogger struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewReportLogger(w io.Writer) *ReportLogger {
	return &ReportLogger{writer: w}
}

func NewFileReportLogger(path string) (*ReportLogger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		return nil, err
	}
	return NewReportLogger(f), nil
}

func (l *ReportLogger) Log(entry ReportEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		slog.Error("failed to write run report entry", "error", err)
	}
}
