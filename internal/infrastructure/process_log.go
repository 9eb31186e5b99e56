package infrastructure

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yourusername/flare-go/pkg/logger"
)

const logTimestampFormat = "2006-01-02 15:04:05"

// ProcessLog appends the raw output of one tool run to the day's download log.
// Runs are framed by a header carrying the command line and a footer carrying the outcome.
type ProcessLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenProcessLog opens download-YYYYMMDD.log in logsDir for appending
func OpenProcessLog(logsDir string, now time.Time) (*ProcessLog, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	f, err := os.OpenFile(logger.CategoryLogPath(logsDir, logger.CategoryDownload, now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &ProcessLog{file: f}, nil
}

// Path returns the log file location
func (l *ProcessLog) Path() string {
	return l.file.Name()
}

// WriteHeader writes the download start marker
func (l *ProcessLog) WriteHeader(downloadID, cmdLine string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "\n=== [%s] Download: %s ===\n", time.Now().Format(logTimestampFormat), downloadID)
	fmt.Fprintf(l.file, "$ %s\n", cmdLine)
}

// WriteLine appends one raw output line
func (l *ProcessLog) WriteLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.file, line)
}

// WriteFooter writes the download end marker
func (l *ProcessLog) WriteFooter(success bool, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(l.file, "[%s] %s: %s\n", time.Now().Format(logTimestampFormat), status, message)
	fmt.Fprint(l.file, "=== END ===\n\n")
}

// Close closes the log file
func (l *ProcessLog) Close() error {
	return l.file.Close()
}
