package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/sirupsen/logrus"
)

// FileSink appends alerts as JSON lines to a local file
type FileSink struct {
	path string
	log  *logrus.Logger

	mu sync.Mutex
}

// NewFileSink creates the state directory if needed and checks it is writable
func NewFileSink(dir string, log *logrus.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close history file: %w", err)
	}

	return &FileSink{path: path, log: log}, nil
}

// Path returns the history file location
func (s *FileSink) Path() string {
	return s.path
}

// Append writes one JSON line
func (s *FileSink) Append(_ context.Context, rec *alerts.AlertRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Query scans the whole file. Lines that fail to decode are skipped.
func (s *FileSink) Query(ctx context.Context, filter Filter) ([]*alerts.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var matched []*alerts.AlertRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec alerts.AlertRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.WithError(err).WithField("line", lineNo).Debug("Skipping unreadable history line")
			continue
		}
		if filter.matches(&rec) {
			matched = append(matched, &rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	// File order is oldest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
