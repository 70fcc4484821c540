package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sjawhar/interview-coach/internal/transcript"
)

const DefaultFilename = "Interview_Report.txt"

// FileSink writes the rendered transcript to a single file, replacing any
// previous report.
type FileSink struct {
	dir      string
	filename string
	mu       sync.Mutex
}

func NewFileSink(dir, filename string) *FileSink {
	if filename == "" {
		filename = DefaultFilename
	}
	return &FileSink{dir: dir, filename: filename}
}

// Write renders doc and stores it atomically. It returns the report path.
func (s *FileSink) Write(doc transcript.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	path := s.Path()
	tmp, err := os.CreateTemp(s.dir, s.filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(doc.Render()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename report: %w", err)
	}
	return path, nil
}

func (s *FileSink) Path() string {
	return filepath.Join(s.dir, s.filename)
}
