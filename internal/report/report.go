package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/sjawhar/interview-coach/internal/transcript"
)

// Uploader copies a written report somewhere off the machine.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

// Result describes where a report was delivered.
type Result struct {
	Path        string `json:"path"`
	DriveFileID string `json:"drive_file_id,omitempty"`
	UploadError string `json:"upload_error,omitempty"`
}

// Publisher writes reports to disk and optionally uploads them.
type Publisher struct {
	file     *FileSink
	uploader Uploader
	logger   *slog.Logger
	now      func() time.Time
}

func NewPublisher(file *FileSink, uploader Uploader, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		file:     file,
		uploader: uploader,
		logger:   logger.With(slog.String("component", "report")),
		now:      time.Now,
	}
}

// Publish writes doc locally, then uploads it. Upload failures are reported
// in the result and do not fail the export.
func (p *Publisher) Publish(ctx context.Context, doc transcript.Document) (Result, error) {
	path, err := p.file.Write(doc)
	if err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}
	p.logger.Info("report written", slog.String("path", path), slog.Int("pages", len(doc.Pages)))

	result := Result{Path: path}
	if p.uploader == nil {
		return result, nil
	}

	fileID, err := p.uploader.Upload(ctx, path, p.uploadName())
	if err != nil {
		p.logger.Warn("report upload failed", slog.String("error", err.Error()))
		result.UploadError = err.Error()
		return result, nil
	}
	result.DriveFileID = fileID
	return result, nil
}

func (p *Publisher) uploadName() string {
	base := strings.TrimSuffix(p.file.filename, filepath.Ext(p.file.filename))
	return fmt.Sprintf("%s-%s", base, p.now().UTC().Format("2006-01-02"))
}
