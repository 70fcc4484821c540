package report

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/sjawhar/interview-coach/internal/transcript"
)

func testDocument() transcript.Document {
	store := transcript.NewStore(0)
	store.Append(transcript.RoleAI, "Tell me about React.")
	store.Append(transcript.RoleUser, "I built a scalable dashboard.")
	return store.Export(transcript.DefaultLayout())
}

func TestFileSinkWritesReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewFileSink(dir, "")

	path, err := sink.Write(testDocument())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != DefaultFilename {
		t.Fatalf("expected %s, got %s", DefaultFilename, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "AI: Tell me about React.") {
		t.Errorf("expected AI line in report, got: %s", content)
	}
	if !strings.Contains(content, "User: I built a scalable dashboard.") {
		t.Errorf("expected User line in report, got: %s", content)
	}
}

func TestFileSinkReplacesPreviousReport(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, "report.txt")

	if _, err := sink.Write(testDocument()); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	store := transcript.NewStore(0)
	store.Append(transcript.RoleAI, "Only line.")
	if _, err := sink.Write(store.Export(transcript.DefaultLayout())); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	data, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(data), "React") {
		t.Fatalf("expected report to be replaced, got: %s", data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("expected no temp files, got %v", leftovers)
	}
}

type fakeFiles struct {
	mu        sync.Mutex
	created   []*drive.File
	updated   []string
	bodies    []string
	createErr error
}

func (f *fakeFiles) create(_ context.Context, file *drive.File, media io.Reader) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	body, _ := io.ReadAll(media)
	f.bodies = append(f.bodies, string(body))
	f.created = append(f.created, file)
	return &drive.File{Id: "file-1"}, nil
}

func (f *fakeFiles) update(_ context.Context, fileID string, media io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(media)
	f.bodies = append(f.bodies, string(body))
	f.updated = append(f.updated, fileID)
	return nil
}

func TestDriveCreatesThenUpdates(t *testing.T) {
	files := &fakeFiles{}
	d := newDrive(files, "folder-1")

	path := filepath.Join(t.TempDir(), "r.txt")
	if err := os.WriteFile(path, []byte("AI: hi"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	id, err := d.Upload(context.Background(), path, "Interview_Report-2026-10-14")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if id != "file-1" {
		t.Fatalf("expected file-1, got %q", id)
	}
	if len(files.created) != 1 || files.created[0].Parents[0] != "folder-1" {
		t.Fatalf("unexpected create calls %+v", files.created)
	}

	if _, err := d.Upload(context.Background(), path, "Interview_Report-2026-10-14"); err != nil {
		t.Fatalf("second Upload failed: %v", err)
	}
	if len(files.updated) != 1 || files.updated[0] != "file-1" {
		t.Fatalf("expected update of file-1, got %v", files.updated)
	}
	if files.bodies[0] != "AI: hi" {
		t.Fatalf("unexpected upload body %q", files.bodies[0])
	}
}

type fakeUploader struct {
	err   error
	names []string
}

func (u *fakeUploader) Upload(_ context.Context, _ string, name string) (string, error) {
	u.names = append(u.names, name)
	if u.err != nil {
		return "", u.err
	}
	return "drive-id", nil
}

func TestPublisherUploadsWrittenReport(t *testing.T) {
	uploader := &fakeUploader{}
	p := NewPublisher(NewFileSink(t.TempDir(), ""), uploader, nil)
	p.now = func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }

	result, err := p.Publish(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if result.DriveFileID != "drive-id" {
		t.Fatalf("expected drive-id, got %q", result.DriveFileID)
	}
	if len(uploader.names) != 1 || uploader.names[0] != "Interview_Report-2026-10-14" {
		t.Fatalf("unexpected upload names %v", uploader.names)
	}
}

func TestPublisherUploadFailureIsNotFatal(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("quota")}
	p := NewPublisher(NewFileSink(t.TempDir(), ""), uploader, nil)

	result, err := p.Publish(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if result.Path == "" {
		t.Fatal("expected local path")
	}
	if result.UploadError == "" {
		t.Fatal("expected upload error to be reported")
	}
}
