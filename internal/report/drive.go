package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type driveFiles interface {
	create(ctx context.Context, file *drive.File, media io.Reader) (*drive.File, error)
	update(ctx context.Context, fileID string, media io.Reader) error
}

type serviceFiles struct {
	service *drive.Service
}

func (s serviceFiles) create(ctx context.Context, file *drive.File, media io.Reader) (*drive.File, error) {
	return s.service.Files.Create(file).Media(media).Context(ctx).Do()
}

func (s serviceFiles) update(ctx context.Context, fileID string, media io.Reader) error {
	_, err := s.service.Files.Update(fileID, &drive.File{}).Media(media).Context(ctx).Do()
	return err
}

// Drive uploads reports into a Google Drive folder as Google Docs. Repeat
// uploads of the same name update the existing document.
type Drive struct {
	files    driveFiles
	folderID string

	mu      sync.Mutex
	fileIDs map[string]string
}

func NewDrive(ctx context.Context, credPath, folderID string) (*Drive, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return newDrive(serviceFiles{service: svc}, folderID), nil
}

func newDrive(files driveFiles, folderID string) *Drive {
	return &Drive{files: files, folderID: folderID, fileIDs: make(map[string]string)}
}

// Upload sends the file at localPath under name and returns the Drive file ID.
func (d *Drive) Upload(ctx context.Context, localPath, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	if fileID, ok := d.fileIDs[name]; ok {
		if err := d.files.update(ctx, fileID, f); err != nil {
			return "", fmt.Errorf("drive update: %w", err)
		}
		return fileID, nil
	}

	doc, err := d.files.create(ctx, &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{d.folderID},
	}, f)
	if err != nil {
		return "", fmt.Errorf("drive create: %w", err)
	}

	d.fileIDs[name] = doc.Id
	return doc.Id, nil
}
