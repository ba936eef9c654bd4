package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveWriter implements Writer for Google Drive.
type DriveWriter struct {
	logger   *slog.Logger
	service  *drive.Service
	parentID string // Drive folder ID under which all files are stored
	maxSize  int64
}

// NewDriveWriter creates a Google Drive storage backend from a service
// account credentials file.
func NewDriveWriter(ctx context.Context, logger *slog.Logger, credentialsFile, parentFolderID string, maxSize int64) (*DriveWriter, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	return &DriveWriter{
		logger:   logger,
		service:  service,
		parentID: parentFolderID,
		maxSize:  maxSize,
	}, nil
}

// Store uploads content into the Drive folder matching dir, creating the
// folder chain under the configured parent as needed. Returns the file ID.
func (dw *DriveWriter) Store(dir, filename string, content []byte) (string, error) {
	if dw.maxSize > 0 && int64(len(content)) > dw.maxSize {
		return "", fmt.Errorf("file size %d exceeds maximum allowed size %d", len(content), dw.maxSize)
	}

	folderID, err := dw.ensureFolderChain(dir)
	if err != nil {
		return "", fmt.Errorf("failed to ensure folder structure: %w", err)
	}

	file := &drive.File{
		Name:     filename,
		Parents:  []string{folderID},
		MimeType: driveMimeType(filename),
	}

	reader := strings.NewReader(string(content))
	uploaded, err := dw.service.Files.Create(file).Media(reader).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	dw.logger.Debug("file uploaded",
		"filename", filename,
		"id", uploaded.Id,
		"size", len(content),
	)
	return uploaded.Id, nil
}

func (dw *DriveWriter) ensureFolderChain(dir string) (string, error) {
	if dir == "" || dir == "." {
		return dw.parentID, nil
	}

	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	currentParentID := dw.parentID

	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}

		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
			part, currentParentID)

		fileList, err := dw.service.Files.List().Q(query).Fields("files(id)").Do()
		if err != nil {
			return "", fmt.Errorf("failed to search for folder: %w", err)
		}

		if len(fileList.Files) > 0 {
			currentParentID = fileList.Files[0].Id
			continue
		}

		folder := &drive.File{
			Name:     part,
			MimeType: "application/vnd.google-apps.folder",
			Parents:  []string{currentParentID},
		}

		created, err := dw.service.Files.Create(folder).Fields("id").Do()
		if err != nil {
			return "", fmt.Errorf("failed to create folder: %w", err)
		}

		currentParentID = created.Id
	}

	return currentParentID, nil
}

func driveMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".dcm":
		return "application/dicom"
	default:
		return "application/octet-stream"
	}
}
