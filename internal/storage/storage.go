// Package storage persists retrieved files to a local folder tree or to
// Google Drive, handling naming, collisions and duplicate suppression.
package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Writer stores one file under a destination directory relative to the
// configured root and returns the final path or identifier.
type Writer interface {
	Store(dir, filename string, content []byte) (string, error)
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeFile   StorageType = "file"
	StorageTypeGDrive StorageType = "gdrive"
)

// Config holds configuration for creating storage instances
type Config struct {
	Type            StorageType
	BaseFolder      string // Local root for file storage
	MaxSize         int64
	CredentialsFile string // Path to Google Drive credentials JSON file
	ParentFolderID  string // Google Drive folder ID where files will be stored
}

// NewWriter creates a storage backend based on the configuration. An empty
// type defaults to local file storage.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (Writer, error) {
	switch config.Type {
	case StorageTypeFile, "":
		return NewFileWriter(config.BaseFolder, config.MaxSize, logger), nil
	case StorageTypeGDrive:
		return NewDriveWriter(ctx, logger, config.CredentialsFile, config.ParentFolderID, config.MaxSize)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
