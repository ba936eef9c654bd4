package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// collisionLimit bounds numeric suffixes before falling back to a
// timestamp-based name.
const collisionLimit = 1000

// FileWriter implements Writer for the local filesystem.
type FileWriter struct {
	baseFolder string
	maxSize    int64
	logger     *slog.Logger
}

func NewFileWriter(baseFolder string, maxSize int64, logger *slog.Logger) *FileWriter {
	return &FileWriter{
		baseFolder: baseFolder,
		maxSize:    maxSize,
		logger:     logger,
	}
}

// Store writes content under baseFolder/dir/filename. Name collisions get a
// numeric suffix; the write is exclusive and verified after the fact so a
// failed or empty write never leaves a file behind.
func (fw *FileWriter) Store(dir, filename string, content []byte) (string, error) {
	if fw.maxSize > 0 && int64(len(content)) > fw.maxSize {
		return "", fmt.Errorf("file size %d exceeds maximum allowed size %d", len(content), fw.maxSize)
	}

	finalDir := filepath.Join(fw.baseFolder, dir)
	if err := os.MkdirAll(finalDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	finalPath, err := fw.writeUnique(filepath.Join(finalDir, filename), content)
	if err != nil {
		return "", err
	}

	if err := verifyWrite(finalPath, len(content)); err != nil {
		os.Remove(finalPath)
		return "", err
	}

	fw.logger.Debug("stored file",
		"path", finalPath,
		"size", len(content),
	)
	return finalPath, nil
}

// writeUnique creates the file exclusively, stepping through numeric
// suffixes on collision and falling back to a timestamp suffix when the
// numeric range is exhausted.
func (fw *FileWriter) writeUnique(path string, content []byte) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	candidate := path
	for i := 1; ; i++ {
		err := writeExclusive(candidate, content)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		if i >= collisionLimit {
			candidate = fmt.Sprintf("%s_%d%s", stem, time.Now().UnixNano(), ext)
			if err := writeExclusive(candidate, content); err != nil {
				return "", fmt.Errorf("failed to create file: %w", err)
			}
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

func writeExclusive(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file content: %w", err)
	}
	return nil
}

func verifyWrite(path string, wantSize int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to verify written file: %w", err)
	}
	if info.Size() == 0 && wantSize > 0 {
		return fmt.Errorf("written file %s is empty", path)
	}
	return nil
}
