package errorlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferralda/mailsift/internal/types"
)

// FileLogger implements the Logger interface using the filesystem. Errors
// are appended to one JSON file per config and day.
type FileLogger struct {
	cfg         *types.Config
	logger      *slog.Logger
	storagePath string
	mu          sync.Mutex
}

// NewFileLogger creates a new file-based error logger
func NewFileLogger(cfg *types.Config, logger *slog.Logger) (*FileLogger, error) {
	storagePath := cfg.ErrorLogging.StoragePath

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}

	return &FileLogger{
		cfg:         cfg,
		logger:      logger,
		storagePath: storagePath,
	}, nil
}

// LogError records a message processing error to a JSON file
func (f *FileLogger) LogError(err MessageError) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err.ID == "" {
		err.ID = uuid.New().String()
	}
	if err.ErrorTime.IsZero() {
		err.ErrorTime = time.Now().UTC()
	}

	dateStr := time.Now().UTC().Format("2006-01-02")
	filename := fmt.Sprintf("errors_%s_%s.json", err.ConfigID, dateStr)
	filePath := filepath.Join(f.storagePath, filename)

	var errors []MessageError
	if data, readErr := os.ReadFile(filePath); readErr == nil {
		if jsonErr := json.Unmarshal(data, &errors); jsonErr != nil {
			// An unparseable log file starts over rather than blocking the run
			f.logger.Warn("error log file could not be parsed, starting new file",
				"file", filePath,
				"error", jsonErr,
			)
			errors = nil
		}
	}

	errors = append(errors, err)

	data, jsonErr := json.MarshalIndent(errors, "", "  ")
	if jsonErr != nil {
		return fmt.Errorf("failed to marshal error log: %w", jsonErr)
	}

	if writeErr := os.WriteFile(filePath, data, 0644); writeErr != nil {
		return fmt.Errorf("failed to write error log file: %w", writeErr)
	}

	f.logger.Info("logged message error",
		"error_id", err.ID,
		"message_id", err.MessageID,
		"error_type", err.ErrorType,
		"file", filePath,
	)
	return nil
}

// GetErrors retrieves errors based on filters
func (f *FileLogger) GetErrors(filters map[string]string) ([]MessageError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var allErrors []MessageError

	files, err := os.ReadDir(f.storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read error log directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		filePath := filepath.Join(f.storagePath, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			f.logger.Warn("failed to read error log file",
				"file", filePath,
				"error", err,
			)
			continue
		}

		var fileErrors []MessageError
		if err := json.Unmarshal(data, &fileErrors); err != nil {
			f.logger.Warn("failed to parse error log file",
				"file", filePath,
				"error", err,
			)
			continue
		}

		allErrors = append(allErrors, fileErrors...)
	}

	if len(filters) == 0 {
		return allErrors, nil
	}

	var filtered []MessageError
	for _, e := range allErrors {
		if matchesFilters(e, filters) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func matchesFilters(e MessageError, filters map[string]string) bool {
	for key, value := range filters {
		switch key {
		case "config_id":
			if e.ConfigID != value {
				return false
			}
		case "protocol":
			if e.Protocol != value {
				return false
			}
		case "server":
			if e.Server != value {
				return false
			}
		case "username":
			if e.Username != value {
				return false
			}
		case "message_id":
			if e.MessageID != value {
				return false
			}
		case "sender":
			if e.Sender != value {
				return false
			}
		case "error_type":
			if e.ErrorType != value {
				return false
			}
		}
	}
	return true
}

// CleanupOldErrors removes error log files older than the retention period
func (f *FileLogger) CleanupOldErrors() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	retentionDays := f.cfg.ErrorLogging.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}

	cutoffTime := time.Now().UTC().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(f.storagePath)
	if err != nil {
		return fmt.Errorf("failed to read error log directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		fileDate := dateFromFilename(file.Name())
		if fileDate.IsZero() {
			info, statErr := file.Info()
			if statErr != nil {
				continue
			}
			fileDate = info.ModTime()
		}

		if fileDate.Before(cutoffTime) {
			filePath := filepath.Join(f.storagePath, file.Name())
			if err := os.Remove(filePath); err != nil {
				f.logger.Warn("failed to delete old error log file",
					"file", filePath,
					"error", err,
				)
				continue
			}
			f.logger.Debug("deleted old error log file",
				"file", filePath,
				"date", fileDate.Format("2006-01-02"),
			)
		}
	}

	return nil
}

// dateFromFilename extracts the day from errors_<configid>_YYYY-MM-DD.json.
func dateFromFilename(name string) time.Time {
	name = strings.TrimSuffix(name, ".json")
	if idx := strings.LastIndex(name, "_"); idx >= 0 {
		if t, err := time.Parse("2006-01-02", name[idx+1:]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Close implements the Logger interface
func (f *FileLogger) Close() error {
	return nil
}
