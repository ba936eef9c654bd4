package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ferralda/mailsift/internal/types"
)

// ValidateConfig performs validation on a single configuration
func ValidateConfig(cfg *types.Config) error {
	if err := validateMeta(cfg); err != nil {
		return fmt.Errorf("meta validation failed: %w", err)
	}

	if err := validateMailbox(cfg); err != nil {
		return fmt.Errorf("mailbox validation failed: %w", err)
	}

	if err := validateFilters(cfg); err != nil {
		return fmt.Errorf("filters validation failed: %w", err)
	}

	if err := validateDownload(cfg); err != nil {
		return fmt.Errorf("download validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	if err := validateScheduling(cfg); err != nil {
		return fmt.Errorf("scheduling validation failed: %w", err)
	}

	return nil
}

func validateMeta(cfg *types.Config) error {
	if cfg.Meta.ID == "" {
		return fmt.Errorf("meta.id is required")
	}

	if !isValidID(cfg.Meta.ID) {
		return fmt.Errorf("meta.id contains invalid characters (use only alphanumeric, dash, underscore)")
	}

	if cfg.Meta.Name == "" {
		return fmt.Errorf("meta.name is required")
	}

	return nil
}

func validateMailbox(cfg *types.Config) error {
	switch cfg.Mailbox.Protocol {
	case "imap", "pop3":
		// Supported protocols
	default:
		return fmt.Errorf("mailbox.protocol must be 'imap' or 'pop3'")
	}

	if cfg.Mailbox.Server == "" {
		return fmt.Errorf("mailbox.server is required")
	}

	if cfg.Mailbox.Port <= 0 || cfg.Mailbox.Port > 65535 {
		return fmt.Errorf("mailbox.port must be between 1 and 65535")
	}

	if cfg.Mailbox.Username == "" {
		return fmt.Errorf("mailbox.username is required")
	}

	if cfg.Mailbox.Password == "" {
		return fmt.Errorf("mailbox.password is required")
	}

	if cfg.Mailbox.Timeout <= 0 {
		return fmt.Errorf("mailbox.timeout must be positive")
	}

	return nil
}

func validateFilters(cfg *types.Config) error {
	if !cfg.Filters.DateRange.Enabled {
		return nil
	}

	start, err := time.Parse("2006-01-02", cfg.Filters.DateRange.Start)
	if err != nil {
		return fmt.Errorf("filters.date_range.start must be in YYYY-MM-DD format")
	}

	end, err := time.Parse("2006-01-02", cfg.Filters.DateRange.End)
	if err != nil {
		return fmt.Errorf("filters.date_range.end must be in YYYY-MM-DD format")
	}

	if end.Before(start) {
		return fmt.Errorf("filters.date_range.end must not be before start")
	}

	return nil
}

func validateDownload(cfg *types.Config) error {
	if cfg.Download.BaseFolder == "" {
		return fmt.Errorf("download.base_folder is required")
	}

	if len(cfg.Download.AllowedExtensions) == 0 {
		return fmt.Errorf("download.allowed_extensions must not be empty")
	}

	for _, ext := range cfg.Download.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("download.allowed_extensions: extension %q must start with dot", ext)
		}
	}

	if cfg.Download.MaxSize <= 0 {
		return fmt.Errorf("download.max_size must be positive")
	}

	switch cfg.Download.FolderStructure.DateLayout {
	case "", "flat", "nested":
		// Valid layouts
	default:
		return fmt.Errorf("download.folder_structure.date_layout must be 'flat' or 'nested'")
	}

	switch cfg.Download.Storage.Type {
	case "", "file", "gdrive":
		// Valid storage backends
	default:
		return fmt.Errorf("download.storage.type must be 'file' or 'gdrive'")
	}

	if cfg.Download.Storage.Type == "gdrive" && cfg.Download.Storage.CredentialsFile == "" {
		return fmt.Errorf("download.storage.credentials_file is required when storage type is 'gdrive'")
	}

	return nil
}

func validateLogging(cfg *types.Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"dev":  true,
	}

	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: text, json, dev")
	}

	return nil
}

func validateScheduling(cfg *types.Config) error {
	if !cfg.Scheduling.Enabled {
		return nil // Skip validation if scheduling is disabled
	}

	validFrequencies := map[string]bool{
		"minute": true,
		"hour":   true,
		"day":    true,
		"week":   true,
		"month":  true,
	}

	if !validFrequencies[cfg.Scheduling.FrequencyEvery] {
		return fmt.Errorf("scheduling.frequency_every must be one of: minute, hour, day, week, month")
	}

	if cfg.Scheduling.FrequencyAmount < 1 {
		return fmt.Errorf("scheduling.frequency_amount must be greater than 0")
	}

	if !cfg.Scheduling.StartNow {
		if cfg.Scheduling.StartAt == "" {
			return fmt.Errorf("scheduling.start_at is required when start_now is false")
		}
		if _, err := time.Parse(time.RFC3339, cfg.Scheduling.StartAt); err != nil {
			return fmt.Errorf("scheduling.start_at must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}
	}

	if cfg.Scheduling.StopAt != "" {
		stopAt, err := time.Parse(time.RFC3339, cfg.Scheduling.StopAt)
		if err != nil {
			return fmt.Errorf("scheduling.stop_at must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}

		if cfg.Scheduling.StartAt != "" {
			startAt, _ := time.Parse(time.RFC3339, cfg.Scheduling.StartAt)
			if stopAt.Before(startAt) {
				return fmt.Errorf("scheduling.stop_at must be after start_at")
			}
		}

		if cfg.Scheduling.StartNow {
			if stopAt.Before(time.Now().UTC()) {
				return fmt.Errorf("scheduling.stop_at must be in the future when start_now is true")
			}
		}
	}

	return nil
}

func isValidID(id string) bool {
	for _, r := range id {
		if !isValidIDChar(r) {
			return false
		}
	}
	return true
}

func isValidIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' ||
		r == '_'
}
