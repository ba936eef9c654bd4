package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferralda/mailsift/internal/types"
)

func validConfig() *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = "clinic-inbox"
	cfg.Meta.Name = "Clinic Inbox"
	cfg.Mailbox.Protocol = "imap"
	cfg.Mailbox.Server = "imap.example.com"
	cfg.Mailbox.Port = 993
	cfg.Mailbox.Username = "clinic@example.com"
	cfg.Mailbox.Password = "secret"
	cfg.Mailbox.Timeout = 30
	cfg.Download.BaseFolder = "/tmp/downloads"
	cfg.Download.AllowedExtensions = []string{".jpg", ".pdf", ".dcm"}
	cfg.Download.MaxSize = 25 * 1024 * 1024
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

func TestValidateConfigOK(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateMeta(t *testing.T) {
	cfg := validConfig()
	cfg.Meta.ID = ""
	assert.ErrorContains(t, ValidateConfig(cfg), "meta.id is required")

	cfg = validConfig()
	cfg.Meta.ID = "bad id!"
	assert.ErrorContains(t, ValidateConfig(cfg), "invalid characters")
}

func TestValidateMailbox(t *testing.T) {
	cfg := validConfig()
	cfg.Mailbox.Protocol = "smtp"
	assert.ErrorContains(t, ValidateConfig(cfg), "mailbox.protocol")

	cfg = validConfig()
	cfg.Mailbox.Port = 70000
	assert.ErrorContains(t, ValidateConfig(cfg), "mailbox.port")

	cfg = validConfig()
	cfg.Mailbox.Password = ""
	assert.ErrorContains(t, ValidateConfig(cfg), "mailbox.password")
}

func TestValidateDateRange(t *testing.T) {
	cfg := validConfig()
	cfg.Filters.DateRange.Enabled = true
	cfg.Filters.DateRange.Start = "2024-01-01"
	cfg.Filters.DateRange.End = "2024-01-31"
	require.NoError(t, ValidateConfig(cfg))

	cfg.Filters.DateRange.End = "31/01/2024"
	assert.ErrorContains(t, ValidateConfig(cfg), "YYYY-MM-DD")

	cfg.Filters.DateRange.End = "2023-12-01"
	assert.ErrorContains(t, ValidateConfig(cfg), "must not be before start")
}

func TestValidateDownload(t *testing.T) {
	cfg := validConfig()
	cfg.Download.AllowedExtensions = []string{"jpg"}
	assert.ErrorContains(t, ValidateConfig(cfg), "must start with dot")

	cfg = validConfig()
	cfg.Download.Storage.Type = "s3"
	assert.ErrorContains(t, ValidateConfig(cfg), "download.storage.type")

	cfg = validConfig()
	cfg.Download.Storage.Type = "gdrive"
	assert.ErrorContains(t, ValidateConfig(cfg), "credentials_file")
}

func TestValidateScheduling(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduling.Enabled = true
	cfg.Scheduling.FrequencyEvery = "fortnight"
	cfg.Scheduling.FrequencyAmount = 1
	cfg.Scheduling.StartNow = true
	assert.ErrorContains(t, ValidateConfig(cfg), "frequency_every")

	cfg.Scheduling.FrequencyEvery = "hour"
	require.NoError(t, ValidateConfig(cfg))

	cfg.Scheduling.StartNow = false
	cfg.Scheduling.StartAt = "not-a-time"
	assert.ErrorContains(t, ValidateConfig(cfg), "RFC3339")
}
