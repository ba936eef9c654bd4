package errorlog

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferralda/mailsift/internal/types"
)

func enabledConfig(t *testing.T) *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = "clinic-inbox"
	cfg.ErrorLogging.Enabled = true
	cfg.ErrorLogging.StoragePath = t.TempDir()
	return cfg
}

func TestManagerDisabledIsNoop(t *testing.T) {
	cfg := &types.Config{}
	cfg.Meta.ID = "clinic-inbox"

	m, err := NewManager(cfg, slog.Default())
	require.NoError(t, err)

	require.NoError(t, m.LogError(MessageError{ErrorType: "fetch", ErrorMsg: "boom"}))
	errors, err := m.GetErrors(nil)
	require.NoError(t, err)
	assert.Empty(t, errors)
}

func TestFileLoggerRoundTrip(t *testing.T) {
	m, err := NewManager(enabledConfig(t), slog.Default())
	require.NoError(t, err)

	require.NoError(t, m.LogError(MessageError{
		MessageID: "17",
		Sender:    "dra.gomez@clinic.example",
		Subject:   "Radiografía",
		ErrorType: "parse",
		ErrorMsg:  "malformed mime",
	}))
	require.NoError(t, m.LogError(MessageError{
		MessageID: "18",
		ErrorType: "fetch",
		ErrorMsg:  "connection reset",
	}))

	all, err := m.GetErrors(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// IDs and timestamps are filled in automatically.
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].ErrorTime.IsZero())
	assert.Equal(t, "clinic-inbox", all[0].ConfigID)

	filtered, err := m.GetErrors(map[string]string{"error_type": "fetch"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "18", filtered[0].MessageID)
}

func TestDateFromFilename(t *testing.T) {
	assert.Equal(t,
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		dateFromFilename("errors_clinic-inbox_2024-01-15.json"))
	assert.True(t, dateFromFilename("notes.json").IsZero())
}
