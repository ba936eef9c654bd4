package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferralda/mailsift/internal/types"
)

const templateYAML = `mailbox:
  protocol: imap
  port: 993
  folder: INBOX
  tls:
    enabled: true
    verify_cert: true
download:
  allowed_extensions: [".jpg", ".pdf"]
  max_size: 10485760
logging:
  level: info
  format: text
`

func accountYAML(downloadDir string) string {
	return fmt.Sprintf(`meta:
  id: clinic-main
  name: Main clinic account
  enabled: true
  template: imap-defaults
mailbox:
  server: mail.example.com
  username: scans@example.com
  password: ${MAILSIFT_TEST_PASSWORD}
download:
  base_folder: %s
`, downloadDir)
}

func TestLoadConfigsAppliesTemplate(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "downloads")

	templatesDir := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(templatesDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(templatesDir, "imap-defaults.yaml"),
		[]byte(templateYAML), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "clinic.config.yaml"),
		[]byte(accountYAML(downloads)), 0644))

	t.Setenv("MAILSIFT_TEST_PASSWORD", "s3cret")
	require.NoError(t, LoadConfigs(dir))

	cfg, err := GetConfig("clinic-main")
	require.NoError(t, err)

	// Values from the account file, with the env var expanded
	assert.Equal(t, "mail.example.com", cfg.Mailbox.Server)
	assert.Equal(t, "s3cret", cfg.Mailbox.Password)

	// Values filled in by the template
	assert.Equal(t, "imap", cfg.Mailbox.Protocol)
	assert.Equal(t, 993, cfg.Mailbox.Port)
	assert.Equal(t, []string{".jpg", ".pdf"}, cfg.Download.AllowedExtensions)

	// The download root was created
	info, err := os.Stat(downloads)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestApplyTemplateKeepsExplicitValues(t *testing.T) {
	tpl := &types.Config{}
	tpl.Mailbox.Port = 993
	tpl.Logging.Level = "info"
	templates = map[string]*types.Config{"defaults": tpl}

	cfg := &types.Config{}
	cfg.Mailbox.Port = 995
	require.NoError(t, ApplyTemplate(cfg, "defaults"))

	assert.Equal(t, 995, cfg.Mailbox.Port)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.Error(t, ApplyTemplate(cfg, "missing"))
}

func TestIsConfigEvent(t *testing.T) {
	write := func(name string) fsnotify.Event {
		return fsnotify.Event{Name: name, Op: fsnotify.Write}
	}

	assert.True(t, isConfigEvent(write("config/clinic.config.yaml")))
	assert.True(t, isConfigEvent(write("config/templates/imap-defaults.yaml")))

	// Plain yaml outside templates/, editor temp files, other ops
	assert.False(t, isConfigEvent(write("config/notes.yaml")))
	assert.False(t, isConfigEvent(write("config/.clinic.config.yaml.swp")))
	assert.False(t, isConfigEvent(fsnotify.Event{
		Name: "config/clinic.config.yaml",
		Op:   fsnotify.Chmod,
	}))
}
