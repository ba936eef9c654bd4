package mailbox

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferralda/mailsift/internal/types"
)

func TestNewSelectsProtocol(t *testing.T) {
	cfg := &types.Config{}
	cfg.Mailbox.Protocol = "imap"
	c, err := New(cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &IMAPClient{}, c)

	cfg.Mailbox.Protocol = "pop3"
	c, err = New(cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &POP3Client{}, c)

	cfg.Mailbox.Protocol = "exchange"
	_, err = New(cfg, slog.Default())
	assert.ErrorContains(t, err, "unsupported mailbox protocol")
}

func TestCloseWithoutConnect(t *testing.T) {
	cfg := &types.Config{}
	assert.NoError(t, NewIMAPClient(cfg, slog.Default()).Close())
	assert.NoError(t, NewPOP3Client(cfg, slog.Default()).Close())
}
