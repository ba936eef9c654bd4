package mailbox

import (
	"fmt"
	"log/slog"

	"github.com/knadh/go-pop3"

	"github.com/ferralda/mailsift/internal/types"
)

// POP3Client implements Client over POP3. The protocol has no server-side
// search and no folders, so Search lists the whole maildrop and filtering
// happens downstream; MarkSeen is a no-op.
type POP3Client struct {
	cfg    *types.Config
	logger *slog.Logger
	conn   *pop3.Conn
}

func NewPOP3Client(cfg *types.Config, logger *slog.Logger) *POP3Client {
	return &POP3Client{
		cfg:    cfg,
		logger: logger,
	}
}

func (pc *POP3Client) Connect() error {
	p := pop3.New(pop3.Opt{
		Host:          pc.cfg.Mailbox.Server,
		Port:          pc.cfg.Mailbox.Port,
		TLSEnabled:    pc.cfg.Mailbox.TLS.Enabled,
		TLSSkipVerify: !pc.cfg.Mailbox.TLS.VerifyCert,
	})

	conn, err := p.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", pc.cfg.Mailbox.Server, pc.cfg.Mailbox.Port, err)
	}

	if err := conn.Auth(pc.cfg.Mailbox.Username, pc.cfg.Mailbox.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("authentication failed for %s: %w", pc.cfg.Mailbox.Username, err)
	}

	count, size, err := conn.Stat()
	if err != nil {
		conn.Quit()
		return fmt.Errorf("failed to stat maildrop: %w", err)
	}

	pc.logger.Debug("connected to POP3 server",
		"server", pc.cfg.Mailbox.Server,
		"messages", count,
		"size", size,
	)

	pc.conn = conn
	return nil
}

// SelectFolder is a no-op; POP3 exposes a single maildrop.
func (pc *POP3Client) SelectFolder(string) error {
	return nil
}

// Search lists every message in the maildrop. Criteria are applied
// client-side by the caller.
func (pc *POP3Client) Search(Criteria) ([]uint32, error) {
	msgs, err := pc.conn.List(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, uint32(m.ID))
	}
	return ids, nil
}

func (pc *POP3Client) Fetch(id uint32) ([]byte, error) {
	buf, err := pc.conn.RetrRaw(int(id))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve message %d: %w", id, err)
	}
	return buf.Bytes(), nil
}

// MarkSeen is a no-op; POP3 has no message flags.
func (pc *POP3Client) MarkSeen(uint32) error {
	return nil
}

func (pc *POP3Client) Close() error {
	if pc.conn == nil {
		return nil
	}
	if err := pc.conn.Quit(); err != nil {
		return fmt.Errorf("failed to close POP3 connection: %w", err)
	}
	pc.conn = nil
	return nil
}
