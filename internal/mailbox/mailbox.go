// Package mailbox abstracts message retrieval over IMAP and POP3.
package mailbox

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ferralda/mailsift/internal/types"
)

// Criteria narrows the server-side message search. Backends that cannot
// search (POP3) return every message and leave narrowing to the caller.
type Criteria struct {
	Since   time.Time // inclusive lower bound, zero to skip
	Before  time.Time // inclusive upper bound, zero to skip
	Senders []string  // sender addresses, results are unioned
}

// Client is a connected mailbox session.
type Client interface {
	Connect() error
	SelectFolder(name string) error
	Search(crit Criteria) ([]uint32, error)
	Fetch(id uint32) ([]byte, error)
	MarkSeen(id uint32) error
	Close() error
}

// New creates a mailbox client for the configured protocol.
func New(cfg *types.Config, logger *slog.Logger) (Client, error) {
	switch cfg.Mailbox.Protocol {
	case "imap":
		return NewIMAPClient(cfg, logger), nil
	case "pop3":
		return NewPOP3Client(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported mailbox protocol: %s", cfg.Mailbox.Protocol)
	}
}
