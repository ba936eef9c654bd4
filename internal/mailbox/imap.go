package mailbox

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/ferralda/mailsift/internal/types"
)

// IMAPClient implements Client over IMAP.
type IMAPClient struct {
	cfg    *types.Config
	logger *slog.Logger
	conn   *client.Client
}

func NewIMAPClient(cfg *types.Config, logger *slog.Logger) *IMAPClient {
	return &IMAPClient{
		cfg:    cfg,
		logger: logger,
	}
}

// Connect dials the server, negotiating TLS either implicitly on the TLS
// port or via STARTTLS, and logs in.
func (ic *IMAPClient) Connect() error {
	addr := fmt.Sprintf("%s:%d", ic.cfg.Mailbox.Server, ic.cfg.Mailbox.Port)

	tlsConfig := &tls.Config{
		ServerName:         ic.cfg.Mailbox.Server,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !ic.cfg.Mailbox.TLS.VerifyCert,
	}

	var (
		c   *client.Client
		err error
	)

	if ic.cfg.Mailbox.TLS.Enabled && ic.cfg.Mailbox.Port == 993 {
		c, err = client.DialTLS(addr, tlsConfig)
	} else {
		c, err = client.Dial(addr)
		if err == nil && ic.cfg.Mailbox.TLS.Enabled {
			if startErr := c.StartTLS(tlsConfig); startErr != nil {
				c.Close()
				return fmt.Errorf("STARTTLS failed: %w", startErr)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.Timeout = time.Duration(ic.cfg.Mailbox.Timeout) * time.Second

	if err := c.Login(ic.cfg.Mailbox.Username, ic.cfg.Mailbox.Password); err != nil {
		c.Close()
		return fmt.Errorf("login failed for %s: %w", ic.cfg.Mailbox.Username, err)
	}

	ic.logger.Debug("connected to IMAP server",
		"server", ic.cfg.Mailbox.Server,
		"username", ic.cfg.Mailbox.Username,
	)

	ic.conn = c
	return nil
}

func (ic *IMAPClient) SelectFolder(name string) error {
	if name == "" {
		name = "INBOX"
	}

	mbox, err := ic.conn.Select(name, false)
	if err != nil {
		return fmt.Errorf("failed to select folder %s: %w", name, err)
	}

	ic.logger.Debug("selected folder",
		"folder", name,
		"messages", mbox.Messages,
	)
	return nil
}

// Search runs a server-side search. Multiple senders become separate FROM
// searches whose results are unioned. The before bound is inclusive by
// calendar date, so the server query extends it by one day.
func (ic *IMAPClient) Search(crit Criteria) ([]uint32, error) {
	base := &imap.SearchCriteria{}
	if !crit.Since.IsZero() {
		base.Since = crit.Since
	}
	if !crit.Before.IsZero() {
		base.Before = crit.Before.AddDate(0, 0, 1)
	}

	if len(crit.Senders) == 0 {
		ids, err := ic.conn.Search(base)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		return ids, nil
	}

	seen := make(map[uint32]bool)
	for _, sender := range crit.Senders {
		sc := *base
		sc.Header = textproto.MIMEHeader{"From": {sender}}

		ids, err := ic.conn.Search(&sc)
		if err != nil {
			return nil, fmt.Errorf("search for sender %s failed: %w", sender, err)
		}
		for _, id := range ids {
			seen[id] = true
		}
	}

	ids := make([]uint32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Fetch downloads the full raw message for one sequence number.
func (ic *IMAPClient) Fetch(id uint32) ([]byte, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(id)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- ic.conn.Fetch(seqSet, []imap.FetchItem{imap.FetchRFC822}, messages)
	}()

	var raw []byte
	for msg := range messages {
		for _, literal := range msg.Body {
			data, err := io.ReadAll(literal)
			if err != nil {
				return nil, fmt.Errorf("failed to read message %d body: %w", id, err)
			}
			raw = data
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", id, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("message %d has no content", id)
	}
	return raw, nil
}

func (ic *IMAPClient) MarkSeen(id uint32) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(id)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := ic.conn.Store(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark message %d as seen: %w", id, err)
	}
	return nil
}

func (ic *IMAPClient) Close() error {
	if ic.conn == nil {
		return nil
	}
	if err := ic.conn.Logout(); err != nil {
		ic.conn.Close()
		return fmt.Errorf("logout failed: %w", err)
	}
	ic.conn = nil
	return nil
}
