package run

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferralda/mailsift/internal/errorlog"
	"github.com/ferralda/mailsift/internal/mailbox"
	"github.com/ferralda/mailsift/internal/remote"
	"github.com/ferralda/mailsift/internal/storage"
	"github.com/ferralda/mailsift/internal/types"
)

// mockMailbox is an in-memory mailbox.Client.
type mockMailbox struct {
	messages map[uint32][]byte
	ids      []uint32
	seen     []uint32
	fetchErr map[uint32]error
	searches []mailbox.Criteria
}

func (m *mockMailbox) Connect() error            { return nil }
func (m *mockMailbox) SelectFolder(string) error { return nil }
func (m *mockMailbox) Close() error              { return nil }

func (m *mockMailbox) Search(crit mailbox.Criteria) ([]uint32, error) {
	m.searches = append(m.searches, crit)
	return m.ids, nil
}

func (m *mockMailbox) Fetch(id uint32) ([]byte, error) {
	if err, ok := m.fetchErr[id]; ok {
		return nil, err
	}
	return m.messages[id], nil
}

func (m *mockMailbox) MarkSeen(id uint32) error {
	m.seen = append(m.seen, id)
	return nil
}

type captureSink struct {
	records []errorlog.MessageError
}

func (c *captureSink) LogError(err errorlog.MessageError) error {
	c.records = append(c.records, err)
	return nil
}

type stubFetcher struct {
	files map[string]*remote.File
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*remote.File, error) {
	if f, ok := s.files[url]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("fetch %s: unexpected status 404", url)
}

func rawMessage(from, subject, date string, attachments ...string) []byte {
	msg := "From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: " + date + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"b\"\r\n" +
		"\r\n" +
		"--b\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"see attached\r\n"

	for i, content := range attachments {
		msg += "--b\r\n" +
			fmt.Sprintf("Content-Type: image/jpeg; name=\"scan%d.jpg\"\r\n", i+1) +
			fmt.Sprintf("Content-Disposition: attachment; filename=\"scan%d.jpg\"\r\n", i+1) +
			"\r\n" +
			content + "\r\n"
	}
	return []byte(msg + "--b--\r\n")
}

func rawHTMLMessage(from, subject, date, html string) []byte {
	return []byte("From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: " + date + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		html + "\r\n")
}

func testRunner(t *testing.T, mb *mockMailbox) (*Runner, *captureSink) {
	cfg := &types.Config{}
	cfg.Meta.ID = "clinic-inbox"
	cfg.Mailbox.Protocol = "imap"
	cfg.Download.BaseFolder = t.TempDir()
	cfg.Download.AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".pdf"}
	cfg.Download.RenameFiles = false
	cfg.Processing.MarkSeen = true
	cfg.Report.OutputDir = t.TempDir()

	sink := &captureSink{}
	logger := slog.Default()

	return &Runner{
		Cfg:      cfg,
		Logger:   logger,
		Mailbox:  mb,
		Writer:   storage.NewFileWriter(cfg.Download.BaseFolder, 0, logger),
		Resolver: &stubFetcher{},
		Errors:   sink,
		Sleep:    func(time.Duration) {},
	}, sink
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunDownloadsAttachments(t *testing.T) {
	mb := &mockMailbox{
		ids: []uint32{1},
		messages: map[uint32][]byte{
			1: rawMessage("dra.gomez@clinic.example", "Radiografia", "Mon, 15 Jan 2024 10:30:00 +0000", "payload-one", "payload-two"),
		},
	}
	r, _ := testRunner(t, mb)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MessagesDiscovered)
	assert.Equal(t, 1, summary.MessagesAccepted)
	assert.Equal(t, 2, summary.FilesStored)
	assert.Equal(t, []uint32{1}, mb.seen)

	// Files land under the base folder with their original names.
	assert.FileExists(t, filepath.Join(r.Cfg.Download.BaseFolder, "scan1.jpg"))
	assert.FileExists(t, filepath.Join(r.Cfg.Download.BaseFolder, "scan2.jpg"))

	records := readReport(t, summary.ReportPath)
	require.Len(t, records, 2)
	assert.Equal(t, "DOWNLOADED", records[1][6])
	assert.Equal(t, "scan1.jpg; scan2.jpg", records[1][7])
}

func TestRunRejectsAndReportsEveryMessage(t *testing.T) {
	mb := &mockMailbox{
		ids: []uint32{1, 2},
		messages: map[uint32][]byte{
			1: rawMessage("dra.gomez@clinic.example", "Radiografia", "Mon, 15 Jan 2024 10:30:00 +0000", "payload"),
			2: rawHTMLMessage("spam@other.example", "lunch", "Mon, 15 Jan 2024 11:00:00 +0000", "<p>no files</p>"),
		},
	}
	r, _ := testRunner(t, mb)
	r.Cfg.Filters.Senders = []string{"clinic.example"}

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.MessagesProcessed)
	assert.Equal(t, 1, summary.MessagesAccepted)
	assert.Equal(t, 1, summary.MessagesRejected)

	records := readReport(t, summary.ReportPath)
	require.Len(t, records, 3)
	assert.Equal(t, "DOWNLOADED", records[1][6])
	assert.Equal(t, "REJECTED", records[2][6])
	assert.Contains(t, records[2][8], "sender not in configured list")
	assert.Contains(t, records[2][8], "no attachments found")

	// Rejected messages are not marked seen.
	assert.Equal(t, []uint32{1}, mb.seen)
}

func TestRunFetchErrorIsRecoverable(t *testing.T) {
	mb := &mockMailbox{
		ids: []uint32{1, 2},
		messages: map[uint32][]byte{
			2: rawMessage("a@b.example", "ok", "Mon, 15 Jan 2024 10:30:00 +0000", "payload"),
		},
		fetchErr: map[uint32]error{1: fmt.Errorf("connection reset")},
	}
	r, sink := testRunner(t, mb)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.MessagesAccepted)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "fetch", sink.records[0].ErrorType)
	assert.Equal(t, "1", sink.records[0].MessageID)

	records := readReport(t, summary.ReportPath)
	require.Len(t, records, 3)
	assert.Equal(t, "ERROR", records[1][6])
	assert.Equal(t, "DOWNLOADED", records[2][6])
}

func TestRunSkipsDuplicateContentSameDay(t *testing.T) {
	mb := &mockMailbox{
		ids: []uint32{1, 2},
		messages: map[uint32][]byte{
			1: rawMessage("a@b.example", "first", "Mon, 15 Jan 2024 10:30:00 +0000", "same-bytes"),
			2: rawMessage("a@b.example", "second", "Mon, 15 Jan 2024 12:00:00 +0000", "same-bytes"),
		},
	}
	r, _ := testRunner(t, mb)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesStored)
	assert.Equal(t, 1, summary.DuplicatesSkipped)

	records := readReport(t, summary.ReportPath)
	assert.Equal(t, "DOWNLOADED", records[1][6])
	assert.Equal(t, "NO_FILES", records[2][6])
}

func TestRunMaxMessagesTruncatesInDiscoveryOrder(t *testing.T) {
	mb := &mockMailbox{ids: []uint32{1, 2, 3}}
	mb.messages = map[uint32][]byte{
		1: rawMessage("a@b.example", "one", "Mon, 15 Jan 2024 10:00:00 +0000", "c1"),
		2: rawMessage("a@b.example", "two", "Mon, 15 Jan 2024 11:00:00 +0000", "c2"),
		3: rawMessage("a@b.example", "three", "Mon, 15 Jan 2024 12:00:00 +0000", "c3"),
	}
	r, _ := testRunner(t, mb)
	r.Cfg.Processing.MaxMessages = 2

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.MessagesDiscovered)
	assert.Equal(t, 2, summary.MessagesProcessed)

	records := readReport(t, summary.ReportPath)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[2][0])
}

func TestRunFollowsLinks(t *testing.T) {
	html := `<p>scan at https://files.example.com/scans/panoramic.jpg</p>`
	mb := &mockMailbox{
		ids: []uint32{1},
		messages: map[uint32][]byte{
			1: rawHTMLMessage("a@b.example", "linked scan", "Mon, 15 Jan 2024 10:30:00 +0000", html),
		},
	}
	r, _ := testRunner(t, mb)
	r.Cfg.Download.FollowLinks = true
	r.Resolver = &stubFetcher{files: map[string]*remote.File{
		"https://files.example.com/scans/panoramic.jpg": {
			Filename:  "panoramic.jpg",
			Extension: ".jpg",
			Content:   []byte("remote-bytes"),
		},
	}}

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MessagesAccepted)
	assert.Equal(t, 1, summary.FilesStored)
	assert.FileExists(t, filepath.Join(r.Cfg.Download.BaseFolder, "panoramic.jpg"))
}

func TestRunUnreachableLinkYieldsNoFiles(t *testing.T) {
	html := `<p>gone: https://files.example.com/missing.jpg</p>`
	mb := &mockMailbox{
		ids: []uint32{1},
		messages: map[uint32][]byte{
			1: rawHTMLMessage("a@b.example", "dead link", "Mon, 15 Jan 2024 10:30:00 +0000", html),
		},
	}
	r, _ := testRunner(t, mb)
	r.Cfg.Download.FollowLinks = true

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	// The link made the message pass the attachment check, but nothing
	// could be stored.
	assert.Equal(t, 1, summary.MessagesAccepted)
	assert.Equal(t, 0, summary.FilesStored)

	records := readReport(t, summary.ReportPath)
	assert.Equal(t, "NO_FILES", records[1][6])
}

func TestRunRenameFilesUsesPattern(t *testing.T) {
	mb := &mockMailbox{
		ids: []uint32{1},
		messages: map[uint32][]byte{
			1: rawMessage("dra.gomez@clinic.example", "Radiografia", "Mon, 15 Jan 2024 10:30:00 +0000", "payload"),
		},
	}
	r, _ := testRunner(t, mb)
	r.Cfg.Download.RenameFiles = true

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.FilesStored)

	records := readReport(t, summary.ReportPath)
	name := records[1][7]
	assert.Contains(t, name, "20240115_103000")
	assert.Contains(t, name, "dra.gomez")
	assert.Contains(t, name, "001")
	assert.Contains(t, name, "scan1")
}

func TestRunPassesDateCriteriaToSearch(t *testing.T) {
	mb := &mockMailbox{}
	r, _ := testRunner(t, mb)
	r.Cfg.Filters.Senders = []string{"a@b.example"}
	r.Cfg.Filters.DateRange.Enabled = true
	r.Cfg.Filters.DateRange.Start = "2024-01-01"
	r.Cfg.Filters.DateRange.End = "2024-01-31"

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, mb.searches, 1)
	crit := mb.searches[0]
	assert.Equal(t, []string{"a@b.example"}, crit.Senders)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), crit.Since)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), crit.Before)
}
