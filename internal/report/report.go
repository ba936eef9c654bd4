// Package report accumulates per-message processing outcomes and renders
// the run's CSV audit file.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Status is the final processing state of one message.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDownloaded Status = "DOWNLOADED"
	StatusNoFiles    Status = "NO_FILES"
	StatusRejected   Status = "REJECTED"
	StatusError      Status = "ERROR"
)

// Row is one message's entry in the audit report.
type Row struct {
	EmailID          string
	Date             time.Time
	Sender           string
	Subject          string
	TotalAttachments int
	AttachmentTypes  string
	Status           Status
	FilesDownloaded  []string
	RejectionReason  string
	DownloadPath     string
}

// Report collects rows for one run. Every discovered message gets a row,
// whatever its outcome. Safe for concurrent use.
type Report struct {
	mu   sync.Mutex
	rows []*Row
}

func New() *Report {
	return &Report{}
}

// Append adds a row and returns it for later updates.
func (r *Report) Append(row Row) *Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := row
	if added.Status == "" {
		added.Status = StatusPending
	}
	r.rows = append(r.rows, &added)
	return &added
}

// Rows returns the accumulated rows in append order.
func (r *Report) Rows() []*Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Row, len(r.rows))
	copy(out, r.rows)
	return out
}

var csvHeader = []string{
	"email_id",
	"date",
	"sender",
	"subject",
	"total_attachments",
	"attachment_types",
	"status",
	"files_downloaded",
	"rejection_reason",
	"download_path",
}

// WriteCSV writes the report into outputDir with a timestamped name and
// returns the file path.
func (r *Report) WriteCSV(outputDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("report_%s.csv", now.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range r.Rows() {
		date := ""
		if !row.Date.IsZero() {
			date = row.Date.Format("2006-01-02 15:04:05")
		}

		record := []string{
			row.EmailID,
			date,
			row.Sender,
			row.Subject,
			strconv.Itoa(row.TotalAttachments),
			row.AttachmentTypes,
			string(row.Status),
			strings.Join(row.FilesDownloaded, "; "),
			row.RejectionReason,
			row.DownloadPath,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}
	return path, nil
}
