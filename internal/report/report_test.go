package report

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndUpdate(t *testing.T) {
	r := New()

	row := r.Append(Row{EmailID: "42", Sender: "a@b.example"})
	assert.Equal(t, StatusPending, row.Status)

	row.Status = StatusDownloaded
	row.FilesDownloaded = []string{"scan.jpg"}

	rows := r.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, StatusDownloaded, rows[0].Status)
}

func TestWriteCSV(t *testing.T) {
	r := New()
	r.Append(Row{
		EmailID:          "1",
		Date:             time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Sender:           "dra.gomez@clinic.example",
		Subject:          "Radiografía, panorámica",
		TotalAttachments: 2,
		AttachmentTypes:  "jpg:2",
		Status:           StatusDownloaded,
		FilesDownloaded:  []string{"a.jpg", "b.jpg"},
		DownloadPath:     "/data/2024-01-15",
	})
	r.Append(Row{
		EmailID:         "2",
		Sender:          "spam@other.example",
		Status:          StatusRejected,
		RejectionReason: "sender not in configured list; no attachments found",
	})

	dir := t.TempDir()
	path, err := r.WriteCSV(dir, time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, path, "report_20240115_110000.csv")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "email_id", records[0][0])
	assert.Equal(t, "download_path", records[0][9])

	first := records[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "2024-01-15 10:30:00", first[1])
	assert.Equal(t, "Radiografía, panorámica", first[3])
	assert.Equal(t, "2", first[4])
	assert.Equal(t, "DOWNLOADED", first[6])
	assert.Equal(t, "a.jpg; b.jpg", first[7])

	second := records[2]
	assert.Equal(t, "REJECTED", second[6])
	assert.Equal(t, "", second[1])
	assert.Contains(t, second[8], "sender not in configured list")
}

func TestWriteCSVEmptyReportStillHasHeader(t *testing.T) {
	path, err := New().WriteCSV(t.TempDir(), time.Now())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
