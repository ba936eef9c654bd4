package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ferralda/mailsift/internal/textutil"
)

// DefaultNamingPattern is used when the configuration leaves the pattern empty.
const DefaultNamingPattern = "{date}_{sender}_{subject}_{index}_{original_name}"

const filenameDateLayout = "20060102_150405"

// NamingContext carries the message fields a filename is generated from.
type NamingContext struct {
	Date         time.Time
	Sender       string // sender address, e.g. dra.gomez@clinic.example
	Subject      string
	Index        int // position of the file within the message
	OriginalName string
	Extension    string // resolved extension, dot-prefixed
}

// GenerateFilename renders the naming pattern for one file and guarantees
// the resolved extension suffix.
func GenerateFilename(pattern string, nc NamingContext) string {
	if pattern == "" {
		pattern = DefaultNamingPattern
	}

	original := nc.OriginalName
	if original == "" {
		original = "file"
	}
	original = textutil.SanitizeFilename(strings.TrimSuffix(original, filepath.Ext(original)))

	replacements := map[string]string{
		"{date}":          nc.Date.Format(filenameDateLayout),
		"{sender}":        SenderFolder(nc.Sender),
		"{subject}":       textutil.SanitizeFragment(nc.Subject),
		"{index}":         fmt.Sprintf("%03d", nc.Index),
		"{original_name}": original,
	}

	name := pattern
	for token, value := range replacements {
		name = strings.ReplaceAll(name, token, value)
	}

	name = textutil.SanitizeFilename(name)
	if !strings.HasSuffix(strings.ToLower(name), nc.Extension) {
		name += nc.Extension
	}
	return name
}

// FolderOptions controls the destination directory layout under the root.
type FolderOptions struct {
	ByDate     bool
	DateLayout string // "flat" (2006-01-02) or "nested" (2006/01/02)
	BySender   bool
	BySubject  bool
}

// DestinationDir builds the relative destination directory for a message.
// With no options enabled everything lands in the root.
func DestinationDir(opts FolderOptions, date time.Time, sender, subject string) string {
	var segments []string

	if opts.ByDate {
		layout := "2006-01-02"
		if opts.DateLayout == "nested" {
			layout = "2006/01/02"
		}
		segments = append(segments, date.Format(layout))
	}

	if opts.BySender {
		segments = append(segments, SenderFolder(sender))
	}

	if opts.BySubject {
		if frag := textutil.SanitizeFragment(subject); frag != "" {
			segments = append(segments, frag)
		}
	}

	return filepath.Join(segments...)
}

// SenderFolder extracts the sanitized local part of a sender address. Full
// "Name <addr>" headers and bare addresses are both accepted.
func SenderFolder(sender string) string {
	addr := sender
	if start := strings.LastIndex(addr, "<"); start >= 0 {
		if end := strings.Index(addr[start:], ">"); end > 0 {
			addr = addr[start+1 : start+end]
		}
	}
	if at := strings.Index(addr, "@"); at >= 0 {
		addr = addr[:at]
	}

	local := textutil.SanitizeFilename(strings.TrimSpace(addr))
	if local == "" {
		return "unknown"
	}
	return local
}
