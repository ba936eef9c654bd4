// Package classify decides which message parts carry retrievable files,
// resolving extensions from declared names, media types and content
// signatures, and scanning HTML bodies for embedded or linked files.
package classify

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ferralda/mailsift/internal/mailparse"
)

// Provenance records which detection strategy produced a candidate.
type Provenance string

const (
	ProvenanceDeclaredName Provenance = "declared-name" // extension from the declared filename
	ProvenanceContentKind  Provenance = "content-kind"  // extension from the declared media type
	ProvenanceMagicBytes   Provenance = "magic-bytes"   // extension from the content signature
	ProvenanceDisposition  Provenance = "disposition"   // attachment-disposition heuristic
	ProvenanceExternalLink Provenance = "external-link" // fetched from a URL in the body
)

// Candidate is a message part accepted for download.
type Candidate struct {
	Filename    string
	Extension   string
	ContentType string
	Provenance  Provenance
	Content     []byte
}

// Evidence is the classification outcome for one message. Candidates hold
// resolvable payloads; Links are external URLs to fetch; the counters record
// body references that prove attachment intent without carrying a payload.
type Evidence struct {
	Candidates []Candidate
	Links      []string
	InlineRefs int
	DataURIs   int
	ImageTags  int
}

// HasAttachments reports whether the message shows any attachment evidence,
// including body references whose payload is not directly retrievable.
func (e Evidence) HasAttachments() bool {
	return len(e.Candidates) > 0 ||
		len(e.Links) > 0 ||
		e.InlineRefs > 0 ||
		e.DataURIs > 0 ||
		e.ImageTags > 0
}

// contentKindExts maps declared media types to their candidate extensions,
// in preference order. Octet-stream payloads may be any of the common kinds
// and are resolved by signature or allowed-list order.
var contentKindExts = map[string][]string{
	"image/jpeg":               {".jpg", ".jpeg"},
	"image/jpg":                {".jpg", ".jpeg"},
	"image/png":                {".png"},
	"image/gif":                {".gif"},
	"image/bmp":                {".bmp"},
	"application/pdf":          {".pdf"},
	"application/dicom":        {".dcm"},
	"application/octet-stream": {".jpg", ".jpeg", ".png", ".pdf", ".dcm"},
}

type signature struct {
	prefix []byte
	ext    string
}

var signatures = []signature{
	{[]byte{0xFF, 0xD8, 0xFF}, ".jpg"},
	{[]byte{0x89, 'P', 'N', 'G'}, ".png"},
	{[]byte("%PDF"), ".pdf"},
	{[]byte("GIF8"), ".gif"},
	{[]byte("DICM"), ".dcm"},
}

// DetectSignature inspects leading bytes and returns the matching extension,
// or "" when the payload is too short or unrecognized. DICOM files carry
// their marker after a 128-byte preamble, so that offset is checked too.
func DetectSignature(content []byte) string {
	if len(content) < 10 {
		return ""
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(content, sig.prefix) {
			return sig.ext
		}
	}
	if len(content) >= 132 && bytes.Equal(content[128:132], []byte("DICM")) {
		return ".dcm"
	}
	return ""
}

var (
	dataURIPattern  = regexp.MustCompile(`src="data:image/(\w+);base64,([a-zA-Z0-9+/=]+)"`)
	fileLinkPattern = regexp.MustCompile(`https?://[^\s<>"']+\.(jpg|jpeg|png|gif|bmp|tiff|tif|webp|dcm|pdf)\b`)
	cidRefPattern   = regexp.MustCompile(`src=["']cid:([^"'\s]+)["']`)
	imgTagPattern   = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)
)

// Classify inspects every candidate part and the HTML body of a message and
// returns the attachment evidence. allowedExts is the lowercase dot-prefixed
// extension allow-list; parts whose extension cannot be resolved to an
// allowed one are dropped from Candidates but still count elsewhere.
func Classify(msg *mailparse.Message, allowedExts []string) Evidence {
	var ev Evidence

	for _, part := range msg.Parts {
		ext, prov, ok := ResolveExtension(part, allowedExts)
		if !ok {
			continue
		}

		ev.Candidates = append(ev.Candidates, Candidate{
			Filename:    part.Filename,
			Extension:   ext,
			ContentType: part.ContentType,
			Provenance:  prov,
			Content:     part.Content,
		})
	}

	scanHTML(msg.HTMLBody, &ev)
	return ev
}

func scanHTML(html string, ev *Evidence) {
	if html == "" {
		return
	}

	ev.DataURIs = len(dataURIPattern.FindAllString(html, -1))
	ev.InlineRefs = len(cidRefPattern.FindAllString(html, -1))

	seen := make(map[string]bool)
	for _, link := range fileLinkPattern.FindAllString(html, -1) {
		if !seen[link] {
			seen[link] = true
			ev.Links = append(ev.Links, link)
		}
	}

	for _, m := range imgTagPattern.FindAllStringSubmatch(html, -1) {
		src := m[1]
		if strings.HasPrefix(src, "cid:") || strings.HasPrefix(src, "data:") {
			continue
		}
		ev.ImageTags++
	}
}

// ResolveExtension determines the extension for a part, trying the declared
// filename first, then the declared media type, then content signatures,
// then a disposition heuristic for declared attachments. The first matching
// strategy fixes the provenance; the final return reports whether the
// resolved extension is in the allowed list.
func ResolveExtension(part mailparse.Part, allowedExts []string) (string, Provenance, bool) {
	if part.Filename != "" {
		ext := strings.ToLower(filepath.Ext(part.Filename))
		if extAllowed(ext, allowedExts) {
			return ext, ProvenanceDeclaredName, true
		}
	}

	if exts, ok := contentKindExts[part.ContentType]; ok {
		for _, ext := range exts {
			if extAllowed(ext, allowedExts) {
				return ext, ProvenanceContentKind, true
			}
		}
	}

	if ext := DetectSignature(part.Content); ext != "" {
		return ext, ProvenanceMagicBytes, extAllowed(ext, allowedExts)
	}

	if part.Disposition == "attachment" {
		ext := heuristicExtension(part.ContentType, allowedExts)
		return ext, ProvenanceDisposition, extAllowed(ext, allowedExts)
	}

	return "", "", false
}

func heuristicExtension(contentType string, allowedExts []string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		for _, ext := range allowedExts {
			if isImageExt(ext) {
				return ext
			}
		}
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	}
	return ".bin"
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp":
		return true
	}
	return false
}

func extAllowed(ext string, allowedExts []string) bool {
	for _, allowed := range allowedExts {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// Summarize counts the parts that look like attachments for reporting,
// regardless of extension filtering, and renders a compact type breakdown.
func Summarize(msg *mailparse.Message) (int, string) {
	counts := make(map[string]int)
	total := 0

	for _, part := range msg.Parts {
		if part.Filename == "" &&
			!strings.HasPrefix(part.ContentType, "image/") &&
			part.ContentType != "application/pdf" {
			continue
		}
		total++

		key := part.ContentType
		if part.Filename != "" {
			if ext := strings.ToLower(filepath.Ext(part.Filename)); ext != "" {
				key = strings.TrimPrefix(ext, ".")
			}
		}
		if key == "" {
			key = "unknown"
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}

	return total, strings.Join(parts, ";")
}
