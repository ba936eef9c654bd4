// Package remote downloads files referenced by URL in message bodies,
// translating Google Drive share links into direct downloads.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ferralda/mailsift/internal/classify"
	"github.com/ferralda/mailsift/internal/mailparse"
)

const (
	fetchTimeout = 30 * time.Second

	// Some hosts serve error pages to non-browser clients.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	driveFilePattern = regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)
	docsPattern      = regexp.MustCompile(`docs\.google\.com/(?:document|spreadsheets|presentation)/d/([a-zA-Z0-9_-]+)`)
	confirmPattern   = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
	dispositionName  = regexp.MustCompile(`filename="?([^";]+)"?`)
)

// File is a successfully fetched remote file.
type File struct {
	Filename  string
	Extension string
	Content   []byte
	SourceURL string
}

// Resolver fetches linked files over HTTP.
type Resolver struct {
	client      *http.Client
	allowedExts []string
	maxSize     int64
	logger      *slog.Logger
}

func NewResolver(allowedExts []string, maxSize int64, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:      &http.Client{Timeout: fetchTimeout},
		allowedExts: allowedExts,
		maxSize:     maxSize,
		logger:      logger,
	}
}

// NormalizeDriveURL rewrites Google Drive and Docs share links into direct
// download URLs. Other URLs pass through unchanged.
func NormalizeDriveURL(rawURL string) string {
	if m := driveFilePattern.FindStringSubmatch(rawURL); m != nil {
		return fmt.Sprintf("https://drive.google.com/uc?id=%s&export=download", m[1])
	}
	if m := docsPattern.FindStringSubmatch(rawURL); m != nil {
		return fmt.Sprintf("https://drive.google.com/uc?id=%s&export=download", m[1])
	}
	return rawURL
}

// ExtractDriveLinks finds Drive and Docs share links in a body and returns
// them already normalized to direct download form, deduplicated.
func ExtractDriveLinks(text string) []string {
	var links []string
	seen := make(map[string]bool)

	for _, pattern := range []*regexp.Regexp{driveFilePattern, docsPattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			link := fmt.Sprintf("https://drive.google.com/uc?id=%s&export=download", m[1])
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	}
	return links
}

// Fetch downloads a single linked file. Drive links get one retry with the
// confirmation token when the first response is the virus-scan interstitial.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*File, error) {
	target := NormalizeDriveURL(rawURL)

	body, header, err := r.get(ctx, target)
	if err != nil {
		return nil, err
	}

	// Drive answers large files with an HTML page carrying a confirm token.
	if isHTMLInterstitial(header, body) {
		token := confirmPattern.FindSubmatch(body)
		if token == nil {
			return nil, fmt.Errorf("fetch %s: got HTML page instead of file content", rawURL)
		}
		retry := target + "&confirm=" + string(token[1])
		r.logger.Debug("retrying download with confirmation token", "url", rawURL)
		body, header, err = r.get(ctx, retry)
		if err != nil {
			return nil, err
		}
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty response body", rawURL)
	}

	filename := resolveFilename(header, target)
	contentType := normalizeMediaType(header.Get("Content-Type"))

	ext, _, ok := classify.ResolveExtension(mailparse.Part{
		Filename:    filename,
		ContentType: contentType,
		Disposition: "attachment",
		Content:     body,
	}, r.allowedExts)
	if !ok {
		return nil, fmt.Errorf("fetch %s: resolved extension %q is not allowed", rawURL, ext)
	}

	if filename == "" {
		filename = "download" + ext
	} else if !strings.HasSuffix(strings.ToLower(filename), ext) {
		filename += ext
	}

	return &File{
		Filename:  filename,
		Extension: ext,
		Content:   body,
		SourceURL: rawURL,
	}, nil
}

func (r *Resolver) get(ctx context.Context, target string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}

	limit := r.maxSize
	if limit <= 0 {
		limit = 100 * 1024 * 1024
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read response from %s: %w", target, err)
	}
	if int64(len(body)) > limit {
		return nil, nil, fmt.Errorf("fetch %s: response exceeds size limit %d", target, limit)
	}

	return body, resp.Header, nil
}

func isHTMLInterstitial(header http.Header, body []byte) bool {
	ct := header.Get("Content-Type")
	return strings.Contains(ct, "text/html") && confirmPattern.Match(body)
}

func resolveFilename(header http.Header, target string) string {
	if cd := header.Get("Content-Disposition"); cd != "" {
		if m := dispositionName.FindStringSubmatch(cd); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || !strings.Contains(base, ".") {
		return ""
	}
	return base
}

func normalizeMediaType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
