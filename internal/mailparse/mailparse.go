// Package mailparse turns raw RFC 5322 messages into a flat structure of
// headers, bodies and candidate parts for classification.
package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/DusanKasan/parsemail"
	"github.com/jhillyerd/enmime"
	"github.com/jhillyerd/enmime/mediatype"

	"github.com/ferralda/mailsift/internal/textutil"
)

// Part is a single MIME leaf that may carry an attachment payload.
type Part struct {
	Filename    string
	ContentType string
	ContentID   string
	Disposition string
	Content     []byte
}

// Message is a parsed email with its bodies and candidate parts.
type Message struct {
	Subject  string
	From     string
	Date     time.Time
	TextBody string
	HTMLBody string
	Parts    []Part
}

// Parse decodes a raw message. Messages that the primary parser rejects are
// retried with a more tolerant fallback parser before giving up.
func Parse(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return parseFallback(raw, err)
	}

	msg := &Message{
		Subject:  textutil.DecodeHeader(env.GetHeader("Subject")),
		From:     textutil.DecodeHeader(env.GetHeader("From")),
		Date:     parseDate(env.GetHeader("Date")),
		TextBody: env.Text,
		HTMLBody: env.HTML,
	}

	collectParts(env.Root, msg)
	return msg, nil
}

func collectParts(part *enmime.Part, msg *Message) {
	if part == nil {
		return
	}

	if part.FirstChild == nil {
		if isCandidatePart(part) {
			msg.Parts = append(msg.Parts, Part{
				Filename:    textutil.DecodeHeader(part.FileName),
				ContentType: normalizeContentType(part.ContentType),
				ContentID:   strings.Trim(part.ContentID, "<>"),
				Disposition: part.Disposition,
				Content:     part.Content,
			})
		}
	} else {
		collectParts(part.FirstChild, msg)
	}

	collectParts(part.NextSibling, msg)
}

// isCandidatePart filters out plain body parts. Anything with a declared
// filename, a content ID or a non-text payload may carry an attachment.
func isCandidatePart(part *enmime.Part) bool {
	if part.FileName != "" || part.ContentID != "" {
		return true
	}
	if part.Disposition == "attachment" {
		return true
	}
	ct := strings.ToLower(part.ContentType)
	if ct == "text/plain" || ct == "text/html" || strings.HasPrefix(ct, "message/") {
		return false
	}
	return len(part.Content) > 0
}

func parseFallback(raw []byte, primaryErr error) (*Message, error) {
	email, err := parsemail.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", primaryErr)
	}

	msg := &Message{
		Subject:  textutil.DecodeHeader(email.Subject),
		Date:     email.Date,
		TextBody: email.TextBody,
		HTMLBody: email.HTMLBody,
	}

	if len(email.From) > 0 && email.From[0] != nil {
		msg.From = email.From[0].String()
	}

	for _, att := range email.Attachments {
		content, err := io.ReadAll(att.Data)
		if err != nil {
			continue
		}
		msg.Parts = append(msg.Parts, Part{
			Filename:    textutil.DecodeHeader(att.Filename),
			ContentType: normalizeContentType(att.ContentType),
			Disposition: "attachment",
			Content:     content,
		})
	}

	for _, emb := range email.EmbeddedFiles {
		content, err := io.ReadAll(emb.Data)
		if err != nil {
			continue
		}
		msg.Parts = append(msg.Parts, Part{
			ContentType: normalizeContentType(emb.ContentType),
			ContentID:   strings.Trim(emb.CID, "<>"),
			Disposition: "inline",
			Content:     content,
		})
	}

	return msg, nil
}

// normalizeContentType strips parameters and lowercases the media type.
// Unparseable values are passed through as-is for the classifier to handle.
func normalizeContentType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, _, err := mediatype.Parse(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return strings.ToLower(mt)
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return time.Time{}
	}
	return t
}
