// Package filter evaluates messages against the configured acceptance
// criteria. Every check runs independently so a rejected message reports
// all of the reasons it failed, not just the first one.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/ferralda/mailsift/internal/mailparse"
	"github.com/ferralda/mailsift/internal/textutil"
	"github.com/ferralda/mailsift/internal/types"
)

const dateLayout = "2006-01-02"

// Params holds the resolved filter criteria for a run.
type Params struct {
	Senders     []string
	Keywords    []string
	DateEnabled bool
	Start       time.Time
	End         time.Time
}

// ParamsFromConfig resolves filter criteria from a configuration, parsing
// the date range bounds when the range is enabled.
func ParamsFromConfig(cfg *types.Config) (Params, error) {
	p := Params{
		Senders:  cfg.Filters.Senders,
		Keywords: cfg.Filters.SubjectKeywords,
	}

	if !cfg.Filters.DateRange.Enabled {
		return p, nil
	}

	start, err := time.Parse(dateLayout, cfg.Filters.DateRange.Start)
	if err != nil {
		return p, fmt.Errorf("invalid date range start %q: %w", cfg.Filters.DateRange.Start, err)
	}
	end, err := time.Parse(dateLayout, cfg.Filters.DateRange.End)
	if err != nil {
		return p, fmt.Errorf("invalid date range end %q: %w", cfg.Filters.DateRange.End, err)
	}

	p.DateEnabled = true
	p.Start = start
	p.End = end
	return p, nil
}

// Decision is the outcome of evaluating one message.
type Decision struct {
	Accepted bool
	Reasons  []string
}

// Reason joins the rejection reasons into a single report field.
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, "; ")
}

// Evaluate runs all configured checks against a message. hasAttachments is
// the classifier's verdict; attachment presence is always required.
func Evaluate(msg *mailparse.Message, hasAttachments bool, p Params) Decision {
	var reasons []string

	if p.DateEnabled {
		if reason := checkDate(msg.Date, p.Start, p.End); reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if len(p.Senders) > 0 && !senderMatches(msg.From, p.Senders) {
		reasons = append(reasons, "sender not in configured list")
	}

	if len(p.Keywords) > 0 && !keywordMatches(msg.Subject, p.Keywords) {
		reasons = append(reasons, "subject matches no configured keyword")
	}

	if !hasAttachments {
		reasons = append(reasons, "no attachments found")
	}

	return Decision{Accepted: len(reasons) == 0, Reasons: reasons}
}

// checkDate compares by calendar date, inclusive on both bounds, and names
// the boundary that was crossed. A missing or unparseable Date header
// counts as the current time.
func checkDate(msgDate, start, end time.Time) string {
	if msgDate.IsZero() {
		msgDate = time.Now().UTC()
	}

	day := toDay(msgDate)
	if day.Before(toDay(start)) {
		return fmt.Sprintf("message date %s before range start %s",
			day.Format(dateLayout), start.Format(dateLayout))
	}
	if day.After(toDay(end)) {
		return fmt.Sprintf("message date %s after range end %s",
			day.Format(dateLayout), end.Format(dateLayout))
	}
	return ""
}

func toDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func senderMatches(from string, senders []string) bool {
	fromLower := strings.ToLower(from)
	for _, sender := range senders {
		if sender == "" {
			continue
		}
		if strings.Contains(fromLower, strings.ToLower(sender)) {
			return true
		}
	}
	return false
}

func keywordMatches(subject string, keywords []string) bool {
	normalized := textutil.NormalizeForMatch(subject)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(normalized, textutil.NormalizeForMatch(kw)) {
			return true
		}
	}
	return false
}
