// Package run orchestrates a single retrieval pass over one account:
// search, fetch, filter, classify, download and report.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ferralda/mailsift/internal/classify"
	"github.com/ferralda/mailsift/internal/errorlog"
	"github.com/ferralda/mailsift/internal/filter"
	"github.com/ferralda/mailsift/internal/mailbox"
	"github.com/ferralda/mailsift/internal/mailparse"
	"github.com/ferralda/mailsift/internal/remote"
	"github.com/ferralda/mailsift/internal/report"
	"github.com/ferralda/mailsift/internal/storage"
	"github.com/ferralda/mailsift/internal/textutil"
	"github.com/ferralda/mailsift/internal/types"
)

// LinkFetcher downloads externally hosted files referenced in bodies.
type LinkFetcher interface {
	Fetch(ctx context.Context, url string) (*remote.File, error)
}

// ErrorSink records message-level processing failures.
type ErrorSink interface {
	LogError(err errorlog.MessageError) error
}

// Summary is the aggregate outcome of one run.
type Summary struct {
	MessagesDiscovered int
	MessagesProcessed  int
	MessagesAccepted   int
	MessagesRejected   int
	FilesStored        int
	DuplicatesSkipped  int
	Errors             int
	ReportPath         string
}

// Runner executes retrieval passes. Collaborators are exported so callers
// can substitute implementations.
type Runner struct {
	Cfg      *types.Config
	Logger   *slog.Logger
	Mailbox  mailbox.Client
	Writer   storage.Writer
	Resolver LinkFetcher
	Errors   ErrorSink

	// Sleep is the inter-message delay hook, time.Sleep unless replaced.
	Sleep func(time.Duration)
}

// New wires a Runner with the real collaborators for one configuration.
func New(ctx context.Context, cfg *types.Config, logger *slog.Logger) (*Runner, error) {
	mb, err := mailbox.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	writer, err := storage.NewWriter(ctx, storage.Config{
		Type:            storage.StorageType(cfg.Download.Storage.Type),
		BaseFolder:      cfg.Download.BaseFolder,
		MaxSize:         cfg.Download.MaxSize,
		CredentialsFile: cfg.Download.Storage.CredentialsFile,
		ParentFolderID:  cfg.Download.Storage.ParentFolderID,
	}, logger)
	if err != nil {
		return nil, err
	}

	errors, err := errorlog.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		Cfg:      cfg,
		Logger:   logger,
		Mailbox:  mb,
		Writer:   writer,
		Resolver: remote.NewResolver(cfg.Download.AllowedExtensions, cfg.Download.MaxSize, logger),
		Errors:   errors,
		Sleep:    time.Sleep,
	}, nil
}

// Run executes one full retrieval pass and always produces a report row for
// every discovered message, whatever its outcome.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	params, err := filter.ParamsFromConfig(r.Cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid filter configuration: %w", err)
	}

	if err := r.Mailbox.Connect(); err != nil {
		return nil, fmt.Errorf("mailbox connection failed: %w", err)
	}
	defer r.Mailbox.Close()

	if err := r.Mailbox.SelectFolder(r.Cfg.Mailbox.Folder); err != nil {
		return nil, err
	}

	crit := mailbox.Criteria{Senders: r.Cfg.Filters.Senders}
	if params.DateEnabled {
		crit.Since = params.Start
		crit.Before = params.End
	}

	ids, err := r.Mailbox.Search(crit)
	if err != nil {
		return nil, fmt.Errorf("mailbox search failed: %w", err)
	}

	summary := &Summary{MessagesDiscovered: len(ids)}
	r.Logger.Info("discovered messages",
		"config_id", r.Cfg.Meta.ID,
		"count", len(ids),
	)

	if max := r.Cfg.Processing.MaxMessages; max > 0 && len(ids) > max {
		r.Logger.Info("truncating message list", "max_messages", max)
		ids = ids[:max]
	}

	rep := report.New()
	dup := storage.NewDuplicateIndex()

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && r.Cfg.Processing.DelaySecs > 0 {
			r.Sleep(time.Duration(r.Cfg.Processing.DelaySecs) * time.Second)
		}

		r.processMessage(ctx, id, params, dup, rep, summary)
		summary.MessagesProcessed++
	}

	outputDir := r.Cfg.Report.OutputDir
	if outputDir == "" {
		outputDir = "reports"
	}
	path, err := rep.WriteCSV(outputDir, time.Now().UTC())
	if err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}
	summary.ReportPath = path

	r.Logger.Info("run finished",
		"config_id", r.Cfg.Meta.ID,
		"processed", summary.MessagesProcessed,
		"accepted", summary.MessagesAccepted,
		"rejected", summary.MessagesRejected,
		"files_stored", summary.FilesStored,
		"duplicates_skipped", summary.DuplicatesSkipped,
		"errors", summary.Errors,
		"report", path,
	)
	return summary, nil
}

func (r *Runner) processMessage(ctx context.Context, id uint32, params filter.Params, dup *storage.DuplicateIndex, rep *report.Report, summary *Summary) {
	emailID := strconv.FormatUint(uint64(id), 10)
	row := rep.Append(report.Row{EmailID: emailID})

	raw, err := r.Mailbox.Fetch(id)
	if err != nil {
		r.recordError(row, summary, id, nil, "fetch", err)
		return
	}

	msg, err := mailparse.Parse(raw)
	if err != nil {
		r.recordError(row, summary, id, nil, "parse", err)
		return
	}

	row.Date = msg.Date
	row.Sender = msg.From
	row.Subject = msg.Subject
	row.TotalAttachments, row.AttachmentTypes = classify.Summarize(msg)

	ev := classify.Classify(msg, r.Cfg.Download.AllowedExtensions)
	for _, link := range remote.ExtractDriveLinks(msg.TextBody + "\n" + msg.HTMLBody) {
		ev.Links = appendUnique(ev.Links, link)
	}

	decision := filter.Evaluate(msg, ev.HasAttachments(), params)
	if !decision.Accepted {
		row.Status = report.StatusRejected
		row.RejectionReason = decision.Reason()
		summary.MessagesRejected++
		r.Logger.Debug("message rejected",
			"email_id", emailID,
			"reasons", decision.Reason(),
		)
		return
	}
	summary.MessagesAccepted++

	msgDate := msg.Date
	if msgDate.IsZero() {
		msgDate = time.Now().UTC()
	}

	destDir := storage.DestinationDir(storage.FolderOptions{
		ByDate:     r.Cfg.Download.FolderStructure.ByDate,
		DateLayout: r.Cfg.Download.FolderStructure.DateLayout,
		BySender:   r.Cfg.Download.FolderStructure.BySender,
		BySubject:  r.Cfg.Download.FolderStructure.BySubject,
	}, msgDate, msg.From, msg.Subject)

	var stored []string
	index := 0
	lastPath := ""

	storeOne := func(cand classify.Candidate) {
		if !dup.Register(msgDate, storage.ContentDigest(cand.Content)) {
			summary.DuplicatesSkipped++
			r.Logger.Debug("skipping duplicate content",
				"email_id", emailID,
				"original_name", cand.Filename,
			)
			return
		}

		index++
		filename := r.buildFilename(msg, msgDate, index, cand.Filename, cand.Extension)

		path, err := r.Writer.Store(destDir, filename, cand.Content)
		if err != nil {
			r.recordError(row, summary, id, msg, "store", err)
			return
		}
		r.Logger.Debug("stored file",
			"email_id", emailID,
			"filename", filename,
			"provenance", string(cand.Provenance),
		)
		stored = append(stored, filename)
		lastPath = path
	}

	for _, cand := range ev.Candidates {
		storeOne(cand)
	}

	if r.Cfg.Download.FollowLinks {
		for _, link := range ev.Links {
			f, err := r.Resolver.Fetch(ctx, link)
			if err != nil {
				r.Logger.Debug("linked file not retrievable",
					"email_id", emailID,
					"url", link,
					"error", err,
				)
				continue
			}
			storeOne(classify.Candidate{
				Filename:   f.Filename,
				Extension:  f.Extension,
				Provenance: classify.ProvenanceExternalLink,
				Content:    f.Content,
			})
		}
	}

	row.FilesDownloaded = stored
	row.DownloadPath = lastPath
	if len(stored) > 0 {
		if row.Status != report.StatusError {
			row.Status = report.StatusDownloaded
		}
		summary.FilesStored += len(stored)
	} else if row.Status != report.StatusError {
		row.Status = report.StatusNoFiles
	}

	if r.Cfg.Processing.MarkSeen {
		if err := r.Mailbox.MarkSeen(id); err != nil {
			r.Logger.Warn("failed to mark message as seen",
				"email_id", emailID,
				"error", err,
			)
		}
	}
}

func (r *Runner) buildFilename(msg *mailparse.Message, msgDate time.Time, index int, originalName, ext string) string {
	if r.Cfg.Download.RenameFiles {
		return storage.GenerateFilename(r.Cfg.Download.NamingPattern, storage.NamingContext{
			Date:         msgDate,
			Sender:       msg.From,
			Subject:      msg.Subject,
			Index:        index,
			OriginalName: originalName,
			Extension:    ext,
		})
	}

	if originalName == "" {
		originalName = fmt.Sprintf("file_%03d%s", index, ext)
	}
	name := textutil.SanitizeFilename(originalName)
	if ext != "" && !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}

func (r *Runner) recordError(row *report.Row, summary *Summary, id uint32, msg *mailparse.Message, errType string, err error) {
	row.Status = report.StatusError
	if row.RejectionReason == "" {
		row.RejectionReason = err.Error()
	}
	summary.Errors++

	r.Logger.Error("message processing failed",
		"email_id", row.EmailID,
		"error_type", errType,
		"error", err,
	)

	me := errorlog.MessageError{
		Protocol:  r.Cfg.Mailbox.Protocol,
		Server:    r.Cfg.Mailbox.Server,
		Username:  r.Cfg.Mailbox.Username,
		MessageID: row.EmailID,
		ErrorType: errType,
		ErrorMsg:  err.Error(),
	}
	if msg != nil {
		me.Sender = msg.From
		me.Subject = msg.Subject
		me.SentAt = msg.Date
	}
	if logErr := r.Errors.LogError(me); logErr != nil {
		r.Logger.Warn("failed to persist error record", "error", logErr)
	}
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
