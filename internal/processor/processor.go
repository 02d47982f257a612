package processor

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/mixelka/mailsync/internal/formatter"
	"github.com/mixelka/mailsync/internal/intercom"
	"github.com/mixelka/mailsync/internal/metrics"
	"github.com/mixelka/mailsync/internal/parser"
	"github.com/mixelka/mailsync/pkg/models"
)

// MessageSkipped is the processing message of filtered out emails
const MessageSkipped = "skipped by filters"

const excerptLength = 300

// ErrNotStored is returned when the outcome could not be persisted
var ErrNotStored = errors.New("failed to store processing result")

// Settings provides decrypted settings of a category
type Settings interface {
	Object(ctx context.Context, category string) map[string]string
}

// Emails is the email record store
type Emails interface {
	Upsert(ctx context.Context, upd models.EmailUpdate) bool
	Get(ctx context.Context, id string) (models.EmailRecord, bool)
}

// Forwarder opens a conversation for an email
type Forwarder interface {
	CreateConversation(ctx context.Context, conv intercom.Conversation) (string, error)
}

// Notifier announces processed emails
type Notifier interface {
	NotifyProcessed(ctx context.Context, e formatter.ProcessedEmail, conversationURL string) error
}

// Processor forwards stored emails and records the outcome
type Processor struct {
	settings  Settings
	emails    Emails
	forwarder Forwarder
	notifier  Notifier
	text      *parser.BodyText
	logger    *slog.Logger
	now       func() time.Time
}

// Deps dependencies for creating a processor. Notifier is optional.
type Deps struct {
	Settings  Settings
	Emails    Emails
	Forwarder Forwarder
	Notifier  Notifier
	Logger    *slog.Logger
}

// New creates a new processor
func New(deps Deps) *Processor {
	return &Processor{
		settings:  deps.Settings,
		emails:    deps.Emails,
		forwarder: deps.Forwarder,
		notifier:  deps.Notifier,
		text:      parser.NewBodyText(),
		logger:    deps.Logger.With("component", "processor"),
		now:       time.Now,
	}
}

// Process handles one email. A supplied result is stored as is;
// otherwise the email is run through the filters, forwarded and the
// outcome stored. The returned error only reports storage failures.
func (p *Processor) Process(ctx context.Context, email models.EmailUpdate, supplied *models.ProcessingResult) (models.ProcessingResult, error) {
	if email.ID == "" {
		email.ID = models.FallbackID(p.now())
	}

	if supplied != nil {
		metrics.IncrementEmailProcessed("supplied")
		return *supplied, p.store(ctx, email, *supplied)
	}

	start := p.now()
	view := p.view(ctx, email, start)
	logger := p.logger.With("email_id", view.ID)

	filters := p.filterSet(ctx)
	if !filters.Match(p.candidate(view), start) {
		logger.Info("email skipped by filters", "subject", view.Subject)
		metrics.IncrementEmailProcessed("skipped")
		result := models.ProcessingResult{Success: false, Message: MessageSkipped}
		return result, p.store(ctx, email, result)
	}

	general := p.settings.Object(ctx, string(models.CategoryGeneral))
	caseNumber, _ := p.caseDetector(general[models.KeyCaseNumberRegex]).Detect(view.Subject, p.body(view))

	result := p.forward(ctx, view, caseNumber)
	result.ProcessingTime = p.now().Sub(start).Milliseconds()

	if result.Success {
		logger.Info("email forwarded", "conversation_id", result.IntercomConversationID, "case", caseNumber)
		metrics.IncrementEmailProcessed("success")
	} else {
		logger.Warn("email forwarding failed", "error", result.Error)
		metrics.IncrementEmailProcessed("failed")
	}

	p.notify(ctx, view, caseNumber, result)

	return result, p.store(ctx, email, result)
}

// MarkProcessed flags an email as processed. Empty values keep what is
// already stored.
func (p *Processor) MarkProcessed(ctx context.Context, id, message, intercomID string, processingTime int64) error {
	processed := true
	upd := models.EmailUpdate{
		ID:                id,
		Processed:         &processed,
		ProcessingMessage: models.NullString(message),
		IntercomID:        models.NullString(intercomID),
	}
	if processingTime != 0 {
		upd.ProcessingTime = &processingTime
	}

	if !p.emails.Upsert(ctx, upd) {
		return ErrNotStored
	}
	return nil
}

// view returns the stored record with the incoming fields applied
func (p *Processor) view(ctx context.Context, email models.EmailUpdate, now time.Time) models.EmailRecord {
	if rec, ok := p.emails.Get(ctx, email.ID); ok {
		return email.Merge(rec)
	}
	return email.NewRecord(now)
}

// filterSet reads the global filters from the filters category, falling
// back to general where older clients saved them
func (p *Processor) filterSet(ctx context.Context) *parser.FilterSet {
	raw, logic := "", ""
	for _, cat := range []models.Category{models.CategoryFilters, models.CategoryGeneral} {
		obj := p.settings.Object(ctx, string(cat))
		if raw == "" {
			raw = obj[models.KeyGlobalFilters]
		}
		if logic == "" {
			logic = obj[models.KeyFilterLogic]
		}
	}

	filters, err := models.ParseFilters(raw)
	if err != nil {
		p.logger.Warn("ignoring invalid filters", "error", err)
		filters = nil
	}
	return parser.NewFilterSet(filters, logic)
}

func (p *Processor) caseDetector(pattern string) *parser.CaseDetector {
	d, err := parser.NewCaseDetector(pattern)
	if err != nil {
		p.logger.Warn("invalid case number pattern, using default", "pattern", pattern, "error", err)
		d, _ = parser.NewCaseDetector("")
	}
	return d
}

func (p *Processor) forward(ctx context.Context, rec models.EmailRecord, caseNumber string) models.ProcessingResult {
	if p.forwarder == nil {
		return models.ProcessingResult{Error: intercom.ErrNotConfigured.Error()}
	}

	name, address := splitAddress(rec.From)
	conv := intercom.Conversation{
		FromEmail: address,
		FromName:  name,
		Body:      conversationBody(rec.Subject, p.body(rec), caseNumber),
	}

	start := time.Now()
	id, err := p.forwarder.CreateConversation(ctx, conv)
	metrics.RecordIntercomCall(err, time.Since(start))
	if err != nil {
		return models.ProcessingResult{Error: err.Error()}
	}

	message := "Conversation created"
	if caseNumber != "" {
		message = fmt.Sprintf("Conversation created for case %s", caseNumber)
	}
	return models.ProcessingResult{
		Success:                true,
		Message:                message,
		IntercomConversationID: id,
	}
}

func (p *Processor) notify(ctx context.Context, rec models.EmailRecord, caseNumber string, result models.ProcessingResult) {
	if p.notifier == nil {
		return
	}

	workspace := p.settings.Object(ctx, string(models.CategoryIntercom))[models.KeyIntercomWorkspace]
	summary := formatter.ProcessedEmail{
		ID:             rec.ID,
		From:           rec.From,
		Subject:        rec.Subject,
		Date:           rec.Date,
		CaseNumber:     caseNumber,
		Excerpt:        p.text.Excerpt(p.body(rec), excerptLength),
		Success:        result.Success,
		Message:        result.Message,
		Error:          result.Error,
		ProcessingTime: time.Duration(result.ProcessingTime) * time.Millisecond,
	}

	if err := p.notifier.NotifyProcessed(ctx, summary, intercom.ConversationURL(workspace, result.IntercomConversationID)); err != nil {
		p.logger.Warn("notification failed", "email_id", rec.ID, "error", err)
	}
}

// store persists the email fields together with the outcome
func (p *Processor) store(ctx context.Context, email models.EmailUpdate, result models.ProcessingResult) error {
	outcome := result.Update(email.ID)
	email.Processed = outcome.Processed
	email.Error = outcome.Error
	email.ProcessingMessage = outcome.ProcessingMessage
	email.IntercomID = outcome.IntercomID
	email.ProcessingTime = outcome.ProcessingTime

	if !p.emails.Upsert(ctx, email) {
		return ErrNotStored
	}
	return nil
}

func (p *Processor) candidate(rec models.EmailRecord) parser.Candidate {
	return parser.Candidate{
		From:    rec.From,
		Subject: rec.Subject,
		Body:    p.body(rec),
		Date:    rec.Date,
	}
}

// body returns the stored body as plain text
func (p *Processor) body(rec models.EmailRecord) string {
	if rec.Body == nil {
		return ""
	}
	return p.text.Plain(*rec.Body)
}

// splitAddress parses "Name <addr>" forms, returning the input as the
// address when it does not parse
func splitAddress(from string) (name, address string) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", strings.TrimSpace(from)
	}
	return addr.Name, addr.Address
}

func conversationBody(subject, body, caseNumber string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<p><b>Subject:</b> %s</p>", html.EscapeString(subject)))
	if caseNumber != "" {
		sb.WriteString(fmt.Sprintf("<p><b>Case:</b> %s</p>", html.EscapeString(caseNumber)))
	}

	body = strings.TrimSpace(body)
	if body != "" {
		paragraphs := strings.Split(body, "\n\n")
		for _, para := range paragraphs {
			lines := strings.Split(strings.TrimSpace(para), "\n")
			for i, line := range lines {
				lines[i] = html.EscapeString(line)
			}
			sb.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>")
		}
	}

	return sb.String()
}
