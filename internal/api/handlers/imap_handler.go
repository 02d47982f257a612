package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/mixelka/mailsync/internal/api/response"
	"github.com/mixelka/mailsync/internal/email"
	"github.com/mixelka/mailsync/internal/metrics"
	"github.com/mixelka/mailsync/pkg/models"
)

// IMAPHandler handles mailbox HTTP requests. Fetched messages are
// upserted into the email store.
type IMAPHandler struct {
	fetcher    Fetcher
	emails     EmailStore
	settings   SettingsStore
	fetchCount int
	logger     *slog.Logger
}

// NewIMAPHandler creates a new IMAPHandler. fetchCount is used when
// neither the request nor the general settings name a count.
func NewIMAPHandler(fetcher Fetcher, emails EmailStore, settings SettingsStore, fetchCount int, logger *slog.Logger) *IMAPHandler {
	return &IMAPHandler{
		fetcher:    fetcher,
		emails:     emails,
		settings:   settings,
		fetchCount: fetchCount,
		logger:     logger.With("component", "imap_handler"),
	}
}

// FetchEmails handles POST /api/fetch-emails
func (h *IMAPHandler) FetchEmails(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	includeBody := models.ToBool(body["includeBody"])
	count := cast.ToInt(body["count"])
	if count <= 0 {
		count = h.defaultCount(ctx)
	}

	start := time.Now()
	result, err := h.fetcher.FetchLatest(ctx, count, includeBody)
	metrics.RecordIMAPFetch("latest", err, time.Since(start))
	if err != nil {
		h.logger.Error("failed to fetch emails", "error", err)
		return response.InternalError(c, err.Error())
	}

	stored := 0
	for _, upd := range result.Emails {
		if h.emails.Upsert(ctx, upd) {
			stored++
		}
	}
	metrics.AddEmailsFetched(stored)

	return response.OK(c, echo.Map{
		"emails": result.Emails,
		"total":  result.Total,
		"server": result.Server,
		"folder": result.Folder,
	})
}

// FetchEmailMessage handles POST /api/fetch-email-message
func (h *IMAPHandler) FetchEmailMessage(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	uids := email.ParseUIDs([]any{body["emailId"]})
	if len(uids) == 0 {
		return response.BadRequest(c, "emailId required")
	}

	ctx := c.Request().Context()
	start := time.Now()
	msg, err := h.fetcher.FetchBody(ctx, uids[0])
	metrics.RecordIMAPFetch("body", err, time.Since(start))
	if err != nil {
		h.logger.Error("failed to fetch email body", "uid", uids[0], "error", err)
		return response.InternalError(c, err.Error())
	}

	h.storeBody(c, msg)
	return response.Success(c, msg)
}

// FetchEmailMessages handles POST /api/fetch-email-messages
func (h *IMAPHandler) FetchEmailMessages(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	ids, ok := body["emailIds"].([]any)
	if !ok {
		return response.BadRequest(c, "emailIds must be an array")
	}

	ctx := c.Request().Context()
	start := time.Now()
	messages, err := h.fetcher.FetchBodies(ctx, email.ParseUIDs(ids))
	metrics.RecordIMAPFetch("bodies", err, time.Since(start))
	if err != nil {
		h.logger.Error("failed to fetch email bodies", "count", len(ids), "error", err)
		return response.InternalError(c, err.Error())
	}

	for _, msg := range messages {
		h.storeBody(c, msg)
	}
	return response.OK(c, echo.Map{"messages": messages})
}

// TestConnection handles POST /api/test-imap-connection
func (h *IMAPHandler) TestConnection(c echo.Context) error {
	start := time.Now()
	info, err := h.fetcher.TestConnection(c.Request().Context())
	metrics.RecordIMAPFetch("test", err, time.Since(start))
	if err != nil {
		h.logger.Warn("IMAP connection test failed", "error", err)
		return response.BadGateway(c, err.Error())
	}
	return response.Success(c, info)
}

func (h *IMAPHandler) defaultCount(ctx context.Context) int {
	general := h.settings.Object(ctx, string(models.CategoryGeneral))
	if n := cast.ToInt(general[models.KeyMaxEmailsPerRun]); n > 0 {
		return n
	}
	return h.fetchCount
}

// storeBody keeps a fetched body. Empty bodies are not stored so a
// missing UID does not create a record.
func (h *IMAPHandler) storeBody(c echo.Context, msg email.MessageBody) {
	if msg.Body == "" {
		return
	}
	body := msg.Body
	if !h.emails.Upsert(c.Request().Context(), models.EmailUpdate{ID: msg.ID, Body: &body}) {
		h.logger.Warn("failed to store email body", "id", msg.ID)
	}
}
