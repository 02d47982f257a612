package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/mixelka/mailsync/internal/api/response"
	"github.com/mixelka/mailsync/internal/intercom"
	"github.com/mixelka/mailsync/pkg/models"
)

// ProcessHandler handles email processing HTTP requests
type ProcessHandler struct {
	processor Processor
	intercom  IntercomClient
	logger    *slog.Logger
}

// NewProcessHandler creates a new ProcessHandler
func NewProcessHandler(processor Processor, ic IntercomClient, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{
		processor: processor,
		intercom:  ic,
		logger:    logger.With("component", "process_handler"),
	}
}

// ProcessEmail handles POST /api/process-email. The response carries the
// processing result; its success flag is the outcome, not the request
// status.
func (h *ProcessHandler) ProcessEmail(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	raw, ok := body["email"].(map[string]any)
	if !ok {
		return response.BadRequest(c, "email required")
	}

	var supplied *models.ProcessingResult
	if m, ok := body["processingResult"].(map[string]any); ok {
		r := resultFromMap(m)
		supplied = &r
	}

	result, err := h.processor.Process(c.Request().Context(), models.EmailUpdateFromMap(raw), supplied)
	if err != nil {
		h.logger.Error("failed to process email", "error", err)
		return response.InternalError(c, err.Error())
	}

	return response.OK(c, resultFields(result))
}

// MarkProcessed handles POST /api/mark-processed
func (h *ProcessHandler) MarkProcessed(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	id := cast.ToString(body["id"])
	if id == "" {
		return response.BadRequest(c, "id required")
	}

	err = h.processor.MarkProcessed(
		c.Request().Context(),
		id,
		cast.ToString(body["message"]),
		cast.ToString(body["intercomId"]),
		cast.ToInt64(body["processingTime"]),
	)
	if err != nil {
		h.logger.Error("failed to mark email processed", "id", id, "error", err)
		return response.InternalError(c, err.Error())
	}
	return response.OK(c, nil)
}

// TestIntercomConnection handles POST /api/test-intercom-connection
func (h *ProcessHandler) TestIntercomConnection(c echo.Context) error {
	ctx := c.Request().Context()
	if h.intercom == nil || !h.intercom.IsConfigured(ctx) {
		return response.BadRequest(c, intercom.ErrNotConfigured.Error())
	}

	admin, err := h.intercom.Me(ctx)
	if err != nil {
		h.logger.Warn("Intercom connection test failed", "error", err)
		return response.BadGateway(c, err.Error())
	}
	return response.Success(c, admin)
}

func resultFromMap(m map[string]any) models.ProcessingResult {
	return models.ProcessingResult{
		Success:                models.ToBool(m["success"]),
		Message:                cast.ToString(m["message"]),
		Error:                  cast.ToString(m["error"]),
		IntercomConversationID: cast.ToString(m["intercomConversationId"]),
		ProcessingTime:         cast.ToInt64(m["processingTime"]),
	}
}

func resultFields(r models.ProcessingResult) echo.Map {
	fields := echo.Map{"success": r.Success}
	if r.Message != "" {
		fields["message"] = r.Message
	}
	if r.Error != "" {
		fields["error"] = r.Error
	}
	if r.IntercomConversationID != "" {
		fields["intercomConversationId"] = r.IntercomConversationID
	}
	if r.ProcessingTime != 0 {
		fields["processingTime"] = r.ProcessingTime
	}
	return fields
}
