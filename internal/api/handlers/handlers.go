package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/mixelka/mailsync/internal/email"
	"github.com/mixelka/mailsync/internal/intercom"
	"github.com/mixelka/mailsync/pkg/models"
)

// SettingsStore is the categorized settings store
type SettingsStore interface {
	List(ctx context.Context, category string) []models.Setting
	Object(ctx context.Context, category string) map[string]string
	CreateOrUpdate(ctx context.Context, in models.SettingInput) bool
	SaveObject(ctx context.Context, category string, obj map[string]string) bool
}

// EmailStore is the email record store
type EmailStore interface {
	Upsert(ctx context.Context, upd models.EmailUpdate) bool
	List(ctx context.Context, limit int) []models.EmailRecord
	SaveAll(ctx context.Context, updates []models.EmailUpdate) bool
}

// Fetcher reads messages from the configured mailbox
type Fetcher interface {
	FetchLatest(ctx context.Context, count int, includeBody bool) (*email.FetchResult, error)
	FetchBodies(ctx context.Context, uids []uint32) ([]email.MessageBody, error)
	FetchBody(ctx context.Context, uid uint32) (email.MessageBody, error)
	TestConnection(ctx context.Context) (*email.ConnectionInfo, error)
}

// Processor forwards emails and records the outcome
type Processor interface {
	Process(ctx context.Context, e models.EmailUpdate, supplied *models.ProcessingResult) (models.ProcessingResult, error)
	MarkProcessed(ctx context.Context, id, message, intercomID string, processingTime int64) error
}

// IntercomClient is the part of the Intercom API used for connection tests
type IntercomClient interface {
	IsConfigured(ctx context.Context) bool
	Me(ctx context.Context) (*intercom.Admin, error)
}

// bindMap decodes a JSON object body. An empty body is an empty object.
func bindMap(c echo.Context) (map[string]any, error) {
	m := map[string]any{}
	if c.Request().ContentLength == 0 {
		return m, nil
	}
	if err := c.Echo().JSONSerializer.Deserialize(c, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
