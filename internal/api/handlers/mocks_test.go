package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/mixelka/mailsync/internal/email"
	"github.com/mixelka/mailsync/internal/intercom"
	"github.com/mixelka/mailsync/pkg/models"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockSettingsStore implements SettingsStore
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) List(ctx context.Context, category string) []models.Setting {
	args := m.Called(ctx, category)
	return args.Get(0).([]models.Setting)
}

func (m *MockSettingsStore) Object(ctx context.Context, category string) map[string]string {
	args := m.Called(ctx, category)
	return args.Get(0).(map[string]string)
}

func (m *MockSettingsStore) CreateOrUpdate(ctx context.Context, in models.SettingInput) bool {
	args := m.Called(ctx, in)
	return args.Bool(0)
}

func (m *MockSettingsStore) SaveObject(ctx context.Context, category string, obj map[string]string) bool {
	args := m.Called(ctx, category, obj)
	return args.Bool(0)
}

// MockEmailStore implements EmailStore
type MockEmailStore struct {
	mock.Mock
}

func (m *MockEmailStore) Upsert(ctx context.Context, upd models.EmailUpdate) bool {
	args := m.Called(ctx, upd)
	return args.Bool(0)
}

func (m *MockEmailStore) List(ctx context.Context, limit int) []models.EmailRecord {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.EmailRecord)
}

func (m *MockEmailStore) SaveAll(ctx context.Context, updates []models.EmailUpdate) bool {
	args := m.Called(ctx, updates)
	return args.Bool(0)
}

// MockFetcher implements Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchLatest(ctx context.Context, count int, includeBody bool) (*email.FetchResult, error) {
	args := m.Called(ctx, count, includeBody)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*email.FetchResult), args.Error(1)
}

func (m *MockFetcher) FetchBodies(ctx context.Context, uids []uint32) ([]email.MessageBody, error) {
	args := m.Called(ctx, uids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]email.MessageBody), args.Error(1)
}

func (m *MockFetcher) FetchBody(ctx context.Context, uid uint32) (email.MessageBody, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(email.MessageBody), args.Error(1)
}

func (m *MockFetcher) TestConnection(ctx context.Context) (*email.ConnectionInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*email.ConnectionInfo), args.Error(1)
}

// MockProcessor implements Processor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, e models.EmailUpdate, supplied *models.ProcessingResult) (models.ProcessingResult, error) {
	args := m.Called(ctx, e, supplied)
	return args.Get(0).(models.ProcessingResult), args.Error(1)
}

func (m *MockProcessor) MarkProcessed(ctx context.Context, id, message, intercomID string, processingTime int64) error {
	args := m.Called(ctx, id, message, intercomID, processingTime)
	return args.Error(0)
}

// MockIntercomClient implements IntercomClient
type MockIntercomClient struct {
	mock.Mock
}

func (m *MockIntercomClient) IsConfigured(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockIntercomClient) Me(ctx context.Context) (*intercom.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intercom.Admin), args.Error(1)
}
