package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/mailsync/internal/store"
	"github.com/mixelka/mailsync/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func writeRaw(t *testing.T, s *Store, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), name), []byte(content), 0644))
}

func TestMissingAndEmptyFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	settings, err := s.LoadSettings(ctx, models.CategoryIMAP)
	require.NoError(t, err)
	assert.Empty(t, settings)

	for _, content := range []string{"", "  \n", "null", "[]"} {
		writeRaw(t, s, EmailsFile, content)
		emails, err := s.LoadEmails(ctx)
		require.NoError(t, err, "content %q", content)
		assert.Empty(t, emails)
	}
}

func TestCorruptFileWrapsErrCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	writeRaw(t, s, SettingsFile(models.CategoryGeneral), "{oops")
	_, err := s.LoadSettings(ctx, models.CategoryGeneral)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrCorrupt))

	writeRaw(t, s, EmailsFile, `{"id": 1}`)
	_, err = s.LoadEmails(ctx)
	assert.ErrorIs(t, err, store.ErrCorrupt)
}

func TestSettingsFileLayout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveSettings(ctx, models.CategoryIntercom, []models.Setting{
		{ID: 1, Key: "intercom_workspace_id", Value: "ws", Category: models.CategoryIntercom},
	}))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "intercom.json"))
	require.NoError(t, err)

	want := `[
  {
    "id": 1,
    "key": "intercom_workspace_id",
    "value": "ws",
    "is_encrypted": false
  }
]`
	assert.Equal(t, want, string(data))
}

func TestLegacySettingRows(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s, SettingsFile(models.CategoryIMAP), `[
		{"id": "3", "key": "imap_port", "value": 993, "is_encrypted": 0},
		{"id": 4, "key": "imap_secure", "value": true, "is_encrypted": "1"}
	]`)

	settings, err := s.LoadSettings(context.Background(), models.CategoryIMAP)
	require.NoError(t, err)
	require.Len(t, settings, 2)

	assert.Equal(t, models.Setting{ID: 3, Key: "imap_port", Value: "993", Category: models.CategoryIMAP}, settings[0])
	assert.Equal(t, models.Setting{ID: 4, Key: "imap_secure", Value: "true", Category: models.CategoryIMAP, IsEncrypted: true}, settings[1])
}

func TestLegacyEmailRows(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s, EmailsFile, `[
		{"id": 17, "subject": "old", "fromAddr": "x@example.com", "date": "2023-11-14T22:13:20Z", "isRead": 1, "processed": 0},
		{"id": "18", "subject": "new", "from": "y@example.com", "date": 1700000000000, "processing_time": "12", "body": null}
	]`)

	emails, err := s.LoadEmails(context.Background())
	require.NoError(t, err)
	require.Len(t, emails, 2)

	assert.Equal(t, "17", emails[0].ID)
	assert.Equal(t, "x@example.com", emails[0].From)
	assert.Equal(t, int64(1700000000000), emails[0].Date.UnixMilli())
	assert.True(t, emails[0].IsRead)
	assert.False(t, emails[0].Processed)
	assert.Nil(t, emails[0].ProcessingTime)

	assert.Equal(t, "18", emails[1].ID)
	assert.Equal(t, "y@example.com", emails[1].From)
	assert.Nil(t, emails[1].Body)
	require.NotNil(t, emails[1].ProcessingTime)
	assert.Equal(t, int64(12), *emails[1].ProcessingTime)
}

func TestEmailRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	body := "hello"
	pt := int64(99)
	in := []models.EmailRecord{
		{ID: "1", Subject: "a", From: "f", Date: time.UnixMilli(1700000000000), Body: &body, ProcessingTime: &pt},
		{ID: "2", Subject: "b", Date: time.UnixMilli(1700000001000), Processed: true},
	}
	require.NoError(t, s.SaveEmails(ctx, in))

	out, err := s.LoadEmails(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "hello", *out[0].Body)
	assert.Equal(t, int64(99), *out[0].ProcessingTime)
	assert.True(t, out[1].Processed)
	assert.Nil(t, out[1].Body)

	data, err := os.ReadFile(filepath.Join(s.Dir(), EmailsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date": 1700000000000`)
	assert.NotContains(t, string(data), "fromAddr")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveEmails(ctx, []models.EmailRecord{{ID: "1", Date: time.Now()}}))
	}

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
	assert.Len(t, entries, 1)
}

func TestFailedWriteKeepsPreviousFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveSettings(ctx, models.CategoryGeneral, []models.Setting{{ID: 1, Key: "k", Value: "v"}}))

	// A directory in place of the target makes the rename fail
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), SettingsFile(models.CategoryFilters)), 0755))
	err := s.SaveSettings(ctx, models.CategoryFilters, []models.Setting{{ID: 1, Key: "k"}})
	require.Error(t, err)

	settings, err := s.LoadSettings(ctx, models.CategoryGeneral)
	require.NoError(t, err)
	assert.Len(t, settings, 1)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}
