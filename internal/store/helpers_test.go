package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mixelka/mailsync/internal/database"
	"github.com/mixelka/mailsync/internal/filestore"
	"github.com/mixelka/mailsync/internal/store"
	"github.com/mixelka/mailsync/pkg/models"
)

var errDiskFull = errors.New("disk full")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFileBackend(t *testing.T) *filestore.Store {
	t.Helper()
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	return fs
}

func newSQLBackend(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "mailsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

// backends returns one fresh instance of every storage engine
func backends(t *testing.T) map[string]store.Backend {
	return map[string]store.Backend{
		"json":   newFileBackend(t),
		"sqlite": newSQLBackend(t),
	}
}

// failingWrites wraps a backend and fails every save
type failingWrites struct {
	store.Backend
}

func (f failingWrites) SaveSettings(context.Context, models.Category, []models.Setting) error {
	return errDiskFull
}

func (f failingWrites) SaveEmails(context.Context, []models.EmailRecord) error {
	return errDiskFull
}

func ptr[T any](v T) *T {
	return &v
}
