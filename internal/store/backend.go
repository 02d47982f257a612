package store

import (
	"context"
	"errors"
	"time"

	"github.com/mixelka/mailsync/pkg/models"
)

// ErrCorrupt marks a partition whose contents could not be decoded.
// Backends wrap it so the store can treat the partition as empty.
var ErrCorrupt = errors.New("corrupt partition")

// Backend persists settings partitions and the email partition
type Backend interface {
	LoadSettings(ctx context.Context, category models.Category) ([]models.Setting, error)
	SaveSettings(ctx context.Context, category models.Category, settings []models.Setting) error
	LoadEmails(ctx context.Context) ([]models.EmailRecord, error)
	SaveEmails(ctx context.Context, emails []models.EmailRecord) error
}

// EmailMerger is implemented by backends that can upsert a single
// email natively instead of rewriting the whole partition
type EmailMerger interface {
	UpsertEmail(ctx context.Context, upd models.EmailUpdate, now time.Time) error
}

// EmailLister is implemented by backends that can sort and limit
// emails themselves
type EmailLister interface {
	ListEmails(ctx context.Context, limit int) ([]models.EmailRecord, error)
}
