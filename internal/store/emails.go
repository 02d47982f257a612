package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mixelka/mailsync/internal/metrics"
	"github.com/mixelka/mailsync/pkg/models"
)

// DefaultEmailLimit is used when a caller asks for a non-positive limit
const DefaultEmailLimit = 100

const emailPartition = "mail"

// EmailStore keeps email records keyed by id
type EmailStore struct {
	backend Backend
	logger  *slog.Logger
	mu      sync.Mutex
	now     func() time.Time

	lastFallback int64 // guarded by mu
}

// NewEmailStore creates an email store
func NewEmailStore(backend Backend, logger *slog.Logger) *EmailStore {
	return &EmailStore{
		backend: backend,
		logger:  logger.With("component", "email_store"),
		now:     time.Now,
	}
}

// Upsert inserts the email or merges the update into the stored record.
// An email without id gets a time based id that is never handed out twice
// by this store.
func (s *EmailStore) Upsert(ctx context.Context, upd models.EmailUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if upd.ID == "" {
		upd.ID = s.fallbackID(now)
		s.logger.Warn("email without id, using time based id", "id", upd.ID)
	}

	if merger, ok := s.backend.(EmailMerger); ok {
		if err := merger.UpsertEmail(ctx, upd, now); err != nil {
			s.logger.Error("failed to upsert email", "id", upd.ID, "error", err)
			metrics.IncrementStoreWriteFailure(emailPartition)
			return false
		}
		return true
	}

	records, ok := s.load(ctx)
	if !ok {
		return false
	}

	if idx := indexByEmailID(records, upd.ID); idx >= 0 {
		records[idx] = upd.Merge(records[idx])
	} else {
		records = append(records, upd.NewRecord(now))
	}

	if err := s.backend.SaveEmails(ctx, records); err != nil {
		s.logger.Error("failed to save emails", "id", upd.ID, "error", err)
		metrics.IncrementStoreWriteFailure(emailPartition)
		return false
	}
	return true
}

// List returns up to limit records, most recent first. Records with the
// same date keep their insertion order.
func (s *EmailStore) List(ctx context.Context, limit int) []models.EmailRecord {
	if limit <= 0 {
		limit = DefaultEmailLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lister, ok := s.backend.(EmailLister); ok {
		records, err := lister.ListEmails(ctx, limit)
		if err != nil {
			s.logger.Warn("failed to list emails", "error", err)
			return []models.EmailRecord{}
		}
		return records
	}

	records, err := s.backend.LoadEmails(ctx)
	if err != nil {
		s.logger.Warn("failed to load emails", "error", err)
		return []models.EmailRecord{}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []models.EmailRecord{}
	}
	return records
}

// Get returns a single record by id
func (s *EmailStore) Get(ctx context.Context, id string) (models.EmailRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.backend.LoadEmails(ctx)
	if err != nil {
		s.logger.Warn("failed to load emails", "error", err)
		return models.EmailRecord{}, false
	}
	if idx := indexByEmailID(records, id); idx >= 0 {
		return records[idx], true
	}
	return models.EmailRecord{}, false
}

// SaveAll discards every stored record and stores the given ones.
// A repeated id keeps the position of its first occurrence and the
// fields of its last. Records without id each get their own id.
func (s *EmailStore) SaveAll(ctx context.Context, updates []models.EmailUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	records := make([]models.EmailRecord, 0, len(updates))
	seen := make(map[string]int, len(updates))
	for _, upd := range updates {
		if upd.ID == "" {
			upd.ID = s.fallbackID(now)
		}
		rec := upd.NewRecord(now)
		if idx, ok := seen[rec.ID]; ok {
			records[idx] = rec
			continue
		}
		seen[rec.ID] = len(records)
		records = append(records, rec)
	}

	if err := s.backend.SaveEmails(ctx, records); err != nil {
		s.logger.Error("failed to replace emails", "count", len(records), "error", err)
		metrics.IncrementStoreWriteFailure(emailPartition)
		return false
	}
	return true
}

// fallbackID returns the clock in milliseconds, moved past the last id it
// returned. Callers hold mu.
func (s *EmailStore) fallbackID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= s.lastFallback {
		ms = s.lastFallback + 1
	}
	s.lastFallback = ms
	return models.FallbackID(time.UnixMilli(ms))
}

func (s *EmailStore) load(ctx context.Context) ([]models.EmailRecord, bool) {
	records, err := s.backend.LoadEmails(ctx)
	if err == nil {
		return records, true
	}
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn("discarding corrupt email partition", "error", err)
		return nil, true
	}
	s.logger.Error("failed to load emails", "error", err)
	return nil, false
}

func indexByEmailID(records []models.EmailRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
