package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/mixelka/mailsync/internal/metrics"
	"github.com/mixelka/mailsync/internal/secret"
	"github.com/mixelka/mailsync/pkg/models"
)

// SettingsStore keeps categorized settings and encrypts sensitive values
type SettingsStore struct {
	backend Backend
	cipher  *secret.Cipher
	logger  *slog.Logger
	locks   map[models.Category]*sync.Mutex
}

// NewSettingsStore creates a settings store. A nil or disabled cipher
// stores every value as plaintext.
func NewSettingsStore(backend Backend, c *secret.Cipher, logger *slog.Logger) *SettingsStore {
	locks := make(map[models.Category]*sync.Mutex, len(models.Categories))
	for _, cat := range models.Categories {
		locks[cat] = &sync.Mutex{}
	}
	return &SettingsStore{
		backend: backend,
		cipher:  c,
		logger:  logger.With("component", "settings_store"),
		locks:   locks,
	}
}

// List returns the decrypted settings of one category, or of every
// category when category is empty
func (s *SettingsStore) List(ctx context.Context, category string) []models.Setting {
	cats := models.Categories
	if category != "" {
		cats = []models.Category{models.ParseCategory(category)}
	}

	result := []models.Setting{}
	for _, cat := range cats {
		mu := s.locks[cat]
		mu.Lock()
		rows, err := s.backend.LoadSettings(ctx, cat)
		mu.Unlock()
		if err != nil {
			s.logger.Warn("failed to load settings", "category", cat, "error", err)
			continue
		}

		for _, row := range rows {
			row.Category = cat
			if row.IsEncrypted {
				row.Value = s.cipher.Reveal(row.Value)
			}
			result = append(result, row)
		}
	}
	return result
}

// Object returns one category as a decrypted key to value map
func (s *SettingsStore) Object(ctx context.Context, category string) map[string]string {
	obj := make(map[string]string)
	for _, st := range s.List(ctx, string(models.ParseCategory(category))) {
		obj[st.Key] = st.Value
	}
	return obj
}

// Get returns a single decrypted value
func (s *SettingsStore) Get(ctx context.Context, category models.Category, key string) (string, bool) {
	for _, st := range s.List(ctx, string(category)) {
		if st.Key == key {
			return st.Value, true
		}
	}
	return "", false
}

// CreateOrUpdate writes one setting. A matching id wins over a matching
// key; otherwise a new row is appended with the next free id.
func (s *SettingsStore) CreateOrUpdate(ctx context.Context, in models.SettingInput) bool {
	if in.Key == "" {
		s.logger.Warn("refusing to store setting without key")
		return false
	}

	cat := models.ParseCategory(in.Category)
	mu := s.locks[cat]
	mu.Lock()
	defer mu.Unlock()

	rows, ok := s.load(ctx, cat)
	if !ok {
		return false
	}

	value, encrypted := s.seal(in.Key, in.Value, in.IsEncrypted)

	idx := -1
	if in.ID != 0 {
		idx = indexByID(rows, in.ID)
	}
	if idx < 0 {
		idx = indexByKey(rows, in.Key)
	}

	if idx >= 0 {
		rows[idx].Key = in.Key
		rows[idx].Value = value
		rows[idx].IsEncrypted = encrypted
		rows = dropDuplicateKey(rows, idx)
	} else {
		rows = append(rows, models.Setting{
			ID:          nextID(rows),
			Key:         in.Key,
			Value:       value,
			IsEncrypted: encrypted,
		})
	}

	if err := s.backend.SaveSettings(ctx, cat, rows); err != nil {
		s.logger.Error("failed to save setting", "category", cat, "key", in.Key, "error", err)
		metrics.IncrementStoreWriteFailure(string(cat))
		return false
	}
	return true
}

// SaveObject replaces a whole category with the given key/value pairs.
// Keys naming a password or token are encrypted. Ids restart at 1 in
// key order.
func (s *SettingsStore) SaveObject(ctx context.Context, category string, obj map[string]string) bool {
	cat := models.ParseCategory(category)
	mu := s.locks[cat]
	mu.Lock()
	defer mu.Unlock()

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]models.Setting, 0, len(keys))
	for i, k := range keys {
		value, encrypted := s.seal(k, obj[k], models.IsSensitiveKey(k))
		rows = append(rows, models.Setting{
			ID:          int64(i + 1),
			Key:         k,
			Value:       value,
			IsEncrypted: encrypted,
		})
	}

	if err := s.backend.SaveSettings(ctx, cat, rows); err != nil {
		s.logger.Error("failed to save settings object", "category", cat, "error", err)
		metrics.IncrementStoreWriteFailure(string(cat))
		return false
	}
	return true
}

// load reads a category for a read-modify-write. Corrupt data counts as
// empty so the write can repair it; any other failure aborts the write.
func (s *SettingsStore) load(ctx context.Context, cat models.Category) ([]models.Setting, bool) {
	rows, err := s.backend.LoadSettings(ctx, cat)
	if err == nil {
		return rows, true
	}
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn("discarding corrupt settings", "category", cat, "error", err)
		return nil, true
	}
	s.logger.Error("failed to load settings", "category", cat, "error", err)
	return nil, false
}

// seal encrypts value when asked to and able to. The returned flag
// reports whether the stored value is actually an envelope.
func (s *SettingsStore) seal(key, value string, encrypt bool) (string, bool) {
	if !encrypt {
		return value, false
	}
	if !s.cipher.Enabled() {
		s.logger.Debug("no settings secret configured, storing plaintext", "key", key)
		return value, false
	}
	envelope, err := s.cipher.Encrypt(value)
	if err != nil {
		s.logger.Error("failed to encrypt setting, storing plaintext", "key", key, "error", err)
		return value, false
	}
	return envelope, true
}

func indexByID(rows []models.Setting, id int64) int {
	for i, r := range rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func indexByKey(rows []models.Setting, key string) int {
	for i, r := range rows {
		if r.Key == key {
			return i
		}
	}
	return -1
}

// dropDuplicateKey removes other rows sharing the key of rows[keep]
func dropDuplicateKey(rows []models.Setting, keep int) []models.Setting {
	key := rows[keep].Key
	out := rows[:0]
	for i, r := range rows {
		if i != keep && r.Key == key {
			continue
		}
		out = append(out, r)
	}
	return out
}

func nextID(rows []models.Setting) int64 {
	var max int64
	for _, r := range rows {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}
