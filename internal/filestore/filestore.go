package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mixelka/mailsync/internal/store"
	"github.com/mixelka/mailsync/pkg/models"
)

// EmailsFile holds every email record
const EmailsFile = "mail.json"

// Store keeps one pretty-printed JSON file per partition in a directory
type Store struct {
	dir string
}

// New creates a file store rooted at dir, creating the directory
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// SettingsFile returns the file name of a category
func SettingsFile(cat models.Category) string {
	return string(cat) + ".json"
}

// LoadSettings reads a category file. A missing file is empty.
func (s *Store) LoadSettings(ctx context.Context, cat models.Category) ([]models.Setting, error) {
	var rows []settingRow
	if err := s.read(SettingsFile(cat), &rows); err != nil {
		return nil, err
	}
	return fromSettingRows(rows, cat), nil
}

// SaveSettings replaces a category file
func (s *Store) SaveSettings(ctx context.Context, cat models.Category, settings []models.Setting) error {
	return s.write(SettingsFile(cat), toSettingRows(settings))
}

// LoadEmails reads the email file. A missing file is empty.
func (s *Store) LoadEmails(ctx context.Context) ([]models.EmailRecord, error) {
	var rows []emailRow
	if err := s.read(EmailsFile, &rows); err != nil {
		return nil, err
	}
	return fromEmailRows(rows), nil
}

// SaveEmails replaces the email file
func (s *Store) SaveEmails(ctx context.Context, records []models.EmailRecord) error {
	return s.write(EmailsFile, toEmailRows(records))
}

func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrCorrupt, name, err)
	}
	return nil
}

// write stores v through a temp file and a rename, so a failed write
// leaves the previous file in place
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
