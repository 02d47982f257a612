package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mixelka/mailsync/pkg/models"
)

type settingRow struct {
	ID          int64  `db:"id"`
	Key         string `db:"key"`
	Value       string `db:"value"`
	IsEncrypted bool   `db:"is_encrypted"`
}

// LoadSettings returns the rows of one category ordered by id
func (db *DB) LoadSettings(ctx context.Context, cat models.Category) ([]models.Setting, error) {
	var rows []settingRow
	query := `SELECT id, key, value, is_encrypted FROM settings WHERE category = ? ORDER BY id`
	if err := db.SelectContext(ctx, &rows, query, string(cat)); err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := make([]models.Setting, 0, len(rows))
	for _, r := range rows {
		settings = append(settings, models.Setting{
			ID:          r.ID,
			Key:         r.Key,
			Value:       r.Value,
			Category:    cat,
			IsEncrypted: r.IsEncrypted,
		})
	}
	return settings, nil
}

// SaveSettings replaces every row of one category
func (db *DB) SaveSettings(ctx context.Context, cat models.Category, settings []models.Setting) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE category = ?`, string(cat)); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}

		query := `INSERT INTO settings (category, id, key, value, is_encrypted) VALUES (?, ?, ?, ?, ?)`
		for _, s := range settings {
			if _, err := tx.ExecContext(ctx, query, string(cat), s.ID, s.Key, s.Value, s.IsEncrypted); err != nil {
				return fmt.Errorf("failed to insert setting %q: %w", s.Key, err)
			}
		}
		return nil
	})
}
