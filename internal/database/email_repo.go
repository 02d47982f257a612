package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mixelka/mailsync/pkg/models"
)

const emailColumns = `id, subject, from_addr, date, is_read, body, processed, error, processing_message, intercom_id, processing_time`

type emailRow struct {
	ID                string  `db:"id"`
	Subject           string  `db:"subject"`
	FromAddr          string  `db:"from_addr"`
	Date              int64   `db:"date"` // epoch milliseconds
	IsRead            bool    `db:"is_read"`
	Body              *string `db:"body"`
	Processed         bool    `db:"processed"`
	Error             *string `db:"error"`
	ProcessingMessage *string `db:"processing_message"`
	IntercomID        *string `db:"intercom_id"`
	ProcessingTime    *int64  `db:"processing_time"`
}

func (r emailRow) record() models.EmailRecord {
	return models.EmailRecord{
		ID:                r.ID,
		Subject:           r.Subject,
		From:              r.FromAddr,
		Date:              time.UnixMilli(r.Date),
		IsRead:            r.IsRead,
		Body:              r.Body,
		Processed:         r.Processed,
		Error:             r.Error,
		ProcessingMessage: r.ProcessingMessage,
		IntercomID:        r.IntercomID,
		ProcessingTime:    r.ProcessingTime,
	}
}

func insertArgs(rec models.EmailRecord) []any {
	return []any{
		rec.ID,
		rec.Subject,
		rec.From,
		rec.Date.UnixMilli(),
		rec.IsRead,
		rec.Body,
		rec.Processed,
		rec.Error,
		rec.ProcessingMessage,
		rec.IntercomID,
		rec.ProcessingTime,
	}
}

// LoadEmails returns every email in insertion order
func (db *DB) LoadEmails(ctx context.Context) ([]models.EmailRecord, error) {
	return db.selectEmails(ctx, `SELECT `+emailColumns+` FROM emails ORDER BY rowid`)
}

// ListEmails returns up to limit emails, most recent first
func (db *DB) ListEmails(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	return db.selectEmails(ctx, `SELECT `+emailColumns+` FROM emails ORDER BY date DESC, rowid ASC LIMIT ?`, limit)
}

func (db *DB) selectEmails(ctx context.Context, query string, args ...any) ([]models.EmailRecord, error) {
	var rows []emailRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get emails: %w", err)
	}

	records := make([]models.EmailRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

// SaveEmails replaces every stored email
func (db *DB) SaveEmails(ctx context.Context, records []models.EmailRecord) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM emails`); err != nil {
			return fmt.Errorf("failed to clear emails: %w", err)
		}

		query := `INSERT INTO emails (` + emailColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, query, insertArgs(rec)...); err != nil {
				return fmt.Errorf("failed to insert email %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// UpsertEmail inserts the email with defaults, or merges into the stored
// row. Fields the update leaves out are kept, and body, processing
// message, intercom id and processing time are never nulled by an update.
func (db *DB) UpsertEmail(ctx context.Context, upd models.EmailUpdate, now time.Time) error {
	query := `
		INSERT INTO emails (` + emailColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = COALESCE(?, emails.subject),
			from_addr = COALESCE(?, emails.from_addr),
			date = COALESCE(?, emails.date),
			is_read = COALESCE(?, emails.is_read),
			processed = COALESCE(?, emails.processed),
			error = CASE WHEN ? THEN excluded.error ELSE emails.error END,
			body = COALESCE(excluded.body, emails.body),
			processing_message = COALESCE(excluded.processing_message, emails.processing_message),
			intercom_id = COALESCE(excluded.intercom_id, emails.intercom_id),
			processing_time = COALESCE(excluded.processing_time, emails.processing_time)
	`

	var date any
	if upd.Date != nil {
		date = upd.Date.UnixMilli()
	}

	args := insertArgs(upd.NewRecord(now))
	args = append(args,
		optional(upd.Subject),
		optional(upd.From),
		date,
		optional(upd.IsRead),
		optional(upd.Processed),
		upd.Error != nil,
	)

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert email: %w", err)
	}
	return nil
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
