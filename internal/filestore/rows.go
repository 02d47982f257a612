package filestore

import (
	"time"

	"github.com/mixelka/mailsync/pkg/models"
)

// settingRow is the on-disk form of a setting; the category is the file
type settingRow struct {
	ID          flexInt    `json:"id"`
	Key         flexString `json:"key"`
	Value       flexString `json:"value"`
	IsEncrypted flexBool   `json:"is_encrypted"`
}

func toSettingRows(settings []models.Setting) []settingRow {
	rows := make([]settingRow, 0, len(settings))
	for _, s := range settings {
		rows = append(rows, settingRow{
			ID:          flexInt(s.ID),
			Key:         flexString(s.Key),
			Value:       flexString(s.Value),
			IsEncrypted: flexBool(s.IsEncrypted),
		})
	}
	return rows
}

func fromSettingRows(rows []settingRow, cat models.Category) []models.Setting {
	settings := make([]models.Setting, 0, len(rows))
	for _, r := range rows {
		settings = append(settings, models.Setting{
			ID:          int64(r.ID),
			Key:         string(r.Key),
			Value:       string(r.Value),
			Category:    cat,
			IsEncrypted: bool(r.IsEncrypted),
		})
	}
	return settings
}

// emailRow is the on-disk form of an email. Dates are epoch milliseconds.
type emailRow struct {
	ID                flexString `json:"id"`
	Subject           flexString `json:"subject"`
	From              flexString `json:"from"`
	FromAddr          flexString `json:"fromAddr,omitempty"`
	Date              flexMillis `json:"date"`
	IsRead            flexBool   `json:"isRead"`
	Body              *string    `json:"body"`
	Processed         flexBool   `json:"processed"`
	Error             *string    `json:"error"`
	ProcessingMessage *string    `json:"processing_message"`
	IntercomID        *string    `json:"intercom_id"`
	ProcessingTime    *flexInt   `json:"processing_time"`
}

func toEmailRows(records []models.EmailRecord) []emailRow {
	rows := make([]emailRow, 0, len(records))
	for _, r := range records {
		row := emailRow{
			ID:                flexString(r.ID),
			Subject:           flexString(r.Subject),
			From:              flexString(r.From),
			Date:              flexMillis(r.Date.UnixMilli()),
			IsRead:            flexBool(r.IsRead),
			Body:              r.Body,
			Processed:         flexBool(r.Processed),
			Error:             r.Error,
			ProcessingMessage: r.ProcessingMessage,
			IntercomID:        r.IntercomID,
		}
		if r.ProcessingTime != nil {
			pt := flexInt(*r.ProcessingTime)
			row.ProcessingTime = &pt
		}
		rows = append(rows, row)
	}
	return rows
}

func fromEmailRows(rows []emailRow) []models.EmailRecord {
	records := make([]models.EmailRecord, 0, len(rows))
	for _, r := range rows {
		from := string(r.From)
		if from == "" {
			from = string(r.FromAddr)
		}
		rec := models.EmailRecord{
			ID:                string(r.ID),
			Subject:           string(r.Subject),
			From:              from,
			Date:              time.UnixMilli(int64(r.Date)),
			IsRead:            bool(r.IsRead),
			Body:              r.Body,
			Processed:         bool(r.Processed),
			Error:             r.Error,
			ProcessingMessage: r.ProcessingMessage,
			IntercomID:        r.IntercomID,
		}
		if r.ProcessingTime != nil {
			pt := int64(*r.ProcessingTime)
			rec.ProcessingTime = &pt
		}
		records = append(records, rec)
	}
	return records
}
