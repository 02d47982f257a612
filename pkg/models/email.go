package models

import (
	"strconv"
	"time"
)

// EmailRecord represents a stored email and its processing state
type EmailRecord struct {
	ID                string    `json:"id"`
	Subject           string    `json:"subject"`
	From              string    `json:"from"`
	Date              time.Time `json:"date"`
	IsRead            bool      `json:"isRead"`
	Body              *string   `json:"body"` // nil until the body is fetched
	Processed         bool      `json:"processed"`
	Error             *string   `json:"error"`
	ProcessingMessage *string   `json:"processing_message"`
	IntercomID        *string   `json:"intercom_id"`
	ProcessingTime    *int64    `json:"processing_time"` // milliseconds
}

// EmailUpdate is a partial email record. Nil fields were not supplied.
type EmailUpdate struct {
	ID                string     `json:"id"`
	Subject           *string    `json:"subject,omitempty"`
	From              *string    `json:"from,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	IsRead            *bool      `json:"isRead,omitempty"`
	Body              *string    `json:"body,omitempty"`
	Processed         *bool      `json:"processed,omitempty"`
	Error             *string    `json:"error,omitempty"`
	ProcessingMessage *string    `json:"processing_message,omitempty"`
	IntercomID        *string    `json:"intercom_id,omitempty"`
	ProcessingTime    *int64     `json:"processing_time,omitempty"`
}

// FallbackID returns a time derived id for records without one
func FallbackID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// NewRecord builds a full record from an update, applying defaults
// for every field the update leaves out.
func (u EmailUpdate) NewRecord(now time.Time) EmailRecord {
	rec := EmailRecord{
		ID:   u.ID,
		Date: now,
	}
	if rec.ID == "" {
		rec.ID = FallbackID(now)
	}
	return u.Merge(rec)
}

// Merge applies the update on top of an existing record.
//
// Body, ProcessingMessage, IntercomID and ProcessingTime are coalesced:
// an empty value never clears what is already stored. Error is cleared
// by an explicit empty string. Every other field is only touched when set.
func (u EmailUpdate) Merge(rec EmailRecord) EmailRecord {
	if u.Subject != nil {
		rec.Subject = *u.Subject
	}
	if u.From != nil {
		rec.From = *u.From
	}
	if u.Date != nil {
		rec.Date = *u.Date
	}
	if u.IsRead != nil {
		rec.IsRead = *u.IsRead
	}
	if u.Processed != nil {
		rec.Processed = *u.Processed
	}
	if u.Error != nil {
		rec.Error = NullString(*u.Error)
	}
	if v := u.CoalescedBody(); v != nil {
		rec.Body = v
	}
	if v := u.CoalescedProcessingMessage(); v != nil {
		rec.ProcessingMessage = v
	}
	if v := u.CoalescedIntercomID(); v != nil {
		rec.IntercomID = v
	}
	if v := u.CoalescedProcessingTime(); v != nil {
		rec.ProcessingTime = v
	}
	return rec
}

// CoalescedBody returns the body to store, or nil to keep the current one
func (u EmailUpdate) CoalescedBody() *string {
	return nonEmpty(u.Body)
}

// CoalescedProcessingMessage returns the message to store, or nil
func (u EmailUpdate) CoalescedProcessingMessage() *string {
	return nonEmpty(u.ProcessingMessage)
}

// CoalescedIntercomID returns the correlation id to store, or nil
func (u EmailUpdate) CoalescedIntercomID() *string {
	return nonEmpty(u.IntercomID)
}

// CoalescedProcessingTime returns the duration to store, or nil
func (u EmailUpdate) CoalescedProcessingTime() *int64 {
	if u.ProcessingTime == nil || *u.ProcessingTime == 0 {
		return nil
	}
	v := *u.ProcessingTime
	return &v
}

// NullString maps an empty string to nil
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	return NullString(*p)
}

// ProcessingResult is the outcome of forwarding an email
type ProcessingResult struct {
	Success                bool   `json:"success"`
	Message                string `json:"message,omitempty"`
	Error                  string `json:"error,omitempty"`
	IntercomConversationID string `json:"intercomConversationId,omitempty"`
	ProcessingTime         int64  `json:"processingTime,omitempty"`
}

// Update converts the result into the fields it sets on an email record
func (r ProcessingResult) Update(id string) EmailUpdate {
	processed := r.Success
	errMsg := ""
	if !r.Success {
		errMsg = r.Error
	}
	upd := EmailUpdate{
		ID:                id,
		Processed:         &processed,
		Error:             &errMsg,
		ProcessingMessage: NullString(r.Message),
		IntercomID:        NullString(r.IntercomConversationID),
	}
	if r.ProcessingTime != 0 {
		t := r.ProcessingTime
		upd.ProcessingTime = &t
	}
	return upd
}
