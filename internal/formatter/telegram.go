package formatter

import (
	"fmt"
	"strings"
	"time"
)

// ProcessedEmail is the summary posted after an email was forwarded
type ProcessedEmail struct {
	ID             string
	From           string
	Subject        string
	Date           time.Time
	CaseNumber     string
	Success        bool
	Message        string
	Error          string
	ProcessingTime time.Duration
	Excerpt        string
}

// TelegramFormatter formats processing results for Telegram
type TelegramFormatter struct {
	maxLength int
}

// NewTelegramFormatter creates a new Telegram formatter
func NewTelegramFormatter() *TelegramFormatter {
	return &TelegramFormatter{
		maxLength: 4000, // Leave room for markup
	}
}

// FormatProcessed formats a processed email as Telegram HTML
func (f *TelegramFormatter) FormatProcessed(e ProcessedEmail) string {
	var sb strings.Builder

	// Status line
	if e.Success {
		sb.WriteString("✅ <b>Forwarded to Intercom</b>\n")
	} else {
		sb.WriteString("⚠️ <b>Processing failed</b>\n")
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("<b>From:</b> %s\n", f.escapeHTML(e.From)))
	sb.WriteString(fmt.Sprintf("<b>Subject:</b> %s\n", f.escapeHTML(e.Subject)))
	if !e.Date.IsZero() {
		sb.WriteString(fmt.Sprintf("<b>Date:</b> %s\n", e.Date.Format("02.01.2006 15:04")))
	}
	if e.CaseNumber != "" {
		sb.WriteString(fmt.Sprintf("<b>Case:</b> <code>%s</code>\n", f.escapeHTML(e.CaseNumber)))
	}
	if e.ProcessingTime > 0 {
		sb.WriteString(fmt.Sprintf("<b>Took:</b> %d ms\n", e.ProcessingTime.Milliseconds()))
	}

	if e.Success && e.Message != "" {
		sb.WriteString(fmt.Sprintf("\n<i>%s</i>\n", f.escapeHTML(e.Message)))
	}
	if !e.Success && e.Error != "" {
		sb.WriteString(fmt.Sprintf("\n<b>Error:</b> %s\n", f.escapeHTML(e.Error)))
	}

	if e.Excerpt != "" {
		sb.WriteString("\n")
		excerpt := f.truncate(e.Excerpt, f.maxLength-sb.Len()-50)
		sb.WriteString(f.escapeHTML(excerpt))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// escapeHTML escapes HTML special characters for Telegram
func (f *TelegramFormatter) escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncate truncates text to maxLen characters
func (f *TelegramFormatter) truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 100
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
