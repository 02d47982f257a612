package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatProcessedSuccess(t *testing.T) {
	f := NewTelegramFormatter()

	text := f.FormatProcessed(ProcessedEmail{
		From:           "Vendor <support@vendor.com>",
		Subject:        "Your case # AB12 & more",
		Date:           time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC),
		CaseNumber:     "AB12",
		Success:        true,
		Message:        "Conversation created",
		ProcessingTime: 250 * time.Millisecond,
	})

	assert.Contains(t, text, "Forwarded to Intercom")
	assert.Contains(t, text, "<b>From:</b> Vendor &lt;support@vendor.com&gt;")
	assert.Contains(t, text, "Your case # AB12 &amp; more")
	assert.Contains(t, text, "10.03.2024 09:05")
	assert.Contains(t, text, "<code>AB12</code>")
	assert.Contains(t, text, "250 ms")
	assert.NotContains(t, text, "Error")
}

func TestFormatProcessedFailure(t *testing.T) {
	f := NewTelegramFormatter()

	text := f.FormatProcessed(ProcessedEmail{Subject: "s", Error: "intercom not configured"})
	assert.Contains(t, text, "Processing failed")
	assert.Contains(t, text, "<b>Error:</b> intercom not configured")
	assert.NotContains(t, text, "Date:")
}

func TestFormatProcessedTruncatesExcerpt(t *testing.T) {
	f := NewTelegramFormatter()

	text := f.FormatProcessed(ProcessedEmail{Success: true, Excerpt: strings.Repeat("x", 10000)})
	assert.Less(t, len([]rune(text)), 4100)
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestBuildConversationKeyboard(t *testing.T) {
	assert.Nil(t, BuildConversationKeyboard(""))

	kb := BuildConversationKeyboard("https://app.intercom.com/a/inbox/ws/inbox/conversation/1")
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, "Open in Intercom", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://app.intercom.com/a/inbox/ws/inbox/conversation/1", kb.InlineKeyboard[0][0].URL)
}
