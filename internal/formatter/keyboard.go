package formatter

import (
	"github.com/go-telegram/bot/models"
)

// BuildConversationKeyboard returns a keyboard linking to the Intercom
// conversation, or nil when there is no link
func BuildConversationKeyboard(conversationURL string) *models.InlineKeyboardMarkup {
	if conversationURL == "" {
		return nil
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Open in Intercom", URL: conversationURL},
			},
		},
	}
}
