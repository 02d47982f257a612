package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mixelka/mailsync/internal/formatter"
)

// Sender is the part of the Bot API the notifier needs. *bot.Bot
// satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier posts processing summaries to a chat
type Notifier struct {
	sender    Sender
	chatID    int64
	formatter *formatter.TelegramFormatter
	logger    *slog.Logger
}

// NewNotifier creates a notifier backed by the Bot API
func NewNotifier(token string, chatID int64, logger *slog.Logger) (*Notifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewNotifierWithSender(b, chatID, logger), nil
}

// NewNotifierWithSender creates a notifier on an existing sender
func NewNotifierWithSender(sender Sender, chatID int64, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		chatID:    chatID,
		formatter: formatter.NewTelegramFormatter(),
		logger:    logger.With("component", "telegram_notifier"),
	}
}

// NotifyProcessed posts the summary of a processed email, with a button
// to the conversation when conversationURL is set
func (n *Notifier) NotifyProcessed(ctx context.Context, e formatter.ProcessedEmail, conversationURL string) error {
	// Use separate timeout so a slow API cannot stall processing
	apiCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	params := &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      n.formatter.FormatProcessed(e),
		ParseMode: models.ParseModeHTML,
	}
	if kb := formatter.BuildConversationKeyboard(conversationURL); kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := n.sender.SendMessage(apiCtx, params); err != nil {
		n.logger.Error("failed to send notification", "email_id", e.ID, "error", err)
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.logger.Debug("notification sent", "email_id", e.ID, "chat_id", n.chatID)
	return nil
}
