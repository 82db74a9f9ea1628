package app

import (
	"context"
	"log/slog"

	"github.com/HashGen/MonetizeGram/pkg/telegram"
)

// Notifier delivers best-effort chat messages. Failures are logged and never
// returned, so callers can use it after money has already moved.
type Notifier struct {
	messenger Messenger
	adminID   int64
	logger    *slog.Logger
}

func NewNotifier(messenger Messenger, adminID int64, logger *slog.Logger) *Notifier {
	return &Notifier{messenger: messenger, adminID: adminID, logger: logger}
}

// AdminID is the chat id of the platform admin.
func (n *Notifier) AdminID() int64 {
	return n.adminID
}

// Admin sends an HTML message to the platform admin.
func (n *Notifier) Admin(ctx context.Context, text string) {
	n.Send(ctx, telegram.Message{ChatID: n.adminID, Text: text, ParseMode: telegram.ParseModeHTML})
}

// Text sends a plain HTML message to chatID.
func (n *Notifier) Text(ctx context.Context, chatID int64, text string) {
	n.Send(ctx, telegram.Message{ChatID: chatID, Text: text, ParseMode: telegram.ParseModeHTML})
}

// Send delivers msg and logs any failure.
func (n *Notifier) Send(ctx context.Context, msg telegram.Message) bool {
	if n == nil || n.messenger == nil || msg.ChatID == 0 {
		return false
	}
	if _, err := n.messenger.SendMessage(ctx, msg); err != nil {
		n.logger.Warn("failed to deliver chat message", "chat_id", msg.ChatID, "error", err)
		return false
	}
	return true
}
