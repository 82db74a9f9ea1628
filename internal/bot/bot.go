/**
 * @description
 * Telegram update dispatcher. Every update runs in its own goroutine under a
 * concurrency cap and a recover wrapper, and is routed to the admin, subscriber
 * or owner flow.
 *
 * @notes
 * - Routing order for messages: a pending report reason, then admin commands,
 *   then `/start <key>` deep links, then the owner flow.
 * - Admin identity is a role check only. An admin that is not running an admin
 *   command falls through to the normal owner path.
 */
package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/session"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultConcurrency = 16
	updateTimeout      = 60 * time.Second
)

// Config holds the values the bot shows to users.
type Config struct {
	AdminID           int64
	CommissionPercent float64
	Concurrency       int
}

// Bot turns Telegram updates into service calls.
type Bot struct {
	chat       Chat
	sessions   session.Store
	owners     Owners
	checkout   Checkout
	reports    Reports
	admin      Admin
	reconciler Reconciler
	config     Config
	logger     *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

func New(chat Chat, sessions session.Store, owners Owners, checkout Checkout, reports Reports, admin Admin, reconciler Reconciler, cfg Config, logger *slog.Logger) *Bot {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Bot{
		chat:       chat,
		sessions:   sessions,
		owners:     owners,
		checkout:   checkout,
		reports:    reports,
		admin:      admin,
		reconciler: reconciler,
		config:     cfg,
		logger:     logger,
		sem:        make(chan struct{}, cfg.Concurrency),
	}
}

// Run dispatches updates until ctx is done or the channel closes, then waits for
// in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			select {
			case b.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer func() {
					<-b.sem
					b.wg.Done()
				}()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// HandleUpdate processes a single update. It never panics.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		b.contain(ctx, "message handler", update.Message.Chat, func() error {
			return b.handleMessage(ctx, update.Message)
		})
	case update.CallbackQuery != nil:
		var chat *tgbotapi.Chat
		if update.CallbackQuery.Message != nil {
			chat = update.CallbackQuery.Message.Chat
		}
		b.contain(ctx, "callback handler", chat, func() error {
			return b.handleCallback(ctx, update.CallbackQuery)
		})
	}
}

// contain runs fn, converting a panic or returned error into a log line, a
// crash report to the admin and an apology to the user.
func (b *Bot) contain(ctx context.Context, where string, chat *tgbotapi.Chat, fn func() error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = fn()
	}()
	if err == nil {
		return
	}

	b.logger.Error("bot handler crashed", "handler", where, "error", err)
	if b.config.AdminID != 0 {
		b.send(ctx, b.config.AdminID, fmt.Sprintf("🚨 <b>BOT CRASH in %s</b>\n\n<b>Error Details:</b>\n<pre>%s</pre>", where, html.EscapeString(err.Error())))
	}
	if chat != nil && chat.ID != b.config.AdminID {
		b.send(ctx, chat.ID, "Sorry, something went wrong. Please try again, or send /start.")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		if err := b.sessions.Reset(ctx, userID); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
	}
	sess, err := b.sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if sess != nil && sess.Step == session.StepAwaitingReportReason {
		return b.handleReportReason(ctx, msg, sess)
	}
	if b.admin.IsAdmin(userID) {
		handled, err := b.handleAdminMessage(ctx, msg)
		if handled || err != nil {
			return err
		}
	}
	if cmd, arg := parseCommand(text); cmd == "/start" && arg != "" {
		return b.handleStartKey(ctx, msg, arg)
	}
	return b.handleOwnerMessage(ctx, msg, sess)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	data, err := callback.Decode(cq.Data)
	if err != nil {
		b.logger.Warn("ignoring malformed callback", "user_id", cq.From.ID, "error", err)
		b.answer(ctx, cq, "This button is no longer valid.")
		return nil
	}

	switch data.Action {
	case callback.WithdrawConfirm, callback.WithdrawCancel:
		// These continue the withdrawal step, so the session is kept.
	default:
		if err := b.sessions.Reset(ctx, cq.From.ID); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
	}

	switch data.Action {
	case callback.SelectPlan, callback.ReportIssue, callback.CancelReport:
		return b.handleSubscriberCallback(ctx, cq, data)
	case callback.AdminHelp, callback.AdminViewOwners, callback.AdminInspectOwner, callback.AdminInspectChannel,
		callback.AdminBanOwner, callback.AdminApproveWithdrawal, callback.AdminRejectWithdrawal:
		if !b.admin.IsAdmin(cq.From.ID) {
			b.logger.Warn("non-admin pressed an admin button", "user_id", cq.From.ID, "action", string(data.Action))
			b.answer(ctx, cq, "Not allowed.")
			return nil
		}
		return b.handleAdminCallback(ctx, cq, data)
	default:
		return b.handleOwnerCallback(ctx, cq, data)
	}
}

// parseCommand splits "/cmd@bot arg..." into "/cmd" and the trimmed remainder.
func parseCommand(text string) (cmd, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, rows ...[]telegram.Button) {
	_, err := b.chat.SendMessage(ctx, telegram.Message{
		ChatID:    chatID,
		Text:      text,
		ParseMode: telegram.ParseModeHTML,
		Keyboard:  rows,
	})
	if err != nil {
		b.logger.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

// edit replaces the message the button belongs to, falling back to a new message.
func (b *Bot) edit(ctx context.Context, cq *tgbotapi.CallbackQuery, text string, rows ...[]telegram.Button) {
	if cq.Message == nil || cq.Message.Chat == nil {
		b.send(ctx, cq.From.ID, text, rows...)
		return
	}
	msg := telegram.Message{ChatID: cq.Message.Chat.ID, Text: text, ParseMode: telegram.ParseModeHTML, Keyboard: rows}
	if err := b.chat.EditMessage(ctx, cq.Message.MessageID, msg); err != nil {
		b.logger.Debug("edit failed, sending instead", "error", err)
		b.send(ctx, cq.Message.Chat.ID, text, rows...)
	}
}

func (b *Bot) answer(ctx context.Context, cq *tgbotapi.CallbackQuery, text string) {
	if err := b.chat.AnswerCallback(ctx, cq.ID, text); err != nil {
		b.logger.Debug("failed to answer callback", "error", err)
	}
}

func (b *Bot) saveSession(ctx context.Context, s *session.Session) error {
	if err := b.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (b *Bot) resetSession(ctx context.Context, userID int64) {
	if err := b.sessions.Reset(ctx, userID); err != nil {
		b.logger.Warn("failed to reset session", "user_id", userID, "error", err)
	}
}

func (b *Bot) supportLine() string {
	if u := b.admin.SupportUsername(); u != "" {
		return " Please contact support: @" + html.EscapeString(u)
	}
	return ""
}
