package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const adminOwnerListSize = 10

// handleAdminMessage runs admin commands and manual verification. It reports
// false when the message is not an admin action so the caller can keep routing.
func (b *Bot) handleAdminMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	cmd, arg := parseCommand(text)

	switch cmd {
	case "/superhelp":
		b.present(ctx, chatID, nil, adminHelpView(""))
		return true, nil
	case "/viewowners":
		return true, b.listOwners(ctx, chatID, nil)
	case "/unban":
		return true, b.unbanCommand(ctx, chatID, arg)
	case "/removesubscriber":
		return true, b.removeSubscriberCommand(ctx, chatID, arg)
	case "":
	default:
		return false, nil
	}

	amount, ok := app.ExtractManualAmount(text)
	if !ok {
		return false, nil
	}
	b.send(ctx, chatID, fmt.Sprintf("Received amount ₹%s. Attempting manual verification...", domain.FormatPaise(amount)))

	// Once an intent is consumed settlement must run to completion.
	_, err := b.reconciler.ReconcileAmount(context.WithoutCancel(ctx), amount, app.MethodManual)
	switch {
	case err == nil, errors.Is(err, app.ErrNoMatchingIntent):
		// The reconciler reports both outcomes to the admin chat.
	case errors.Is(err, app.ErrIntentLookupFailed):
		b.send(ctx, chatID, fmt.Sprintf("⚠️ Could not look up pending payments for ₹%s. Nothing was consumed, please try again.", domain.FormatPaise(amount)))
	default:
		b.logger.Error("manual settlement failed", "amount", domain.FormatPaise(amount), "error", err)
	}
	return true, nil
}

func (b *Bot) unbanCommand(ctx context.Context, chatID int64, arg string) error {
	telegramID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.send(ctx, chatID, "Usage: <code>/unban &lt;telegram_id&gt;</code>")
		return nil
	}
	owner, err := b.admin.UnbanOwner(ctx, telegramID)
	if errors.Is(err, store.ErrOwnerNotFound) {
		b.send(ctx, chatID, fmt.Sprintf("No owner with Telegram ID <code>%d</code>.", telegramID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("unban owner: %w", err)
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ %s has been unbanned. Their channels were not restored.", html.EscapeString(ownerLabel(owner))))
	return nil
}

func (b *Bot) removeSubscriberCommand(ctx context.Context, chatID int64, arg string) error {
	fields := strings.Fields(arg)
	var userID, channelID int64
	var err error
	if len(fields) == 2 {
		if userID, err = strconv.ParseInt(fields[0], 10, 64); err == nil {
			channelID, err = strconv.ParseInt(fields[1], 10, 64)
		}
	}
	if len(fields) != 2 || err != nil {
		b.send(ctx, chatID, "Usage: <code>/removesubscriber &lt;user_id&gt; &lt;channel_id&gt;</code>")
		return nil
	}

	existed, err := b.admin.RemoveSubscriber(ctx, userID, channelID)
	if err != nil {
		b.send(ctx, chatID, fmt.Sprintf("❌ Could not remove <code>%d</code> from <code>%d</code>: %s", userID, channelID, html.EscapeString(err.Error())))
		return nil
	}
	if !existed {
		b.send(ctx, chatID, fmt.Sprintf("User <code>%d</code> was removed from the channel. No subscription record existed.", userID))
		return nil
	}
	b.send(ctx, chatID, fmt.Sprintf("✅ User <code>%d</code> removed from channel <code>%d</code> and the subscription deleted.", userID, channelID))
	return nil
}

func (b *Bot) handleAdminCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, data callback.Data) error {
	chatID := cq.From.ID
	switch data.Action {
	case callback.AdminHelp:
		b.answer(ctx, cq, "")
		b.present(ctx, chatID, cq, adminHelpView(data.Arg))
		return nil
	case callback.AdminViewOwners:
		b.answer(ctx, cq, "")
		return b.listOwners(ctx, chatID, cq)
	}

	id, err := data.UUIDArg()
	if err != nil {
		b.answer(ctx, cq, "This button is no longer valid.")
		return nil
	}

	switch data.Action {
	case callback.AdminInspectOwner:
		b.answer(ctx, cq, "")
		return b.showOwner(ctx, cq, id)

	case callback.AdminInspectChannel:
		channel, link, err := b.admin.InspectChannel(ctx, id)
		if errors.Is(err, store.ErrChannelNotFound) {
			b.answer(ctx, cq, "Channel not found.")
			return nil
		}
		if err != nil {
			b.answer(ctx, cq, "Could not create an invite link.")
			return fmt.Errorf("inspect channel: %w", err)
		}
		b.answer(ctx, cq, "")
		b.send(ctx, chatID, fmt.Sprintf("🔍 One-time link for <b>%s</b>:\n%s", html.EscapeString(channel.ChannelName), link))
		return nil

	case callback.AdminBanOwner:
		owner, removed, err := b.admin.BanOwner(ctx, id)
		if errors.Is(err, store.ErrOwnerNotFound) {
			b.answer(ctx, cq, "Owner not found.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("ban owner: %w", err)
		}
		b.answer(ctx, cq, "Owner banned.")
		b.edit(ctx, cq, fmt.Sprintf("🚫 %s has been banned. %d channel(s) removed.", html.EscapeString(ownerLabel(owner)), len(removed)),
			telegram.Row(dataButton("⬅️ Back", callback.AdminViewOwners, "")))
		return nil

	case callback.AdminApproveWithdrawal, callback.AdminRejectWithdrawal:
		return b.processWithdrawal(ctx, cq, data.Action, id)
	}
	return nil
}

func (b *Bot) processWithdrawal(ctx context.Context, cq *tgbotapi.CallbackQuery, action callback.Action, id uuid.UUID) error {
	var (
		w   *domain.Withdrawal
		err error
	)
	if action == callback.AdminApproveWithdrawal {
		w, err = b.admin.ApproveWithdrawal(ctx, id)
	} else {
		w, err = b.admin.RejectWithdrawal(ctx, id)
	}
	switch {
	case err == nil:
	case errors.Is(err, store.ErrWithdrawalNotPending):
		b.answer(ctx, cq, "Already processed.")
		return nil
	case errors.Is(err, store.ErrWithdrawalNotFound):
		b.answer(ctx, cq, "Withdrawal not found.")
		return nil
	default:
		return fmt.Errorf("process withdrawal: %w", err)
	}

	verb := "✅ Approved"
	if w.Status == domain.WithdrawalRejected {
		verb = "❌ Rejected (refunded)"
	}
	b.answer(ctx, cq, "")
	b.edit(ctx, cq, fmt.Sprintf("%s: ₹%s to <code>%s</code>", verb, domain.FormatPaise(w.Amount), html.EscapeString(w.UPIID)))
	return nil
}

func (b *Bot) listOwners(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery) error {
	owners, err := b.admin.ListOwners(ctx, adminOwnerListSize, 0)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	if len(owners) == 0 {
		b.present(ctx, chatID, cq, view{text: "No owners registered yet."})
		return nil
	}
	rows := make([][]telegram.Button, 0, len(owners))
	for i := range owners {
		o := &owners[i]
		label := ownerLabel(o)
		if o.IsBanned {
			label = "🚫 " + label
		}
		rows = append(rows, telegram.Row(dataButton(label, callback.AdminInspectOwner, o.ID.String())))
	}
	b.present(ctx, chatID, cq, view{text: "👥 <b>Recent Owners</b>", rows: rows})
	return nil
}

func (b *Bot) showOwner(ctx context.Context, cq *tgbotapi.CallbackQuery, ownerID uuid.UUID) error {
	detail, err := b.admin.OwnerDetail(ctx, ownerID)
	if errors.Is(err, store.ErrOwnerNotFound) {
		b.edit(ctx, cq, "Owner not found.", telegram.Row(dataButton("⬅️ Back", callback.AdminViewOwners, "")))
		return nil
	}
	if err != nil {
		return fmt.Errorf("owner detail: %w", err)
	}
	o := detail.Owner
	status := "✅ Active"
	if o.IsBanned {
		status = "🚫 Banned"
	}
	text := fmt.Sprintf(
		"👤 <b>%s</b>\nTelegram ID: <code>%d</code>\nStatus: %s\nWallet: ₹%s\nTotal earnings: ₹%s\nChannels: %d",
		html.EscapeString(ownerLabel(o)), o.TelegramID, status,
		domain.FormatPaise(o.WalletBalance), domain.FormatPaise(o.TotalEarnings), len(detail.Channels),
	)

	rows := make([][]telegram.Button, 0, len(detail.Channels)+2)
	for _, c := range detail.Channels {
		rows = append(rows, telegram.Row(dataButton("🔍 "+c.ChannelName, callback.AdminInspectChannel, c.ID.String())))
	}
	if !o.IsBanned {
		rows = append(rows, telegram.Row(dataButton("🚫 Ban Owner", callback.AdminBanOwner, o.ID.String())))
	}
	rows = append(rows, telegram.Row(dataButton("⬅️ Back", callback.AdminViewOwners, "")))
	b.edit(ctx, cq, text, rows...)
	return nil
}

func ownerLabel(o *domain.Owner) string {
	switch {
	case o.Username != "":
		return "@" + o.Username
	case o.FirstName != "":
		return o.FirstName
	default:
		return strconv.FormatInt(o.TelegramID, 10)
	}
}
