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
	"github.com/HashGen/MonetizeGram/internal/session"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// view is a rendered screen: text plus an inline keyboard.
type view struct {
	text string
	rows [][]telegram.Button
}

// present edits the pressed message when there is one, otherwise sends a new message.
func (b *Bot) present(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery, v view) {
	if cq != nil {
		b.edit(ctx, cq, v.text, v.rows...)
		return
	}
	b.send(ctx, chatID, v.text, v.rows...)
}

var ownerCommands = map[string]bool{
	"/start": true, "/addchannel": true, "/dashboard": true,
	"/withdraw": true, "/mychannels": true, "/help": true,
}

func dataButton(text string, action callback.Action, arg string) telegram.Button {
	return telegram.DataButton(text, callback.New(action, arg).Encode())
}

func backTo(action callback.Action) []telegram.Button {
	return telegram.Row(dataButton("⬅️ Back", action, ""))
}

func (b *Bot) handleOwnerMessage(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	cmd, _ := parseCommand(strings.TrimSpace(msg.Text))

	owner, err := b.owners.FindOwner(ctx, userID)
	if errors.Is(err, store.ErrOwnerNotFound) {
		switch {
		case cmd == "/start":
			b.present(ctx, chatID, nil, landingView())
			return nil
		case !ownerCommands[cmd]:
			b.send(ctx, chatID, "Please use the special link provided by the channel owner to start the subscription process.")
			return nil
		}
		owner, err = b.owners.EnsureOwner(ctx, userID, msg.From.UserName, msg.From.FirstName)
	}
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}
	if owner.IsBanned {
		b.send(ctx, chatID, "❌ Your account is currently banned."+b.supportLine())
		return nil
	}

	if sess != nil {
		switch sess.Step {
		case session.StepAwaitingChannelForward:
			return b.handleChannelForward(ctx, msg, owner)
		case session.StepAwaitingPlans:
			return b.handlePlansInput(ctx, msg, owner, sess)
		case session.StepAwaitingEditPlans:
			return b.handleEditPlansInput(ctx, msg, owner, sess)
		case session.StepAwaitingUPI:
			return b.handleUPIInput(ctx, msg, owner)
		case session.StepAwaitingWithdrawConfirm:
			b.send(ctx, chatID, "Please confirm or cancel the withdrawal using the buttons above, or send /start to go back.")
			return nil
		}
	}

	switch cmd {
	case "/start":
		b.present(ctx, chatID, nil, mainMenuView(owner, ""))
	case "/addchannel":
		return b.startAddChannel(ctx, chatID, nil, owner)
	case "/dashboard":
		return b.showDashboard(ctx, chatID, nil, owner)
	case "/withdraw":
		return b.startWithdrawal(ctx, chatID, nil, owner)
	case "/mychannels":
		return b.listChannels(ctx, chatID, nil, owner)
	case "/help":
		b.present(ctx, chatID, nil, ownerHelpView(""))
	default:
		b.present(ctx, chatID, nil, mainMenuView(owner, "I didn't understand. Here are the options:"))
	}
	return nil
}

func (b *Bot) handleOwnerCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, data callback.Data) error {
	userID := cq.From.ID
	owner, err := b.owners.EnsureOwner(ctx, userID, cq.From.UserName, cq.From.FirstName)
	if err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}
	b.answer(ctx, cq, "")
	if owner.IsBanned {
		b.send(ctx, userID, "❌ Your account is currently banned."+b.supportLine())
		return nil
	}

	switch data.Action {
	case callback.OwnerMenu:
		b.present(ctx, userID, cq, mainMenuView(owner, ""))
	case callback.OwnerDashboard:
		return b.showDashboard(ctx, userID, cq, owner)
	case callback.OwnerAddChannel:
		return b.startAddChannel(ctx, userID, cq, owner)
	case callback.OwnerChannels:
		return b.listChannels(ctx, userID, cq, owner)
	case callback.OwnerHelp:
		b.present(ctx, userID, cq, ownerHelpView(data.Arg))
	case callback.TransactionHistory:
		return b.showTransactions(ctx, cq, owner)
	case callback.WithdrawalHistory:
		return b.showWithdrawals(ctx, cq, owner)
	case callback.ChannelStats:
		return b.showChannelStats(ctx, cq, owner)
	case callback.WithdrawStart:
		return b.startWithdrawal(ctx, userID, cq, owner)
	case callback.WithdrawConfirm:
		return b.confirmWithdrawal(ctx, cq)
	case callback.WithdrawCancel:
		b.resetSession(ctx, userID)
		b.edit(ctx, cq, "Withdrawal cancelled.", backTo(callback.OwnerDashboard))
	case callback.ManageChannel, callback.EditPlans, callback.ChannelLink, callback.RemoveChannel, callback.ConfirmRemove:
		ref, err := data.UUIDArg()
		if err != nil {
			b.edit(ctx, cq, "This button is no longer valid.", backTo(callback.OwnerChannels))
			return nil
		}
		return b.handleChannelAction(ctx, cq, owner, data.Action, ref)
	}
	return nil
}

func landingView() view {
	return view{
		text: "👋 <b>Welcome to MonetizeGram!</b>\n\nThe platform to monetize your Telegram channel or join exclusive premium content.\n\nWhat would you like to do today?",
		rows: [][]telegram.Button{
			telegram.Row(dataButton("🚀 Monetize My Channel", callback.OwnerAddChannel, "")),
			telegram.Row(dataButton("❓ How it Works", callback.OwnerHelp, "")),
		},
	}
}

func mainMenuView(owner *domain.Owner, prefix string) view {
	name := owner.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Welcome, <b>%s</b>!\n\nManage your channels and earnings from here.", html.EscapeString(name))
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return view{
		text: text,
		rows: [][]telegram.Button{
			telegram.Row(dataButton("📊 Dashboard", callback.OwnerDashboard, ""), dataButton("➕ Add Channel", callback.OwnerAddChannel, "")),
			telegram.Row(dataButton("📺 My Channels", callback.OwnerChannels, ""), dataButton("❓ Help", callback.OwnerHelp, "")),
		},
	}
}

func (b *Bot) showDashboard(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	d, err := b.owners.Dashboard(ctx, owner)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	b.present(ctx, chatID, cq, dashboardView(d, b.config.CommissionPercent))
	return nil
}

func dashboardView(d *app.Dashboard, commission float64) view {
	text := fmt.Sprintf(
		"📊 <b>Your Dashboard</b>\n\n📈 Total Revenue: ₹%s\n➖ Service Charge (%s%%): ₹%s\n💰 Gross Earnings: ₹%s\n💸 Total Paid Out: ₹%s\n\n✅ <b>Withdrawable Balance: ₹%s</b>",
		domain.FormatPaise(d.TotalRevenue),
		strconv.FormatFloat(commission, 'f', -1, 64),
		domain.FormatPaise(d.ServiceCharge),
		domain.FormatPaise(d.GrossEarnings),
		domain.FormatPaise(d.TotalPaidOut),
		domain.FormatPaise(d.Withdrawable),
	)
	return view{
		text: text,
		rows: [][]telegram.Button{
			telegram.Row(dataButton("💸 Request Withdrawal", callback.WithdrawStart, "")),
			telegram.Row(dataButton("🧾 Transactions", callback.TransactionHistory, ""), dataButton("📜 Withdrawal History", callback.WithdrawalHistory, "")),
			telegram.Row(dataButton("📈 Channel Stats", callback.ChannelStats, "")),
			backTo(callback.OwnerMenu),
		},
	}
}

func (b *Bot) showTransactions(ctx context.Context, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	txns, err := b.owners.RecentTransactions(ctx, owner)
	if err != nil {
		return fmt.Errorf("recent transactions: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("🧾 <b>Recent Transactions</b>\n")
	if len(txns) == 0 {
		sb.WriteString("\nNo sales yet.")
	}
	for _, t := range txns {
		fmt.Fprintf(&sb, "\n• %s: ₹%s paid, ₹%s credited (%d days, user <code>%d</code>)",
			t.CreatedAt.Format("02 Jan 2006"), domain.FormatPaise(t.AmountPaid), domain.FormatPaise(t.AmountCredited), t.PlanDays, t.SubscriberID)
	}
	b.edit(ctx, cq, sb.String(), backTo(callback.OwnerDashboard))
	return nil
}

func (b *Bot) showWithdrawals(ctx context.Context, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	ws, err := b.owners.RecentWithdrawals(ctx, owner)
	if err != nil {
		return fmt.Errorf("recent withdrawals: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("📜 <b>Withdrawal History</b>\n")
	if len(ws) == 0 {
		sb.WriteString("\nNo withdrawals yet.")
	}
	for _, w := range ws {
		fmt.Fprintf(&sb, "\n• %s: ₹%s to <code>%s</code> (%s)",
			w.RequestedAt.Format("02 Jan 2006"), domain.FormatPaise(w.Amount), html.EscapeString(w.UPIID), w.Status)
	}
	b.edit(ctx, cq, sb.String(), backTo(callback.OwnerDashboard))
	return nil
}

func (b *Bot) showChannelStats(ctx context.Context, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	stats, err := b.owners.ChannelStats(ctx, owner)
	if err != nil {
		return fmt.Errorf("channel stats: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("📈 <b>Channel Stats</b>\n")
	if len(stats) == 0 {
		sb.WriteString("\nNo sales yet.")
	}
	for _, s := range stats {
		name := s.ChannelName
		if name == "" {
			name = fmt.Sprintf("Deleted Channel (%d)", s.ChannelID)
		}
		fmt.Fprintf(&sb, "\n• <b>%s</b>: ₹%s from %d sale(s)", html.EscapeString(name), domain.FormatPaise(s.Revenue), s.Sales)
	}
	b.edit(ctx, cq, sb.String(), backTo(callback.OwnerDashboard))
	return nil
}

// Add channel

func (b *Bot) startAddChannel(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	if err := b.saveSession(ctx, &session.Session{UserID: owner.TelegramID, Step: session.StepAwaitingChannelForward}); err != nil {
		return err
	}
	b.present(ctx, chatID, cq, view{text: "➕ <b>Add a New Channel</b>\n\n1. Make this bot an <b>admin</b> of your channel with permission to invite users.\n2. <b>Forward any message</b> from that channel to me.\n\nSend /start to cancel."})
	return nil
}

func (b *Bot) handleChannelForward(ctx context.Context, msg *tgbotapi.Message, owner *domain.Owner) error {
	fwd := msg.ForwardFromChat
	if fwd == nil || !fwd.IsChannel() {
		b.send(ctx, msg.Chat.ID, "Please forward a message from your channel (not a copy). Send /start to cancel.")
		return nil
	}

	err := b.owners.VerifyChannelAdmin(ctx, fwd.ID)
	if errors.Is(err, app.ErrBotNotChannelAdmin) {
		b.send(ctx, msg.Chat.ID, fmt.Sprintf("I'm not an admin in <b>%s</b> yet. Make me an admin with permission to invite users, then forward a message again.", html.EscapeString(fwd.Title)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("verify channel admin: %w", err)
	}

	if err := b.saveSession(ctx, &session.Session{
		UserID:      owner.TelegramID,
		Step:        session.StepAwaitingPlans,
		ChannelID:   fwd.ID,
		ChannelName: fwd.Title,
	}); err != nil {
		return err
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ Channel <b>%s</b> verified.\n\nNow send your subscription plans, one per line:\n<code>30 days 100 rs\n90 days 250 rs</code>", html.EscapeString(fwd.Title)))
	return nil
}

func (b *Bot) handlePlansInput(ctx context.Context, msg *tgbotapi.Message, owner *domain.Owner, sess *session.Session) error {
	channel, err := b.owners.RegisterChannel(ctx, owner, sess.ChannelID, sess.ChannelName, msg.Text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidPlanFormat):
		b.send(ctx, msg.Chat.ID, planFormatHelp)
		return nil
	case errors.Is(err, store.ErrDuplicateChannel):
		b.resetSession(ctx, owner.TelegramID)
		b.send(ctx, msg.Chat.ID, "This channel is already registered on the platform.")
		return nil
	case errors.Is(err, store.ErrOwnerBanned):
		b.resetSession(ctx, owner.TelegramID)
		b.send(ctx, msg.Chat.ID, "❌ Your account is currently banned."+b.supportLine())
		return nil
	default:
		return fmt.Errorf("register channel: %w", err)
	}

	b.resetSession(ctx, owner.TelegramID)
	b.send(ctx, msg.Chat.ID, fmt.Sprintf(
		"🎉 <b>%s</b> is now live!\n\nShare this link with your subscribers:\n%s",
		html.EscapeString(channel.ChannelName), b.owners.ChannelLink(channel),
	), backTo(callback.OwnerMenu))
	return nil
}

const planFormatHelp = "❌ Invalid format. Send each plan on its own line, for example:\n<code>30 days 100 rs\n90 days 250 rs</code>\n\nSend /start to cancel."

// My channels

func (b *Bot) listChannels(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	channels, err := b.owners.ListChannels(ctx, owner)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	if len(channels) == 0 {
		b.present(ctx, chatID, cq, view{
			text: "You haven't added any channels yet.",
			rows: [][]telegram.Button{telegram.Row(dataButton("➕ Add Channel", callback.OwnerAddChannel, "")), backTo(callback.OwnerMenu)},
		})
		return nil
	}
	rows := make([][]telegram.Button, 0, len(channels)+1)
	for _, c := range channels {
		rows = append(rows, telegram.Row(dataButton("⚙️ "+c.ChannelName, callback.ManageChannel, c.ID.String())))
	}
	rows = append(rows, backTo(callback.OwnerMenu))
	b.present(ctx, chatID, cq, view{text: "📺 <b>Your Channels</b>\n\nSelect a channel to manage:", rows: rows})
	return nil
}

func (b *Bot) handleChannelAction(ctx context.Context, cq *tgbotapi.CallbackQuery, owner *domain.Owner, action callback.Action, ref uuid.UUID) error {
	channel, err := b.owners.OwnedChannel(ctx, owner, ref)
	if errors.Is(err, store.ErrChannelNotFound) {
		b.edit(ctx, cq, "This channel no longer exists.", backTo(callback.OwnerChannels))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load channel: %w", err)
	}
	name := html.EscapeString(channel.ChannelName)
	arg := channel.ID.String()

	switch action {
	case callback.ManageChannel:
		b.edit(ctx, cq, fmt.Sprintf("⚙️ <b>%s</b>\n\nCurrent plans:\n<code>%s</code>", name, html.EscapeString(domain.FormatPlans(channel.Plans))),
			telegram.Row(dataButton("✏️ Edit Plans", callback.EditPlans, arg), dataButton("🔗 Get Link", callback.ChannelLink, arg)),
			telegram.Row(dataButton("🗑️ Remove Channel", callback.RemoveChannel, arg)),
			backTo(callback.OwnerChannels),
		)
	case callback.EditPlans:
		if err := b.saveSession(ctx, &session.Session{UserID: owner.TelegramID, Step: session.StepAwaitingEditPlans, ChannelRef: channel.ID}); err != nil {
			return err
		}
		b.edit(ctx, cq, fmt.Sprintf("✏️ Send the new plans for <b>%s</b>, one per line. They replace the current list.\n<code>30 days 100 rs</code>\n\nSend /start to cancel.", name))
	case callback.ChannelLink:
		b.edit(ctx, cq, fmt.Sprintf("🔗 Subscriber link for <b>%s</b>:\n%s", name, b.owners.ChannelLink(channel)), telegram.Row(dataButton("⬅️ Back", callback.ManageChannel, arg)))
	case callback.RemoveChannel:
		b.edit(ctx, cq, fmt.Sprintf("🗑️ Remove <b>%s</b>?\n\nNew subscriptions stop immediately. Existing subscribers keep access until their plan expires. This cannot be undone.", name),
			telegram.Row(dataButton("✅ Yes, remove", callback.ConfirmRemove, arg), dataButton("⬅️ Cancel", callback.ManageChannel, arg)),
		)
	case callback.ConfirmRemove:
		if err := b.owners.RemoveChannel(ctx, owner, channel.ID); err != nil && !errors.Is(err, store.ErrChannelNotFound) {
			return fmt.Errorf("remove channel: %w", err)
		}
		b.edit(ctx, cq, fmt.Sprintf("🗑️ <b>%s</b> has been removed.", name), backTo(callback.OwnerChannels))
	}
	return nil
}

func (b *Bot) handleEditPlansInput(ctx context.Context, msg *tgbotapi.Message, owner *domain.Owner, sess *session.Session) error {
	plans, err := b.owners.UpdatePlans(ctx, owner, sess.ChannelRef, msg.Text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidPlanFormat):
		b.send(ctx, msg.Chat.ID, planFormatHelp)
		return nil
	case errors.Is(err, store.ErrChannelNotFound):
		b.resetSession(ctx, owner.TelegramID)
		b.send(ctx, msg.Chat.ID, "This channel no longer exists.")
		return nil
	default:
		return fmt.Errorf("update plans: %w", err)
	}
	b.resetSession(ctx, owner.TelegramID)
	b.send(ctx, msg.Chat.ID, "✅ Plans updated:\n<code>"+html.EscapeString(domain.FormatPlans(plans))+"</code>", backTo(callback.OwnerChannels))
	return nil
}

// Withdrawals

func (b *Bot) startWithdrawal(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery, owner *domain.Owner) error {
	err := b.owners.CheckWithdrawalEligibility(owner)
	switch {
	case errors.Is(err, app.ErrBelowMinimumWithdrawal):
		b.present(ctx, chatID, cq, view{
			text: fmt.Sprintf("Your withdrawable balance is ₹%s. The minimum withdrawal amount is ₹%s.",
				domain.FormatPaise(owner.WalletBalance), domain.FormatPaise(b.owners.MinimumWithdrawal())),
			rows: [][]telegram.Button{backTo(callback.OwnerDashboard)},
		})
		return nil
	case errors.Is(err, store.ErrOwnerBanned):
		b.send(ctx, chatID, "❌ Your account is currently banned."+b.supportLine())
		return nil
	case err != nil:
		return err
	}

	if err := b.saveSession(ctx, &session.Session{UserID: owner.TelegramID, Step: session.StepAwaitingUPI}); err != nil {
		return err
	}
	b.present(ctx, chatID, cq, view{text: fmt.Sprintf(
		"💸 You can withdraw <b>₹%s</b>.\n\nPlease send the UPI ID where you want to receive the money (e.g. <code>yourname@oksbi</code>).\n\nSend /start to cancel.",
		domain.FormatPaise(owner.WalletBalance),
	)})
	return nil
}

func (b *Bot) handleUPIInput(ctx context.Context, msg *tgbotapi.Message, owner *domain.Owner) error {
	upi, err := domain.NormalizePayoutAddress(msg.Text)
	if err != nil {
		b.send(ctx, msg.Chat.ID, "That doesn't look like a valid UPI ID. Please send it in the form <code>name@bank</code>, or /start to cancel.")
		return nil
	}
	if err := b.owners.CheckWithdrawalEligibility(owner); err != nil {
		b.resetSession(ctx, owner.TelegramID)
		b.send(ctx, msg.Chat.ID, "Your balance is no longer eligible for withdrawal.", backTo(callback.OwnerDashboard))
		return nil
	}

	if err := b.saveSession(ctx, &session.Session{
		UserID:        owner.TelegramID,
		Step:          session.StepAwaitingWithdrawConfirm,
		PayoutAddress: upi,
		Amount:        owner.WalletBalance,
	}); err != nil {
		return err
	}
	b.send(ctx, msg.Chat.ID,
		fmt.Sprintf("Please confirm your withdrawal:\n\nAmount: <b>₹%s</b>\nUPI ID: <code>%s</code>", domain.FormatPaise(owner.WalletBalance), html.EscapeString(upi)),
		telegram.Row(dataButton("✅ Confirm", callback.WithdrawConfirm, ""), dataButton("❌ Cancel", callback.WithdrawCancel, "")),
	)
	return nil
}

func (b *Bot) confirmWithdrawal(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	userID := cq.From.ID
	sess, err := b.sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.Step != session.StepAwaitingWithdrawConfirm {
		b.edit(ctx, cq, "This withdrawal request has expired. Start again with /withdraw.")
		return nil
	}
	b.resetSession(ctx, userID)

	w, err := b.owners.RequestWithdrawal(ctx, userID, sess.PayoutAddress)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrBelowMinimumWithdrawal), errors.Is(err, store.ErrInsufficientFunds):
		b.edit(ctx, cq, "Your balance changed and is no longer eligible for withdrawal.", backTo(callback.OwnerDashboard))
		return nil
	case errors.Is(err, store.ErrOwnerBanned):
		b.edit(ctx, cq, "❌ Your account is currently banned."+b.supportLine())
		return nil
	default:
		return fmt.Errorf("request withdrawal: %w", err)
	}
	b.edit(ctx, cq, fmt.Sprintf(
		"✅ Your withdrawal request for <b>₹%s</b> to <code>%s</code> has been submitted. It is usually processed within 24 hours.",
		domain.FormatPaise(w.Amount), html.EscapeString(w.UPIID),
	), backTo(callback.OwnerDashboard))
	return nil
}
