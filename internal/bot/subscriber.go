package bot

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/session"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStartKey(ctx context.Context, msg *tgbotapi.Message, key string) error {
	channel, err := b.checkout.ResolveStartKey(ctx, key)
	if errors.Is(err, app.ErrInvalidStartKey) {
		b.send(ctx, msg.Chat.ID, "This link seems to be invalid or expired. Please contact the channel owner for a new link.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve start key: %w", err)
	}

	rows := make([][]telegram.Button, 0, len(channel.Plans))
	for _, p := range channel.Plans {
		label := fmt.Sprintf("%d Days for ₹%s", p.Days, domain.FormatPaise(p.Price))
		rows = append(rows, telegram.Row(telegram.DataButton(label, callback.Plan(channel.ID, p.Days, p.Price).Encode())))
	}
	b.send(ctx, msg.Chat.ID, fmt.Sprintf("Welcome to <b>%s</b>!\n\nPlease select a subscription plan:", html.EscapeString(channel.ChannelName)), rows...)
	return nil
}

func (b *Bot) handleSubscriberCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, data callback.Data) error {
	userID := cq.From.ID
	switch data.Action {
	case callback.SelectPlan:
		return b.selectPlan(ctx, cq, data)

	case callback.ReportIssue:
		ref, err := data.UUIDArg()
		if err != nil {
			b.answer(ctx, cq, "This button is no longer valid.")
			return nil
		}
		if err := b.saveSession(ctx, &session.Session{UserID: userID, Step: session.StepAwaitingReportReason, ChannelRef: ref}); err != nil {
			return err
		}
		b.answer(ctx, cq, "")
		b.send(ctx, userID, "Please describe the issue you are facing. Your message will be sent to the admin.",
			telegram.Row(telegram.DataButton("Cancel", callback.New(callback.CancelReport, "").Encode())))
		return nil

	case callback.CancelReport:
		b.answer(ctx, cq, "Report cancelled.")
		b.edit(ctx, cq, "Report cancelled.")
		return nil
	}
	return nil
}

func (b *Bot) selectPlan(ctx context.Context, cq *tgbotapi.CallbackQuery, data callback.Data) error {
	userID := cq.From.ID
	ref, days, price, err := data.PlanArg()
	if err != nil {
		b.answer(ctx, cq, "This button is no longer valid.")
		return nil
	}

	inst, err := b.checkout.SelectPlan(ctx, userID, ref, days, price)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrRateLimited):
		b.answer(ctx, cq, "Too many requests. Please wait a minute and try again.")
		return nil
	case errors.Is(err, app.ErrPlanUnavailable):
		b.answer(ctx, cq, "This plan is no longer available.")
		b.send(ctx, userID, "This plan is no longer available. Please use the channel link again to see the current plans.")
		return nil
	case errors.Is(err, app.ErrAllocationExhausted):
		b.answer(ctx, cq, "Please try again in a moment.")
		b.send(ctx, userID, "Sorry, we couldn't generate a payment link right now. Please try again in a moment.")
		return nil
	default:
		return fmt.Errorf("select plan: %w", err)
	}
	b.answer(ctx, cq, "")

	amount := domain.FormatPaise(inst.Intent.UniqueAmount)
	text := fmt.Sprintf(
		"Great! To get the <b>%d Days Plan</b> for <b>%s</b>, please pay exactly <b>₹%s</b>.\n\nThe exact amount identifies your payment, so do not round it. This amount is reserved for you for %d minutes.",
		days, html.EscapeString(inst.Channel.ChannelName), amount, int(inst.ExpiresIn.Minutes()),
	)
	if inst.PaymentURL == "" {
		b.send(ctx, userID, text)
		return nil
	}
	b.send(ctx, userID, text, telegram.Row(telegram.URLButton("Pay ₹"+amount+" Now", inst.PaymentURL)))
	return nil
}

func (b *Bot) handleReportReason(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) error {
	userID := msg.From.ID
	_, err := b.reports.FileReport(ctx, userID, sess.ChannelRef, msg.Text)
	switch {
	case err == nil:
		b.resetSession(ctx, userID)
		b.send(ctx, msg.Chat.ID, "✅ Thank you for your report. The admin has been notified.")
		return nil
	case errors.Is(err, domain.ErrInvalidReportReason):
		b.send(ctx, msg.Chat.ID, "Please describe the issue as a text message (up to 1000 characters).")
		return nil
	case errors.Is(err, store.ErrChannelNotFound):
		b.resetSession(ctx, userID)
		b.send(ctx, msg.Chat.ID, "That channel is no longer on our platform, so the report could not be filed."+b.supportLine())
		return nil
	default:
		return fmt.Errorf("file report: %w", err)
	}
}
