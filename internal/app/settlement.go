/**
 * @description
 * Settlement procedure. Runs once per consumed pending payment: records the
 * sale, credits the owner, grants the subscription and hands out a single-use
 * invite link.
 *
 * @notes
 * - The intent is already gone when Settle starts. A failure here means money
 *   was presumably received without access being granted, so every failure is
 *   reported to the admin with the amount for manual remediation.
 * - Chat notifications after the ledger write are best effort.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	"github.com/google/uuid"
)

// SettlementStore is the slice of the repository settlement needs.
type SettlementStore interface {
	GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error)
	GetOwnerByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
	RecordSale(ctx context.Context, sale domain.Sale) (*domain.Transaction, error)
	UpsertSubscriber(ctx context.Context, subscriber *domain.Subscriber) error
}

// SettlementResult describes a completed settlement.
type SettlementResult struct {
	Transaction *domain.Transaction
	Subscriber  *domain.Subscriber
	InviteLink  string
}

// SettlementConfig holds the process-wide settlement constants.
type SettlementConfig struct {
	CommissionPercent float64
	InviteLinkTTL     time.Duration
	EventsExchange    string
}

// Settlement converts a consumed intent into ledger credit and channel access.
type Settlement struct {
	store     SettlementStore
	messenger Messenger
	notifier  *Notifier
	events    eventSink
	config    SettlementConfig
	now       Clock
	logger    *slog.Logger
	metrics   *Metrics
}

func NewSettlement(st SettlementStore, messenger Messenger, notifier *Notifier, publisher EventPublisher, cfg SettlementConfig, logger *slog.Logger, metrics *Metrics) *Settlement {
	if cfg.InviteLinkTTL <= 0 {
		cfg.InviteLinkTTL = 24 * time.Hour
	}
	return &Settlement{
		store:     st,
		messenger: messenger,
		notifier:  notifier,
		events:    eventSink{publisher: publisher, exchange: cfg.EventsExchange, logger: logger},
		config:    cfg,
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}
}

// subscriptionExpiry is the single place renewal policy lives: a new
// settlement always resets the expiry to now + days, discarding any remaining time.
func subscriptionExpiry(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, days)
}

// Settle executes the settlement steps for intent.
func (s *Settlement) Settle(ctx context.Context, intent *domain.PendingPayment, method Method) (result *SettlementResult, err error) {
	if intent == nil {
		return nil, errors.New("settle: nil intent")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("settlement panic: %v", rec)
		}
		if err != nil {
			s.metrics.incSettlement("failed")
			s.logger.Error("settlement failed after intent was consumed",
				"amount", domain.FormatPaise(intent.UniqueAmount),
				"subscriber_id", intent.SubscriberID,
				"channel_id", intent.ChannelID,
				"method", string(method),
				"error", err,
			)
			s.notifier.Admin(ctx, fmt.Sprintf(
				"❌ <b>CRITICAL ERROR during payment processing for ₹%s</b>\n\nMethod: %s\nSubscriber: <code>%d</code>\nChannel: <code>%d</code>\nPlan: %d days\n\nError: <code>%s</code>\n\nThe payment was consumed. Manual remediation required.",
				domain.FormatPaise(intent.UniqueAmount), method, intent.SubscriberID, intent.ChannelID, intent.PlanDays, html.EscapeString(err.Error()),
			))
		}
	}()

	channel, err := s.store.GetChannelByID(ctx, intent.ChannelRef)
	if err != nil {
		if errors.Is(err, store.ErrChannelNotFound) {
			return nil, fmt.Errorf("%w: channel %s", ErrReferenceNotFound, intent.ChannelRef)
		}
		return nil, fmt.Errorf("load channel: %w", err)
	}
	owner, err := s.store.GetOwnerByID(ctx, intent.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrOwnerNotFound) {
			return nil, fmt.Errorf("%w: owner %s", ErrReferenceNotFound, intent.OwnerID)
		}
		return nil, fmt.Errorf("load owner: %w", err)
	}

	commission, net := domain.SplitCommission(intent.PlanPrice, s.config.CommissionPercent)
	txn, err := s.store.RecordSale(ctx, domain.Sale{
		OwnerID:      owner.ID,
		SubscriberID: intent.SubscriberID,
		ChannelID:    intent.ChannelID,
		PlanDays:     intent.PlanDays,
		Gross:        intent.PlanPrice,
		Commission:   commission,
		Net:          net,
		UniqueAmount: intent.UniqueAmount,
		Method:       string(method),
	})
	if err != nil {
		return nil, fmt.Errorf("record sale: %w", err)
	}

	now := s.now()
	subscriber := &domain.Subscriber{
		TelegramID:      intent.SubscriberID,
		ChannelID:       intent.ChannelID,
		OwnerTelegramID: owner.TelegramID,
		SubscribedAt:    now,
		ExpiresAt:       subscriptionExpiry(now, intent.PlanDays),
	}
	if err := s.store.UpsertSubscriber(ctx, subscriber); err != nil {
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}

	s.metrics.incSettlement("settled")
	result = &SettlementResult{Transaction: txn, Subscriber: subscriber}

	link, linkErr := s.messenger.CreateInviteLink(ctx, intent.ChannelID, 1, now.Add(s.config.InviteLinkTTL))
	if linkErr != nil {
		s.logger.Error("failed to create invite link", "channel_id", intent.ChannelID, "subscriber_id", intent.SubscriberID, "error", linkErr)
		s.notifier.Admin(ctx, fmt.Sprintf(
			"⚠️ <b>Invite link failed</b>\nPayment ₹%s was credited but no link could be created.\nSubscriber: <code>%d</code>\nChannel: %s (<code>%d</code>)\nError: <code>%s</code>",
			domain.FormatPaise(intent.UniqueAmount), intent.SubscriberID, html.EscapeString(channel.ChannelName), intent.ChannelID, html.EscapeString(linkErr.Error()),
		))
		s.notifier.Text(ctx, intent.SubscriberID, fmt.Sprintf(
			"✅ <b>Payment confirmed!</b>\n\nYour %d-day subscription to <b>%s</b> is active, but we could not generate your invite link. The admin has been notified and will send it shortly.",
			intent.PlanDays, html.EscapeString(channel.ChannelName),
		))
	} else {
		result.InviteLink = link
		s.notifier.Send(ctx, telegram.Message{
			ChatID: intent.SubscriberID,
			Text: fmt.Sprintf(
				"✅ <b>Payment confirmed!</b>\n\nYour subscription to <b>%s</b> is active for %d days (until %s).\n\nHere is your one-time invite link, valid for %s:\n%s",
				html.EscapeString(channel.ChannelName), intent.PlanDays, subscriber.ExpiresAt.Format("02 Jan 2006"), humanDuration(s.config.InviteLinkTTL), link,
			),
			ParseMode: telegram.ParseModeHTML,
			Keyboard: [][]telegram.Button{
				telegram.Row(telegram.URLButton("🔗 Join Channel", link)),
				telegram.Row(telegram.DataButton("⚠️ Report an Issue", callback.Report(channel.ID).Encode())),
			},
		})
	}

	s.notifier.Text(ctx, owner.TelegramID, fmt.Sprintf(
		"🎉 <b>New Sale!</b>\n\nChannel: <b>%s</b>\nPlan: %d days\n₹%s credited to your wallet.",
		html.EscapeString(channel.ChannelName), intent.PlanDays, domain.FormatPaise(net),
	))
	s.notifier.Admin(ctx, fmt.Sprintf(
		"💸 <b>Sale Confirmed</b> (via %s)\n\nOwner: %s (<code>%d</code>)\nChannel: %s\nAmount: ₹%s\nCommission: ₹%s\nSubscriber: <code>%d</code>",
		method, html.EscapeString(ownerDisplayName(owner)), owner.TelegramID, html.EscapeString(channel.ChannelName),
		domain.FormatPaise(intent.PlanPrice), domain.FormatPaise(commission), intent.SubscriberID,
	))

	s.events.publish(ctx, domain.EventPaymentSettled, domain.PaymentSettledEvent{
		TransactionID: txn.ID,
		OwnerID:       owner.ID,
		SubscriberID:  intent.SubscriberID,
		ChannelID:     intent.ChannelID,
		PlanDays:      intent.PlanDays,
		Gross:         intent.PlanPrice,
		Commission:    commission,
		Net:           net,
		UniqueAmount:  intent.UniqueAmount,
		Method:        string(method),
		ExpiresAt:     subscriber.ExpiresAt,
		Timestamp:     now,
	})

	return result, nil
}

func ownerDisplayName(o *domain.Owner) string {
	if o.Username != "" {
		return "@" + o.Username
	}
	if o.FirstName != "" {
		return o.FirstName
	}
	return fmt.Sprintf("%d", o.TelegramID)
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
