package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/google/uuid"
)

const maxReserveAttempts = 5

// CheckoutStore is the slice of the repository the subscriber checkout needs.
type CheckoutStore interface {
	GetChannelByStartKey(ctx context.Context, startKey string) (*domain.ManagedChannel, error)
	GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error)
	CreatePendingPayment(ctx context.Context, payment *domain.PendingPayment) error
}

// AmountAllocator hands out unique amounts.
type AmountAllocator interface {
	Allocate(ctx context.Context, pricePaise int64) (int64, error)
}

// CheckoutConfig holds the checkout settings.
type CheckoutConfig struct {
	PublicURL      string
	PendingTTL     time.Duration
	EventsExchange string
}

// PaymentInstructions is what the subscriber needs to pay for a plan.
type PaymentInstructions struct {
	Intent     *domain.PendingPayment
	Channel    *domain.ManagedChannel
	PaymentURL string
	ExpiresIn  time.Duration
}

// Checkout turns a subscriber's plan choice into a reserved unique amount.
type Checkout struct {
	store     CheckoutStore
	allocator AmountAllocator
	throttle  SelectionThrottle
	notifier  *Notifier
	events    eventSink
	config    CheckoutConfig
	logger    *slog.Logger
}

func NewCheckout(st CheckoutStore, allocator AmountAllocator, throttle SelectionThrottle, notifier *Notifier, publisher EventPublisher, cfg CheckoutConfig, logger *slog.Logger) *Checkout {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 2 * time.Hour
	}
	return &Checkout{
		store:     st,
		allocator: allocator,
		throttle:  throttle,
		notifier:  notifier,
		events:    eventSink{publisher: publisher, exchange: cfg.EventsExchange, logger: logger},
		config:    cfg,
		logger:    logger,
	}
}

// ResolveStartKey finds the channel a deep link points at.
func (c *Checkout) ResolveStartKey(ctx context.Context, startKey string) (*domain.ManagedChannel, error) {
	if startKey == "" {
		return nil, ErrInvalidStartKey
	}
	channel, err := c.store.GetChannelByStartKey(ctx, startKey)
	if errors.Is(err, store.ErrChannelNotFound) {
		return nil, ErrInvalidStartKey
	}
	if err != nil {
		return nil, fmt.Errorf("resolve start key: %w", err)
	}
	return channel, nil
}

// SelectPlan reserves a unique amount for the chosen plan. The plan is checked
// against the channel's current plans so a stale button cannot buy a removed plan.
func (c *Checkout) SelectPlan(ctx context.Context, subscriberID int64, channelRef uuid.UUID, days int, pricePaise int64) (*PaymentInstructions, error) {
	if err := c.throttleSelection(ctx, subscriberID); err != nil {
		return nil, err
	}

	channel, err := c.store.GetChannelByID(ctx, channelRef)
	if errors.Is(err, store.ErrChannelNotFound) {
		return nil, ErrPlanUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("load channel: %w", err)
	}
	plan, ok := channel.FindPlan(days, pricePaise)
	if !ok {
		return nil, ErrPlanUnavailable
	}

	intent, err := c.reserve(ctx, subscriberID, channel, plan)
	if err != nil {
		if errors.Is(err, ErrAllocationExhausted) {
			c.notifier.Admin(ctx, fmt.Sprintf(
				"🚨 <b>Allocation exhausted</b>\nNo unique amount is free near ₹%s. Subscriber <code>%d</code> could not check out for %s.",
				domain.FormatPaise(plan.Price), subscriberID, html.EscapeString(channel.ChannelName),
			))
		}
		return nil, err
	}

	c.notifier.Admin(ctx, fmt.Sprintf(
		"🔔 <b>New Payment Link Generated</b>\n\nUser: <code>%d</code>\nChannel: %s\nPlan: %d days for ₹%s\nAmount to pay: <b>₹%s</b>",
		subscriberID, html.EscapeString(channel.ChannelName), plan.Days, domain.FormatPaise(plan.Price), domain.FormatPaise(intent.UniqueAmount),
	))
	c.events.publish(ctx, domain.EventPaymentIntentCreated, domain.PaymentIntentCreatedEvent{
		IntentID:     intent.ID,
		SubscriberID: subscriberID,
		ChannelID:    channel.ChannelID,
		UniqueAmount: intent.UniqueAmount,
		PlanDays:     plan.Days,
		PlanPrice:    plan.Price,
		Timestamp:    intent.CreatedAt,
	})

	return &PaymentInstructions{
		Intent:     intent,
		Channel:    channel,
		PaymentURL: c.PaymentURL(intent.UniqueAmount),
		ExpiresIn:  c.config.PendingTTL,
	}, nil
}

// PaymentURL is the hosted payment page for amount, or "" when no public URL is set.
func (c *Checkout) PaymentURL(amount int64) string {
	if c.config.PublicURL == "" {
		return ""
	}
	return c.config.PublicURL + "/?amount=" + domain.FormatPaise(amount)
}

// reserve allocates and inserts the intent, retrying when a concurrent checkout
// wins the race for the probed amount.
func (c *Checkout) reserve(ctx context.Context, subscriberID int64, channel *domain.ManagedChannel, plan domain.Plan) (*domain.PendingPayment, error) {
	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		amount, err := c.allocator.Allocate(ctx, plan.Price)
		if err != nil {
			return nil, err
		}

		intent := &domain.PendingPayment{
			UniqueAmount: amount,
			SubscriberID: subscriberID,
			OwnerID:      channel.OwnerID,
			ChannelID:    channel.ChannelID,
			ChannelRef:   channel.ID,
			PlanDays:     plan.Days,
			PlanPrice:    plan.Price,
		}
		err = c.store.CreatePendingPayment(ctx, intent)
		if errors.Is(err, store.ErrDuplicateAmount) {
			c.logger.Info("unique amount taken concurrently; retrying", "amount", domain.FormatPaise(amount), "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create pending payment: %w", err)
		}
		return intent, nil
	}
	return nil, ErrAllocationExhausted
}

func (c *Checkout) throttleSelection(ctx context.Context, subscriberID int64) error {
	if c.throttle == nil {
		return nil
	}
	res, err := c.throttle.Hit(ctx, subscriberID)
	if err != nil {
		c.logger.Warn("checkout throttle unavailable; allowing selection", "subscriber_id", subscriberID, "error", err)
		return nil
	}
	if !res.Allowed() {
		return fmt.Errorf("%w: retry in %ds", ErrRateLimited, res.RetryAfterSeconds())
	}
	return nil
}
