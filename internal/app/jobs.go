/**
 * @description
 * Periodic maintenance jobs: the expiry sweeper for subscriptions, the
 * retention purge for banned owners and the cleanup of expired pending
 * payments. They are triggered by the in-process cron schedule and by the
 * authenticated cron HTTP endpoint.
 */
package app

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	"github.com/google/uuid"
)

// SweeperStore defines database operations needed by the jobs.
type SweeperStore interface {
	ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error)
	DeleteExpiredSubscriber(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	HasActiveSubscription(ctx context.Context, telegramID, channelID int64, now time.Time) (bool, error)
	PurgeBannedOwners(ctx context.Context, bannedBefore time.Time) (int64, error)
	PurgeExpiredPendingPayments(ctx context.Context) (int64, error)
}

// JobsConfig holds the retention settings of the jobs.
type JobsConfig struct {
	BannedOwnerRetention time.Duration
	EventsExchange       string
	RunTimeout           time.Duration
}

// MaintenanceResult reports what one maintenance run removed.
type MaintenanceResult struct {
	ExpiredSubscriptions int
	BannedOwnersPurged   int64
	ExpiredIntentsPurged int64
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	store     SweeperStore
	messenger Messenger
	notifier  *Notifier
	events    eventSink
	config    JobsConfig
	now       Clock
	logger    *slog.Logger
	metrics   *Metrics
}

// NewJobs creates a new Jobs runner.
func NewJobs(st SweeperStore, messenger Messenger, notifier *Notifier, publisher EventPublisher, cfg JobsConfig, logger *slog.Logger, metrics *Metrics) *Jobs {
	if cfg.BannedOwnerRetention <= 0 {
		cfg.BannedOwnerRetention = 7 * 24 * time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &Jobs{
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

// SweepExpiredSubscriptions removes every subscriber whose access has lapsed and
// returns how many records were deleted. Each record is claimed with a delete that
// only matches while it is still expired, so a renewal settled mid-sweep survives
// and its member is never kicked. A failed removal from the channel is logged and
// the record stays deleted.
func (j *Jobs) SweepExpiredSubscriptions(ctx context.Context) (int, error) {
	now := j.now()
	expired, err := j.store.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired subscriptions: %w", err)
	}

	processed := 0
	for _, item := range expired {
		sub := item.Subscriber

		claimed, err := j.store.DeleteExpiredSubscriber(ctx, sub.ID, now)
		if err != nil {
			j.logger.Error("failed to delete expired subscriber", "subscriber_id", sub.TelegramID, "channel_id", sub.ChannelID, "error", err)
			continue
		}
		if !claimed {
			j.logger.Info("subscription renewed during sweep", "subscriber_id", sub.TelegramID, "channel_id", sub.ChannelID)
			continue
		}

		revoked := false
		if item.Channel != nil {
			revoked = j.revokeUnlessRenewed(ctx, item, now)
		}

		processed++
		j.metrics.incSwept(revoked)
		j.events.publish(ctx, domain.EventSubscriptionExpired, domain.SubscriptionExpiredEvent{
			SubscriberID: sub.TelegramID,
			ChannelID:    sub.ChannelID,
			Revoked:      revoked,
			ExpiredAt:    sub.ExpiresAt,
			Timestamp:    now,
		})
	}
	return processed, nil
}

// revokeUnlessRenewed kicks the member unless a payment settled after the claim
// already granted a fresh subscription for the same pair.
func (j *Jobs) revokeUnlessRenewed(ctx context.Context, item domain.ExpiredSubscription, now time.Time) bool {
	sub := item.Subscriber
	active, err := j.store.HasActiveSubscription(ctx, sub.TelegramID, sub.ChannelID, now)
	if err != nil {
		j.logger.Warn("renewal check failed before revoke", "subscriber_id", sub.TelegramID, "channel_id", sub.ChannelID, "error", err)
	}
	if active {
		j.logger.Info("subscription renewed after claim, keeping member", "subscriber_id", sub.TelegramID, "channel_id", sub.ChannelID)
		return false
	}
	if err := j.revoke(ctx, item); err != nil {
		j.logger.Warn("failed to revoke expired subscriber", "subscriber_id", sub.TelegramID, "channel_id", sub.ChannelID, "error", err)
		return false
	}
	return true
}

func (j *Jobs) revoke(ctx context.Context, item domain.ExpiredSubscription) error {
	if err := j.messenger.RemoveMember(ctx, item.Channel.ChannelID, item.Subscriber.TelegramID); err != nil {
		return err
	}
	j.notifier.Send(ctx, telegram.Message{
		ChatID: item.Subscriber.TelegramID,
		Text: fmt.Sprintf(
			"⏳ Your subscription to <b>%s</b> has expired and you have been removed from the channel.\n\nRenew any time with the button below.",
			html.EscapeString(item.Channel.ChannelName),
		),
		ParseMode: telegram.ParseModeHTML,
		Keyboard: [][]telegram.Button{
			telegram.Row(telegram.URLButton("🔄 Renew Subscription", telegram.DeepLink(j.messenger.Username(), item.Channel.StartKey))),
		},
	})
	return nil
}

// PurgeBannedOwners hard-deletes owners banned longer than the retention period.
func (j *Jobs) PurgeBannedOwners(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.config.BannedOwnerRetention)
	n, err := j.store.PurgeBannedOwners(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge banned owners: %w", err)
	}
	return n, nil
}

// PurgeExpiredIntents deletes pending payments past their retention window.
func (j *Jobs) PurgeExpiredIntents(ctx context.Context) (int64, error) {
	n, err := j.store.PurgeExpiredPendingPayments(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired pending payments: %w", err)
	}
	return n, nil
}

// RunMaintenance runs the subscription sweep, the banned-owner purge and the
// expired-intent purge in that order, stopping at the first failure.
func (j *Jobs) RunMaintenance(ctx context.Context) (MaintenanceResult, error) {
	var result MaintenanceResult
	var err error

	if result.ExpiredSubscriptions, err = j.SweepExpiredSubscriptions(ctx); err != nil {
		return result, err
	}
	if result.BannedOwnersPurged, err = j.PurgeBannedOwners(ctx); err != nil {
		return result, err
	}
	if result.ExpiredIntentsPurged, err = j.PurgeExpiredIntents(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// ProcessMaintenance is the cron entry point for RunMaintenance.
func (j *Jobs) ProcessMaintenance() {
	j.logger.Info("starting maintenance job")
	ctx, cancel := context.WithTimeout(context.Background(), j.config.RunTimeout)
	defer cancel()

	result, err := j.RunMaintenance(ctx)
	if err != nil {
		j.logger.Error("maintenance job failed", "error", err)
		return
	}

	j.logger.Info("maintenance job finished",
		"expired_subscriptions", result.ExpiredSubscriptions,
		"banned_owners_purged", result.BannedOwnersPurged,
		"expired_intents_purged", result.ExpiredIntentsPurged,
	)
}
