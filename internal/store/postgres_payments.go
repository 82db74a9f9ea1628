package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pendingPaymentColumns = `id, unique_amount, subscriber_id, owner_id, channel_id, channel_ref, plan_days, plan_price, created_at`

// An expired holder of the amount is overwritten in place; a live one leaves the
// conflict unresolved and the statement returns no row.
const createPendingPaymentSQL = `
	INSERT INTO pending_payments (` + pendingPaymentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (unique_amount) DO UPDATE SET
		id = EXCLUDED.id,
		subscriber_id = EXCLUDED.subscriber_id,
		owner_id = EXCLUDED.owner_id,
		channel_id = EXCLUDED.channel_id,
		channel_ref = EXCLUDED.channel_ref,
		plan_days = EXCLUDED.plan_days,
		plan_price = EXCLUDED.plan_price,
		created_at = now()
	WHERE pending_payments.created_at <= now() - $9::bigint * interval '1 second'
	RETURNING created_at`

const consumePendingPaymentSQL = `
	DELETE FROM pending_payments
	WHERE unique_amount = $1
	  AND created_at > now() - $2::bigint * interval '1 second'
	RETURNING ` + pendingPaymentColumns

const deleteExpiredSubscriberSQL = `
	DELETE FROM subscribers
	WHERE id = $1
	  AND expires_at <= $2`

const hasActiveSubscriptionSQL = `
	SELECT EXISTS (
		SELECT 1 FROM subscribers
		WHERE telegram_id = $1
		  AND channel_id = $2
		  AND expires_at > $3
	)`

func scanPendingPayment(row pgx.Row) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	if err := row.Scan(
		&p.ID,
		&p.UniqueAmount,
		&p.SubscriberID,
		&p.OwnerID,
		&p.ChannelID,
		&p.ChannelRef,
		&p.PlanDays,
		&p.PlanPrice,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// PendingAmountExists reports whether a live intent currently holds the amount.
func (r *PostgresRepository) PendingAmountExists(ctx context.Context, amount int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pending_payments
			WHERE unique_amount = $1
			  AND created_at > now() - $2::bigint * interval '1 second'
		)
	`, amount, r.pendingTTLSeconds).Scan(&exists)
	return exists, err
}

// CreatePendingPayment reserves payment.UniqueAmount. A row left behind by an expired
// intent is reclaimed in the same statement; a live holder yields ErrDuplicateAmount.
func (r *PostgresRepository) CreatePendingPayment(ctx context.Context, payment *domain.PendingPayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, createPendingPaymentSQL,
		payment.ID,
		payment.UniqueAmount,
		payment.SubscriberID,
		payment.OwnerID,
		payment.ChannelID,
		payment.ChannelRef,
		payment.PlanDays,
		payment.PlanPrice,
		r.pendingTTLSeconds,
	).Scan(&payment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateAmount
		}
		if _, ok := isUniqueViolation(err); ok {
			return ErrDuplicateAmount
		}
		return err
	}
	return nil
}

// ConsumePendingPayment atomically deletes and returns the live intent holding the
// amount. Concurrent callers racing on the same amount see exactly one winner.
func (r *PostgresRepository) ConsumePendingPayment(ctx context.Context, amount int64) (*domain.PendingPayment, error) {
	return scanPendingPayment(r.db.QueryRow(ctx, consumePendingPaymentSQL, amount, r.pendingTTLSeconds))
}

// PurgeExpiredPendingPayments physically removes intents past the retention window.
func (r *PostgresRepository) PurgeExpiredPendingPayments(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM pending_payments
		WHERE created_at <= now() - $1::bigint * interval '1 second'
	`, r.pendingTTLSeconds)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func allocatorCursorKey(base int64) string {
	return "allocator_cursor:" + strconv.FormatInt(base, 10)
}

// GetAllocatorCursor returns the persisted current base for a price base.
func (r *PostgresRepository) GetAllocatorCursor(ctx context.Context, base int64) (int64, bool, error) {
	var raw string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, allocatorCursorKey(base)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	current, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return current, true, nil
}

func (r *PostgresRepository) SetAllocatorCursor(ctx context.Context, base, current int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, allocatorCursorKey(base), strconv.FormatInt(current, 10))
	return err
}

// RecordSale appends the transaction and credits the owner (wallet by net, lifetime
// earnings by gross) in a single database transaction.
func (r *PostgresRepository) RecordSale(ctx context.Context, sale domain.Sale) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn := domain.Transaction{
		ID:                uuid.New(),
		OwnerID:           sale.OwnerID,
		SubscriberID:      sale.SubscriberID,
		ChannelID:         sale.ChannelID,
		PlanDays:          sale.PlanDays,
		AmountPaid:        sale.Gross,
		CommissionCharged: sale.Commission,
		AmountCredited:    sale.Net,
		UniqueAmount:      sale.UniqueAmount,
		Method:            sale.Method,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (
			id, owner_id, subscriber_id, channel_id, plan_days,
			amount_paid, commission_charged, amount_credited_to_owner, unique_amount, method
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`,
		txn.ID, txn.OwnerID, txn.SubscriberID, txn.ChannelID, txn.PlanDays,
		txn.AmountPaid, txn.CommissionCharged, txn.AmountCredited, txn.UniqueAmount, txn.Method,
	).Scan(&txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE owners
		SET wallet_balance = wallet_balance + $2,
		    total_earnings = total_earnings + $3
		WHERE id = $1
	`, sale.OwnerID, sale.Net, sale.Gross)
	if err != nil {
		return nil, fmt.Errorf("credit owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrOwnerNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpsertSubscriber creates or overwrites the subscription for (telegram_id, channel_id).
func (r *PostgresRepository) UpsertSubscriber(ctx context.Context, subscriber *domain.Subscriber) error {
	if subscriber.ID == uuid.Nil {
		subscriber.ID = uuid.New()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO subscribers (id, telegram_id, channel_id, owner_telegram_id, subscribed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_id, channel_id) DO UPDATE SET
			owner_telegram_id = EXCLUDED.owner_telegram_id,
			subscribed_at = EXCLUDED.subscribed_at,
			expires_at = EXCLUDED.expires_at
		RETURNING id
	`,
		subscriber.ID,
		subscriber.TelegramID,
		subscriber.ChannelID,
		subscriber.OwnerTelegramID,
		subscriber.SubscribedAt,
		subscriber.ExpiresAt,
	).Scan(&subscriber.ID)
}

func (r *PostgresRepository) ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, subscriber_id, channel_id, plan_days, amount_paid,
		       commission_charged, amount_credited_to_owner, unique_amount, method, created_at
		FROM transactions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.OwnerID,
			&t.SubscriberID,
			&t.ChannelID,
			&t.PlanDays,
			&t.AmountPaid,
			&t.CommissionCharged,
			&t.AmountCredited,
			&t.UniqueAmount,
			&t.Method,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ChannelStatsByOwner aggregates revenue and sale counts per channel.
func (r *PostgresRepository) ChannelStatsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ChannelStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.channel_id, COALESCE(c.channel_name, ''), SUM(t.amount_paid), COUNT(*)
		FROM transactions t
		LEFT JOIN managed_channels c ON c.channel_id = t.channel_id
		WHERE t.owner_id = $1
		GROUP BY t.channel_id, c.channel_name
		ORDER BY SUM(t.amount_paid) DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.ChannelStat
	for rows.Next() {
		var s domain.ChannelStat
		if err := rows.Scan(&s.ChannelID, &s.ChannelName, &s.Revenue, &s.Sales); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ListExpiredSubscriptions returns every subscription with expires_at <= now, joined
// with its channel when the channel still exists.
func (r *PostgresRepository) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.telegram_id, s.channel_id, s.owner_telegram_id, s.subscribed_at, s.expires_at,
		       c.id, c.owner_id, c.channel_name, c.unique_start_key, c.created_at
		FROM subscribers s
		LEFT JOIN managed_channels c ON c.channel_id = s.channel_id
		WHERE s.expires_at <= $1
		ORDER BY s.expires_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.ExpiredSubscription
	for rows.Next() {
		var (
			e           domain.ExpiredSubscription
			channelRef  *uuid.UUID
			ownerID     *uuid.UUID
			channelName *string
			startKey    *string
			createdAt   *time.Time
		)
		if err := rows.Scan(
			&e.Subscriber.ID,
			&e.Subscriber.TelegramID,
			&e.Subscriber.ChannelID,
			&e.Subscriber.OwnerTelegramID,
			&e.Subscriber.SubscribedAt,
			&e.Subscriber.ExpiresAt,
			&channelRef,
			&ownerID,
			&channelName,
			&startKey,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if channelRef != nil {
			e.Channel = &domain.ManagedChannel{
				ID:        *channelRef,
				ChannelID: e.Subscriber.ChannelID,
			}
			if ownerID != nil {
				e.Channel.OwnerID = *ownerID
			}
			if channelName != nil {
				e.Channel.ChannelName = *channelName
			}
			if startKey != nil {
				e.Channel.StartKey = *startKey
			}
			if createdAt != nil {
				e.Channel.CreatedAt = *createdAt
			}
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}

// DeleteExpiredSubscriber removes the subscription only while it is still expired
// at now. It reports false when the row is gone or was renewed in the meantime.
func (r *PostgresRepository) DeleteExpiredSubscriber(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredSubscriberSQL, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// HasActiveSubscription reports whether the pair holds a subscription that runs past now.
func (r *PostgresRepository) HasActiveSubscription(ctx context.Context, telegramID, channelID int64, now time.Time) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx, hasActiveSubscriptionSQL, telegramID, channelID, now).Scan(&active)
	return active, err
}

// DeleteSubscriberByPair removes a subscription by user and channel, reporting
// whether a row existed.
func (r *PostgresRepository) DeleteSubscriberByPair(ctx context.Context, telegramID, channelID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscribers WHERE telegram_id = $1 AND channel_id = $2`, telegramID, channelID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
