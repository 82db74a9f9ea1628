/**
 * @description
 * Core domain models for the channel subscription service. These structs map
 * directly onto the Postgres tables and are shared by the store, app, api and
 * bot layers.
 *
 * @notes
 * - Amounts are `int64` paise.
 * - Telegram identities (users and channels) are `int64`; internal references are UUIDs.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Owner is a channel-selling account, created lazily on first contact with the bot.
type Owner struct {
	ID            uuid.UUID  `json:"id"`
	TelegramID    int64      `json:"telegram_id"`
	Username      string     `json:"username"`
	FirstName     string     `json:"first_name"`
	WalletBalance int64      `json:"wallet_balance"` // in paise
	TotalEarnings int64      `json:"total_earnings"` // in paise, lifetime gross
	IsBanned      bool       `json:"is_banned"`
	BannedAt      *time.Time `json:"banned_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ManagedChannel is a Telegram channel enrolled for monetization.
type ManagedChannel struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ChannelID   int64     `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	StartKey    string    `json:"unique_start_key"`
	Plans       []Plan    `json:"plans"`
	CreatedAt   time.Time `json:"created_at"`
}

// FindPlan returns the plan matching days and price, if the channel still sells it.
func (c *ManagedChannel) FindPlan(days int, pricePaise int64) (Plan, bool) {
	for _, p := range c.Plans {
		if p.Days == days && p.Price == pricePaise {
			return p, true
		}
	}
	return Plan{}, false
}

// PendingPayment is a reserved, time-limited expectation of an incoming payment.
// The plan is a snapshot so later plan edits never change an in-flight intent.
type PendingPayment struct {
	ID           uuid.UUID `json:"id"`
	UniqueAmount int64     `json:"unique_amount"` // in paise, the reconciliation key
	SubscriberID int64     `json:"subscriber_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	ChannelID    int64     `json:"channel_id"`
	ChannelRef   uuid.UUID `json:"channel_ref"`
	PlanDays     int       `json:"plan_days"`
	PlanPrice    int64     `json:"plan_price"` // in paise
	CreatedAt    time.Time `json:"created_at"`
}

// Subscriber is an active subscription of one user to one channel.
type Subscriber struct {
	ID              uuid.UUID `json:"id"`
	TelegramID      int64     `json:"telegram_id"`
	ChannelID       int64     `json:"channel_id"`
	OwnerTelegramID int64     `json:"owner_telegram_id"`
	SubscribedAt    time.Time `json:"subscribed_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ExpiredSubscription pairs a lapsed subscriber with its channel, which is nil when
// the channel has since been removed from the platform.
type ExpiredSubscription struct {
	Subscriber Subscriber
	Channel    *ManagedChannel
}

// Transaction is the immutable audit record of one settled sale.
type Transaction struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           uuid.UUID `json:"owner_id"`
	SubscriberID      int64     `json:"subscriber_id"`
	ChannelID         int64     `json:"channel_id"`
	PlanDays          int       `json:"plan_days"`
	AmountPaid        int64     `json:"amount_paid"`              // in paise, gross
	CommissionCharged int64     `json:"commission_charged"`       // in paise
	AmountCredited    int64     `json:"amount_credited_to_owner"` // in paise, net
	UniqueAmount      int64     `json:"unique_amount"`            // in paise, the matched signal
	Method            string    `json:"method"`
	CreatedAt         time.Time `json:"timestamp"`
}

// Sale is the input for recording a settled sale against an owner's ledger.
type Sale struct {
	OwnerID      uuid.UUID
	SubscriberID int64
	ChannelID    int64
	PlanDays     int
	Gross        int64
	Commission   int64
	Net          int64
	UniqueAmount int64
	Method       string
}

// WithdrawalStatus is the lifecycle state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal is an owner payout request. The wallet is debited when it is created.
type Withdrawal struct {
	ID            uuid.UUID        `json:"id"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	OwnerTelegram int64            `json:"owner_telegram_id,omitempty"`
	OwnerName     string           `json:"owner_name,omitempty"`
	Amount        int64            `json:"amount"` // in paise
	UPIID         string           `json:"upi_id"`
	Status        WithdrawalStatus `json:"status"`
	RequestedAt   time.Time        `json:"requested_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

// ReportStatus is the lifecycle state of a subscriber complaint.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportResolved ReportStatus = "resolved"
)

// Report is a subscriber-filed complaint about a channel and its owner.
type Report struct {
	ID          uuid.UUID    `json:"id"`
	ReporterID  int64        `json:"reporter_id"`
	OwnerID     uuid.UUID    `json:"reported_owner_id"`
	ChannelRef  *uuid.UUID   `json:"reported_channel_id,omitempty"`
	ChannelName string       `json:"channel_name"`
	Reason      string       `json:"reason"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}

// ChannelStat aggregates sales per channel for an owner's dashboard.
// ChannelName is empty when the channel has been removed.
type ChannelStat struct {
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Revenue     int64  `json:"revenue"` // in paise
	Sales       int    `json:"sales"`
}

// PlatformStats is the admin-facing aggregate view.
type PlatformStats struct {
	Owners                 int   `json:"owners"`
	BannedOwners           int   `json:"banned_owners"`
	Channels               int   `json:"channels"`
	ActiveSubscribers      int   `json:"active_subscribers"`
	PendingPayments        int   `json:"pending_payments"`
	Transactions           int   `json:"transactions"`
	TotalRevenue           int64 `json:"total_revenue"`    // in paise
	TotalCommission        int64 `json:"total_commission"` // in paise
	TotalPaidOut           int64 `json:"total_paid_out"`   // in paise
	PendingPayouts         int64 `json:"pending_payouts"`  // in paise, sum of wallets
	PendingWithdrawals     int   `json:"pending_withdrawals"`
	PendingWithdrawalTotal int64 `json:"pending_withdrawal_total"` // in paise
	OpenReports            int   `json:"open_reports"`
}
