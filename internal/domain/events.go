package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the events exchange.
const (
	EventPaymentIntentCreated = "payment.intent_created"
	EventPaymentSettled       = "payment.settled"
	EventSubscriptionExpired  = "subscription.expired"
	EventWithdrawalRequested  = "withdrawal.requested"
	EventWithdrawalApproved   = "withdrawal.approved"
	EventWithdrawalRejected   = "withdrawal.rejected"
	EventOwnerBanned          = "owner.banned"
	EventSMSReceived          = "sms.received"
)

// PaymentSettledEvent is published after a matched payment has been credited.
type PaymentSettledEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	SubscriberID  int64     `json:"subscriber_id"`
	ChannelID     int64     `json:"channel_id"`
	PlanDays      int       `json:"plan_days"`
	Gross         int64     `json:"gross"`
	Commission    int64     `json:"commission"`
	Net           int64     `json:"net"`
	UniqueAmount  int64     `json:"unique_amount"`
	Method        string    `json:"method"`
	ExpiresAt     time.Time `json:"expires_at"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentIntentCreatedEvent is published when a subscriber is given a unique amount.
type PaymentIntentCreatedEvent struct {
	IntentID     uuid.UUID `json:"intent_id"`
	SubscriberID int64     `json:"subscriber_id"`
	ChannelID    int64     `json:"channel_id"`
	UniqueAmount int64     `json:"unique_amount"`
	PlanDays     int       `json:"plan_days"`
	PlanPrice    int64     `json:"plan_price"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubscriptionExpiredEvent is published for every record the sweeper removes.
type SubscriptionExpiredEvent struct {
	SubscriberID int64     `json:"subscriber_id"`
	ChannelID    int64     `json:"channel_id"`
	Revoked      bool      `json:"revoked"`
	ExpiredAt    time.Time `json:"expired_at"`
	Timestamp    time.Time `json:"timestamp"`
}

// WithdrawalEvent covers the request, approval and rejection of a payout.
type WithdrawalEvent struct {
	WithdrawalID uuid.UUID        `json:"withdrawal_id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	Amount       int64            `json:"amount"`
	Status       WithdrawalStatus `json:"status"`
	Timestamp    time.Time        `json:"timestamp"`
}

// OwnerBannedEvent is published after an owner ban cascade.
type OwnerBannedEvent struct {
	OwnerID         uuid.UUID `json:"owner_id"`
	TelegramID      int64     `json:"telegram_id"`
	ChannelsRemoved int       `json:"channels_removed"`
	Timestamp       time.Time `json:"timestamp"`
}

// SMSReceivedMessage is the body expected on the SMS inbox queue.
type SMSReceivedMessage struct {
	Text       string    `json:"text"`
	Source     string    `json:"source,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
