/**
 * @description
 * Per-user conversation state for the multi-step bot flows (channel onboarding,
 * plan edits, withdrawals, reports).
 *
 * @notes
 * - A session is keyed by Telegram user id and holds at most one pending step.
 * - Sessions expire after a TTL so an abandoned flow does not capture a later,
 *   unrelated message.
 */
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Step names the input the bot is waiting for.
type Step string

const (
	StepAwaitingChannelForward  Step = "awaiting_channel_forward"
	StepAwaitingPlans           Step = "awaiting_plans"
	StepAwaitingEditPlans       Step = "awaiting_edit_plans"
	StepAwaitingUPI             Step = "awaiting_upi_id"
	StepAwaitingWithdrawConfirm Step = "awaiting_withdraw_confirm"
	StepAwaitingReportReason    Step = "awaiting_report_reason"
)

// Session is the state of one user's in-progress flow.
type Session struct {
	UserID        int64     `json:"user_id"`
	Step          Step      `json:"step"`
	ChannelID     int64     `json:"channel_id,omitempty"`
	ChannelName   string    `json:"channel_name,omitempty"`
	ChannelRef    uuid.UUID `json:"channel_ref"`
	PayoutAddress string    `json:"payout_address,omitempty"`
	Amount        int64     `json:"amount,omitempty"` // in paise
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store persists sessions. Get returns nil, nil when the user has no live session.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Reset(ctx context.Context, userID int64) error
}
