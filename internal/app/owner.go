package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	"github.com/google/uuid"
)

const (
	historyLimit     = 10
	startKeyAttempts = 3
)

// OwnerStore is the slice of the repository used by owner flows.
type OwnerStore interface {
	GetOrCreateOwner(ctx context.Context, telegramID int64, username, firstName string) (*domain.Owner, error)
	GetOwnerByTelegramID(ctx context.Context, telegramID int64) (*domain.Owner, error)
	CreateChannel(ctx context.Context, channel *domain.ManagedChannel) error
	GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error)
	ListChannelsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ManagedChannel, error)
	UpdateChannelPlans(ctx context.Context, id, ownerID uuid.UUID, plans []domain.Plan) error
	DeleteChannel(ctx context.Context, id, ownerID uuid.UUID) error
	ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Transaction, error)
	ListWithdrawalsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Withdrawal, error)
	SumApprovedWithdrawals(ctx context.Context, ownerID uuid.UUID) (int64, error)
	ChannelStatsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ChannelStat, error)
	CreateWithdrawal(ctx context.Context, ownerID uuid.UUID, amount int64, upiID string) (*domain.Withdrawal, error)
}

// OwnerConfig holds the owner-facing business constants.
type OwnerConfig struct {
	CommissionPercent float64
	MinimumWithdrawal int64 // in paise
	EventsExchange    string
}

// Dashboard is the owner's earnings summary.
type Dashboard struct {
	Owner         *domain.Owner
	TotalRevenue  int64 // in paise, lifetime gross
	ServiceCharge int64 // in paise
	GrossEarnings int64 // in paise, revenue minus service charge
	TotalPaidOut  int64 // in paise, approved withdrawals
	Withdrawable  int64 // in paise
}

// OwnerService implements the channel owner operations.
type OwnerService struct {
	store     OwnerStore
	messenger Messenger
	notifier  *Notifier
	events    eventSink
	config    OwnerConfig
	keygen    func() (string, error)
	logger    *slog.Logger
}

func NewOwnerService(st OwnerStore, messenger Messenger, notifier *Notifier, publisher EventPublisher, cfg OwnerConfig, logger *slog.Logger) *OwnerService {
	return &OwnerService{
		store:     st,
		messenger: messenger,
		notifier:  notifier,
		events:    eventSink{publisher: publisher, exchange: cfg.EventsExchange, logger: logger},
		config:    cfg,
		keygen:    newStartKey,
		logger:    logger,
	}
}

// MinimumWithdrawal is the configured payout floor in paise.
func (s *OwnerService) MinimumWithdrawal() int64 {
	return s.config.MinimumWithdrawal
}

// EnsureOwner returns the owner for telegramID, creating it on first contact.
// Banned owners are returned as-is; callers decide what a banned owner may do.
func (s *OwnerService) EnsureOwner(ctx context.Context, telegramID int64, username, firstName string) (*domain.Owner, error) {
	owner, err := s.store.GetOrCreateOwner(ctx, telegramID, username, firstName)
	if err != nil {
		return nil, fmt.Errorf("get or create owner: %w", err)
	}
	return owner, nil
}

// FindOwner returns the owner for telegramID, or store.ErrOwnerNotFound.
func (s *OwnerService) FindOwner(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	return s.store.GetOwnerByTelegramID(ctx, telegramID)
}

// Dashboard computes the earnings summary for owner.
func (s *OwnerService) Dashboard(ctx context.Context, owner *domain.Owner) (*Dashboard, error) {
	paidOut, err := s.store.SumApprovedWithdrawals(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("sum approved withdrawals: %w", err)
	}
	charge, earnings := domain.SplitCommission(owner.TotalEarnings, s.config.CommissionPercent)
	return &Dashboard{
		Owner:         owner,
		TotalRevenue:  owner.TotalEarnings,
		ServiceCharge: charge,
		GrossEarnings: earnings,
		TotalPaidOut:  paidOut,
		Withdrawable:  owner.WalletBalance,
	}, nil
}

func (s *OwnerService) RecentTransactions(ctx context.Context, owner *domain.Owner) ([]domain.Transaction, error) {
	return s.store.ListTransactionsByOwner(ctx, owner.ID, historyLimit)
}

func (s *OwnerService) RecentWithdrawals(ctx context.Context, owner *domain.Owner) ([]domain.Withdrawal, error) {
	return s.store.ListWithdrawalsByOwner(ctx, owner.ID, historyLimit)
}

func (s *OwnerService) ChannelStats(ctx context.Context, owner *domain.Owner) ([]domain.ChannelStat, error) {
	return s.store.ChannelStatsByOwner(ctx, owner.ID)
}

// VerifyChannelAdmin checks that the bot can administer chatID, which it needs to
// mint invite links and remove expired members.
func (s *OwnerService) VerifyChannelAdmin(ctx context.Context, chatID int64) error {
	ok, err := s.messenger.IsChatAdministrator(ctx, chatID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBotNotChannelAdmin, err)
	}
	if !ok {
		return ErrBotNotChannelAdmin
	}
	return nil
}

// RegisterChannel enrols a channel with the plans parsed from planText.
func (s *OwnerService) RegisterChannel(ctx context.Context, owner *domain.Owner, chatID int64, title, planText string) (*domain.ManagedChannel, error) {
	if owner.IsBanned {
		return nil, store.ErrOwnerBanned
	}
	plans, err := domain.ParsePlans(planText)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= startKeyAttempts; attempt++ {
		key, err := s.keygen()
		if err != nil {
			return nil, fmt.Errorf("generate start key: %w", err)
		}
		channel := &domain.ManagedChannel{
			OwnerID:     owner.ID,
			ChannelID:   chatID,
			ChannelName: title,
			StartKey:    key,
			Plans:       plans,
		}
		err = s.store.CreateChannel(ctx, channel)
		if errors.Is(err, store.ErrDuplicateStartKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("channel registered", "owner_id", owner.ID, "channel_id", chatID, "plans", len(plans))
		return channel, nil
	}
	return nil, store.ErrDuplicateStartKey
}

// ChannelLink is the subscriber deep link for channel.
func (s *OwnerService) ChannelLink(channel *domain.ManagedChannel) string {
	return telegram.DeepLink(s.messenger.Username(), channel.StartKey)
}

func (s *OwnerService) ListChannels(ctx context.Context, owner *domain.Owner) ([]domain.ManagedChannel, error) {
	return s.store.ListChannelsByOwner(ctx, owner.ID)
}

// OwnedChannel loads a channel and checks that owner owns it.
func (s *OwnerService) OwnedChannel(ctx context.Context, owner *domain.Owner, channelRef uuid.UUID) (*domain.ManagedChannel, error) {
	channel, err := s.store.GetChannelByID(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	if channel.OwnerID != owner.ID {
		return nil, store.ErrChannelNotFound
	}
	return channel, nil
}

// UpdatePlans replaces a channel's plan list. In-flight intents keep their snapshot.
func (s *OwnerService) UpdatePlans(ctx context.Context, owner *domain.Owner, channelRef uuid.UUID, planText string) ([]domain.Plan, error) {
	plans, err := domain.ParsePlans(planText)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateChannelPlans(ctx, channelRef, owner.ID, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// RemoveChannel stops new sales for a channel. Existing subscribers keep access
// until their expiry.
func (s *OwnerService) RemoveChannel(ctx context.Context, owner *domain.Owner, channelRef uuid.UUID) error {
	return s.store.DeleteChannel(ctx, channelRef, owner.ID)
}

// CheckWithdrawalEligibility reports whether owner may start a withdrawal now.
func (s *OwnerService) CheckWithdrawalEligibility(owner *domain.Owner) error {
	if owner.IsBanned {
		return store.ErrOwnerBanned
	}
	if owner.WalletBalance <= 0 || owner.WalletBalance < s.config.MinimumWithdrawal {
		return ErrBelowMinimumWithdrawal
	}
	return nil
}

// RequestWithdrawal debits the owner's entire current balance into a pending
// withdrawal to the given UPI id.
func (s *OwnerService) RequestWithdrawal(ctx context.Context, telegramID int64, rawUPI string) (*domain.Withdrawal, error) {
	upi, err := domain.NormalizePayoutAddress(rawUPI)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.GetOwnerByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckWithdrawalEligibility(owner); err != nil {
		return nil, err
	}

	w, err := s.store.CreateWithdrawal(ctx, owner.ID, owner.WalletBalance, upi)
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, telegram.Message{
		ChatID: s.notifier.AdminID(),
		Text: fmt.Sprintf(
			"💰 <b>New Withdrawal Request</b>\n\nOwner: %s (<code>%d</code>)\nAmount: ₹%s\nUPI: <code>%s</code>",
			html.EscapeString(ownerDisplayName(owner)), owner.TelegramID, domain.FormatPaise(w.Amount), html.EscapeString(w.UPIID),
		),
		ParseMode: telegram.ParseModeHTML,
		Keyboard: [][]telegram.Button{telegram.Row(
			telegram.DataButton("✅ Approve", callback.New(callback.AdminApproveWithdrawal, w.ID.String()).Encode()),
			telegram.DataButton("❌ Reject", callback.New(callback.AdminRejectWithdrawal, w.ID.String()).Encode()),
		)},
	})
	s.events.publish(ctx, domain.EventWithdrawalRequested, domain.WithdrawalEvent{
		WithdrawalID: w.ID,
		OwnerID:      owner.ID,
		Amount:       w.Amount,
		Status:       w.Status,
		Timestamp:    w.RequestedAt,
	})
	return w, nil
}
