package app

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/google/uuid"
)

const inspectionLinkTTL = time.Hour

// AdminStore is the slice of the repository used by admin operations.
type AdminStore interface {
	GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error)
	ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error)
	GetOwnerByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
	ListChannelsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ManagedChannel, error)
	ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Transaction, error)
	ListWithdrawalsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Withdrawal, error)
	BanOwner(ctx context.Context, id uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error)
	UnbanOwner(ctx context.Context, telegramID int64) (*domain.Owner, error)
	ListChannels(ctx context.Context, limit, offset int) ([]domain.ManagedChannel, error)
	GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error)
	ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	ListReports(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error)
	ResolveReport(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	DeleteSubscriberByPair(ctx context.Context, telegramID, channelID int64) (bool, error)
}

// OwnerDetail is the admin's view of a single owner.
type OwnerDetail struct {
	Owner        *domain.Owner           `json:"owner"`
	Channels     []domain.ManagedChannel `json:"channels"`
	Transactions []domain.Transaction    `json:"recent_transactions"`
	Withdrawals  []domain.Withdrawal     `json:"recent_withdrawals"`
}

// AdminService implements platform administration. Admin identity is a role
// checked against a single configured user id, separate from the owner entity.
type AdminService struct {
	adminID         int64
	supportUsername string
	store           AdminStore
	messenger       Messenger
	notifier        *Notifier
	events          eventSink
	now             Clock
	logger          *slog.Logger
}

func NewAdminService(adminID int64, supportUsername string, st AdminStore, messenger Messenger, notifier *Notifier, publisher EventPublisher, eventsExchange string, logger *slog.Logger) *AdminService {
	return &AdminService{
		adminID:         adminID,
		supportUsername: supportUsername,
		store:           st,
		messenger:       messenger,
		notifier:        notifier,
		events:          eventSink{publisher: publisher, exchange: eventsExchange, logger: logger},
		now:             time.Now,
		logger:          logger,
	}
}

// IsAdmin reports whether telegramID holds the admin role.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.adminID != 0 && telegramID == s.adminID
}

// Authorize returns ErrNotAdmin unless telegramID holds the admin role.
func (s *AdminService) Authorize(telegramID int64) error {
	if !s.IsAdmin(telegramID) {
		return ErrNotAdmin
	}
	return nil
}

// SupportUsername is the handle banned owners are told to contact.
func (s *AdminService) SupportUsername() string {
	return s.supportUsername
}

func (s *AdminService) Stats(ctx context.Context) (*domain.PlatformStats, error) {
	return s.store.GetPlatformStats(ctx)
}

func (s *AdminService) ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error) {
	return s.store.ListOwners(ctx, limit, offset)
}

// OwnerDetail loads an owner with channels and recent ledger activity.
func (s *AdminService) OwnerDetail(ctx context.Context, ownerID uuid.UUID) (*OwnerDetail, error) {
	owner, err := s.store.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	channels, err := s.store.ListChannelsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	txns, err := s.store.ListTransactionsByOwner(ctx, ownerID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	withdrawals, err := s.store.ListWithdrawalsByOwner(ctx, ownerID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return &OwnerDetail{Owner: owner, Channels: channels, Transactions: txns, Withdrawals: withdrawals}, nil
}

// BanOwner bans an owner and deletes all their channels. The wallet is left untouched.
func (s *AdminService) BanOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error) {
	owner, removed, err := s.store.BanOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("owner banned", "owner_id", owner.ID, "telegram_id", owner.TelegramID, "channels_removed", len(removed))

	s.notifier.Text(ctx, owner.TelegramID, "🚫 <b>Your account has been banned</b> for violating the platform rules. Your channels have been removed."+s.supportLine())
	s.events.publish(ctx, domain.EventOwnerBanned, domain.OwnerBannedEvent{
		OwnerID:         owner.ID,
		TelegramID:      owner.TelegramID,
		ChannelsRemoved: len(removed),
		Timestamp:       s.now(),
	})
	return owner, removed, nil
}

// UnbanOwner lifts a ban. Channels removed by the ban are not restored.
func (s *AdminService) UnbanOwner(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	owner, err := s.store.UnbanOwner(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	s.notifier.Text(ctx, owner.TelegramID, "✅ <b>Your account has been unbanned.</b> You can use the bot again.")
	return owner, nil
}

func (s *AdminService) ListChannels(ctx context.Context, limit, offset int) ([]domain.ManagedChannel, error) {
	return s.store.ListChannels(ctx, limit, offset)
}

// InspectChannel mints a single-use invite so the admin can audit a channel.
func (s *AdminService) InspectChannel(ctx context.Context, channelRef uuid.UUID) (*domain.ManagedChannel, string, error) {
	channel, err := s.store.GetChannelByID(ctx, channelRef)
	if err != nil {
		return nil, "", err
	}
	link, err := s.messenger.CreateInviteLink(ctx, channel.ChannelID, 1, s.now().Add(inspectionLinkTTL))
	if err != nil {
		return channel, "", fmt.Errorf("create inspection link: %w", err)
	}
	return channel, link, nil
}

func (s *AdminService) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, status, limit, offset)
}

// ApproveWithdrawal marks a pending withdrawal as paid out.
func (s *AdminService) ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.store.ApproveWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Text(ctx, w.OwnerTelegram, fmt.Sprintf(
		"✅ <b>Withdrawal approved</b>\n\n₹%s has been sent to <code>%s</code>.",
		domain.FormatPaise(w.Amount), html.EscapeString(w.UPIID),
	))
	s.publishWithdrawal(ctx, domain.EventWithdrawalApproved, w)
	return w, nil
}

// RejectWithdrawal rejects a pending withdrawal and refunds the owner's wallet.
func (s *AdminService) RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.store.RejectWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Text(ctx, w.OwnerTelegram, fmt.Sprintf(
		"❌ <b>Withdrawal rejected</b>\n\n₹%s has been returned to your wallet.%s",
		domain.FormatPaise(w.Amount), s.supportLine(),
	))
	s.publishWithdrawal(ctx, domain.EventWithdrawalRejected, w)
	return w, nil
}

func (s *AdminService) publishWithdrawal(ctx context.Context, routingKey string, w *domain.Withdrawal) {
	s.events.publish(ctx, routingKey, domain.WithdrawalEvent{
		WithdrawalID: w.ID,
		OwnerID:      w.OwnerID,
		Amount:       w.Amount,
		Status:       w.Status,
		Timestamp:    s.now(),
	})
}

func (s *AdminService) ListReports(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error) {
	return s.store.ListReports(ctx, status, limit, offset)
}

// ResolveReport closes a report and tells the reporter.
func (s *AdminService) ResolveReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	report, err := s.store.ResolveReport(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Text(ctx, report.ReporterID, fmt.Sprintf(
		"✅ Your report about <b>%s</b> has been reviewed and resolved. Thank you for letting us know.",
		html.EscapeString(report.ChannelName),
	))
	return report, nil
}

// RemoveSubscriber force-removes userID from channelID and deletes the
// subscription record. It reports whether a record existed.
func (s *AdminService) RemoveSubscriber(ctx context.Context, userID, channelID int64) (bool, error) {
	if err := s.messenger.RemoveMember(ctx, channelID, userID); err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	existed, err := s.store.DeleteSubscriberByPair(ctx, userID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscriber: %w", err)
	}
	s.notifier.Text(ctx, userID, "ℹ️ You have been removed from a channel by the platform admin."+s.supportLine())
	return existed, nil
}

func (s *AdminService) supportLine() string {
	if s.supportUsername == "" {
		return ""
	}
	return "\n\nContact @" + html.EscapeString(s.supportUsername) + " for support."
}

// UnbanOwnerByID lifts a ban for the owner with the given internal id.
func (s *AdminService) UnbanOwnerByID(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, error) {
	owner, err := s.store.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.UnbanOwner(ctx, owner.TelegramID)
}
