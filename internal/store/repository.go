/**
 * @description
 * This file defines the contract for the data access layer. The Repository
 * interface lists every database operation the service performs, so the app
 * layer can depend on narrow slices of it and tests can substitute fakes.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOwnerNotFound          = errors.New("owner not found")
	ErrOwnerBanned            = errors.New("owner is banned")
	ErrChannelNotFound        = errors.New("channel not found")
	ErrDuplicateChannel       = errors.New("channel already registered")
	ErrDuplicateStartKey      = errors.New("start key already in use")
	ErrPendingPaymentNotFound = errors.New("pending payment not found")
	ErrDuplicateAmount        = errors.New("unique amount already reserved")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrWithdrawalNotPending   = errors.New("withdrawal is not pending")
	ErrReportNotFound         = errors.New("report not found")
	ErrReportAlreadyResolved  = errors.New("report already resolved")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Owners
	GetOrCreateOwner(ctx context.Context, telegramID int64, username, firstName string) (*domain.Owner, error)
	GetOwnerByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
	GetOwnerByTelegramID(ctx context.Context, telegramID int64) (*domain.Owner, error)
	ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error)
	BanOwner(ctx context.Context, id uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error)
	UnbanOwner(ctx context.Context, telegramID int64) (*domain.Owner, error)
	PurgeBannedOwners(ctx context.Context, bannedBefore time.Time) (int64, error)

	// Channels
	CreateChannel(ctx context.Context, channel *domain.ManagedChannel) error
	GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error)
	GetChannelByStartKey(ctx context.Context, startKey string) (*domain.ManagedChannel, error)
	ListChannelsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ManagedChannel, error)
	ListChannels(ctx context.Context, limit, offset int) ([]domain.ManagedChannel, error)
	UpdateChannelPlans(ctx context.Context, id, ownerID uuid.UUID, plans []domain.Plan) error
	DeleteChannel(ctx context.Context, id, ownerID uuid.UUID) error

	// Pending intents and the allocator cursor
	PendingAmountExists(ctx context.Context, amount int64) (bool, error)
	CreatePendingPayment(ctx context.Context, payment *domain.PendingPayment) error
	ConsumePendingPayment(ctx context.Context, amount int64) (*domain.PendingPayment, error)
	PurgeExpiredPendingPayments(ctx context.Context) (int64, error)
	GetAllocatorCursor(ctx context.Context, base int64) (int64, bool, error)
	SetAllocatorCursor(ctx context.Context, base, current int64) error

	// Settlement
	RecordSale(ctx context.Context, sale domain.Sale) (*domain.Transaction, error)
	UpsertSubscriber(ctx context.Context, subscriber *domain.Subscriber) error
	ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Transaction, error)
	ChannelStatsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ChannelStat, error)

	// Subscribers
	ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error)
	DeleteExpiredSubscriber(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	HasActiveSubscription(ctx context.Context, telegramID, channelID int64, now time.Time) (bool, error)
	DeleteSubscriberByPair(ctx context.Context, telegramID, channelID int64) (bool, error)

	// Withdrawals
	CreateWithdrawal(ctx context.Context, ownerID uuid.UUID, amount int64, upiID string) (*domain.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, error)
	ListWithdrawalsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Withdrawal, error)
	SumApprovedWithdrawals(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// Reports
	CreateReport(ctx context.Context, report *domain.Report) error
	ListReports(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error)
	ResolveReport(ctx context.Context, id uuid.UUID) (*domain.Report, error)

	// Aggregates
	GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error)
}
