package bot

import (
	"context"

	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	"github.com/google/uuid"
)

// Chat is the interactive side of the transport.
type Chat interface {
	SendMessage(ctx context.Context, msg telegram.Message) (int, error)
	EditMessage(ctx context.Context, messageID int, msg telegram.Message) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Owners is the channel owner surface.
type Owners interface {
	EnsureOwner(ctx context.Context, telegramID int64, username, firstName string) (*domain.Owner, error)
	FindOwner(ctx context.Context, telegramID int64) (*domain.Owner, error)
	Dashboard(ctx context.Context, owner *domain.Owner) (*app.Dashboard, error)
	RecentTransactions(ctx context.Context, owner *domain.Owner) ([]domain.Transaction, error)
	RecentWithdrawals(ctx context.Context, owner *domain.Owner) ([]domain.Withdrawal, error)
	ChannelStats(ctx context.Context, owner *domain.Owner) ([]domain.ChannelStat, error)
	VerifyChannelAdmin(ctx context.Context, chatID int64) error
	RegisterChannel(ctx context.Context, owner *domain.Owner, chatID int64, title, planText string) (*domain.ManagedChannel, error)
	ChannelLink(channel *domain.ManagedChannel) string
	ListChannels(ctx context.Context, owner *domain.Owner) ([]domain.ManagedChannel, error)
	OwnedChannel(ctx context.Context, owner *domain.Owner, channelRef uuid.UUID) (*domain.ManagedChannel, error)
	UpdatePlans(ctx context.Context, owner *domain.Owner, channelRef uuid.UUID, planText string) ([]domain.Plan, error)
	RemoveChannel(ctx context.Context, owner *domain.Owner, channelRef uuid.UUID) error
	CheckWithdrawalEligibility(owner *domain.Owner) error
	RequestWithdrawal(ctx context.Context, telegramID int64, rawUPI string) (*domain.Withdrawal, error)
	MinimumWithdrawal() int64
}

// Checkout is the subscriber purchase surface.
type Checkout interface {
	ResolveStartKey(ctx context.Context, startKey string) (*domain.ManagedChannel, error)
	SelectPlan(ctx context.Context, subscriberID int64, channelRef uuid.UUID, days int, pricePaise int64) (*app.PaymentInstructions, error)
}

// Reports files subscriber complaints.
type Reports interface {
	FileReport(ctx context.Context, reporterID int64, channelRef uuid.UUID, rawReason string) (*domain.Report, error)
}

// Admin is the platform administration surface.
type Admin interface {
	IsAdmin(telegramID int64) bool
	SupportUsername() string
	ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error)
	OwnerDetail(ctx context.Context, ownerID uuid.UUID) (*app.OwnerDetail, error)
	BanOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error)
	UnbanOwner(ctx context.Context, telegramID int64) (*domain.Owner, error)
	InspectChannel(ctx context.Context, channelRef uuid.UUID) (*domain.ManagedChannel, string, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	RemoveSubscriber(ctx context.Context, userID, channelID int64) (bool, error)
}

// Reconciler settles manually confirmed amounts.
type Reconciler interface {
	ReconcileAmount(ctx context.Context, amount int64, method app.Method) (*app.SettlementResult, error)
}
