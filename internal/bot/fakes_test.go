package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/session"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const testAdminID int64 = 99

type fakeChat struct {
	mu      sync.Mutex
	sent    []telegram.Message
	edits   []telegram.Message
	answers []string
}

func (c *fakeChat) SendMessage(_ context.Context, msg telegram.Message) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return len(c.sent), nil
}

func (c *fakeChat) EditMessage(_ context.Context, _ int, msg telegram.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, msg)
	return nil
}

func (c *fakeChat) AnswerCallback(_ context.Context, _ string, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, text)
	return nil
}

// lastTo returns the most recent message sent or edited for chatID.
func (c *fakeChat) lastTo(chatID int64) (telegram.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := append(append([]telegram.Message{}, c.sent...), c.edits...)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].ChatID == chatID {
			return all[i], true
		}
	}
	return telegram.Message{}, false
}

func (c *fakeChat) textsTo(chatID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range append(append([]telegram.Message{}, c.sent...), c.edits...) {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (c *fakeChat) anyTo(chatID int64, substr string) bool {
	for _, text := range c.textsTo(chatID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

type stubOwners struct {
	Owners
	owners      map[int64]*domain.Owner
	verified    []int64
	registered  []string
	withdrawUPI string
	panicOnFind bool
}

func (s *stubOwners) FindOwner(_ context.Context, telegramID int64) (*domain.Owner, error) {
	if s.panicOnFind {
		panic("boom")
	}
	if o, ok := s.owners[telegramID]; ok {
		return o, nil
	}
	return nil, store.ErrOwnerNotFound
}

func (s *stubOwners) EnsureOwner(_ context.Context, telegramID int64, username, firstName string) (*domain.Owner, error) {
	if o, ok := s.owners[telegramID]; ok {
		return o, nil
	}
	o := &domain.Owner{ID: uuid.New(), TelegramID: telegramID, Username: username, FirstName: firstName}
	s.owners[telegramID] = o
	return o, nil
}

func (s *stubOwners) Dashboard(_ context.Context, owner *domain.Owner) (*app.Dashboard, error) {
	return &app.Dashboard{Owner: owner, Withdrawable: owner.WalletBalance}, nil
}

func (s *stubOwners) VerifyChannelAdmin(_ context.Context, chatID int64) error {
	s.verified = append(s.verified, chatID)
	return nil
}

func (s *stubOwners) RegisterChannel(_ context.Context, owner *domain.Owner, chatID int64, title, planText string) (*domain.ManagedChannel, error) {
	plans, err := domain.ParsePlans(planText)
	if err != nil {
		return nil, err
	}
	s.registered = append(s.registered, title)
	return &domain.ManagedChannel{ID: uuid.New(), OwnerID: owner.ID, ChannelID: chatID, ChannelName: title, StartKey: "abcd1234", Plans: plans}, nil
}

func (s *stubOwners) ChannelLink(channel *domain.ManagedChannel) string {
	return "https://t.me/TestBot?start=" + channel.StartKey
}

func (s *stubOwners) CheckWithdrawalEligibility(owner *domain.Owner) error {
	if owner.WalletBalance < s.MinimumWithdrawal() {
		return app.ErrBelowMinimumWithdrawal
	}
	return nil
}

func (s *stubOwners) MinimumWithdrawal() int64 { return 10000 }

func (s *stubOwners) RequestWithdrawal(_ context.Context, telegramID int64, rawUPI string) (*domain.Withdrawal, error) {
	s.withdrawUPI = rawUPI
	o := s.owners[telegramID]
	w := &domain.Withdrawal{ID: uuid.New(), OwnerID: o.ID, Amount: o.WalletBalance, UPIID: rawUPI, Status: domain.WithdrawalPending}
	o.WalletBalance = 0
	return w, nil
}

type stubCheckout struct {
	channel   *domain.ManagedChannel
	selectErr error
	selected  int64
}

func (s *stubCheckout) ResolveStartKey(_ context.Context, key string) (*domain.ManagedChannel, error) {
	if s.channel == nil || key != s.channel.StartKey {
		return nil, app.ErrInvalidStartKey
	}
	return s.channel, nil
}

func (s *stubCheckout) SelectPlan(_ context.Context, subscriberID int64, _ uuid.UUID, days int, price int64) (*app.PaymentInstructions, error) {
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	s.selected = subscriberID
	return &app.PaymentInstructions{
		Intent:     &domain.PendingPayment{UniqueAmount: price + 37, SubscriberID: subscriberID, PlanDays: days, PlanPrice: price},
		Channel:    s.channel,
		PaymentURL: "upi://pay?am=100.37",
		ExpiresIn:  120 * time.Minute,
	}, nil
}

type stubReports struct {
	ref    uuid.UUID
	reason string
}

func (s *stubReports) FileReport(_ context.Context, _ int64, channelRef uuid.UUID, rawReason string) (*domain.Report, error) {
	reason, err := domain.NormalizeReportReason(rawReason)
	if err != nil {
		return nil, err
	}
	s.ref, s.reason = channelRef, reason
	return &domain.Report{ID: uuid.New()}, nil
}

type stubAdmin struct {
	Admin
	unbanned []int64
}

func (s *stubAdmin) IsAdmin(telegramID int64) bool { return telegramID == testAdminID }
func (s *stubAdmin) SupportUsername() string       { return "support" }

func (s *stubAdmin) UnbanOwner(_ context.Context, telegramID int64) (*domain.Owner, error) {
	s.unbanned = append(s.unbanned, telegramID)
	return &domain.Owner{TelegramID: telegramID, Username: "owner"}, nil
}

type stubReconciler struct {
	amounts []int64
	methods []app.Method
	err     error
}

func (s *stubReconciler) ReconcileAmount(_ context.Context, amount int64, method app.Method) (*app.SettlementResult, error) {
	s.amounts = append(s.amounts, amount)
	s.methods = append(s.methods, method)
	return nil, s.err
}

type botFixture struct {
	bot        *Bot
	chat       *fakeChat
	sessions   *session.MemoryStore
	owners     *stubOwners
	checkout   *stubCheckout
	reports    *stubReports
	admin      *stubAdmin
	reconciler *stubReconciler
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	f := &botFixture{
		chat:       &fakeChat{},
		sessions:   session.NewMemoryStore(time.Hour),
		owners:     &stubOwners{owners: map[int64]*domain.Owner{}},
		checkout:   &stubCheckout{},
		reports:    &stubReports{},
		admin:      &stubAdmin{},
		reconciler: &stubReconciler{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.bot = New(f.chat, f.sessions, f.owners, f.checkout, f.reports, f.admin, f.reconciler,
		Config{AdminID: testAdminID, CommissionPercent: 10}, logger)
	return f
}

func (f *botFixture) addOwner(telegramID, balance int64) *domain.Owner {
	o := &domain.Owner{ID: uuid.New(), TelegramID: telegramID, FirstName: "Asha", WalletBalance: balance}
	f.owners.owners[telegramID] = o
	return o
}

func (f *botFixture) text(userID int64, text string) {
	f.message(&tgbotapi.Message{Text: text}, userID)
}

func (f *botFixture) message(msg *tgbotapi.Message, userID int64) {
	msg.MessageID = 1
	msg.From = &tgbotapi.User{ID: userID, FirstName: "User"}
	msg.Chat = &tgbotapi.Chat{ID: userID, Type: "private"}
	f.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (f *botFixture) press(userID int64, data callback.Data) {
	f.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: userID, Type: "private"}},
		Data:    data.Encode(),
	}})
}

func (f *botFixture) step(t *testing.T, userID int64) session.Step {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("session get: %v", err)
	}
	if s == nil {
		return ""
	}
	return s.Step
}
