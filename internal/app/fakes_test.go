package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is an in-memory store.Repository. The pending payment primitives hold
// the mutex for the whole check-and-act, like the unique index and DELETE ...
// RETURNING do in Postgres.
type fakeRepo struct {
	mu sync.Mutex

	now        func() time.Time
	pendingTTL time.Duration

	owners       map[uuid.UUID]*domain.Owner
	channels     map[uuid.UUID]*domain.ManagedChannel
	pending      map[int64]*domain.PendingPayment
	cursors      map[int64]int64
	subscribers  map[uuid.UUID]*domain.Subscriber
	transactions []domain.Transaction
	withdrawals  map[uuid.UUID]*domain.Withdrawal
	reports      map[uuid.UUID]*domain.Report

	probes        int
	createErr     func(amount int64) error
	recordSaleErr error
	consumeErr    error
	deleteSubErr  error
	duplicateKeys int

	consumeHook func(ctx context.Context)
	claimHook   func(id uuid.UUID)
}

var _ store.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		now:         time.Now,
		pendingTTL:  2 * time.Hour,
		owners:      map[uuid.UUID]*domain.Owner{},
		channels:    map[uuid.UUID]*domain.ManagedChannel{},
		pending:     map[int64]*domain.PendingPayment{},
		cursors:     map[int64]int64{},
		subscribers: map[uuid.UUID]*domain.Subscriber{},
		withdrawals: map[uuid.UUID]*domain.Withdrawal{},
		reports:     map[uuid.UUID]*domain.Report{},
	}
}

func (f *fakeRepo) live(p *domain.PendingPayment) bool {
	return p.CreatedAt.After(f.now().Add(-f.pendingTTL))
}

// seedOwner and seedChannel are test helpers.
func (f *fakeRepo) seedOwner(telegramID int64, balance, earnings int64) *domain.Owner {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := &domain.Owner{ID: uuid.New(), TelegramID: telegramID, FirstName: "Owner", WalletBalance: balance, TotalEarnings: earnings, CreatedAt: f.now()}
	f.owners[o.ID] = o
	return o
}

func (f *fakeRepo) seedChannel(owner *domain.Owner, chatID int64, plans ...domain.Plan) *domain.ManagedChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &domain.ManagedChannel{ID: uuid.New(), OwnerID: owner.ID, ChannelID: chatID, ChannelName: "Alpha Signals", StartKey: "key" + uuid.NewString()[:5], Plans: plans, CreatedAt: f.now()}
	f.channels[c.ID] = c
	return c
}

func (f *fakeRepo) ownerSnapshot(id uuid.UUID) domain.Owner {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.owners[id]
}

func (f *fakeRepo) transactionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transactions)
}

// Owners

func (f *fakeRepo) GetOrCreateOwner(ctx context.Context, telegramID int64, username, firstName string) (*domain.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.owners {
		if o.TelegramID == telegramID {
			cp := *o
			return &cp, nil
		}
	}
	o := &domain.Owner{ID: uuid.New(), TelegramID: telegramID, Username: username, FirstName: firstName, CreatedAt: f.now()}
	f.owners[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) GetOwnerByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.owners[id]
	if !ok {
		return nil, store.ErrOwnerNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) GetOwnerByTelegramID(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.owners {
		if o.TelegramID == telegramID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrOwnerNotFound
}

func (f *fakeRepo) ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Owner
	for _, o := range f.owners {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (f *fakeRepo) BanOwner(ctx context.Context, id uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.owners[id]
	if !ok {
		return nil, nil, store.ErrOwnerNotFound
	}
	o.IsBanned = true
	if o.BannedAt == nil {
		at := f.now()
		o.BannedAt = &at
	}
	var removed []domain.ManagedChannel
	for cid, c := range f.channels {
		if c.OwnerID == id {
			removed = append(removed, *c)
			delete(f.channels, cid)
		}
	}
	cp := *o
	return &cp, removed, nil
}

func (f *fakeRepo) UnbanOwner(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.owners {
		if o.TelegramID == telegramID {
			o.IsBanned = false
			o.BannedAt = nil
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrOwnerNotFound
}

func (f *fakeRepo) PurgeBannedOwners(ctx context.Context, bannedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, o := range f.owners {
		if o.IsBanned && o.BannedAt != nil && !o.BannedAt.After(bannedBefore) {
			delete(f.owners, id)
			n++
		}
	}
	return n, nil
}

// Channels

func (f *fakeRepo) CreateChannel(ctx context.Context, channel *domain.ManagedChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicateKeys > 0 {
		f.duplicateKeys--
		return store.ErrDuplicateStartKey
	}
	for _, c := range f.channels {
		if c.StartKey == channel.StartKey {
			return store.ErrDuplicateStartKey
		}
		if c.ChannelID == channel.ChannelID {
			return store.ErrDuplicateChannel
		}
	}
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	channel.CreatedAt = f.now()
	cp := *channel
	f.channels[cp.ID] = &cp
	return nil
}

func (f *fakeRepo) GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return nil, store.ErrChannelNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) GetChannelByStartKey(ctx context.Context, startKey string) (*domain.ManagedChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.channels {
		if c.StartKey == startKey {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrChannelNotFound
}

func (f *fakeRepo) ListChannelsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ManagedChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ManagedChannel
	for _, c := range f.channels {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListChannels(ctx context.Context, limit, offset int) ([]domain.ManagedChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ManagedChannel
	for _, c := range f.channels {
		out = append(out, *c)
	}
	return page(out, limit, offset), nil
}

func (f *fakeRepo) UpdateChannelPlans(ctx context.Context, id, ownerID uuid.UUID, plans []domain.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok || c.OwnerID != ownerID {
		return store.ErrChannelNotFound
	}
	c.Plans = plans
	return nil
}

func (f *fakeRepo) DeleteChannel(ctx context.Context, id, ownerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok || c.OwnerID != ownerID {
		return store.ErrChannelNotFound
	}
	delete(f.channels, id)
	return nil
}

// Pending intents and cursor

func (f *fakeRepo) PendingAmountExists(ctx context.Context, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	p, ok := f.pending[amount]
	return ok && f.live(p), nil
}

func (f *fakeRepo) CreatePendingPayment(ctx context.Context, payment *domain.PendingPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		if err := f.createErr(payment.UniqueAmount); err != nil {
			return err
		}
	}
	if existing, ok := f.pending[payment.UniqueAmount]; ok && f.live(existing) {
		return store.ErrDuplicateAmount
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = f.now()
	cp := *payment
	f.pending[payment.UniqueAmount] = &cp
	return nil
}

func (f *fakeRepo) ConsumePendingPayment(ctx context.Context, amount int64) (*domain.PendingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	p, ok := f.pending[amount]
	if !ok || !f.live(p) {
		return nil, store.ErrPendingPaymentNotFound
	}
	delete(f.pending, amount)
	if f.consumeHook != nil {
		f.consumeHook(ctx)
	}
	return p, nil
}

func (f *fakeRepo) PurgeExpiredPendingPayments(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for amount, p := range f.pending {
		if !f.live(p) {
			delete(f.pending, amount)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) GetAllocatorCursor(ctx context.Context, base int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.cursors[base]
	return v, ok, nil
}

func (f *fakeRepo) SetAllocatorCursor(ctx context.Context, base, current int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors[base] = current
	return nil
}

// Settlement

func (f *fakeRepo) RecordSale(ctx context.Context, sale domain.Sale) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordSaleErr != nil {
		return nil, f.recordSaleErr
	}
	o, ok := f.owners[sale.OwnerID]
	if !ok {
		return nil, store.ErrOwnerNotFound
	}
	o.WalletBalance += sale.Net
	o.TotalEarnings += sale.Gross
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
		CreatedAt:         f.now(),
	}
	f.transactions = append(f.transactions, txn)
	return &txn, nil
}

func (f *fakeRepo) UpsertSubscriber(ctx context.Context, subscriber *domain.Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscribers {
		if s.TelegramID == subscriber.TelegramID && s.ChannelID == subscriber.ChannelID {
			s.ExpiresAt = subscriber.ExpiresAt
			s.SubscribedAt = subscriber.SubscribedAt
			s.OwnerTelegramID = subscriber.OwnerTelegramID
			subscriber.ID = s.ID
			return nil
		}
	}
	if subscriber.ID == uuid.Nil {
		subscriber.ID = uuid.New()
	}
	cp := *subscriber
	f.subscribers[cp.ID] = &cp
	return nil
}

func (f *fakeRepo) ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].OwnerID == ownerID {
			out = append(out, f.transactions[i])
		}
	}
	return page(out, limit, 0), nil
}

func (f *fakeRepo) ChannelStatsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ChannelStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[int64]*domain.ChannelStat{}
	var order []int64
	for _, t := range f.transactions {
		if t.OwnerID != ownerID {
			continue
		}
		st, ok := stats[t.ChannelID]
		if !ok {
			st = &domain.ChannelStat{ChannelID: t.ChannelID}
			for _, c := range f.channels {
				if c.ChannelID == t.ChannelID {
					st.ChannelName = c.ChannelName
				}
			}
			stats[t.ChannelID] = st
			order = append(order, t.ChannelID)
		}
		st.Revenue += t.AmountPaid
		st.Sales++
	}
	out := make([]domain.ChannelStat, 0, len(order))
	for _, id := range order {
		out = append(out, *stats[id])
	}
	return out, nil
}

// Subscribers

func (f *fakeRepo) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *fakeRepo) findSubscriber(telegramID, channelID int64) *domain.Subscriber {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscribers {
		if s.TelegramID == telegramID && s.ChannelID == channelID {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (f *fakeRepo) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ExpiredSubscription
	for _, s := range f.subscribers {
		if s.ExpiresAt.After(now) {
			continue
		}
		item := domain.ExpiredSubscription{Subscriber: *s}
		for _, c := range f.channels {
			if c.ChannelID == s.ChannelID {
				cp := *c
				item.Channel = &cp
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Subscriber.ExpiresAt.Before(out[j].Subscriber.ExpiresAt)
	})
	return out, nil
}

func (f *fakeRepo) DeleteExpiredSubscriber(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	if f.deleteSubErr != nil {
		f.mu.Unlock()
		return false, f.deleteSubErr
	}
	s, ok := f.subscribers[id]
	if !ok || s.ExpiresAt.After(now) {
		f.mu.Unlock()
		return false, nil
	}
	delete(f.subscribers, id)
	hook := f.claimHook
	f.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return true, nil
}

func (f *fakeRepo) HasActiveSubscription(ctx context.Context, telegramID, channelID int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscribers {
		if s.TelegramID == telegramID && s.ChannelID == channelID && s.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) DeleteSubscriberByPair(ctx context.Context, telegramID, channelID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.subscribers {
		if s.TelegramID == telegramID && s.ChannelID == channelID {
			delete(f.subscribers, id)
			return true, nil
		}
	}
	return false, nil
}

// Withdrawals

func (f *fakeRepo) CreateWithdrawal(ctx context.Context, ownerID uuid.UUID, amount int64, upiID string) (*domain.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.owners[ownerID]
	if !ok {
		return nil, store.ErrOwnerNotFound
	}
	if o.IsBanned {
		return nil, store.ErrOwnerBanned
	}
	if o.WalletBalance < amount {
		return nil, store.ErrInsufficientFunds
	}
	o.WalletBalance -= amount
	w := &domain.Withdrawal{ID: uuid.New(), OwnerID: ownerID, OwnerTelegram: o.TelegramID, Amount: amount, UPIID: upiID, Status: domain.WithdrawalPending, RequestedAt: f.now()}
	f.withdrawals[w.ID] = w
	cp := *w
	return &cp, nil
}

func (f *fakeRepo) transition(id uuid.UUID, to domain.WithdrawalStatus) (*domain.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, store.ErrWithdrawalNotFound
	}
	if w.Status != domain.WithdrawalPending {
		return nil, store.ErrWithdrawalNotPending
	}
	w.Status = to
	at := f.now()
	w.ProcessedAt = &at
	if to == domain.WithdrawalRejected {
		if o, ok := f.owners[w.OwnerID]; ok {
			o.WalletBalance += w.Amount
		}
	}
	cp := *w
	return &cp, nil
}

func (f *fakeRepo) ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	return f.transition(id, domain.WithdrawalApproved)
}

func (f *fakeRepo) RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	return f.transition(id, domain.WithdrawalRejected)
}

func (f *fakeRepo) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Withdrawal
	for _, w := range f.withdrawals {
		if status == "" || w.Status == status {
			out = append(out, *w)
		}
	}
	return page(out, limit, offset), nil
}

func (f *fakeRepo) ListWithdrawalsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Withdrawal
	for _, w := range f.withdrawals {
		if w.OwnerID == ownerID {
			out = append(out, *w)
		}
	}
	return page(out, limit, 0), nil
}

func (f *fakeRepo) SumApprovedWithdrawals(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, w := range f.withdrawals {
		if w.OwnerID == ownerID && w.Status == domain.WithdrawalApproved {
			sum += w.Amount
		}
	}
	return sum, nil
}

// Reports

func (f *fakeRepo) CreateReport(ctx context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.Status = domain.ReportPending
	report.CreatedAt = f.now()
	cp := *report
	f.reports[cp.ID] = &cp
	return nil
}

func (f *fakeRepo) ListReports(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Report
	for _, r := range f.reports {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return page(out, limit, offset), nil
}

func (f *fakeRepo) ResolveReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, store.ErrReportNotFound
	}
	if r.Status == domain.ReportResolved {
		return nil, store.ErrReportAlreadyResolved
	}
	r.Status = domain.ReportResolved
	at := f.now()
	r.ResolvedAt = &at
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &domain.PlatformStats{
		Owners:            len(f.owners),
		Channels:          len(f.channels),
		ActiveSubscribers: len(f.subscribers),
		PendingPayments:   len(f.pending),
		Transactions:      len(f.transactions),
	}
	for _, o := range f.owners {
		if o.IsBanned {
			st.BannedOwners++
		}
		st.PendingPayouts += o.WalletBalance
	}
	for _, t := range f.transactions {
		st.TotalRevenue += t.AmountPaid
		st.TotalCommission += t.CommissionCharged
	}
	for _, w := range f.withdrawals {
		switch w.Status {
		case domain.WithdrawalApproved:
			st.TotalPaidOut += w.Amount
		case domain.WithdrawalPending:
			st.PendingWithdrawals++
			st.PendingWithdrawalTotal += w.Amount
		}
	}
	for _, r := range f.reports {
		if r.Status == domain.ReportPending {
			st.OpenReports++
		}
	}
	return st, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// fakeMessenger records outbound chat traffic.
type fakeMessenger struct {
	mu sync.Mutex

	sent      []telegram.Message
	invites   []int64
	removed   [][2]int64
	admins    map[int64]bool
	inviteErr error
	removeErr error
	sendErr   error

	removeHook func(chatID, userID int64)
}

var _ Messenger = (*fakeMessenger)(nil)

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{admins: map[int64]bool{}}
}

func (m *fakeMessenger) SendMessage(ctx context.Context, msg telegram.Message) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.sent = append(m.sent, msg)
	return len(m.sent), nil
}

func (m *fakeMessenger) CreateInviteLink(ctx context.Context, chatID int64, memberLimit int, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inviteErr != nil {
		return "", m.inviteErr
	}
	if memberLimit != 1 {
		return "", errors.New("expected single-use invite")
	}
	m.invites = append(m.invites, chatID)
	return "https://t.me/+invite", nil
}

func (m *fakeMessenger) RemoveMember(ctx context.Context, chatID, userID int64) error {
	m.mu.Lock()
	hook := m.removeHook
	if m.removeErr != nil {
		m.mu.Unlock()
		return m.removeErr
	}
	m.removed = append(m.removed, [2]int64{chatID, userID})
	m.mu.Unlock()

	if hook != nil {
		hook(chatID, userID)
	}
	return nil
}

func (m *fakeMessenger) IsChatAdministrator(ctx context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[chatID], nil
}

func (m *fakeMessenger) Username() string {
	return "MonetizeGramBot"
}

func (m *fakeMessenger) messagesTo(chatID int64) []telegram.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []telegram.Message
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// fakePublisher records published routing keys.
type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *fakePublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == routingKey {
			n++
		}
	}
	return n
}
