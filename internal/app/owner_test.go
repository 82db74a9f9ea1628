package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/store"
)

type ownerFixture struct {
	repo      *fakeRepo
	messenger *fakeMessenger
	publisher *fakePublisher
	owners    *OwnerService
	admin     *AdminService
}

func newOwnerFixture(t *testing.T) *ownerFixture {
	t.Helper()
	repo := newFakeRepo()
	messenger := newFakeMessenger()
	publisher := &fakePublisher{}
	logger := discardLogger()
	notifier := NewNotifier(messenger, testAdminID, logger)

	owners := NewOwnerService(repo, messenger, notifier, publisher, OwnerConfig{
		CommissionPercent: 10,
		MinimumWithdrawal: 10000,
		EventsExchange:    "test.events",
	}, logger)
	admin := NewAdminService(testAdminID, "support", repo, messenger, notifier, publisher, "test.events", logger)

	return &ownerFixture{repo: repo, messenger: messenger, publisher: publisher, owners: owners, admin: admin}
}

func TestRegisterChannel(t *testing.T) {
	f := newOwnerFixture(t)
	owner, err := f.owners.EnsureOwner(context.Background(), 500, "seller", "Sam")
	if err != nil {
		t.Fatalf("ensure owner: %v", err)
	}

	channel, err := f.owners.RegisterChannel(context.Background(), owner, -1001, "Alpha", "30 days 100 rs\n90 days 250 rs")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(channel.StartKey) != startKeyLength {
		t.Fatalf("expected %d-char start key, got %q", startKeyLength, channel.StartKey)
	}
	if len(channel.Plans) != 2 || channel.Plans[1] != (domain.Plan{Days: 90, Price: 25000}) {
		t.Fatalf("unexpected plans %+v", channel.Plans)
	}
	if link := f.owners.ChannelLink(channel); link != "https://t.me/MonetizeGramBot?start="+channel.StartKey {
		t.Fatalf("unexpected deep link %q", link)
	}

	if _, err := f.owners.RegisterChannel(context.Background(), owner, -1001, "Alpha", "30 days 100 rs"); !errors.Is(err, store.ErrDuplicateChannel) {
		t.Fatalf("expected ErrDuplicateChannel, got %v", err)
	}
}

func TestRegisterChannelRejectsBadPlans(t *testing.T) {
	f := newOwnerFixture(t)
	owner, _ := f.owners.EnsureOwner(context.Background(), 500, "", "")

	_, err := f.owners.RegisterChannel(context.Background(), owner, -1001, "Alpha", "30 days 100 rs\nthree months 300")
	if !errors.Is(err, domain.ErrInvalidPlanFormat) {
		t.Fatalf("expected ErrInvalidPlanFormat, got %v", err)
	}
	if chans, _ := f.owners.ListChannels(context.Background(), owner); len(chans) != 0 {
		t.Fatal("expected no channel to be created")
	}
}

func TestRegisterChannelRetriesStartKeyCollision(t *testing.T) {
	f := newOwnerFixture(t)
	owner, _ := f.owners.EnsureOwner(context.Background(), 500, "", "")
	f.repo.duplicateKeys = 2

	if _, err := f.owners.RegisterChannel(context.Background(), owner, -1001, "Alpha", "30 days 100 rs"); err != nil {
		t.Fatalf("expected collision retry to succeed, got %v", err)
	}
}

func TestVerifyChannelAdmin(t *testing.T) {
	f := newOwnerFixture(t)
	f.messenger.admins[-1001] = true

	if err := f.owners.VerifyChannelAdmin(context.Background(), -1001); err != nil {
		t.Fatalf("expected admin check to pass, got %v", err)
	}
	if err := f.owners.VerifyChannelAdmin(context.Background(), -1002); !errors.Is(err, ErrBotNotChannelAdmin) {
		t.Fatalf("expected ErrBotNotChannelAdmin, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	f := newOwnerFixture(t)
	owner := f.repo.seedOwner(500, 45000, 100000)

	d, err := f.owners.Dashboard(context.Background(), owner)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.TotalRevenue != 100000 || d.ServiceCharge != 10000 || d.GrossEarnings != 90000 || d.Withdrawable != 45000 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	f := newOwnerFixture(t)
	f.repo.seedOwner(500, 9999, 9999)

	if _, err := f.owners.RequestWithdrawal(context.Background(), 500, "sam@upi"); !errors.Is(err, ErrBelowMinimumWithdrawal) {
		t.Fatalf("expected ErrBelowMinimumWithdrawal, got %v", err)
	}
}

func TestRequestWithdrawalInvalidUPI(t *testing.T) {
	f := newOwnerFixture(t)
	f.repo.seedOwner(500, 50000, 50000)

	if _, err := f.owners.RequestWithdrawal(context.Background(), 500, "not a upi"); !errors.Is(err, domain.ErrInvalidPayoutAddress) {
		t.Fatalf("expected ErrInvalidPayoutAddress, got %v", err)
	}
	if got := f.repo.ownerSnapshot(f.repo.mustOwner(500).ID).WalletBalance; got != 50000 {
		t.Fatalf("expected wallet untouched, got %d", got)
	}
}

func TestWithdrawalRejectionRefunds(t *testing.T) {
	f := newOwnerFixture(t)
	owner := f.repo.seedOwner(500, 50000, 50000)

	w, err := f.owners.RequestWithdrawal(context.Background(), 500, " sam@upi ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if w.Amount != 50000 || w.Status != domain.WithdrawalPending || w.UPIID != "sam@upi" {
		t.Fatalf("unexpected withdrawal %+v", w)
	}
	if got := f.repo.ownerSnapshot(owner.ID).WalletBalance; got != 0 {
		t.Fatalf("expected wallet debited to 0, got %d", got)
	}
	adminMsgs := f.messenger.messagesTo(testAdminID)
	if len(adminMsgs) != 1 || !strings.Contains(adminMsgs[0].Text, "New Withdrawal Request") {
		t.Fatalf("expected admin notice, got %+v", adminMsgs)
	}

	rejected, err := f.admin.RejectWithdrawal(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rejected.Status != domain.WithdrawalRejected {
		t.Fatalf("expected rejected status, got %s", rejected.Status)
	}
	if got := f.repo.ownerSnapshot(owner.ID).WalletBalance; got != 50000 {
		t.Fatalf("expected wallet refunded to 50000, got %d", got)
	}

	if _, err := f.admin.ApproveWithdrawal(context.Background(), w.ID); !errors.Is(err, store.ErrWithdrawalNotPending) {
		t.Fatalf("expected ErrWithdrawalNotPending, got %v", err)
	}
	if f.publisher.count(domain.EventWithdrawalRequested) != 1 || f.publisher.count(domain.EventWithdrawalRejected) != 1 {
		t.Fatal("expected requested and rejected events")
	}
}

func TestWithdrawalApprovalCountsAsPaidOut(t *testing.T) {
	f := newOwnerFixture(t)
	owner := f.repo.seedOwner(500, 20000, 20000)

	w, err := f.owners.RequestWithdrawal(context.Background(), 500, "sam@upi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := f.admin.ApproveWithdrawal(context.Background(), w.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fresh := f.repo.ownerSnapshot(owner.ID)
	d, err := f.owners.Dashboard(context.Background(), &fresh)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TotalPaidOut != 20000 || d.Withdrawable != 0 {
		t.Fatalf("expected paid out 20000 and nothing withdrawable, got %+v", d)
	}
	if len(f.messenger.messagesTo(500)) != 1 {
		t.Fatal("expected the owner to be told about the approval")
	}
}

func TestUpdateAndRemoveChannelRequireOwnership(t *testing.T) {
	f := newOwnerFixture(t)
	owner := f.repo.seedOwner(500, 0, 0)
	other := f.repo.seedOwner(501, 0, 0)
	channel := f.repo.seedChannel(owner, -1001, domain.Plan{Days: 30, Price: 10000})

	if _, err := f.owners.UpdatePlans(context.Background(), other, channel.ID, "7 days 50 rs"); !errors.Is(err, store.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound for a foreign channel, got %v", err)
	}
	if _, err := f.owners.OwnedChannel(context.Background(), other, channel.ID); !errors.Is(err, store.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}

	plans, err := f.owners.UpdatePlans(context.Background(), owner, channel.ID, "7 days 50 rs")
	if err != nil || len(plans) != 1 || plans[0].Price != 5000 {
		t.Fatalf("expected updated plans, got %+v err=%v", plans, err)
	}
	if err := f.owners.RemoveChannel(context.Background(), owner, channel.ID); err != nil {
		t.Fatalf("expected removal, got %v", err)
	}
}

func (f *fakeRepo) mustOwner(telegramID int64) *domain.Owner {
	o, err := f.GetOwnerByTelegramID(context.Background(), telegramID)
	if err != nil {
		panic(err)
	}
	return o
}
