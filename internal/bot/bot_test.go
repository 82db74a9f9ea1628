package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

func TestPanicIsContained(t *testing.T) {
	f := newBotFixture(t)
	f.owners.panicOnFind = true

	f.text(5, "hello")

	if !f.chat.anyTo(testAdminID, "BOT CRASH") {
		t.Fatalf("expected crash report to admin, got %v", f.chat.textsTo(testAdminID))
	}
	if !f.chat.anyTo(5, "something went wrong") {
		t.Fatalf("expected apology to user, got %v", f.chat.textsTo(5))
	}
}

func TestCommandResetsSession(t *testing.T) {
	f := newBotFixture(t)
	f.addOwner(5, 0)
	f.sessions.Save(context.Background(), &session.Session{UserID: 5, Step: session.StepAwaitingPlans, ChannelID: -100})

	f.text(5, "/dashboard")

	if got := f.step(t, 5); got != "" {
		t.Fatalf("expected session reset, got step %q", got)
	}
	if !f.chat.anyTo(5, "Your Dashboard") {
		t.Fatalf("expected dashboard, got %v", f.chat.textsTo(5))
	}
}

func TestStartKey(t *testing.T) {
	f := newBotFixture(t)
	channel := &domain.ManagedChannel{ID: uuid.New(), ChannelName: "Alpha <Picks>", StartKey: "k3y9abcd",
		Plans: []domain.Plan{{Days: 30, Price: 10000}, {Days: 90, Price: 25000}}}
	f.checkout.channel = channel

	f.text(7, "/start k3y9abcd")
	msg, ok := f.chat.lastTo(7)
	if !ok || !strings.Contains(msg.Text, "Alpha &lt;Picks&gt;") {
		t.Fatalf("expected escaped welcome, got %+v", msg)
	}
	if len(msg.Keyboard) != 2 || msg.Keyboard[0][0].Text != "30 Days for ₹100.00" {
		t.Fatalf("expected plan buttons, got %+v", msg.Keyboard)
	}
	data, err := callback.Decode(msg.Keyboard[1][0].Data)
	if err != nil {
		t.Fatalf("plan button data: %v", err)
	}
	ref, days, price, err := data.PlanArg()
	if err != nil || ref != channel.ID || days != 90 || price != 25000 {
		t.Fatalf("expected plan arg for 90 days, got %s %d %d %v", ref, days, price, err)
	}

	f.text(8, "/start nope")
	if !f.chat.anyTo(8, "invalid or expired") {
		t.Fatalf("expected invalid link reply, got %v", f.chat.textsTo(8))
	}
}

func TestSelectPlan(t *testing.T) {
	f := newBotFixture(t)
	f.checkout.channel = &domain.ManagedChannel{ID: uuid.New(), ChannelName: "Alpha", StartKey: "k"}

	f.press(7, callback.Plan(f.checkout.channel.ID, 30, 10000))

	msg, _ := f.chat.lastTo(7)
	if !strings.Contains(msg.Text, "₹100.37") || !strings.Contains(msg.Text, "120 minutes") {
		t.Fatalf("expected payment instructions, got %q", msg.Text)
	}
	if len(msg.Keyboard) != 1 || msg.Keyboard[0][0].URL == "" {
		t.Fatalf("expected pay button, got %+v", msg.Keyboard)
	}
	if f.checkout.selected != 7 {
		t.Fatalf("expected subscriber 7, got %d", f.checkout.selected)
	}
}

func TestSelectPlanExhausted(t *testing.T) {
	f := newBotFixture(t)
	f.checkout.selectErr = app.ErrAllocationExhausted

	f.press(7, callback.Plan(uuid.New(), 30, 10000))

	if !f.chat.anyTo(7, "couldn't generate a payment link") {
		t.Fatalf("expected retry message, got %v", f.chat.textsTo(7))
	}
	if f.chat.anyTo(testAdminID, "BOT CRASH") {
		t.Fatal("expected exhaustion not to be reported as a crash")
	}
}

func TestReportFlow(t *testing.T) {
	f := newBotFixture(t)
	ref := uuid.New()

	f.press(7, callback.Report(ref))
	if got := f.step(t, 7); got != session.StepAwaitingReportReason {
		t.Fatalf("expected report step, got %q", got)
	}

	f.text(7, "   ")
	if got := f.step(t, 7); got != session.StepAwaitingReportReason {
		t.Fatalf("expected report step kept after empty reason, got %q", got)
	}

	f.text(7, "  link did not work ")
	if f.reports.ref != ref || f.reports.reason != "link did not work" {
		t.Fatalf("expected report for %s, got %s %q", ref, f.reports.ref, f.reports.reason)
	}
	if got := f.step(t, 7); got != "" {
		t.Fatalf("expected session reset, got %q", got)
	}
	if !f.chat.anyTo(7, "Thank you for your report") {
		t.Fatalf("expected acknowledgement, got %v", f.chat.textsTo(7))
	}
}

func TestManualAmountIsAdminOnly(t *testing.T) {
	f := newBotFixture(t)

	f.text(5, "100.37")
	if len(f.reconciler.amounts) != 0 {
		t.Fatalf("expected non-admin amount to be ignored, got %v", f.reconciler.amounts)
	}
	if !f.chat.anyTo(5, "special link") {
		t.Fatalf("expected subscriber hint, got %v", f.chat.textsTo(5))
	}

	f.text(testAdminID, "confirm 100.37")
	if len(f.reconciler.amounts) != 1 || f.reconciler.amounts[0] != 10037 || f.reconciler.methods[0] != app.MethodManual {
		t.Fatalf("expected manual reconcile of 10037, got %v %v", f.reconciler.amounts, f.reconciler.methods)
	}
	if !f.chat.anyTo(testAdminID, "Attempting manual verification") {
		t.Fatalf("expected progress reply, got %v", f.chat.textsTo(testAdminID))
	}
}

func TestManualAmountLookupFailure(t *testing.T) {
	f := newBotFixture(t)
	f.reconciler.err = errors.Join(app.ErrIntentLookupFailed, errors.New("db down"))

	f.text(testAdminID, "100.37")

	if !f.chat.anyTo(testAdminID, "Nothing was consumed") {
		t.Fatalf("expected retry hint, got %v", f.chat.textsTo(testAdminID))
	}
}

func TestAdminUnbanCommand(t *testing.T) {
	f := newBotFixture(t)

	f.text(testAdminID, "/unban 555")
	if len(f.admin.unbanned) != 1 || f.admin.unbanned[0] != 555 {
		t.Fatalf("expected unban of 555, got %v", f.admin.unbanned)
	}

	f.text(testAdminID, "/unban abc")
	if !f.chat.anyTo(testAdminID, "Usage") {
		t.Fatalf("expected usage reply, got %v", f.chat.textsTo(testAdminID))
	}
}

func TestAdminCallbackRequiresAdmin(t *testing.T) {
	f := newBotFixture(t)

	f.press(5, callback.New(callback.AdminBanOwner, uuid.New().String()))

	if len(f.chat.answers) != 1 || f.chat.answers[0] != "Not allowed." {
		t.Fatalf("expected refusal, got %v", f.chat.answers)
	}
}

func TestAddChannelFlow(t *testing.T) {
	f := newBotFixture(t)
	f.addOwner(5, 0)

	f.text(5, "/addchannel")
	if got := f.step(t, 5); got != session.StepAwaitingChannelForward {
		t.Fatalf("expected forward step, got %q", got)
	}

	f.text(5, "not a forward")
	if got := f.step(t, 5); got != session.StepAwaitingChannelForward {
		t.Fatalf("expected forward step kept, got %q", got)
	}

	f.message(&tgbotapi.Message{ForwardFromChat: &tgbotapi.Chat{ID: -1001, Type: "channel", Title: "Alpha"}}, 5)
	if len(f.owners.verified) != 1 || f.owners.verified[0] != -1001 {
		t.Fatalf("expected admin check on -1001, got %v", f.owners.verified)
	}
	if got := f.step(t, 5); got != session.StepAwaitingPlans {
		t.Fatalf("expected plans step, got %q", got)
	}

	f.text(5, "30 days")
	if got := f.step(t, 5); got != session.StepAwaitingPlans {
		t.Fatalf("expected plans step kept after bad format, got %q", got)
	}

	f.text(5, "30 days 100 rs\n90 days 250 rs")
	if len(f.owners.registered) != 1 || f.owners.registered[0] != "Alpha" {
		t.Fatalf("expected Alpha registered, got %v", f.owners.registered)
	}
	if !f.chat.anyTo(5, "https://t.me/TestBot?start=abcd1234") {
		t.Fatalf("expected deep link, got %v", f.chat.textsTo(5))
	}
	if got := f.step(t, 5); got != "" {
		t.Fatalf("expected session reset, got %q", got)
	}
}

func TestWithdrawFlow(t *testing.T) {
	f := newBotFixture(t)
	f.addOwner(5, 50000)

	f.text(5, "/withdraw")
	if got := f.step(t, 5); got != session.StepAwaitingUPI {
		t.Fatalf("expected UPI step, got %q", got)
	}

	f.text(5, "not a upi")
	if got := f.step(t, 5); got != session.StepAwaitingUPI {
		t.Fatalf("expected UPI step kept, got %q", got)
	}

	f.text(5, " asha@oksbi ")
	if got := f.step(t, 5); got != session.StepAwaitingWithdrawConfirm {
		t.Fatalf("expected confirm step, got %q", got)
	}

	f.press(5, callback.New(callback.WithdrawConfirm, ""))
	if f.owners.withdrawUPI != "asha@oksbi" {
		t.Fatalf("expected withdrawal to asha@oksbi, got %q", f.owners.withdrawUPI)
	}
	if !f.chat.anyTo(5, "₹500.00") {
		t.Fatalf("expected confirmation with amount, got %v", f.chat.textsTo(5))
	}

	f.press(5, callback.New(callback.WithdrawConfirm, ""))
	if !f.chat.anyTo(5, "has expired") {
		t.Fatalf("expected second confirm to be refused, got %v", f.chat.textsTo(5))
	}
}

func TestWithdrawBelowMinimum(t *testing.T) {
	f := newBotFixture(t)
	f.addOwner(5, 5000)

	f.text(5, "/withdraw")

	if got := f.step(t, 5); got != "" {
		t.Fatalf("expected no session, got %q", got)
	}
	if !f.chat.anyTo(5, "minimum withdrawal amount is ₹100.00") {
		t.Fatalf("expected minimum message, got %v", f.chat.textsTo(5))
	}
}

func TestUnknownTextShowsMenu(t *testing.T) {
	f := newBotFixture(t)
	f.addOwner(5, 0)

	f.text(5, "what now")

	if !f.chat.anyTo(5, "I didn't understand") {
		t.Fatalf("expected menu fallback, got %v", f.chat.textsTo(5))
	}
}

func TestNonOwnerStartShowsLanding(t *testing.T) {
	f := newBotFixture(t)

	f.text(6, "/start")

	msg, _ := f.chat.lastTo(6)
	if !strings.Contains(msg.Text, "Welcome to MonetizeGram") || len(msg.Keyboard) != 2 {
		t.Fatalf("expected landing page, got %+v", msg)
	}
	if _, ok := f.owners.owners[6]; ok {
		t.Fatal("expected landing page not to create an owner")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in, cmd, arg string
	}{
		{"/start abc", "/start", "abc"},
		{"/Start@MonetizeGramBot  abc ", "/start", "abc"},
		{"hello", "", ""},
		{"/viewowners", "/viewowners", ""},
	}
	for _, tt := range tests {
		cmd, arg := parseCommand(tt.in)
		if cmd != tt.cmd || arg != tt.arg {
			t.Fatalf("parseCommand(%q): expected %q %q, got %q %q", tt.in, tt.cmd, tt.arg, cmd, arg)
		}
	}
}
