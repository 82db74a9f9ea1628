package bot

import (
	"github.com/HashGen/MonetizeGram/internal/callback"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
)

type helpSection struct {
	key   string
	title string
	body  string
}

var ownerHelpSections = []helpSection{
	{"start", "🚀 Getting started", "1. Add this bot to your channel as an admin with permission to invite users.\n2. Press <b>Add Channel</b> and forward any message from the channel.\n3. Send your plans, one per line: <code>30 days 100 rs</code>.\n\nYou get a link to share with subscribers. Each subscriber is asked to pay a unique amount a few paise above your price so the payment can be matched automatically."},
	{"dashboard", "📊 Dashboard", "Total Revenue is everything your subscribers paid. The service charge is deducted from it, and what remains minus past payouts is your withdrawable balance."},
	{"channels", "📺 Channels", "Under <b>My Channels</b> you can edit plans, get the subscriber link again or remove a channel. Removing a channel stops new sales. Existing subscribers keep access until their plan ends, then they are removed automatically."},
	{"withdrawals", "💸 Withdrawals", "Once your balance reaches the minimum you can withdraw all of it to a UPI ID from the dashboard. Requests are usually processed within 24 hours."},
}

var adminHelpSections = []helpSection{
	{"verify", "✅ Manual verification", "Send an amount like <code>100.37</code> to settle the pending payment holding that exact amount."},
	{"owners", "👥 Owners", "/viewowners lists recent owners. Open one to see their wallet and channels, ban them, or inspect a channel with a one-time link.\n<code>/unban &lt;telegram_id&gt;</code> lifts a ban."},
	{"subs", "🚪 Subscribers", "<code>/removesubscriber &lt;user_id&gt; &lt;channel_id&gt;</code> removes a user from a channel and deletes the subscription."},
	{"withdraw", "💸 Withdrawals", "Withdrawal requests arrive here with Approve and Reject buttons. Rejecting refunds the amount to the owner's wallet."},
}

// helpView renders the section list, or one section with a back button when key matches.
func helpView(title string, sections []helpSection, action callback.Action, key string, back []telegram.Button) view {
	for _, s := range sections {
		if s.key == key {
			return view{
				text: "<b>" + s.title + "</b>\n\n" + s.body,
				rows: [][]telegram.Button{telegram.Row(dataButton("⬅️ Back", action, ""))},
			}
		}
	}
	rows := make([][]telegram.Button, 0, len(sections)+1)
	for _, s := range sections {
		rows = append(rows, telegram.Row(dataButton(s.title, action, s.key)))
	}
	if back != nil {
		rows = append(rows, back)
	}
	return view{text: title, rows: rows}
}

func ownerHelpView(key string) view {
	return helpView("❓ <b>How MonetizeGram works</b>\n\nPick a topic:", ownerHelpSections, callback.OwnerHelp, key, backTo(callback.OwnerMenu))
}

func adminHelpView(key string) view {
	return helpView("🛠️ <b>Admin Help</b>\n\nPick a topic:", adminHelpSections, callback.AdminHelp, key, nil)
}
