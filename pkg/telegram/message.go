package telegram

import "net/url"

// Parse modes understood by the Bot API.
const (
	ParseModeHTML     = "HTML"
	ParseModeMarkdown = "Markdown"
)

// Button is one inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Message is a transport-neutral outbound chat message.
type Message struct {
	ChatID    int64
	Text      string
	ParseMode string
	Keyboard  [][]Button
}

// Row groups buttons into one keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// DataButton builds a callback button.
func DataButton(text, data string) Button {
	return Button{Text: text, Data: data}
}

// URLButton builds a link button.
func URLButton(text, link string) Button {
	return Button{Text: text, URL: link}
}

// DeepLink returns the t.me link that opens the bot with a start parameter.
func DeepLink(botUsername, startKey string) string {
	return "https://t.me/" + botUsername + "?start=" + url.QueryEscape(startKey)
}
