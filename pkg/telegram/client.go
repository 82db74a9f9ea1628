/**
 * @description
 * Thin wrapper around the Telegram Bot API client. It converts the
 * transport-neutral Message type into tgbotapi configs and exposes the handful
 * of chat-administration calls the service relies on.
 *
 * @dependencies
 * - github.com/go-telegram-bot-api/telegram-bot-api/v5: Bot API client.
 */
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client sends messages and administers channels on behalf of the bot.
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient authenticates the bot token against the Bot API.
func NewClient(token string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Username is the bot's @handle without the @.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

func buildKeyboard(rows [][]Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

// SendMessage delivers a message and returns its id.
func (c *Client) SendMessage(ctx context.Context, msg Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	cfg.ParseMode = msg.ParseMode
	cfg.DisableWebPagePreview = true
	if kb := buildKeyboard(msg.Keyboard); kb != nil {
		cfg.ReplyMarkup = *kb
	}
	sent, err := c.api.Send(cfg)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", msg.ChatID, err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text and keyboard of a previously sent message.
func (c *Client) EditMessage(ctx context.Context, messageID int, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewEditMessageText(msg.ChatID, messageID, msg.Text)
	cfg.ParseMode = msg.ParseMode
	cfg.DisableWebPagePreview = true
	cfg.ReplyMarkup = buildKeyboard(msg.Keyboard)
	if _, err := c.api.Request(cfg); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message %d in %d: %w", messageID, msg.ChatID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// CreateInviteLink mints an invite link. A zero expiresAt means no expiry.
func (c *Client) CreateInviteLink(ctx context.Context, chatID int64, memberLimit int, expiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: chatID},
		MemberLimit: memberLimit,
	}
	if !expiresAt.IsZero() {
		cfg.ExpireDate = int(expiresAt.Unix())
	}
	resp, err := c.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("create invite link for %d: %w", chatID, err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", errors.New("telegram returned an empty invite link")
	}
	return link.InviteLink, nil
}

// RemoveMember bans and immediately unbans the user, which removes them from the
// chat without leaving them on the ban list.
func (c *Client) RemoveMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	member := tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID}
	if _, err := c.api.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("remove user %d from %d: %w", userID, chatID, err)
	}
	if _, err := c.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		return fmt.Errorf("unban user %d in %d: %w", userID, chatID, err)
	}
	return nil
}

// IsChatAdministrator reports whether the bot itself administers the chat.
func (c *Client) IsChatAdministrator(ctx context.Context, chatID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: c.api.Self.ID},
	})
	if err != nil {
		return false, fmt.Errorf("get bot membership in %d: %w", chatID, err)
	}
	return member.IsAdministrator() || member.IsCreator(), nil
}

// Updates starts long polling. The channel closes after Stop.
func (c *Client) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return c.api.GetUpdatesChan(u)
}

// Stop ends long polling.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}
