package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"doseclock/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("telegram client not configured")
	ErrRejected      = errors.New("telegram rejected message")
	ErrUpstream      = errors.New("telegram upstream error")
)

const DefaultAPIURL = "https://api.telegram.org"

// Config del bot. BotToken viene de TELEGRAM_BOT_TOKEN.
type Config struct {
	APIURL   string
	BotToken string
	Timeout  time.Duration
	Retries  int
}

type Client struct {
	http  *httpclient.Client
	token string
}

func NewClient(cfg Config) (*Client, error) {
	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	hc, err := httpclient.New(httpclient.Options{BaseURL: apiURL, Timeout: cfg.Timeout, Retries: cfg.Retries})
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, token: strings.TrimSpace(cfg.BotToken)}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.token != ""
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode"`
	ReplyMarkup *InlineKeyboard `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendMessage manda texto HTML a un chat y devuelve el message_id.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, markup *InlineKeyboard) (int64, error) {
	if !c.IsConfigured() {
		return 0, ErrNotConfigured
	}

	var out apiResponse
	err := c.http.PostJSON(ctx, "/bot"+c.token+"/sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: markup,
	}, &out)
	if err != nil {
		var he *httpclient.StatusError
		if errors.As(err, &he) && he.StatusCode < 500 {
			return 0, fmt.Errorf("%w: status=%d", ErrRejected, he.StatusCode)
		}
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !out.OK {
		return 0, fmt.Errorf("%w: %s", ErrRejected, out.Description)
	}
	return out.Result.MessageID, nil
}
