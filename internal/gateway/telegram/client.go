package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/usecase/notify"
)

const DefaultAPIURL = "https://api.telegram.org"

// Config configures the Bot API client.
type Config struct {
	Token   string
	APIURL  string
	Timeout time.Duration
	// Dial overrides the connection factory, e.g. for in-memory listeners.
	Dial fasthttp.DialFunc
}

// Client talks to the Bot API over fasthttp. It implements notify.Sender.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: apiURL + "/bot" + cfg.Token + "/",
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "taskdesk",
			Dial:                cfg.Dial,
			MaxIdleConnDuration: time.Minute,
		},
		logger: logger,
	}, nil
}

// Send delivers msg to chatID with its controls as an inline keyboard.
func (c *Client) Send(ctx context.Context, chatID int64, msg notify.Message) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:              chatID,
		Text:                msg.Text,
		ReplyMarkup:         keyboard(msg.Controls),
		DisableNotification: msg.Silent,
	}, nil, c.timeout)
}

// Edit rewrites a message the bot sent earlier. An unchanged message is not an error.
func (c *Client) Edit(ctx context.Context, chatID, messageID int64, msg notify.Message) error {
	err := c.call(ctx, "editMessageText", editMessageRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        msg.Text,
		ReplyMarkup: keyboard(msg.Controls),
	}, nil, c.timeout)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return nil
	}
	return err
}

// AnswerCallback stops the client-side spinner of a pressed button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: callbackID}, nil, c.timeout)
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	var updates []Update
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(wait / time.Second),
		AllowedUpdates: allowedUpdates,
	}
	if err := c.call(ctx, "getUpdates", req, &updates, wait+c.timeout); err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers url; Telegram echoes secret in X-Telegram-Bot-Api-Secret-Token.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: allowedUpdates,
	}, nil, c.timeout)
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", deleteWebhookRequest{}, nil, c.timeout)
}

func (c *Client) call(ctx context.Context, method string, payload, result any, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + method)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode(), err)
	}
	if !envelope.OK {
		apiErr := &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
		}
		c.logger.Debug("telegram call rejected", zap.String("method", method), zap.Int("code", apiErr.Code), zap.String("description", apiErr.Description))
		return apiErr
	}
	if result == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func keyboard(controls [][]notify.Control) *inlineKeyboard {
	if len(controls) == 0 {
		return nil
	}
	rows := make([][]inlineButton, 0, len(controls))
	for _, row := range controls {
		buttons := make([]inlineButton, 0, len(row))
		for _, control := range row {
			buttons = append(buttons, inlineButton{Text: control.Text, CallbackData: control.Tag})
		}
		rows = append(rows, buttons)
	}
	return &inlineKeyboard{InlineKeyboard: rows}
}
