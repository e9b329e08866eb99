// Package telegram implements gateway.Gateway on top of the Telegram Bot API.
package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
	"github.com/ariefcatur/go-order-dispatch/internal/metrics"
)

// Bot API global limit is ~30 messages/sec per bot.
const defaultRate = 25

type Client struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// New connects to the Bot API (getMe) at endpoint, or the public API when
// endpoint is empty. perSecond <= 0 uses the default outbound rate.
func New(token, endpoint string, perSecond float64, logger *slog.Logger) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, err
	}
	if perSecond <= 0 {
		perSecond = defaultRate
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	logger = logger.With("component", "telegram")
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	return &Client{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}, nil
}

func (c *Client) Send(ctx context.Context, chatID int64, text string, ctl *gateway.Controls) (gateway.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if m := replyMarkup(ctl); m != nil {
		msg.ReplyMarkup = m
	}

	var sent tgbotapi.Message
	err := c.call(ctx, "sendMessage", func() (err error) {
		sent, err = c.bot.Send(msg)
		return err
	})
	if err != nil {
		return gateway.MessageRef{}, err
	}
	ref := gateway.MessageRef{ChatID: chatID, MessageID: sent.MessageID}
	if sent.Chat != nil {
		ref.ChatID = sent.Chat.ID
	}
	return ref, nil
}

func (c *Client) EditText(ctx context.Context, ref gateway.MessageRef, text string, ctl *gateway.Controls) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = inlineMarkup(ctl)

	return c.call(ctx, "editMessageText", func() error {
		_, err := c.bot.Request(edit)
		return err
	})
}

func (c *Client) EditControls(ctx context.Context, ref gateway.MessageRef, ctl *gateway.Controls) error {
	edit := tgbotapi.EditMessageReplyMarkupConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      ref.ChatID,
			MessageID:   ref.MessageID,
			ReplyMarkup: inlineMarkup(ctl),
		},
	}
	return c.call(ctx, "editMessageReplyMarkup", func() error {
		_, err := c.bot.Request(edit)
		return err
	})
}

func (c *Client) Acknowledge(ctx context.Context, interactionID, text string, urgent bool) error {
	cb := tgbotapi.NewCallback(interactionID, text)
	cb.ShowAlert = urgent
	return c.call(ctx, "answerCallbackQuery", func() error {
		_, err := c.bot.Request(cb)
		return err
	})
}

// SetWebhook registers url for message, channel_post and callback_query updates.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return &gateway.Error{Method: "setWebhook", Err: err}
	}
	wh.AllowedUpdates = []string{"message", "channel_post", "callback_query"}
	return c.call(ctx, "setWebhook", func() error {
		_, err := c.bot.Request(wh)
		return err
	})
}

// call waits for the rate limiter, runs fn and wraps its error.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &gateway.Error{Method: method, Err: err}
	}
	if err := fn(); err != nil {
		metrics.GatewayErrorsTotal.WithLabelValues(method).Inc()
		return &gateway.Error{Method: method, Err: err}
	}
	return nil
}
