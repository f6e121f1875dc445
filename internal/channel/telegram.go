package channel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"nomwatch/pkg/logx"
)

const telegramMessageLimit = 4096

type TelegramConfig struct {
	Token string
	// PartsPerSecond paces multi-part deliveries to one recipient
	// (Telegram throttles bots that burst). Default 1.
	PartsPerSecond int
	// MessageLimit overrides the per-message size limit. Tests only.
	MessageLimit int
}

// Telegram delivers digests over the Telegram bot API.
//
// A digest longer than the platform's message limit is split on paragraph
// boundaries and sent as sequential parts; the whole sequence counts as one
// delivery and succeeds only if every part lands.
type Telegram struct {
	bot     *tele.Bot
	log     logx.Logger
	limiter *rate.Limiter
	limit   int
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: false,
	})
	if err != nil {
		return nil, err
	}
	pps := cfg.PartsPerSecond
	if pps <= 0 {
		pps = 1
	}
	limit := cfg.MessageLimit
	if limit <= 0 {
		limit = telegramMessageLimit
	}
	return &Telegram{
		bot:     b,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(pps), 1),
		limit:   limit,
	}, nil
}

func (t *Telegram) Name() string        { return "telegram" }
func (t *Telegram) MarkupEnabled() bool { return true }

func (t *Telegram) Send(ctx context.Context, address, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(address), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram address %q: %w", address, err)
	}

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
	}
	for i, part := range SplitMessage(text, t.limit) {
		if i > 0 {
			if err := t.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if _, err := t.bot.Send(tele.ChatID(chatID), part, opts); err != nil {
			return fmt.Errorf("telegram send part %d: %w", i+1, err)
		}
	}
	return nil
}

// Close releases the underlying bot client.
func (t *Telegram) Close() {
	if t.bot != nil {
		t.bot.Stop()
	}
}

var _ Channel = (*Telegram)(nil)
