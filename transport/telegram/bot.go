package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// ReminderService is the part of the reminder use case the bot drives.
type ReminderService interface {
	Create(ctx context.Context, chatID int64, expression, task string, now time.Time) (*domain.Reminder, error)
	CreateAt(ctx context.Context, chatID int64, task, phrase string, now time.Time) (*domain.Reminder, error)
	List(ctx context.Context, chatID int64) ([]*domain.Reminder, error)
	Cancel(ctx context.Context, chatID int64, ref string) (*domain.Reminder, error)
}

type Bot struct {
	client      *bot.Bot
	reminders   ReminderService
	now         func() time.Time
	sendLimiter *rate.Limiter
	requests    *chatLimiter
	log         *slog.Logger
}

func NewBot(token string, reminders ReminderService, limits Limits, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	requests, err := newChatLimiter(limits.RequestsPerMinute, limits.Burst, chatLimiterSize)
	if err != nil {
		return nil, fmt.Errorf("create chat limiter: %w", err)
	}
	b := &Bot{
		reminders:   reminders,
		now:         time.Now,
		sendLimiter: newSendLimiter(limits.SendPerSecond),
		requests:    requests,
		log:         log.With("component", "telegram"),
	}
	client, err := bot.New(token, bot.WithDefaultHandler(b.TextHandler))
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	b.client = client
	b.RegisterHandlers()
	return b, nil
}

func (b *Bot) RegisterHandlers() {
	commands := []struct {
		name  string
		reply replyFunc
	}{
		{"/start", b.replyStart},
		{"/help", b.replyStart},
		{"/remind", b.replyRemind},
		{"/remindme", b.replyRemindMe},
		{"/list", b.replyList},
		{"/cancel", b.replyCancel},
	}
	for _, c := range commands {
		b.client.RegisterHandlerMatchFunc(commandMatch(c.name), b.commandHandler(c.reply))
	}
}

// commandMatch matches messages whose first word is name, optionally
// addressed as name@botname.
func commandMatch(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		return update.Message != nil && commandName(update.Message.Text) == name
	}
}

// commandName returns the command word of text without any @botname suffix,
// or "" when text is not a command.
func commandName(text string) string {
	head, _ := splitCommand(text)
	if !strings.HasPrefix(head, "/") {
		return ""
	}
	name, _, _ := strings.Cut(head, "@")
	return name
}

// Start long-polls Telegram until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("bot started")
	b.client.Start(ctx)
}

// Send delivers a plain-text message, waiting for the send limiter first. It
// satisfies domain.Sender.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if b.sendLimiter != nil {
		if err := b.sendLimiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := b.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

type replyFunc func(ctx context.Context, chatID int64, args string) string

func (b *Bot) commandHandler(reply replyFunc) bot.HandlerFunc {
	return func(ctx context.Context, botClient *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		chatID := update.Message.Chat.ID
		_, args := splitCommand(update.Message.Text)
		b.respond(ctx, botClient, chatID, b.reply(ctx, chatID, args, reply))
	}
}

// TextHandler receives every message no command matched. Unknown commands get
// the usage text; anything else is a natural-language reminder request.
func (b *Bot) TextHandler(ctx context.Context, botClient *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	b.log.Debug("message received", "chat_id", chatID)
	b.respond(ctx, botClient, chatID, b.reply(ctx, chatID, update.Message.Text, b.replyText))
}

// reply runs fn unless the chat is over its request limit.
func (b *Bot) reply(ctx context.Context, chatID int64, args string, fn replyFunc) string {
	if !b.requests.allow(chatID) {
		b.log.Warn("chat rate limited", "chat_id", chatID)
		return msgSlowDown
	}
	return fn(ctx, chatID, args)
}

func (b *Bot) respond(ctx context.Context, botClient *bot.Bot, chatID int64, text string) {
	_, err := botClient.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		b.log.Error("reply failed", "chat_id", chatID, "error", err)
	}
}
