package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/X1ag/ReminderBot/internal/usecase"
)

// taskAtPattern splits "<task> at <time>" on the last " at ".
var taskAtPattern = regexp.MustCompile(`(?is)^(.+)\s+at\s+(.+)$`)

const (
	timeLayout = "2006-01-02 15:04"
	shortIDLen = 8

	msgUsage = "Hello! 😊\n" +
		"Use /remind HH:MM task\n" +
		"or /remindme task at time\n" +
		"Or just say: 'Remind me tomorrow at 5 pm to drink water'\n" +
		"/list shows your reminders, /cancel <id> removes one."
	msgRemindUsage   = "⚠ Usage: /remind HH:MM task"
	msgRemindMeUsage = "⚠ Usage: /remindme <task> at <time>"
	msgNotUnderstood = "❌ Sorry, I couldn't understand the time."
	msgStorageFailed = "Failed to save the reminder, please try again later."
	msgNoReminders   = "You have no pending reminders."
	msgCancelUsage   = "⚠ Usage: /cancel <id> (see /list)"
	msgSlowDown      = "⏳ Too many requests, please slow down."
)

func (b *Bot) replyStart(ctx context.Context, chatID int64, args string) string {
	return msgUsage
}

func (b *Bot) replyRemind(ctx context.Context, chatID int64, args string) string {
	expr, task := splitCommand(args)
	if expr == "" || task == "" {
		return msgRemindUsage
	}
	reminder, err := b.reminders.Create(ctx, chatID, expr, task, b.now())
	return b.created(chatID, reminder, err, msgRemindUsage)
}

func (b *Bot) replyRemindMe(ctx context.Context, chatID int64, args string) string {
	m := taskAtPattern.FindStringSubmatch(strings.TrimSpace(args))
	if m == nil {
		return msgRemindMeUsage
	}
	reminder, err := b.reminders.CreateAt(ctx, chatID, m[1], m[2], b.now())
	return b.created(chatID, reminder, err, msgNotUnderstood)
}

func (b *Bot) replyText(ctx context.Context, chatID int64, text string) string {
	if commandName(text) != "" {
		return msgUsage
	}
	return b.replySentence(ctx, chatID, text)
}

func (b *Bot) replySentence(ctx context.Context, chatID int64, text string) string {
	reminder, err := b.reminders.Create(ctx, chatID, text, "", b.now())
	return b.created(chatID, reminder, err, msgNotUnderstood)
}

// created turns the outcome of a create call into the chat reply.
func (b *Bot) created(chatID int64, reminder *domain.Reminder, err error, onParseFailure string) string {
	if err != nil {
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			b.log.Debug("time not understood", "chat_id", chatID, "error", err)
			return onParseFailure
		}
		b.log.Error("create reminder failed", "chat_id", chatID, "error", err)
		return msgStorageFailed
	}
	return fmt.Sprintf("✅ Reminder set for %s - %s", reminder.DueAt.Format(timeLayout), reminder.Task)
}

func (b *Bot) replyList(ctx context.Context, chatID int64, args string) string {
	reminders, err := b.reminders.List(ctx, chatID)
	if err != nil {
		b.log.Error("list reminders failed", "chat_id", chatID, "error", err)
		return "Failed to load your reminders, please try again later."
	}
	if len(reminders) == 0 {
		return msgNoReminders
	}
	var sb strings.Builder
	sb.WriteString("Your reminders:\n")
	for _, r := range reminders {
		fmt.Fprintf(&sb, "%s  %s  %s\n", shortID(r.ID), r.DueAt.Format(timeLayout), r.Task)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) replyCancel(ctx context.Context, chatID int64, args string) string {
	ref := strings.TrimSpace(args)
	if ref == "" {
		return msgCancelUsage
	}
	reminder, err := b.reminders.Cancel(ctx, chatID, ref)
	switch {
	case err == nil:
		return fmt.Sprintf("🗑 Cancelled: %s", reminder.Task)
	case errors.Is(err, domain.ErrReminderNotFound):
		return "Reminder not found."
	case usecase.IsAmbiguous(err):
		return "That id matches several reminders, please type more of it."
	default:
		b.log.Error("cancel reminder failed", "chat_id", chatID, "error", err)
		return "Failed to cancel the reminder, please try again later."
	}
}

// splitCommand splits off the first word: "/remind 17:00 buy milk" gives
// "/remind" and "17:00 buy milk".
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	head, rest, _ := strings.Cut(text, " ")
	return head, strings.TrimSpace(rest)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
