package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/X1ag/ReminderBot/internal/repository/memory"
	"github.com/X1ag/ReminderBot/internal/usecase"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)

// brokenRepo fails every write and read.
type brokenRepo struct{ domain.ReminderRepository }

func (brokenRepo) Insert(context.Context, *domain.Reminder) (string, error) {
	return "", domain.NewStorageError("insert", errors.New("disk full"))
}

func (brokenRepo) ListByChat(context.Context, int64) ([]*domain.Reminder, error) {
	return nil, domain.NewStorageError("list", errors.New("disk full"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(repo domain.ReminderRepository, interp usecase.Interpreter) *Bot {
	uc := usecase.NewReminderUsecase(repo, usecase.NewResolver(interp), nil, nil)
	return &Bot{
		reminders: uc,
		now:       func() time.Time { return now },
		log:       discardLogger(),
	}
}

func tomorrowAtFive(string, time.Time) (time.Time, bool) {
	return time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC), true
}

func TestReplyRemind(t *testing.T) {
	repo := memory.NewReminderRepository()
	b := newTestBot(repo, nil)
	ctx := context.Background()

	assert.Equal(t, "✅ Reminder set for 2024-01-02 17:00 - buy milk", b.replyRemind(ctx, 1, "17:00 buy milk"))
	assert.Equal(t, "✅ Reminder set for 2024-01-01 19:30 - call mom", b.replyRemind(ctx, 1, "19:30  call mom "))

	for _, args := range []string{"", "17:00", "25:99 buy milk", "tomorrow buy milk"} {
		assert.Equal(t, msgRemindUsage, b.replyRemind(ctx, 1, args), args)
	}

	list, err := repo.ListByChat(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReplySentence(t *testing.T) {
	b := newTestBot(memory.NewReminderRepository(), usecase.InterpreterFunc(tomorrowAtFive))
	ctx := context.Background()

	assert.Equal(t, "✅ Reminder set for 2024-01-02 17:00 - drink water",
		b.replySentence(ctx, 1, "Remind me tomorrow at 5 pm to drink water"))
	assert.Equal(t, msgNotUnderstood, b.replySentence(ctx, 1, "hello there"))
}

func TestReplyStorageFailure(t *testing.T) {
	b := newTestBot(brokenRepo{}, usecase.InterpreterFunc(tomorrowAtFive))
	ctx := context.Background()

	assert.Equal(t, msgStorageFailed, b.replyRemind(ctx, 1, "17:00 buy milk"))
	assert.Equal(t, msgStorageFailed, b.replySentence(ctx, 1, "remind me tomorrow to buy milk"))
	assert.Equal(t, "Failed to load your reminders, please try again later.", b.replyList(ctx, 1, ""))
}

func TestReplyListAndCancel(t *testing.T) {
	repo := memory.NewReminderRepository()
	b := newTestBot(repo, nil)
	ctx := context.Background()

	assert.Equal(t, msgNoReminders, b.replyList(ctx, 1, ""))

	late := &domain.Reminder{ID: "bbbbbbbb-2222", ChatID: 1, Task: "late", DueAt: now.Add(2 * time.Hour)}
	early := &domain.Reminder{ID: "aaaaaaaa-1111", ChatID: 1, Task: "early", DueAt: now.Add(time.Hour)}
	for _, r := range []*domain.Reminder{late, early} {
		_, err := repo.Insert(ctx, r)
		require.NoError(t, err)
	}

	assert.Equal(t, "Your reminders:\n"+
		"aaaaaaaa  2024-01-01 19:00  early\n"+
		"bbbbbbbb  2024-01-01 20:00  late", b.replyList(ctx, 1, ""))

	assert.Equal(t, msgCancelUsage, b.replyCancel(ctx, 1, "  "))
	assert.Equal(t, "Reminder not found.", b.replyCancel(ctx, 2, "aaaaaaaa"))
	assert.Equal(t, "🗑 Cancelled: early", b.replyCancel(ctx, 1, "aaaaaaaa"))
	assert.Equal(t, "Reminder not found.", b.replyCancel(ctx, 1, "aaaaaaaa"))
	assert.Equal(t, "🗑 Cancelled: late", b.replyCancel(ctx, 1, "bbbbbbbb-2222"))
	assert.Equal(t, msgNoReminders, b.replyList(ctx, 1, ""))
}

func TestReplyCancelAmbiguous(t *testing.T) {
	repo := memory.NewReminderRepository()
	b := newTestBot(repo, nil)
	ctx := context.Background()
	for _, id := range []string{"abc-1", "abc-2"} {
		_, err := repo.Insert(ctx, &domain.Reminder{ID: id, ChatID: 1, Task: id, DueAt: now})
		require.NoError(t, err)
	}

	assert.Equal(t, "That id matches several reminders, please type more of it.", b.replyCancel(ctx, 1, "abc"))
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in, head, rest string
	}{
		{"/remind 17:00 buy milk", "/remind", "17:00 buy milk"},
		{"  17:00   buy milk ", "17:00", "buy milk"},
		{"/list", "/list", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		head, rest := splitCommand(tt.in)
		assert.Equal(t, tt.head, head, tt.in)
		assert.Equal(t, tt.rest, rest, tt.in)
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("12345678-abcd"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestReplyRemindMe(t *testing.T) {
	repo := memory.NewReminderRepository()
	b := newTestBot(repo, usecase.InterpreterFunc(tomorrowAtFive))
	ctx := context.Background()

	assert.Equal(t, "✅ Reminder set for 2024-01-02 17:00 - buy milk", b.replyRemindMe(ctx, 1, "buy milk at 5pm"))
	// the last " at " separates the time
	assert.Equal(t, "✅ Reminder set for 2024-01-01 19:30 - meet at the station", b.replyRemindMe(ctx, 1, "meet at the station at 19:30"))
	assert.Equal(t, "✅ Reminder set for 2024-01-02 17:00 - call mom", b.replyRemindMe(ctx, 1, "call mom AT tomorrow 5pm"))

	for _, args := range []string{"", "buy milk", "at 5pm", "buy milk at"} {
		assert.Equal(t, msgRemindMeUsage, b.replyRemindMe(ctx, 1, args), args)
	}

	list, err := repo.ListByChat(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestReplyRemindMeNotUnderstood(t *testing.T) {
	b := newTestBot(memory.NewReminderRepository(), nil)

	assert.Equal(t, msgNotUnderstood, b.replyRemindMe(context.Background(), 1, "buy milk at some point"))
	assert.Equal(t, msgNotUnderstood, b.replyRemindMe(context.Background(), 1, "buy milk at 25:00"))
}

func TestReplyTextUnknownCommand(t *testing.T) {
	repo := memory.NewReminderRepository()
	b := newTestBot(repo, usecase.InterpreterFunc(tomorrowAtFive))
	ctx := context.Background()

	assert.Equal(t, msgUsage, b.replyText(ctx, 1, "/reminders remind me tomorrow to x"))
	assert.Equal(t, "✅ Reminder set for 2024-01-02 17:00 - x", b.replyText(ctx, 1, "remind me tomorrow to x"))
}

func TestCommandMatch(t *testing.T) {
	update := func(text string) *models.Update {
		return &models.Update{Message: &models.Message{Text: text}}
	}
	tests := []struct {
		command string
		text    string
		want    bool
	}{
		{"/remind", "/remind 17:00 buy milk", true},
		{"/remind", "/remind@ReminderBot 17:00 buy milk", true},
		{"/remind", "/remindme buy milk at 5pm", false},
		{"/remindme", "/remindme buy milk at 5pm", true},
		{"/remind", "/reminders", false},
		{"/list", "/list", true},
		{"/list", "/listx", false},
		{"/list", "/list@ReminderBot", true},
		{"/cancel", "/cancelled abc", false},
		{"/cancel", "  /cancel abc", true},
		{"/list", "list", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commandMatch(tt.command)(update(tt.text)), "%s vs %q", tt.command, tt.text)
	}
	assert.False(t, commandMatch("/list")(&models.Update{}))
}
