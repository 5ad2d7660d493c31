package domain

import (
	"context"
	"fmt"
	"time"
)

// Reminder is a pending message for a chat. It lives in the repository until
// it has been delivered once; deletion is the delivered marker.
type Reminder struct {
	ID        string    `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Task      string    `db:"task"`
	DueAt     time.Time `db:"due_at"`
	CreatedAt time.Time `db:"created_at"`
}

// IsDue reports whether the reminder should be delivered at t.
func (r *Reminder) IsDue(t time.Time) bool {
	return !r.DueAt.After(t)
}

// Text is what the chat receives when the reminder fires.
func (r *Reminder) Text() string {
	return fmt.Sprintf("⏰ Reminder: %s", r.Task)
}

type ReminderRepository interface {
	Insert(ctx context.Context, reminder *Reminder) (string, error)
	FindDueBefore(ctx context.Context, t time.Time) ([]*Reminder, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	ListByChat(ctx context.Context, chatID int64) ([]*Reminder, error)
	DeleteForChat(ctx context.Context, chatID int64, id string) (bool, error)
}

// Store is a ReminderRepository backed by a live connection.
type Store interface {
	ReminderRepository
	Ping(ctx context.Context) error
	Close() error
}

// Sender hands a message to the chat transport.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}
