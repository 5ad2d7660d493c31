// Package sqlite stores reminders in an embedded SQLite file. Timestamps are
// kept as unix milliseconds so that due_at compares numerically.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

type ReminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *sql.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Open opens the database file at path, creating its directory if needed.
// The schema must already be in place (see RunMigrations).
func Open(ctx context.Context, path string) (*ReminderRepository, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between the bot and the worker
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewReminderRepository(db), nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	return nil
}

func (r *ReminderRepository) Insert(ctx context.Context, reminder *domain.Reminder) (string, error) {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (id, chat_id, task, due_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		reminder.ID, reminder.ChatID, reminder.Task, reminder.DueAt.UnixMilli(), reminder.CreatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", domain.NewStorageError("insert", domain.ErrReminderAlreadyExists)
		}
		return "", domain.NewStorageError("insert", err)
	}
	return reminder.ID, nil
}

func (r *ReminderRepository) FindDueBefore(ctx context.Context, t time.Time) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, task, due_at, created_at FROM reminders WHERE due_at <= ?`, t.UnixMilli())
	if err != nil {
		return nil, domain.NewStorageError("find due", err)
	}
	due, err := scanReminders(rows)
	return due, domain.NewStorageError("find due", err)
}

func (r *ReminderRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	return affected(res, err)
}

func (r *ReminderRepository) ListByChat(ctx context.Context, chatID int64) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, task, due_at, created_at FROM reminders WHERE chat_id = ? ORDER BY due_at`, chatID)
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	list, err := scanReminders(rows)
	return list, domain.NewStorageError("list", err)
}

func (r *ReminderRepository) DeleteForChat(ctx context.Context, chatID int64, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ? AND chat_id = ?`, id, chatID)
	return affected(res, err)
}

func (r *ReminderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ReminderRepository) Close() error {
	return r.db.Close()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, domain.NewStorageError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStorageError("delete", err)
	}
	return n > 0, nil
}

func scanReminders(rows *sql.Rows) ([]*domain.Reminder, error) {
	defer rows.Close()
	reminders := make([]*domain.Reminder, 0, 10)
	for rows.Next() {
		var (
			reminder         domain.Reminder
			dueAt, createdAt int64
		)
		if err := rows.Scan(&reminder.ID, &reminder.ChatID, &reminder.Task, &dueAt, &createdAt); err != nil {
			return nil, err
		}
		reminder.DueAt = time.UnixMilli(dueAt)
		reminder.CreatedAt = time.UnixMilli(createdAt)
		reminders = append(reminders, &reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}
