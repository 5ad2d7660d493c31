package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connectTimeout bounds how long Open waits for the server to come up.
const connectTimeout = 30 * time.Second

// pool is the subset of pgxpool.Pool the repository uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

type ReminderRepository struct {
	db pool
}

func NewReminderRepository(db pool) *ReminderRepository {
	return &ReminderRepository{
		db: db,
	}
}

// Open connects a pool to dsn and pings it, retrying with exponential backoff
// while the server is not yet accepting connections.
func Open(ctx context.Context, dsn string) (*ReminderRepository, error) {
	pgPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = connectTimeout
	if err := backoff.Retry(func() error { return pgPool.Ping(ctx) }, backoff.WithContext(b, ctx)); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}
	return NewReminderRepository(pgPool), nil
}

func (r *ReminderRepository) Insert(ctx context.Context, reminder *domain.Reminder) (string, error) {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	query := `INSERT INTO reminders (id, chat_id, task, due_at, created_at)
						VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, reminder.ID, reminder.ChatID, reminder.Task, reminder.DueAt, reminder.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == domain.ErrUniqueViolation {
				return "", domain.NewStorageError("insert", domain.ErrReminderAlreadyExists)
			}
		}
		return "", domain.NewStorageError("insert", err)
	}

	return reminder.ID, nil
}

func (r *ReminderRepository) FindDueBefore(ctx context.Context, t time.Time) ([]*domain.Reminder, error) {
	query := `SELECT id, chat_id, task, due_at, created_at FROM reminders WHERE due_at <= $1`
	rows, err := r.db.Query(ctx, query, t)
	if err != nil {
		return nil, domain.NewStorageError("find due", err)
	}
	due, err := scanReminders(rows)
	return due, domain.NewStorageError("find due", err)
}

func (r *ReminderRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM reminders WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, domain.NewStorageError("delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReminderRepository) ListByChat(ctx context.Context, chatID int64) ([]*domain.Reminder, error) {
	query := `SELECT id, chat_id, task, due_at, created_at FROM reminders WHERE chat_id = $1 ORDER BY due_at`
	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	list, err := scanReminders(rows)
	return list, domain.NewStorageError("list", err)
}

func (r *ReminderRepository) DeleteForChat(ctx context.Context, chatID int64, id string) (bool, error) {
	query := `DELETE FROM reminders WHERE id = $1 AND chat_id = $2`
	tag, err := r.db.Exec(ctx, query, id, chatID)
	if err != nil {
		return false, domain.NewStorageError("delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReminderRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ReminderRepository) Close() error {
	r.db.Close()
	return nil
}

func scanReminders(rows pgx.Rows) ([]*domain.Reminder, error) {
	defer rows.Close()
	reminders := make([]*domain.Reminder, 0, 10)
	for rows.Next() {
		reminder := &domain.Reminder{}
		err := rows.Scan(&reminder.ID, &reminder.ChatID, &reminder.Task, &reminder.DueAt, &reminder.CreatedAt)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return reminders, nil
}
