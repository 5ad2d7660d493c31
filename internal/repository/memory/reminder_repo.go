// Package memory keeps reminders in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/google/uuid"
)

type ReminderRepository struct {
	mu        sync.RWMutex
	reminders map[string]domain.Reminder
}

func NewReminderRepository() *ReminderRepository {
	return &ReminderRepository{
		reminders: make(map[string]domain.Reminder),
	}
}

func (r *ReminderRepository) Insert(ctx context.Context, reminder *domain.Reminder) (string, error) {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminders[reminder.ID]; ok {
		return "", domain.NewStorageError("insert", domain.ErrReminderAlreadyExists)
	}
	r.reminders[reminder.ID] = *reminder
	return reminder.ID, nil
}

func (r *ReminderRepository) FindDueBefore(ctx context.Context, t time.Time) ([]*domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]*domain.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.IsDue(t) {
			rem := rem
			due = append(due, &rem)
		}
	}
	return due, nil
}

func (r *ReminderRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminders[id]; !ok {
		return false, nil
	}
	delete(r.reminders, id)
	return true, nil
}

func (r *ReminderRepository) ListByChat(ctx context.Context, chatID int64) ([]*domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []*domain.Reminder
	for _, rem := range r.reminders {
		if rem.ChatID == chatID {
			rem := rem
			list = append(list, &rem)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DueAt.Before(list[j].DueAt)
	})
	return list, nil
}

func (r *ReminderRepository) DeleteForChat(ctx context.Context, chatID int64, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.reminders[id]
	if !ok || rem.ChatID != chatID {
		return false, nil
	}
	delete(r.reminders, id)
	return true, nil
}

func (r *ReminderRepository) Ping(ctx context.Context) error { return nil }

func (r *ReminderRepository) Close() error { return nil }
