package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/X1ag/ReminderBot/internal/metrics"
)

type ReminderUsecase struct {
	reminderRepo domain.ReminderRepository
	resolver     *Resolver
	metrics      *metrics.Metrics
	log          *slog.Logger
}

func NewReminderUsecase(reminderRepo domain.ReminderRepository, resolver *Resolver, m *metrics.Metrics, log *slog.Logger) *ReminderUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &ReminderUsecase{
		reminderRepo: reminderRepo,
		resolver:     resolver,
		metrics:      m,
		log:          log.With("component", "reminders"),
	}
}

// Create resolves expression against now and stores the reminder. An explicit
// task wins over one extracted from a sentence. Parse failures are returned
// as *domain.ParseError and never reach the repository.
func (u *ReminderUsecase) Create(ctx context.Context, chatID int64, expression, task string, now time.Time) (*domain.Reminder, error) {
	res, err := u.resolver.Resolve(expression, now)
	if err != nil {
		u.metrics.IncParseFailure()
		return nil, err
	}
	task = strings.TrimSpace(task)
	if task == "" {
		task = res.Task
	}
	return u.store(ctx, chatID, expression, task, res.DueAt, now)
}

// CreateAt stores task for the time described by phrase, which may be a clock
// time or a natural-language phrase without the "remind me" framing.
func (u *ReminderUsecase) CreateAt(ctx context.Context, chatID int64, task, phrase string, now time.Time) (*domain.Reminder, error) {
	dueAt, err := u.resolver.ResolvePhrase(phrase, now)
	if err != nil {
		u.metrics.IncParseFailure()
		return nil, err
	}
	return u.store(ctx, chatID, phrase, strings.TrimSpace(task), dueAt, now)
}

func (u *ReminderUsecase) store(ctx context.Context, chatID int64, input, task string, dueAt, now time.Time) (*domain.Reminder, error) {
	if task == "" {
		u.metrics.IncParseFailure()
		return nil, &domain.ParseError{Input: input, Reason: domain.ErrTaskEmpty.Error()}
	}

	reminder := &domain.Reminder{
		ChatID:    chatID,
		Task:      task,
		DueAt:     dueAt,
		CreatedAt: now,
	}
	if _, err := u.reminderRepo.Insert(ctx, reminder); err != nil {
		return nil, err
	}
	u.metrics.IncCreated()
	u.log.Info("reminder created", "id", reminder.ID, "chat_id", chatID, "due_at", reminder.DueAt)
	return reminder, nil
}

func (u *ReminderUsecase) List(ctx context.Context, chatID int64) ([]*domain.Reminder, error) {
	return u.reminderRepo.ListByChat(ctx, chatID)
}

// Cancel deletes a reminder owned by chatID. ref may be a full id or a prefix
// that matches exactly one of the chat's reminders.
func (u *ReminderUsecase) Cancel(ctx context.Context, chatID int64, ref string) (*domain.Reminder, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrReminderNotFound
	}
	reminders, err := u.reminderRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	var match *domain.Reminder
	for _, r := range reminders {
		if r.ID == ref {
			match = r
			break
		}
		if strings.HasPrefix(r.ID, ref) {
			if match != nil {
				return nil, errAmbiguousRef
			}
			match = r
		}
	}
	if match == nil {
		return nil, domain.ErrReminderNotFound
	}
	deleted, err := u.reminderRepo.DeleteForChat(ctx, chatID, match.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		// delivered between the list and the delete
		return nil, domain.ErrReminderNotFound
	}
	u.log.Info("reminder cancelled", "id", match.ID, "chat_id", chatID)
	return match, nil
}

var errAmbiguousRef = errors.New("reminder id prefix matches more than one reminder")

// IsAmbiguous reports whether Cancel failed because the id prefix was not unique.
func IsAmbiguous(err error) bool {
	return errors.Is(err, errAmbiguousRef)
}
