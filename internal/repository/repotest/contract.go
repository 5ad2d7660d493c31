// Package repotest holds the behaviour every domain.ReminderRepository must
// show, run against each backend from its own tests.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the contract. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) domain.ReminderRepository) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("InsertAssignsIdentity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := &domain.Reminder{ChatID: 1, Task: "a", DueAt: base}
		b := &domain.Reminder{ChatID: 1, Task: "b", DueAt: base}
		idA, err := repo.Insert(ctx, a)
		require.NoError(t, err)
		idB, err := repo.Insert(ctx, b)
		require.NoError(t, err)

		assert.NotEmpty(t, idA)
		assert.Equal(t, idA, a.ID)
		assert.NotEqual(t, idA, idB)
		assert.False(t, a.CreatedAt.IsZero())
	})

	t.Run("InsertDuplicateID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, &domain.Reminder{ID: "fixed", ChatID: 1, Task: "a", DueAt: base})
		require.NoError(t, err)
		_, err = repo.Insert(ctx, &domain.Reminder{ID: "fixed", ChatID: 1, Task: "b", DueAt: base})
		assert.ErrorIs(t, err, domain.ErrReminderAlreadyExists)
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("FindDueBefore", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		past := insert(t, repo, 1, "past", base.Add(-time.Minute))
		exact := insert(t, repo, 2, "exact", base)
		insert(t, repo, 3, "future", base.Add(time.Minute))

		due, err := repo.FindDueBefore(ctx, base)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{past.ID, exact.ID}, ids(due))

		for _, r := range due {
			if r.ID == past.ID {
				assert.Equal(t, int64(1), r.ChatID)
				assert.Equal(t, "past", r.Task)
				assert.True(t, r.DueAt.Equal(past.DueAt))
			}
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		r := insert(t, repo, 1, "once", base)

		deleted, err := repo.DeleteByID(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.DeleteByID(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		due, err := repo.FindDueBefore(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, due)

		list, err := repo.ListByChat(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("DeleteUnknown", func(t *testing.T) {
		deleted, err := newRepo(t).DeleteByID(context.Background(), "does-not-exist")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("SimultaneouslyDueAreIndependent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		a := insert(t, repo, 1, "a", base.Add(-time.Hour))
		b := insert(t, repo, 2, "b", base.Add(-time.Hour))

		due, err := repo.FindDueBefore(ctx, base)
		require.NoError(t, err)
		require.Len(t, due, 2)

		deleted, err := repo.DeleteByID(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		due, err = repo.FindDueBefore(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID}, ids(due))

		deleted, err = repo.DeleteByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("ListByChatOrdersByDueAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		late := insert(t, repo, 5, "late", base.Add(2*time.Hour))
		early := insert(t, repo, 5, "early", base.Add(time.Hour))
		insert(t, repo, 6, "other chat", base)

		list, err := repo.ListByChat(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{early.ID, late.ID}, ids(list))
	})

	t.Run("DeleteForChatChecksOwner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		r := insert(t, repo, 5, "mine", base)

		deleted, err := repo.DeleteForChat(ctx, 6, r.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = repo.DeleteForChat(ctx, 5, r.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("ConcurrentInserts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Insert(ctx, &domain.Reminder{ChatID: int64(i), Task: "t", DueAt: base})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		due, err := repo.FindDueBefore(ctx, base)
		require.NoError(t, err)
		assert.Len(t, due, n)
	})
}

func insert(t *testing.T, repo domain.ReminderRepository, chatID int64, task string, dueAt time.Time) *domain.Reminder {
	t.Helper()
	r := &domain.Reminder{ChatID: chatID, Task: task, DueAt: dueAt}
	_, err := repo.Insert(context.Background(), r)
	require.NoError(t, err)
	return r
}

func ids(reminders []*domain.Reminder) []string {
	out := make([]string, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, r.ID)
	}
	return out
}

