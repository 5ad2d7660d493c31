package memory

import (
	"context"
	"testing"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/X1ag/ReminderBot/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.ReminderRepository {
		return NewReminderRepository()
	})
}

func TestFindDueBeforeReturnsCopies(t *testing.T) {
	repo := NewReminderRepository()
	ctx := context.Background()
	due := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := repo.Insert(ctx, &domain.Reminder{ChatID: 1, Task: "original", DueAt: due})
	require.NoError(t, err)

	found, err := repo.FindDueBefore(ctx, due)
	require.NoError(t, err)
	require.Len(t, found, 1)
	found[0].Task = "mutated"

	again, err := repo.FindDueBefore(ctx, due)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Task)
}
