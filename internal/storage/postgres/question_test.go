package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/trivia/internal/game/question"
	"github.com/cory-johannsen/trivia/internal/storage/postgres"
	"github.com/cory-johannsen/trivia/internal/testutil"
)

func seedQuestions(t *testing.T, repo *postgres.QuestionRepository, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := repo.Insert(ctx, question.Question{
			Prompt:       fmt.Sprintf("question %d?", i),
			Choices:      []string{"a", "b", "c"},
			CorrectIndex: i % 3,
		})
		require.NoError(t, err)
	}
}

func TestQuestionRepository(t *testing.T) {
	testutil.SkipWithoutDocker(t)

	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	repo := postgres.NewQuestionRepository(pc.RawPool)
	ctx := context.Background()

	t.Run("empty bank", func(t *testing.T) {
		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = repo.FetchRandom(ctx, 3)
		assert.ErrorIs(t, err, question.ErrNoQuestions)
	})

	t.Run("insert assigns ids", func(t *testing.T) {
		inserted, err := repo.Insert(ctx, question.Question{
			Prompt:       "Which planet is known as the Red Planet?",
			Choices:      []string{"Venus", "Mars", "Jupiter"},
			CorrectIndex: 1,
		})
		require.NoError(t, err)
		assert.Positive(t, inserted.ID)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("fetch random", func(t *testing.T) {
		seedQuestions(t, repo, 9)

		qs, err := repo.FetchRandom(ctx, 3)
		require.NoError(t, err)
		require.Len(t, qs, 3)

		seen := make(map[int64]bool)
		for _, q := range qs {
			assert.NotEmpty(t, q.Prompt)
			assert.GreaterOrEqual(t, len(q.Choices), 2)
			assert.Less(t, q.CorrectIndex, len(q.Choices))
			assert.False(t, seen[q.ID], "question %d returned twice", q.ID)
			seen[q.ID] = true
		}
	})

	t.Run("fetch more than available", func(t *testing.T) {
		count, err := repo.Count(ctx)
		require.NoError(t, err)

		qs, err := repo.FetchRandom(ctx, count+50)
		require.NoError(t, err)
		assert.Len(t, qs, count)
	})
}
