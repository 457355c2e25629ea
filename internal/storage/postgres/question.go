package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/trivia/internal/game/question"
)

// QuestionRepository serves randomized question sets from the questions
// table. It implements question.Source.
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a QuestionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// FetchRandom returns up to n questions in random order. The database's
// ordering is the presentation order for the round.
//
// Precondition: n must be > 0.
// Postcondition: Returns between 1 and n questions, or
// question.ErrNoQuestions when the table is empty.
func (r *QuestionRepository) FetchRandom(ctx context.Context, n int) ([]question.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, prompt, choices, correct_index
		 FROM questions
		 ORDER BY random()
		 LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []question.Question
	for rows.Next() {
		var q question.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Choices, &q.CorrectIndex); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}

	if len(questions) == 0 {
		return nil, question.ErrNoQuestions
	}
	return questions, nil
}

// Count returns the total number of questions in the bank.
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return count, nil
}

// Insert adds a question to the bank and returns it with its ID set.
//
// Precondition: q.Prompt must be non-empty; q.CorrectIndex must index
// into q.Choices.
func (r *QuestionRepository) Insert(ctx context.Context, q question.Question) (question.Question, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO questions (prompt, choices, correct_index)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		q.Prompt, q.Choices, q.CorrectIndex,
	).Scan(&q.ID)
	if err != nil {
		return question.Question{}, fmt.Errorf("inserting question: %w", err)
	}
	return q, nil
}
