// Package question defines the trivia question model and the sources
// that supply randomized question sets to a round.
package question

import (
	"context"
	"errors"
)

// ErrNoQuestions is returned when a source has no questions to serve.
var ErrNoQuestions = errors.New("no questions available")

// Question is a single multiple-choice trivia question.
type Question struct {
	// ID is the question's stable identifier in its source.
	ID int64 `yaml:"id"`
	// Prompt is the question text shown to players.
	Prompt string `yaml:"prompt"`
	// Choices are the answer options, presented in order.
	Choices []string `yaml:"choices"`
	// CorrectIndex is the zero-based index of the right choice.
	CorrectIndex int `yaml:"correct_index"`
}

// Source supplies randomized question sets. Retrieval order defines
// presentation order; no other ordering is guaranteed.
type Source interface {
	// FetchRandom returns up to n randomly chosen questions.
	FetchRandom(ctx context.Context, n int) ([]Question, error)
}
