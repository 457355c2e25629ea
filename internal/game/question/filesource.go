package question

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlQuestionFile is the top-level YAML structure for question files.
type yamlQuestionFile struct {
	Questions []Question `yaml:"questions"`
}

// LoadQuestionsFromFile reads and validates a single question YAML file.
//
// Precondition: path must point to a valid YAML question file.
// Postcondition: Returns the validated questions or a non-nil error.
func LoadQuestionsFromFile(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question file %s: %w", path, err)
	}

	var file yamlQuestionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing question YAML %s: %w", path, err)
	}

	for i, q := range file.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d in %s: %w", i, path, err)
		}
	}
	return file.Questions, nil
}

// LoadQuestionsFromDir loads every *.yaml and *.yml file in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the combined question list or a non-nil error.
// An empty directory yields an empty list, not an error.
func LoadQuestionsFromDir(dir string) ([]Question, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading question directory %s: %w", dir, err)
	}

	var questions []Question
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		qs, err := LoadQuestionsFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		questions = append(questions, qs...)
	}
	return questions, nil
}

func validateQuestion(q Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	if len(q.Choices) < 2 {
		return fmt.Errorf("need at least 2 choices, got %d", len(q.Choices))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return fmt.Errorf("correct_index %d out of range for %d choices", q.CorrectIndex, len(q.Choices))
	}
	return nil
}

// FileSource serves randomized question sets from an in-memory pool
// loaded from YAML files. It is safe for concurrent use.
type FileSource struct {
	mu        sync.Mutex
	questions []Question
	rng       *rand.Rand
}

// NewFileSource loads all questions under dir and returns a Source
// backed by them.
//
// Precondition: dir must be a readable directory of question YAML files.
// Postcondition: Returns a ready FileSource or a non-nil error.
func NewFileSource(dir string) (*FileSource, error) {
	questions, err := LoadQuestionsFromDir(dir)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		questions: questions,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Len returns the number of questions in the pool.
func (s *FileSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

// FetchRandom returns up to n questions drawn uniformly without
// replacement. Fewer than n are returned when the pool is smaller.
//
// Postcondition: Returns between 1 and n questions, or ErrNoQuestions
// when the pool is empty.
func (s *FileSource) FetchRandom(ctx context.Context, n int) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.questions) == 0 {
		return nil, ErrNoQuestions
	}
	if n > len(s.questions) {
		n = len(s.questions)
	}

	picked := s.rng.Perm(len(s.questions))[:n]
	result := make([]Question, 0, n)
	for _, idx := range picked {
		result = append(result, s.questions[idx])
	}
	return result, nil
}
