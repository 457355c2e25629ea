package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRoom_StartMonotone(t *testing.T) {
	r := New("7")
	assert.False(t, r.IsRunning())

	assert.True(t, r.Start())
	assert.True(t, r.IsRunning())

	assert.False(t, r.Start())
	assert.True(t, r.IsRunning())
}

func TestRoom_AddPlayer(t *testing.T) {
	r := New("7")
	final := r.AddPlayer("u1", "Alex")
	assert.Equal(t, "Alex", final)
	assert.Equal(t, 1, r.PlayerCount())
	assert.True(t, r.HasPlayer("u1"))
	assert.False(t, r.HasPlayer("u2"))
}

func TestRoom_UsernameDisambiguation(t *testing.T) {
	r := New("7")
	assert.Equal(t, "Alex", r.AddPlayer("u1", "Alex"))
	assert.Equal(t, "Alex #2", r.AddPlayer("u2", "Alex"))
	assert.Equal(t, "Alex #3", r.AddPlayer("u3", "Alex"))
	assert.Equal(t, []string{"Alex", "Alex #2", "Alex #3"}, r.Usernames())
}

func TestRoom_UsernameDisambiguation_FillsGap(t *testing.T) {
	r := New("7")
	r.AddPlayer("u1", "Alex")
	r.AddPlayer("u2", "Alex")
	require.True(t, r.RemovePlayer("u2"))

	// "Alex #2" is free again, so the next duplicate takes it.
	assert.Equal(t, "Alex #2", r.AddPlayer("u3", "Alex"))
}

func TestRoom_RemovePlayer_PreservesOrder(t *testing.T) {
	r := New("7")
	r.AddPlayer("u1", "a")
	r.AddPlayer("u2", "b")
	r.AddPlayer("u3", "c")

	require.True(t, r.RemovePlayer("u2"))
	assert.Equal(t, []string{"a", "c"}, r.Usernames())
	assert.Equal(t, []string{"u1", "u3"}, r.Handles())

	assert.False(t, r.RemovePlayer("u2"))
}

func TestRoom_ActiveQuestion(t *testing.T) {
	r := New("7")
	_, ok := r.ActiveQuestion()
	assert.False(t, ok)

	r.SetActiveQuestion(0, 2)
	active, ok := r.ActiveQuestion()
	require.True(t, ok)
	assert.Equal(t, 0, active.ID)
	assert.Equal(t, 2, active.CorrectIndex)

	r.SetActiveQuestion(1, 0)
	active, _ = r.ActiveQuestion()
	assert.Equal(t, 1, active.ID)
}

func TestRoom_RecordAnswer_FirstWins(t *testing.T) {
	r := New("7")
	r.AddPlayer("u1", "Alex")

	assert.True(t, r.RecordAnswer("u1", 0, 10))
	assert.False(t, r.RecordAnswer("u1", 0, 0), "repeat for same pair must not be accepted")

	// The first recording is not overwritten.
	scores := r.Scoreboard()
	require.Len(t, scores, 1)
	assert.Equal(t, 10, scores[0].Total)
}

func TestRoom_RecordAnswer_UnknownHandle(t *testing.T) {
	r := New("7")
	assert.False(t, r.RecordAnswer("ghost", 0, 10))
}

func TestRoom_Scoreboard_JoinOrder(t *testing.T) {
	r := New("7")
	r.AddPlayer("u1", "Alex")
	r.AddPlayer("u2", "Blake")

	r.RecordAnswer("u1", 0, 10)
	r.RecordAnswer("u1", 1, 0)
	r.RecordAnswer("u2", 0, 0)
	r.RecordAnswer("u2", 1, 10)
	r.RecordAnswer("u2", 2, 10)

	scores := r.Scoreboard()
	require.Len(t, scores, 2)
	assert.Equal(t, Score{Username: "Alex", Total: 10}, scores[0])
	assert.Equal(t, Score{Username: "Blake", Total: 20}, scores[1])
}

func TestPropertyScoreboardSumsLedger(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := New("7")
		numPlayers := rapid.IntRange(1, 8).Draw(t, "num_players")
		numQuestions := rapid.IntRange(1, 5).Draw(t, "num_questions")

		expected := make([]int, numPlayers)
		for i := 0; i < numPlayers; i++ {
			r.AddPlayer(fmt.Sprintf("u%d", i), fmt.Sprintf("P%d", i))
		}

		// Attempt a random number of submissions per (player, question);
		// only the first can count.
		for i := 0; i < numPlayers; i++ {
			for q := 0; q < numQuestions; q++ {
				attempts := rapid.IntRange(0, 3).Draw(t, "attempts")
				for a := 0; a < attempts; a++ {
					score := rapid.SampledFrom([]int{0, 10}).Draw(t, "score")
					if r.RecordAnswer(fmt.Sprintf("u%d", i), q, score) {
						expected[i] += score
					}
				}
			}
		}

		scores := r.Scoreboard()
		if len(scores) != numPlayers {
			t.Fatalf("scoreboard has %d rows, want %d", len(scores), numPlayers)
		}
		for i, s := range scores {
			if s.Total != expected[i] {
				t.Fatalf("player %d total %d, want %d", i, s.Total, expected[i])
			}
		}
	})
}
