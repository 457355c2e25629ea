package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/trivia/internal/game/event"
	"github.com/cory-johannsen/trivia/internal/game/registry"
)

// fakeBroadcaster records every delivery for assertions.
type fakeBroadcaster struct {
	mu       sync.Mutex
	joins    []string // "group/member"
	leaves   []string
	unicasts map[string][]any // member → events
	groups   map[string][]any // group → events
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		unicasts: make(map[string][]any),
		groups:   make(map[string][]any),
	}
}

func (f *fakeBroadcaster) Join(group, member string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, group+"/"+member)
}

func (f *fakeBroadcaster) Leave(group, member string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, group+"/"+member)
}

func (f *fakeBroadcaster) SendToGroup(group string, evt any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[group] = append(f.groups[group], evt)
	return nil
}

func (f *fakeBroadcaster) SendToMember(member string, evt any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts[member] = append(f.unicasts[member], evt)
	return nil
}

func (f *fakeBroadcaster) unicastsTo(member string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.unicasts[member]...)
}

// fakeRounds records which rooms were handed off to the scheduler.
type fakeRounds struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeRounds) StartRound(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
}

func (f *fakeRounds) started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

func newRegistry(t *testing.T) (*registry.Registry, *fakeBroadcaster, *fakeRounds) {
	t.Helper()
	bcast := newFakeBroadcaster()
	rounds := &fakeRounds{}
	g := registry.New(bcast, zap.NewNop())
	g.SetRoundStarter(rounds)
	return g, bcast, rounds
}

func TestCreateRoom(t *testing.T) {
	g, bcast, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 1, g.RoomCount())
	assert.Equal(t, 1, g.PlayerCount(code))

	got, ok := g.RoomOf("u1")
	require.True(t, ok)
	assert.Equal(t, code, got)

	events := bcast.unicastsTo("u1")
	require.Len(t, events, 1)
	assert.Equal(t, event.NewGameCreated(code), events[0])
	assert.Contains(t, bcast.joins, code+"/u1")
}

func TestCreateRoom_MissingUsername(t *testing.T) {
	g, _, _ := newRegistry(t)
	_, err := g.CreateRoom("u1", "")
	assert.ErrorIs(t, err, registry.ErrMissingData)
	assert.Equal(t, 0, g.RoomCount())
}

func TestCreateRoom_LeavesPreviousRoom(t *testing.T) {
	g, _, _ := newRegistry(t)

	first, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	second, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The emptied first room was pruned; its code is free again.
	assert.Equal(t, 1, g.RoomCount())
	_, err = g.JoinRoom("u2", "Blake", first)
	assert.ErrorIs(t, err, registry.ErrRoomNotFound)
}

func TestCreateRoom_KeyspaceExhausted(t *testing.T) {
	g, _, _ := newRegistry(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := g.CreateRoom(fmt.Sprintf("u%d", i), "player")
		require.NoError(t, err)
		assert.False(t, seen[code], "code %s allocated twice", code)
		seen[code] = true
	}
	require.Equal(t, 100, g.RoomCount())

	_, err := g.CreateRoom("u100", "player")
	assert.ErrorIs(t, err, registry.ErrNoFreeCodes)
}

func TestJoinRoom(t *testing.T) {
	g, bcast, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	final, err := g.JoinRoom("u2", "Blake", code)
	require.NoError(t, err)
	assert.Equal(t, "Blake", final)
	assert.Equal(t, 2, g.PlayerCount(code))

	events := bcast.unicastsTo("u2")
	require.Len(t, events, 1)
	assert.Equal(t, event.NewJoinSuccessful("Blake"), events[0])

	groupEvents := bcast.groups[code]
	require.NotEmpty(t, groupEvents)
	assert.Equal(t, event.NewShowUsers([]string{"Alex", "Blake"}), groupEvents[len(groupEvents)-1])
}

func TestJoinRoom_DuplicateUsernameSuffixed(t *testing.T) {
	g, _, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	final, err := g.JoinRoom("u2", "Alex", code)
	require.NoError(t, err)
	assert.Equal(t, "Alex #2", final)

	final, err = g.JoinRoom("u3", "Alex", code)
	require.NoError(t, err)
	assert.Equal(t, "Alex #3", final)
}

func TestJoinRoom_Errors(t *testing.T) {
	g, _, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	_, err = g.JoinRoom("u2", "", code)
	assert.ErrorIs(t, err, registry.ErrMissingData)

	_, err = g.JoinRoom("u2", "Blake", "")
	assert.ErrorIs(t, err, registry.ErrMissingData)

	_, err = g.JoinRoom("u2", "Blake", "no-such-code")
	assert.ErrorIs(t, err, registry.ErrRoomNotFound)

	_, err = g.JoinRoom("u1", "Alex", code)
	assert.ErrorIs(t, err, registry.ErrAlreadyInRoom)

	require.NoError(t, g.StartRoom("u1"))
	_, err = g.JoinRoom("u2", "Blake", code)
	assert.ErrorIs(t, err, registry.ErrRoomRunning)
}

func TestJoinRoom_SwitchesRooms(t *testing.T) {
	g, _, _ := newRegistry(t)

	codeA, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	codeB, err := g.CreateRoom("u2", "Blake")
	require.NoError(t, err)

	_, err = g.JoinRoom("u1", "Alex", codeB)
	require.NoError(t, err)

	got, ok := g.RoomOf("u1")
	require.True(t, ok)
	assert.Equal(t, codeB, got)

	// Room A emptied and was pruned.
	_, err = g.JoinRoom("u3", "Casey", codeA)
	assert.ErrorIs(t, err, registry.ErrRoomNotFound)
}

func TestLeaveRoom(t *testing.T) {
	g, _, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	_, err = g.JoinRoom("u2", "Blake", code)
	require.NoError(t, err)

	require.NoError(t, g.LeaveRoom("u2"))
	assert.Equal(t, 1, g.PlayerCount(code))
	_, ok := g.RoomOf("u2")
	assert.False(t, ok)

	assert.ErrorIs(t, g.LeaveRoom("u2"), registry.ErrNotInRoom)
}

func TestLeaveRoom_LastPlayerPrunesRoom(t *testing.T) {
	g, _, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	done := g.RoomDone(code)
	require.NoError(t, g.LeaveRoom("u1"))

	assert.Equal(t, 0, g.RoomCount())
	_, err = g.JoinRoom("u2", "Blake", code)
	assert.ErrorIs(t, err, registry.ErrRoomNotFound)

	select {
	case <-done:
	default:
		t.Fatal("done channel not closed after room dissolved")
	}
}

func TestStartRoom(t *testing.T) {
	g, _, rounds := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	require.NoError(t, g.StartRoom("u1"))
	assert.Equal(t, []string{code}, rounds.started())

	// The running flag is monotone: a second start always fails and
	// never launches a second scheduler.
	assert.ErrorIs(t, g.StartRoom("u1"), registry.ErrRoomRunning)
	assert.Len(t, rounds.started(), 1)
}

func TestStartRoom_NotInRoom(t *testing.T) {
	g, _, _ := newRegistry(t)
	assert.ErrorIs(t, g.StartRoom("ghost"), registry.ErrNotInRoom)
}

func TestSubmitAnswer_Validation(t *testing.T) {
	g, _, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)

	assert.ErrorIs(t, g.SubmitAnswer("ghost", "0", "1"), registry.ErrNotInRoom)

	// No question open yet.
	assert.ErrorIs(t, g.SubmitAnswer("u1", "0", "1"), registry.ErrInvalidQuestion)

	require.True(t, g.SetActiveQuestion(code, 1, 2))

	assert.ErrorIs(t, g.SubmitAnswer("u1", "abc", "1"), registry.ErrInvalidQuestion)
	assert.ErrorIs(t, g.SubmitAnswer("u1", "5", "1"), registry.ErrInvalidQuestion)
	assert.ErrorIs(t, g.SubmitAnswer("u1", "-1", "1"), registry.ErrInvalidQuestion)
	assert.ErrorIs(t, g.SubmitAnswer("u1", "0", "1"), registry.ErrQuestionEnded)
	assert.ErrorIs(t, g.SubmitAnswer("u1", "1", "abc"), registry.ErrInvalidAnswer)
}

func TestSubmitAnswer_ScoresAndReplies(t *testing.T) {
	g, bcast, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	_, err = g.JoinRoom("u2", "Blake", code)
	require.NoError(t, err)

	require.True(t, g.SetActiveQuestion(code, 0, 2))

	require.NoError(t, g.SubmitAnswer("u1", "0", "2"))
	require.NoError(t, g.SubmitAnswer("u2", "0", "1"))

	u1Events := bcast.unicastsTo("u1")
	assert.Equal(t, event.NewQuestionEnd(0, true), u1Events[len(u1Events)-1])

	u2Events := bcast.unicastsTo("u2")
	assert.Equal(t, event.NewQuestionEnd(0, false), u2Events[len(u2Events)-1])

	scores, ok := g.Scoreboard(code)
	require.True(t, ok)
	assert.Equal(t, "Alex", scores[0].Username)
	assert.Equal(t, 10, scores[0].Total)
	assert.Equal(t, "Blake", scores[1].Username)
	assert.Equal(t, 0, scores[1].Total)
}

func TestSubmitAnswer_RepeatSilentlyIgnored(t *testing.T) {
	g, bcast, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	require.True(t, g.SetActiveQuestion(code, 0, 2))

	require.NoError(t, g.SubmitAnswer("u1", "0", "2"))
	before := len(bcast.unicastsTo("u1"))

	// Not an error, and no second reply either.
	require.NoError(t, g.SubmitAnswer("u1", "0", "0"))
	assert.Equal(t, before, len(bcast.unicastsTo("u1")))

	// The first recording stands.
	scores, ok := g.Scoreboard(code)
	require.True(t, ok)
	assert.Equal(t, 10, scores[0].Total)
}

func TestDissolveRoom(t *testing.T) {
	g, bcast, _ := newRegistry(t)

	code, err := g.CreateRoom("u1", "Alex")
	require.NoError(t, err)
	_, err = g.JoinRoom("u2", "Blake", code)
	require.NoError(t, err)

	g.DissolveRoom(code)

	assert.Equal(t, 0, g.RoomCount())
	_, ok := g.RoomOf("u1")
	assert.False(t, ok)
	_, ok = g.RoomOf("u2")
	assert.False(t, ok)
	assert.Contains(t, bcast.leaves, code+"/u1")
	assert.Contains(t, bcast.leaves, code+"/u2")

	// Dissolving twice is a no-op.
	g.DissolveRoom(code)
}

func TestRoomDone_UnknownCodeIsClosed(t *testing.T) {
	g, _, _ := newRegistry(t)
	select {
	case <-g.RoomDone("nope"):
	default:
		t.Fatal("done channel for unknown room must already be closed")
	}
}

func TestPropertyActiveCodesUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := registry.New(newFakeBroadcaster(), zap.NewNop())
		g.SetRoundStarter(&fakeRounds{})
		numRooms := rapid.IntRange(1, 99).Draw(t, "num_rooms")

		codes := make(map[string]bool)
		for i := 0; i < numRooms; i++ {
			code, err := g.CreateRoom(fmt.Sprintf("u%d", i), "player")
			if err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
			if codes[code] {
				t.Fatalf("code %s allocated while active", code)
			}
			codes[code] = true
		}

		// Freed codes may recur later, but while rooms are active every
		// code is unique, and leaves keep the count consistent.
		numLeaves := rapid.IntRange(0, numRooms).Draw(t, "num_leaves")
		for i := 0; i < numLeaves; i++ {
			if err := g.LeaveRoom(fmt.Sprintf("u%d", i)); err != nil {
				t.Fatalf("leave %d: %v", i, err)
			}
		}
		if g.RoomCount() != numRooms-numLeaves {
			t.Fatalf("room count %d, want %d", g.RoomCount(), numRooms-numLeaves)
		}
	})
}
