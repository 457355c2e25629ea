// Package registry owns the collection of active trivia rooms and the
// mapping from connection handle to room. It allocates room codes,
// routes lifecycle commands to the right room, and dissolves rooms.
package registry

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/trivia/internal/game/event"
	"github.com/cory-johannsen/trivia/internal/game/room"
)

// Command failure kinds. All are non-fatal and local to the offending
// connection; the transport layer maps them to error events.
var (
	// ErrMissingData is returned when a required command field is empty.
	ErrMissingData = errors.New("missing data")
	// ErrAlreadyInRoom is returned when a handle joins a room it is already in.
	ErrAlreadyInRoom = errors.New("already in this room")
	// ErrRoomNotFound is returned when a room code is unknown.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomRunning is returned when a room's round has already started.
	ErrRoomRunning = errors.New("room is running")
	// ErrNotInRoom is returned when a handle has no current room.
	ErrNotInRoom = errors.New("not in a room")
	// ErrInvalidQuestion is returned for an unparseable or unrelated question id.
	ErrInvalidQuestion = errors.New("invalid question id")
	// ErrQuestionEnded is returned when answering an earlier question of the round.
	ErrQuestionEnded = errors.New("question already ended")
	// ErrInvalidAnswer is returned for an unparseable answer value.
	ErrInvalidAnswer = errors.New("invalid answer format")
	// ErrNoFreeCodes is returned when every room code is in use.
	ErrNoFreeCodes = errors.New("no free room codes")
)

const (
	// codeSpace is the size of the room code keyspace (codes 0..99).
	codeSpace = 100
	// codeSampleAttempts bounds random rejection sampling before the
	// allocator falls back to a linear scan of the keyspace.
	codeSampleAttempts = 100

	// answerScore is awarded for a correct answer; wrong answers score 0.
	answerScore = 10
)

// RoundStarter launches the question round for a freshly started room.
type RoundStarter interface {
	StartRound(code string)
}

// Registry is the authoritative in-memory store of active rooms.
// All methods are safe for concurrent use; rooms are mutated only while
// the registry lock is held, so each command is atomic with respect to
// every other command and to the round schedulers.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*room.Room
	members map[string]string        // handle → room code
	done    map[string]chan struct{} // room code → closed on dissolve
	rng     *rand.Rand

	bcast  event.Broadcaster
	rounds RoundStarter
	logger *zap.Logger
}

// New creates an empty Registry.
//
// Precondition: bcast and logger must be non-nil.
// Postcondition: Returns a Registry with no active rooms. SetRoundStarter
// must be called before the first StartRoom.
func New(bcast event.Broadcaster, logger *zap.Logger) *Registry {
	return &Registry{
		rooms:   make(map[string]*room.Room),
		members: make(map[string]string),
		done:    make(map[string]chan struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		bcast:   bcast,
		logger:  logger,
	}
}

// SetRoundStarter wires the scheduler that StartRoom hands rooms off to.
// Set once during startup, before any commands are dispatched.
func (g *Registry) SetRoundStarter(rounds RoundStarter) {
	g.rounds = rounds
}

// CreateRoom creates a new room with the requesting handle as its sole
// member and unicasts a creation confirmation. A handle already in some
// room leaves it first (pruning it if emptied).
//
// Postcondition: Returns the new room code, or ErrMissingData /
// ErrNoFreeCodes.
func (g *Registry) CreateRoom(handle, username string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if username == "" {
		return "", ErrMissingData
	}

	if _, inRoom := g.members[handle]; inRoom {
		g.removeMemberLocked(handle)
	}

	code, err := g.allocateCodeLocked()
	if err != nil {
		return "", err
	}

	r := room.New(code)
	r.AddPlayer(handle, username)
	g.rooms[code] = r
	g.members[handle] = code
	g.done[code] = make(chan struct{})

	g.bcast.Join(code, handle)
	g.sendToMember(handle, event.NewGameCreated(code))

	g.logger.Info("room created",
		zap.String("code", code),
		zap.String("handle", handle),
	)
	return code, nil
}

// JoinRoom adds the handle to the room with the given code. A handle
// already in a different room leaves it first; joining the same room
// twice fails. On success the joiner gets a confirmation with the final
// username and the whole room gets the updated member list.
//
// Postcondition: Returns the (possibly suffixed) username, or one of
// ErrMissingData, ErrAlreadyInRoom, ErrRoomNotFound, ErrRoomRunning.
func (g *Registry) JoinRoom(handle, username, code string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if username == "" || code == "" {
		return "", ErrMissingData
	}

	if current, inRoom := g.members[handle]; inRoom {
		if current == code {
			return "", ErrAlreadyInRoom
		}
		g.removeMemberLocked(handle)
	}

	r, ok := g.rooms[code]
	if !ok {
		return "", ErrRoomNotFound
	}
	if r.IsRunning() {
		return "", ErrRoomRunning
	}

	final := r.AddPlayer(handle, username)
	g.members[handle] = code
	g.bcast.Join(code, handle)

	g.sendToMember(handle, event.NewJoinSuccessful(final))
	g.sendToGroup(code, event.NewShowUsers(r.Usernames()))

	g.logger.Info("player joined",
		zap.String("code", code),
		zap.String("handle", handle),
		zap.String("username", final),
	)
	return final, nil
}

// LeaveRoom removes the handle from its current room. A room emptied by
// the departure is dissolved immediately, freeing its code; if its round
// was running, dissolution cancels the scheduler's pending wait.
//
// Postcondition: Returns ErrNotInRoom if the handle has no room.
func (g *Registry) LeaveRoom(handle string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, inRoom := g.members[handle]; !inRoom {
		return ErrNotInRoom
	}
	g.removeMemberLocked(handle)
	return nil
}

// StartRoom flips the handle's room to running and hands it off to the
// round scheduler. The running flag is monotone, so no two schedulers
// can ever run against the same room.
//
// Postcondition: Returns ErrNotInRoom or ErrRoomRunning on failure.
func (g *Registry) StartRoom(handle string) error {
	g.mu.Lock()
	code, inRoom := g.members[handle]
	if !inRoom {
		g.mu.Unlock()
		return ErrNotInRoom
	}
	r := g.rooms[code]
	if !r.Start() {
		g.mu.Unlock()
		return ErrRoomRunning
	}
	g.mu.Unlock()

	g.logger.Info("room started",
		zap.String("code", code),
		zap.String("handle", handle),
	)
	g.rounds.StartRound(code)
	return nil
}

// SubmitAnswer validates and scores an answer for the room's active
// question. questionID and answer arrive as client strings and are
// parsed here; parse failures become error kinds, never panics. The
// first recording for a (player, question) pair triggers a result
// unicast; a repeat is silently ignored.
//
// Postcondition: Returns nil for accepted and silently-dropped repeat
// submissions, or one of ErrNotInRoom, ErrInvalidQuestion,
// ErrQuestionEnded, ErrInvalidAnswer.
func (g *Registry) SubmitAnswer(handle, questionID, answer string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	code, inRoom := g.members[handle]
	if !inRoom {
		return ErrNotInRoom
	}
	r := g.rooms[code]

	qid, err := strconv.Atoi(questionID)
	if err != nil {
		return ErrInvalidQuestion
	}

	active, open := r.ActiveQuestion()
	if !open {
		return ErrInvalidQuestion
	}
	if qid != active.ID {
		if qid >= 0 && qid < active.ID {
			return ErrQuestionEnded
		}
		return ErrInvalidQuestion
	}

	idx, err := strconv.Atoi(answer)
	if err != nil {
		return ErrInvalidAnswer
	}

	score := 0
	if idx == active.CorrectIndex {
		score = answerScore
	}
	if r.RecordAnswer(handle, qid, score) {
		g.sendToMember(handle, event.NewQuestionEnd(qid, score > 0))
	}
	return nil
}

// DissolveRoom tears the room down: every member is untracked and
// removed from the broadcast group, the code is freed for reuse, and
// the room's done channel is closed. A no-op for unknown codes.
func (g *Registry) DissolveRoom(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dissolveLocked(code)
}

// RoomDone returns a channel closed when the room is dissolved. For an
// unknown code it returns an already-closed channel.
func (g *Registry) RoomDone(code string) <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ch, ok := g.done[code]; ok {
		return ch
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// SetActiveQuestion marks the question open for answers in the room.
//
// Postcondition: Returns false if the room no longer exists.
func (g *Registry) SetActiveQuestion(code string, id, correctIndex int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[code]
	if !ok {
		return false
	}
	r.SetActiveQuestion(id, correctIndex)
	return true
}

// Scoreboard returns the room's scoreboard in join order.
//
// Postcondition: Returns (scores, true), or (nil, false) if the room no
// longer exists.
func (g *Registry) Scoreboard(code string) ([]room.Score, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[code]
	if !ok {
		return nil, false
	}
	return r.Scoreboard(), true
}

// PlayerCount returns the room's member count, or 0 for unknown codes.
func (g *Registry) PlayerCount(code string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[code]
	if !ok {
		return 0
	}
	return r.PlayerCount()
}

// RoomCount returns the number of active rooms.
func (g *Registry) RoomCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// RoomOf returns the code of the handle's current room.
//
// Postcondition: Returns (code, true) if the handle is in a room.
func (g *Registry) RoomOf(handle string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code, ok := g.members[handle]
	return code, ok
}

// allocateCodeLocked picks an unused code from the fixed keyspace:
// bounded rejection sampling first, then a linear scan so allocation
// only fails when the keyspace is genuinely exhausted.
func (g *Registry) allocateCodeLocked() (string, error) {
	if len(g.rooms) >= codeSpace {
		return "", ErrNoFreeCodes
	}
	for i := 0; i < codeSampleAttempts; i++ {
		code := strconv.Itoa(g.rng.Intn(codeSpace))
		if _, used := g.rooms[code]; !used {
			return code, nil
		}
	}
	for n := 0; n < codeSpace; n++ {
		code := strconv.Itoa(n)
		if _, used := g.rooms[code]; !used {
			return code, nil
		}
	}
	return "", ErrNoFreeCodes
}

// removeMemberLocked detaches the handle from its room and prunes the
// room if it emptied.
func (g *Registry) removeMemberLocked(handle string) {
	code := g.members[handle]
	delete(g.members, handle)
	g.bcast.Leave(code, handle)

	r, ok := g.rooms[code]
	if !ok {
		return
	}
	r.RemovePlayer(handle)
	if r.PlayerCount() == 0 {
		g.dissolveLocked(code)
	}
}

func (g *Registry) dissolveLocked(code string) {
	r, ok := g.rooms[code]
	if !ok {
		return
	}
	for _, handle := range r.Handles() {
		delete(g.members, handle)
		g.bcast.Leave(code, handle)
	}
	delete(g.rooms, code)
	if ch, ok := g.done[code]; ok {
		close(ch)
		delete(g.done, code)
	}
	g.logger.Info("room dissolved", zap.String("code", code))
}

func (g *Registry) sendToMember(member string, evt any) {
	if err := g.bcast.SendToMember(member, evt); err != nil {
		g.logger.Warn("unicast failed",
			zap.String("member", member),
			zap.Error(err),
		)
	}
}

func (g *Registry) sendToGroup(group string, evt any) {
	if err := g.bcast.SendToGroup(group, evt); err != nil {
		g.logger.Warn("broadcast failed",
			zap.String("group", group),
			zap.Error(err),
		)
	}
}
