// Package room provides the state of a single trivia room: membership,
// the running flag, the question currently open for answers, and the
// per-player answer ledger.
package room

import "fmt"

// Player is one room member. Identity is the opaque connection handle;
// the username is unique within the room.
type Player struct {
	// Handle is the connection identity, unique per connection.
	Handle string
	// Username is the display name, disambiguated within the room.
	Username string

	// answers maps question ID to the recorded score. Each question
	// appears at most once; the first recording wins.
	answers map[int]int
}

// Score is one scoreboard row: a player's username and summed score.
type Score struct {
	Username string
	Total    int
}

// ActiveQuestion is the question currently open for answers in a room.
type ActiveQuestion struct {
	// ID is the presentation index of the question within the round.
	ID int
	// CorrectIndex is the zero-based index of the right choice.
	CorrectIndex int
}

// Room holds one trivia room's state. Room is not self-locking: the
// registry that owns it serializes all access, and the one scheduler
// bound to the room reaches it only through the registry.
type Room struct {
	code    string
	running bool
	players []*Player
	active  *ActiveQuestion
}

// New creates an empty, not-running room with the given code.
//
// Precondition: code must be non-empty.
func New(code string) *Room {
	return &Room{code: code}
}

// Code returns the room's code.
func (r *Room) Code() string {
	return r.code
}

// Start flips the running flag. The flag is monotone: it transitions
// false→true exactly once and never resets.
//
// Postcondition: Returns true on the first call, false on every repeat.
func (r *Room) Start() bool {
	if r.running {
		return false
	}
	r.running = true
	return true
}

// IsRunning reports whether the room's round has been started.
func (r *Room) IsRunning() bool {
	return r.running
}

// AddPlayer adds a member with the given handle and desired username.
// A username already present in the room is disambiguated by suffixing:
// "name" → "name #2" → "name #3", first unused index.
//
// Precondition: handle must not already be a member.
// Postcondition: Returns the final username actually recorded.
func (r *Room) AddPlayer(handle, username string) string {
	if !r.usernameAvailable(username) {
		index := 2
		for !r.usernameAvailable(fmt.Sprintf("%s #%d", username, index)) {
			index++
		}
		username = fmt.Sprintf("%s #%d", username, index)
	}
	r.players = append(r.players, &Player{
		Handle:   handle,
		Username: username,
		answers:  make(map[int]int),
	})
	return username
}

// RemovePlayer removes the member with the given handle, preserving the
// order of the remaining players.
//
// Postcondition: Returns true if the handle was a member.
func (r *Room) RemovePlayer(handle string) bool {
	for i, p := range r.players {
		if p.Handle == handle {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return true
		}
	}
	return false
}

// HasPlayer reports whether the handle is a member of the room.
func (r *Room) HasPlayer(handle string) bool {
	return r.player(handle) != nil
}

// PlayerCount returns the number of members.
func (r *Room) PlayerCount() int {
	return len(r.players)
}

// Usernames returns all member usernames in join order.
func (r *Room) Usernames() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Username)
	}
	return names
}

// Handles returns all member handles in join order.
func (r *Room) Handles() []string {
	handles := make([]string, 0, len(r.players))
	for _, p := range r.players {
		handles = append(handles, p.Handle)
	}
	return handles
}

// SetActiveQuestion marks the question open for answers in this room.
// Scoped per room so concurrent rounds in different rooms validate
// answers independently.
func (r *Room) SetActiveQuestion(id, correctIndex int) {
	r.active = &ActiveQuestion{ID: id, CorrectIndex: correctIndex}
}

// ActiveQuestion returns the question currently open for answers.
//
// Postcondition: Returns (question, true) if a question is open, or a
// zero value and false before the first question is asked.
func (r *Room) ActiveQuestion() (ActiveQuestion, bool) {
	if r.active == nil {
		return ActiveQuestion{}, false
	}
	return *r.active, true
}

// RecordAnswer records score for the (handle, questionID) pair.
// Acceptance means this is the first answer recorded for the pair: a
// repeat neither overwrites nor errors, it is simply not accepted.
//
// Postcondition: Returns true if the score was recorded, false if the
// pair already had a score or the handle is not a member.
func (r *Room) RecordAnswer(handle string, questionID, score int) bool {
	p := r.player(handle)
	if p == nil {
		return false
	}
	if _, answered := p.answers[questionID]; answered {
		return false
	}
	p.answers[questionID] = score
	return true
}

// Scoreboard returns each player's summed score, in join order.
func (r *Room) Scoreboard() []Score {
	scores := make([]Score, 0, len(r.players))
	for _, p := range r.players {
		total := 0
		for _, s := range p.answers {
			total += s
		}
		scores = append(scores, Score{Username: p.Username, Total: total})
	}
	return scores
}

func (r *Room) player(handle string) *Player {
	for _, p := range r.players {
		if p.Handle == handle {
			return p
		}
	}
	return nil
}

func (r *Room) usernameAvailable(username string) bool {
	for _, p := range r.players {
		if p.Username == username {
			return false
		}
	}
	return true
}
