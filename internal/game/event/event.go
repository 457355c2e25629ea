// Package event defines the client-facing event payloads and the
// Broadcaster capability used to deliver them.
package event

// Wire event type tags. These are part of the client protocol and must
// not change between releases.
const (
	TypeGameCreated    = "game_created"
	TypeJoinSuccessful = "join_successful"
	TypeShowUsers      = "show_users"
	TypeGameStarted    = "game_started"
	TypeAskQuestion    = "ask_question"
	TypeQuestionEnd    = "question_end"
	TypeGameEnded      = "game_ended"
	TypeError          = "error"
)

// Broadcaster delivers events to connected clients, grouped by room code.
// Implementations must be safe for concurrent use.
type Broadcaster interface {
	// Join adds member to the named group.
	Join(group, member string)
	// Leave removes member from the named group.
	Leave(group, member string)
	// SendToGroup delivers evt to every member of the named group.
	SendToGroup(group string, evt any) error
	// SendToMember delivers evt to a single member.
	SendToMember(member string, evt any) error
}

// GameCreated confirms room creation to the creator.
type GameCreated struct {
	Type     string `json:"type"`
	GameCode string `json:"game_code"`
}

// NewGameCreated builds a GameCreated event for the given room code.
func NewGameCreated(code string) GameCreated {
	return GameCreated{Type: TypeGameCreated, GameCode: code}
}

// JoinSuccessful confirms a join to the joining player, carrying the
// final (possibly disambiguated) username.
type JoinSuccessful struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// NewJoinSuccessful builds a JoinSuccessful event.
func NewJoinSuccessful(username string) JoinSuccessful {
	return JoinSuccessful{Type: TypeJoinSuccessful, Username: username}
}

// ShowUsers carries the current member list of a room, in join order.
type ShowUsers struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// NewShowUsers builds a ShowUsers event.
func NewShowUsers(users []string) ShowUsers {
	return ShowUsers{Type: TypeShowUsers, Users: users}
}

// GameStarted announces the start of a room's question round.
type GameStarted struct {
	Type string `json:"type"`
}

// NewGameStarted builds a GameStarted event.
func NewGameStarted() GameStarted {
	return GameStarted{Type: TypeGameStarted}
}

// AskQuestion presents one question to a room. Time is the answer
// window in seconds.
type AskQuestion struct {
	Type       string   `json:"type"`
	QuestionID int      `json:"question_id"`
	Time       int      `json:"time"`
	Question   string   `json:"question"`
	Answers    []string `json:"answers"`
}

// NewAskQuestion builds an AskQuestion event.
func NewAskQuestion(questionID, seconds int, prompt string, answers []string) AskQuestion {
	return AskQuestion{
		Type:       TypeAskQuestion,
		QuestionID: questionID,
		Time:       seconds,
		Question:   prompt,
		Answers:    answers,
	}
}

// QuestionEnd reports the result of a player's first submission for a
// question. It is unicast to the submitter only.
type QuestionEnd struct {
	Type          string `json:"type"`
	QuestionID    int    `json:"question_id"`
	CorrectAnswer bool   `json:"correct_answer"`
}

// NewQuestionEnd builds a QuestionEnd event.
func NewQuestionEnd(questionID int, correct bool) QuestionEnd {
	return QuestionEnd{Type: TypeQuestionEnd, QuestionID: questionID, CorrectAnswer: correct}
}

// ScoreEntry is one row of the final scoreboard.
type ScoreEntry struct {
	User  string `json:"user"`
	Score int    `json:"score"`
}

// GameEnded carries the final scoreboard, in join order.
type GameEnded struct {
	Type   string       `json:"type"`
	Scores []ScoreEntry `json:"scores"`
}

// NewGameEnded builds a GameEnded event.
func NewGameEnded(scores []ScoreEntry) GameEnded {
	return GameEnded{Type: TypeGameEnded, Scores: scores}
}

// Error reports a command failure to the offending client.
type Error struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// NewError builds an Error event.
func NewError(msg string) Error {
	return Error{Type: TypeError, Msg: msg}
}
