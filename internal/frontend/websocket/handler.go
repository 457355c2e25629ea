package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/trivia/internal/game/event"
	"github.com/cory-johannsen/trivia/internal/game/registry"
)

// Client command actions.
const (
	ActionCreateGame   = "create_game"
	ActionJoinGame     = "join_game"
	ActionLeaveGame    = "leave_game"
	ActionStartGame    = "start_game"
	ActionSubmitAnswer = "submit_answer"
)

// Command is the JSON envelope for every inbound client message.
// QuestionID and Answer stay strings here: the registry owns parsing
// them and converting failures into error kinds.
type Command struct {
	Action     string `json:"action"`
	Username   string `json:"username"`
	GameCode   string `json:"game_code"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// GameRegistry is the slice of registry behavior the dispatcher needs.
type GameRegistry interface {
	CreateRoom(handle, username string) (string, error)
	JoinRoom(handle, username, code string) (string, error)
	LeaveRoom(handle string) error
	StartRoom(handle string) error
	SubmitAnswer(handle, questionID, answer string) error
}

// Unicaster delivers an event to a single connected client.
type Unicaster interface {
	SendToMember(member string, evt any) error
}

// CommandHandler decodes client commands, routes them to the registry,
// and unicasts error events back to the offending client. Successful
// replies are produced by the registry and scheduler themselves.
type CommandHandler struct {
	games  GameRegistry
	sender Unicaster
	logger *zap.Logger
}

// NewCommandHandler creates a CommandHandler.
//
// Precondition: games, sender, and logger must be non-nil.
func NewCommandHandler(games GameRegistry, sender Unicaster, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		games:  games,
		sender: sender,
		logger: logger,
	}
}

// Dispatch handles one raw client message. Every failure is converted
// into an error unicast to the sender; nothing here can take down the
// room or another player's session.
func (h *CommandHandler) Dispatch(handle string, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		h.sendError(handle, "Some data is missing")
		return
	}

	var err error
	switch cmd.Action {
	case ActionCreateGame:
		_, err = h.games.CreateRoom(handle, cmd.Username)
	case ActionJoinGame:
		_, err = h.games.JoinRoom(handle, cmd.Username, cmd.GameCode)
	case ActionLeaveGame:
		err = h.games.LeaveRoom(handle)
	case ActionStartGame:
		err = h.games.StartRoom(handle)
	case ActionSubmitAnswer:
		err = h.games.SubmitAnswer(handle, cmd.QuestionID, cmd.Answer)
	default:
		h.sendError(handle, fmt.Sprintf("Unknown action %q", cmd.Action))
		return
	}

	if err != nil {
		h.sendError(handle, errorMessage(err, cmd))
	}
}

// Disconnect cleans up after a dropped connection: the handle leaves
// its room, if any.
func (h *CommandHandler) Disconnect(handle string) {
	if err := h.games.LeaveRoom(handle); err != nil && !errors.Is(err, registry.ErrNotInRoom) {
		h.logger.Warn("cleanup on disconnect failed",
			zap.String("handle", handle),
			zap.Error(err),
		)
	}
}

// errorMessage maps a registry error to the client-facing message text.
func errorMessage(err error, cmd Command) string {
	switch {
	case errors.Is(err, registry.ErrMissingData):
		return "Some data is missing"
	case errors.Is(err, registry.ErrAlreadyInRoom):
		return "You are in this game already"
	case errors.Is(err, registry.ErrRoomNotFound):
		return fmt.Sprintf("Game with code %s does not exist", cmd.GameCode)
	case errors.Is(err, registry.ErrRoomRunning):
		if cmd.Action == ActionStartGame {
			return "Game is running already"
		}
		return fmt.Sprintf("Game with code %s is running already", cmd.GameCode)
	case errors.Is(err, registry.ErrNotInRoom):
		return "You are not in a game"
	case errors.Is(err, registry.ErrInvalidQuestion):
		return "Wrong question id"
	case errors.Is(err, registry.ErrQuestionEnded):
		return "Question already ended"
	case errors.Is(err, registry.ErrInvalidAnswer):
		return "Wrong answer format"
	case errors.Is(err, registry.ErrNoFreeCodes):
		return "No game codes available"
	}
	return "Internal error"
}

func (h *CommandHandler) sendError(handle, msg string) {
	if err := h.sender.SendToMember(handle, event.NewError(msg)); err != nil {
		h.logger.Warn("error unicast failed",
			zap.String("handle", handle),
			zap.Error(err),
		)
	}
}
