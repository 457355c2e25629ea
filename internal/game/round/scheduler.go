// Package round drives a started room through its timed question
// sequence: announce the game, ask each question for a fixed window,
// broadcast the scoreboard, and dissolve the room.
package round

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/trivia/internal/game/event"
	"github.com/cory-johannsen/trivia/internal/game/question"
	"github.com/cory-johannsen/trivia/internal/game/room"
)

// RoomControl is the slice of registry behavior a scheduler needs. The
// scheduler holds only the room code and reaches the room through
// these calls; it never shares the room object itself.
type RoomControl interface {
	// SetActiveQuestion opens a question for answers in the room.
	// Returns false if the room no longer exists.
	SetActiveQuestion(code string, id, correctIndex int) bool
	// Scoreboard returns the room's scoreboard in join order, or
	// (nil, false) if the room no longer exists.
	Scoreboard(code string) ([]room.Score, bool)
	// PlayerCount returns the room's member count, 0 for unknown codes.
	PlayerCount(code string) int
	// DissolveRoom tears the room down and frees its code.
	DissolveRoom(code string)
	// RoomDone returns a channel closed when the room is dissolved.
	RoomDone(code string) <-chan struct{}
}

// Runner schedules question rounds. One goroutine per started room;
// the registry's monotone running flag guarantees at most one run per
// room code.
type Runner struct {
	rooms    RoomControl
	source   question.Source
	bcast    event.Broadcaster
	count    int
	duration time.Duration
	logger   *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: rooms, source, bcast, and logger must be non-nil;
// count > 0; duration > 0.
func NewRunner(rooms RoomControl, source question.Source, bcast event.Broadcaster, count int, duration time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		rooms:    rooms,
		source:   source,
		bcast:    bcast,
		count:    count,
		duration: duration,
		logger:   logger,
	}
}

// StartRound launches the round for the given room code in its own
// goroutine and returns immediately.
func (r *Runner) StartRound(code string) {
	go r.Run(context.Background(), code)
}

// Run executes one complete round for the room: game-started broadcast,
// count questions each open for the fixed window, scoreboard broadcast,
// dissolution. Membership is re-checked after every wait; a room that
// loses all its players mid-round is abandoned without a scoreboard.
// Run returns when the room is dissolved.
func (r *Runner) Run(ctx context.Context, code string) {
	start := time.Now()
	done := r.rooms.RoomDone(code)

	r.sendToGroup(code, event.NewGameStarted())

	questions, err := r.source.FetchRandom(ctx, r.count)
	if err != nil {
		r.logger.Error("fetching questions, abandoning round",
			zap.String("code", code),
			zap.Error(err),
		)
		r.rooms.DissolveRoom(code)
		return
	}

	for i, q := range questions {
		// The room is shared state: players may have left during the
		// previous wait, or the room may be gone entirely.
		if r.rooms.PlayerCount(code) == 0 {
			r.logger.Info("room emptied mid-round, abandoning",
				zap.String("code", code),
				zap.Int("question", i),
			)
			r.rooms.DissolveRoom(code)
			return
		}
		if !r.rooms.SetActiveQuestion(code, i, q.CorrectIndex) {
			return
		}

		r.sendToGroup(code, event.NewAskQuestion(i, int(r.duration/time.Second), q.Prompt, q.Choices))

		if !r.wait(ctx, done) {
			r.logger.Info("round cancelled mid-question",
				zap.String("code", code),
				zap.Int("question", i),
			)
			return
		}
	}

	if scores, ok := r.rooms.Scoreboard(code); ok {
		entries := make([]event.ScoreEntry, 0, len(scores))
		for _, s := range scores {
			entries = append(entries, event.ScoreEntry{User: s.Username, Score: s.Total})
		}
		r.sendToGroup(code, event.NewGameEnded(entries))
	}
	r.rooms.DissolveRoom(code)

	r.logger.Info("round complete",
		zap.String("code", code),
		zap.Int("questions", len(questions)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// wait blocks for the full answer window.
//
// Postcondition: Returns true when the window elapsed, false when the
// room was dissolved or ctx cancelled first.
func (r *Runner) wait(ctx context.Context, done <-chan struct{}) bool {
	fired := make(chan struct{})
	timer := NewQuestionTimer(r.duration, func() { close(fired) })

	select {
	case <-fired:
		return true
	case <-done:
		timer.Stop()
		return false
	case <-ctx.Done():
		timer.Stop()
		return false
	}
}

func (r *Runner) sendToGroup(group string, evt any) {
	if err := r.bcast.SendToGroup(group, evt); err != nil {
		r.logger.Warn("broadcast failed",
			zap.String("group", group),
			zap.Error(err),
		)
	}
}
