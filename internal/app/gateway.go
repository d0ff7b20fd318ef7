package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"quiz-sync-service/internal/domain"
)

// Presence maps a userId to its live connection and back. Bind is
// last-write-wins; Unbind is compare-and-delete so a stale disconnect cannot
// erase a newer binding.
type Presence interface {
	Bind(ctx context.Context, userID, connID string) error
	Lookup(ctx context.Context, userID string) (connID string, ok bool, err error)
	ReverseLookup(ctx context.Context, connID string) (userID string, ok bool, err error)
	Unbind(ctx context.Context, userID, connID string) (removed bool, err error)
}

// Sender delivers one event to one live connection. Implementations fail fast
// for connections that are gone; the gateway logs and moves on.
type Sender interface {
	Send(connID, event string, data any) error
}

// Client-facing event names on the connection surface.
const (
	EventUserJoined = "userJoined"
	EventUserLeft   = "userLeft"
	EventQuizUpdate = "quizUpdate"
)

// ScoreUpdate is the quizUpdate payload.
type ScoreUpdate struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// Gateway owns the session lifecycle: join, score fan-out, disconnect.
// Deliveries to different recipients are independent; one unreachable
// recipient never blocks the rest.
type Gateway struct {
	presence Presence
	store    QuizStore
	sender   Sender
}

func NewGateway(presence Presence, store QuizStore, sender Sender) *Gateway {
	return &Gateway{presence: presence, store: store, sender: sender}
}

// HandleJoin binds the user's presence and tells every other currently
// present participant of the quiz that the user arrived. Offline participants
// are skipped, never queued.
func (g *Gateway) HandleJoin(ctx context.Context, userID, quizID, connID string) error {
	if err := g.presence.Bind(ctx, userID, connID); err != nil {
		return fmt.Errorf("bind presence: %w", err)
	}

	participants, err := g.store.Participants(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		log.Printf("gateway: join for unknown quiz %s", quizID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}

	for _, participant := range participants {
		if participant.UserID == userID {
			continue
		}
		g.deliver(ctx, participant.UserID, EventUserJoined, userID)
	}
	return nil
}

// HandleNotification fans one score update out to every present participant
// of the affected quiz. It returns only after every delivery was attempted,
// so the bus never overlaps two notifications for the same quiz.
func (g *Gateway) HandleNotification(ctx context.Context, payload []byte) error {
	var event domain.NotificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("gateway: drop malformed notification: %v", err)
		return nil
	}
	if err := event.Validate(); err != nil {
		log.Printf("gateway: drop notification: %v", err)
		return nil
	}

	participants, err := g.store.Participants(ctx, event.QuizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		log.Printf("gateway: drop notification for unknown quiz %s", event.QuizID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}

	update := ScoreUpdate{UserID: event.UserID, Score: event.Score}
	for _, participant := range participants {
		g.deliver(ctx, participant.UserID, EventQuizUpdate, update)
	}
	return nil
}

// HandleDisconnect resolves the closing connection to a user, releases the
// presence binding, and removes the user from every quiz it had joined,
// telling the remaining present participants. A duplicate disconnect, or a
// disconnect of a connection that never joined, is a no-op.
func (g *Gateway) HandleDisconnect(ctx context.Context, connID string) error {
	userID, ok, err := g.presence.ReverseLookup(ctx, connID)
	if err != nil {
		return fmt.Errorf("reverse lookup: %w", err)
	}
	if !ok {
		return nil
	}

	removed, err := g.presence.Unbind(ctx, userID, connID)
	if err != nil {
		return fmt.Errorf("unbind presence: %w", err)
	}
	if !removed {
		// The user rebound to a newer connection; this disconnect is stale
		// and must not tear the user down.
		return nil
	}

	quizIDs, err := g.store.QuizzesWithParticipant(ctx, userID)
	if err != nil {
		return fmt.Errorf("find quizzes of %s: %w", userID, err)
	}
	for _, quizID := range quizIDs {
		if err := g.store.RemoveParticipant(ctx, quizID, userID); err != nil {
			log.Printf("gateway: remove %s from quiz %s: %v", userID, quizID, err)
			continue
		}
		remaining, err := g.store.Participants(ctx, quizID)
		if err != nil {
			log.Printf("gateway: load participants of quiz %s: %v", quizID, err)
			continue
		}
		for _, participant := range remaining {
			g.deliver(ctx, participant.UserID, EventUserLeft, userID)
		}
	}
	return nil
}

// deliver resolves one recipient's connection and sends, logging and skipping
// on any failure.
func (g *Gateway) deliver(ctx context.Context, userID, event string, data any) {
	connID, ok, err := g.presence.Lookup(ctx, userID)
	if err != nil {
		log.Printf("gateway: presence lookup for %s: %v", userID, err)
		return
	}
	if !ok {
		return
	}
	if err := g.sender.Send(connID, event, data); err != nil {
		log.Printf("gateway: deliver %s to %s: %v", event, userID, err)
	}
}
