// Package session persists per-conversation history. The agent core only
// consumes a trimmed read-only window and hands back one completed turn pair;
// storage lifetime is owned here.
package session

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message within a session. Append-only.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Store interface {
	// Register creates the session record. Registering an existing session
	// is a no-op.
	Register(ctx context.Context, sessionID, userID string) error
	// Append adds completed turns to the session history.
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	// History returns up to limit most recent turns in chronological order.
	// limit <= 0 returns the full history.
	History(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

func trimTail(turns []Turn, limit int) []Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
