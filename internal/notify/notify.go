package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// MatchCreatedEvent is sent once for every newly created match.
type MatchCreatedEvent struct {
	MatchDescription string    `json:"match_description"`
	HomeTeamID       uuid.UUID `json:"home_team_id"`
	AwayTeamID       uuid.UUID `json:"away_team_id"`
}

// Notifier delivers match events. Delivery is fire-and-forget, a failing
// notifier never undoes the write that produced the event.
type Notifier interface {
	MatchCreated(ctx context.Context, event MatchCreatedEvent) error
}

// LogNotifier writes events to a slog logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) MatchCreated(ctx context.Context, event MatchCreatedEvent) error {
	n.logger.InfoContext(ctx, "match created",
		"description", event.MatchDescription,
		"home_team_id", event.HomeTeamID,
		"away_team_id", event.AwayTeamID)
	return nil
}
