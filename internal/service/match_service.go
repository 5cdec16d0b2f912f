package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/middleware"
	"github.com/AdamBeresnev/league-standings/internal/notify"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/AdamBeresnev/league-standings/internal/video"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MatchService owns every write to matches and games. Each write locks the
// match, applies the change and recomputes standings in one transaction. Only
// game writes re-decide the winner.
type MatchService struct {
	db        *sqlx.DB
	store     *store.TournamentStore
	standings *StandingsService
	notifier  notify.Notifier
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, standings *StandingsService, notifier notify.Notifier) *MatchService {
	return &MatchService{db: db, store: store, standings: standings, notifier: notifier}
}

type MatchInput struct {
	RoundID     uuid.UUID `json:"round_id"`
	HomeTeamID  uuid.UUID `json:"home_team_id"`
	AwayTeamID  uuid.UUID `json:"away_team_id"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
}

// GameInput is a reported game result. A nil Outcome records the game without
// a winner.
type GameInput struct {
	Order        int
	MapName      string
	HomePlayerID *uuid.UUID
	AwayPlayerID *uuid.UUID
	Outcome      bracket.Outcome
	Forfeit      bool
	IsAce        bool
	VOD          string
}

type MatchData struct {
	Match       *bracket.Match `json:"match"`
	Home        *bracket.Team  `json:"home"`
	Away        *bracket.Team  `json:"away"`
	Games       []bracket.Game `json:"games"`
	GamesPlayed int            `json:"games_played"`
	FirstVOD    string         `json:"first_vod,omitempty"`
	Title       string         `json:"title"`
}

func (s *MatchService) GetMatchData(ctx context.Context, matchID uuid.UUID) (*MatchData, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.store.GetTournament(ctx, match.TournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	home, err := s.store.GetTeam(ctx, match.HomeTeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get home team: %w", err)
	}
	away, err := s.store.GetTeam(ctx, match.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get away team: %w", err)
	}
	games, err := s.store.GetGames(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	return &MatchData{
		Match:       match,
		Home:        home,
		Away:        away,
		Games:       games,
		GamesPlayed: len(bracket.GamesPlayed(games)),
		FirstVOD:    bracket.FirstVOD(games),
		Title:       match.Describe(tournament.Name, home.Name, away.Name),
	}, nil
}

// CreateMatch records a match between two members of a round and sends a
// notification once the match is committed.
func (s *MatchService) CreateMatch(ctx context.Context, in MatchInput) (*bracket.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	round, err := s.store.GetRoundTx(ctx, tx, in.RoundID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.store.GetTournamentTx(ctx, tx, round.TournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	now := time.Now().UTC()
	match := &bracket.Match{
		ID:             uuid.New(),
		TournamentSlug: tournament.Slug,
		RoundID:        round.ID,
		Structure:      tournament.Structure,
		HomeTeamID:     in.HomeTeamID,
		AwayTeamID:     in.AwayTeamID,
		Published:      in.Published,
		Description:    in.Description,
		CreatedAt:      now,
	}
	if match.Published {
		match.PublishDate = &now
	}
	if err := match.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, 2)
	for _, teamID := range match.Teams() {
		ok, err := s.store.HasMembershipTx(ctx, tx, round.ID, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !ok {
			return nil, &bracket.ValidationError{Field: "team", Message: fmt.Sprintf("team %s does not play in round %s", teamID, round)}
		}
		team, err := s.store.GetTeamTx(ctx, tx, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to get team: %w", err)
		}
		names = append(names, team.Name)
	}

	if err := s.store.CreateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	if err := s.standings.RecomputeMatch(ctx, tx, match); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	event := notify.MatchCreatedEvent{
		MatchDescription: match.Describe(tournament.Name, names[0], names[1]),
		HomeTeamID:       match.HomeTeamID,
		AwayTeamID:       match.AwayTeamID,
	}
	if err := s.notifier.MatchCreated(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to send match notification", "match_id", match.ID, "error", err)
	}

	return match, nil
}

// ReportGame creates or replaces the game at in.Order and re-resolves the match.
func (s *MatchService) ReportGame(ctx context.Context, matchID uuid.UUID, in GameInput) (*bracket.Match, error) {
	if in.Order < 1 {
		return nil, &bracket.ValidationError{Field: "order", Message: "game order must be at least 1"}
	}

	return s.withGames(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		if err := s.checkSeats(ctx, tx, match, in.HomePlayerID, in.AwayPlayerID); err != nil {
			return err
		}

		game, err := s.store.GetGameTx(ctx, tx, match.ID, in.Order)
		isNew := errors.Is(err, bracket.ErrNotFound)
		if err != nil && !isNew {
			return fmt.Errorf("failed to get game: %w", err)
		}
		if isNew {
			game = &bracket.Game{ID: uuid.New(), MatchID: match.ID, Order: in.Order}
		}

		game.MapName = in.MapName
		game.HomePlayerID = in.HomePlayerID
		game.AwayPlayerID = in.AwayPlayerID
		game.Forfeit = in.Forfeit
		game.IsAce = in.IsAce
		game.VOD = video.Normalize(in.VOD)
		if err := bracket.ApplyOutcome(match, game, in.Outcome); err != nil {
			return err
		}

		if isNew {
			err = s.store.CreateGame(ctx, tx, game)
		} else {
			err = s.store.UpdateGame(ctx, tx, game)
		}
		if err != nil {
			return fmt.Errorf("failed to save game: %w", err)
		}

		if refereeID, ok := middleware.GetUserIDFromContext(ctx); ok {
			match.RefereeID = &refereeID
		}
		return nil
	})
}

// RetractGame clears the winner of a game but keeps the game recorded.
func (s *MatchService) RetractGame(ctx context.Context, matchID uuid.UUID, order int) (*bracket.Match, error) {
	return s.withGames(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		game, err := s.store.GetGameTx(ctx, tx, match.ID, order)
		if err != nil {
			return err
		}
		game.ClearOutcome()
		if err := s.store.UpdateGame(ctx, tx, game); err != nil {
			return fmt.Errorf("failed to update game: %w", err)
		}
		return nil
	})
}

func (s *MatchService) DeleteGame(ctx context.Context, matchID uuid.UUID, order int) (*bracket.Match, error) {
	return s.withGames(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		return s.store.DeleteGame(ctx, tx, match.ID, order)
	})
}

// SetPublished publishes or hides a match. The publish date is set the first
// time the match is published and kept afterwards.
func (s *MatchService) SetPublished(ctx context.Context, matchID uuid.UUID, published bool) (*bracket.Match, error) {
	return s.withMatch(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		match.Published = published
		if published && match.PublishDate == nil {
			now := time.Now().UTC()
			match.PublishDate = &now
		}
		return nil
	})
}

// RemoveExtraVictories clears the winner of every game played after the match
// was already decided and returns how many games it cleared.
func (s *MatchService) RemoveExtraVictories(ctx context.Context, matchID uuid.UUID) (int, error) {
	var trimmed int
	_, err := s.withGames(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		games, err := s.store.GetGamesTx(ctx, tx, match.ID)
		if err != nil {
			return fmt.Errorf("failed to get games: %w", err)
		}
		bracket.SortGames(games)

		for _, i := range bracket.ExtraVictories(match, games) {
			games[i].ClearOutcome()
			if err := s.store.UpdateGame(ctx, tx, &games[i]); err != nil {
				return fmt.Errorf("failed to update game: %w", err)
			}
			slog.InfoContext(ctx, "cleared extra victory", "match_id", match.ID, "game_order", games[i].Order)
			trimmed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return trimmed, nil
}

// SetWinner overrides the winner of a match. A nil winner returns the match to
// undecided. The override holds until the next game write re-resolves the match.
func (s *MatchService) SetWinner(ctx context.Context, matchID uuid.UUID, winnerID *uuid.UUID) (*bracket.Match, error) {
	return s.withMatch(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		return match.SetWinner(winnerID)
	})
}

// DeleteMatch deletes a match with its games and recomputes the standings of
// both teams that played it.
func (s *MatchService) DeleteMatch(ctx context.Context, matchID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	match, err := s.store.LockMatch(ctx, tx, matchID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMatch(ctx, tx, match.ID); err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if err := s.standings.RecomputeMatch(ctx, tx, match); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteMatches deletes matches in one statement, then recomputes every round
// the deleted matches belonged to. Unknown ids are ignored.
func (s *MatchService) DeleteMatches(ctx context.Context, matchIDs []uuid.UUID) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	matches, err := s.store.GetMatchesTx(ctx, tx, matchIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to get matches: %w", err)
	}
	deleted, err := s.store.DeleteMatches(ctx, tx, matchIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches: %w", err)
	}

	seen := make(map[uuid.UUID]bool)
	for _, m := range matches {
		if seen[m.RoundID] {
			continue
		}
		seen[m.RoundID] = true
		if err := s.standings.recomputeRound(ctx, tx, m.RoundID); err != nil {
			return 0, err
		}
	}

	slog.InfoContext(ctx, "matches deleted", "count", deleted, "rounds", len(seen))
	return deleted, tx.Commit()
}

// withMatch runs fn on the locked match, then saves the match and recomputes
// standings. The winner is left as fn set it.
func (s *MatchService) withMatch(ctx context.Context, matchID uuid.UUID, fn func(tx *sqlx.Tx, match *bracket.Match) error) (*bracket.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.LockMatch(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if err := fn(tx, match); err != nil {
		return nil, err
	}
	if err := match.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if err := s.standings.RecomputeMatch(ctx, tx, match); err != nil {
		return nil, err
	}
	return match, tx.Commit()
}

// withGames is withMatch for writes that change games: after fn the winner is
// re-decided from the match's games.
func (s *MatchService) withGames(ctx context.Context, matchID uuid.UUID, fn func(tx *sqlx.Tx, match *bracket.Match) error) (*bracket.Match, error) {
	return s.withMatch(ctx, matchID, func(tx *sqlx.Tx, match *bracket.Match) error {
		if err := fn(tx, match); err != nil {
			return err
		}
		return s.decideWinner(ctx, tx, match)
	})
}

func (s *MatchService) decideWinner(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	games, err := s.store.GetGamesTx(ctx, tx, match.ID)
	if err != nil {
		return fmt.Errorf("failed to get games: %w", err)
	}

	winner, changed := bracket.DecideWinner(match, games)
	if !changed {
		return nil
	}
	if err := match.SetWinner(winner); err != nil {
		return err
	}
	slog.InfoContext(ctx, "match winner changed", "match_id", match.ID, "winner_id", winner)
	return nil
}

// checkSeats loads the seated players and checks that each plays for the team
// on its side of the match.
func (s *MatchService) checkSeats(ctx context.Context, tx *sqlx.Tx, match *bracket.Match, homePlayerID, awayPlayerID *uuid.UUID) error {
	seats := []struct {
		side     bracket.Side
		playerID *uuid.UUID
	}{
		{bracket.HomeSide, homePlayerID},
		{bracket.AwaySide, awayPlayerID},
	}
	for _, seat := range seats {
		if seat.playerID == nil {
			continue
		}
		player, err := s.store.GetPlayerTx(ctx, tx, *seat.playerID)
		if errors.Is(err, bracket.ErrNotFound) {
			return &bracket.ValidationError{Field: seat.side.String() + "_player", Message: fmt.Sprintf("unknown player %s", *seat.playerID)}
		}
		if err != nil {
			return fmt.Errorf("failed to get player: %w", err)
		}
		if err := match.CheckSeat(seat.side, player); err != nil {
			return err
		}
	}
	return nil
}
