package store

import (
	"context"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	createMatchQuery = `INSERT INTO matches (id, tournament_slug, round_id, structure, home_team_id, away_team_id,
            published, publish_date, description, referee_id, winner_id, loser_id, created_at)
        VALUES (:id, :tournament_slug, :round_id, :structure, :home_team_id, :away_team_id,
            :published, :publish_date, :description, :referee_id, :winner_id, :loser_id, :created_at)`
	updateMatchQuery = `UPDATE matches SET
            published = :published,
            publish_date = :publish_date,
            description = :description,
            referee_id = :referee_id,
            winner_id = :winner_id,
            loser_id = :loser_id
        WHERE id = :id`
	createGameQuery = `INSERT INTO games (id, match_id, game_order, map_name, home_player_id, away_player_id,
            winner_player_id, loser_player_id, winner_team_id, loser_team_id, forfeit, is_ace, vod)
        VALUES (:id, :match_id, :game_order, :map_name, :home_player_id, :away_player_id,
            :winner_player_id, :loser_player_id, :winner_team_id, :loser_team_id, :forfeit, :is_ace, :vod)`
	updateGameQuery = `UPDATE games SET
            map_name = :map_name,
            home_player_id = :home_player_id,
            away_player_id = :away_player_id,
            winner_player_id = :winner_player_id,
            loser_player_id = :loser_player_id,
            winner_team_id = :winner_team_id,
            loser_team_id = :loser_team_id,
            forfeit = :forfeit,
            is_ace = :is_ace,
            vod = :vod
        WHERE id = :id`
)

func (s *TournamentStore) CreateMatch(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	_, err := tx.NamedExecContext(ctx, createMatchQuery, match)
	return err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id any) (*bracket.Match, error) {
	return s.getMatch(ctx, s.db, "SELECT * FROM matches WHERE id = ?", id)
}

func (s *TournamentStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id any) (*bracket.Match, error) {
	return s.getMatch(ctx, tx, "SELECT * FROM matches WHERE id = ?", id)
}

// LockMatch reads a match and, on postgres, holds its row lock until tx ends so
// that concurrent result writes for the same match are serialized. SQLite runs
// on a single connection and needs no extra lock.
func (s *TournamentStore) LockMatch(ctx context.Context, tx *sqlx.Tx, id any) (*bracket.Match, error) {
	query := "SELECT * FROM matches WHERE id = ?"
	if tx.DriverName() == "postgres" {
		query += " FOR UPDATE"
	}
	return s.getMatch(ctx, tx, query, id)
}

func (s *TournamentStore) getMatch(ctx context.Context, q sqlx.ExtContext, query string, id any) (*bracket.Match, error) {
	var match bracket.Match
	if err := get(ctx, q, &match, query, id); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) ([]bracket.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM matches WHERE id IN (?) ORDER BY created_at ASC", ids)
	if err != nil {
		return nil, err
	}
	var matches []bracket.Match
	err = list(ctx, tx, &matches, query, args...)
	return matches, err
}

func (s *TournamentStore) GetRoundMatches(ctx context.Context, roundID any) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := list(ctx, s.db, &matches, "SELECT * FROM matches WHERE round_id = ? ORDER BY created_at ASC", roundID)
	return matches, err
}

func (s *TournamentStore) UpdateMatch(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	_, err := tx.NamedExecContext(ctx, updateMatchQuery, match)
	return err
}

func (s *TournamentStore) DeleteMatch(ctx context.Context, tx *sqlx.Tx, id any) error {
	n, err := exec(ctx, tx, "DELETE FROM matches WHERE id = ?", id)
	if err == nil && n == 0 {
		return bracket.ErrNotFound
	}
	return err
}

func (s *TournamentStore) DeleteMatches(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("DELETE FROM matches WHERE id IN (?)", ids)
	if err != nil {
		return 0, err
	}
	return exec(ctx, tx, query, args...)
}

// GetMatchResults returns the published matches of a round with the games won
// by each side.
func (s *TournamentStore) GetMatchResults(ctx context.Context, tx *sqlx.Tx, roundID any) ([]bracket.MatchResult, error) {
	var results []bracket.MatchResult
	err := list(ctx, tx, &results, `SELECT m.id, m.home_team_id, m.away_team_id, m.winner_id,
            COALESCE(SUM(CASE WHEN g.winner_team_id = m.home_team_id THEN 1 ELSE 0 END), 0) AS home_wins,
            COALESCE(SUM(CASE WHEN g.winner_team_id = m.away_team_id THEN 1 ELSE 0 END), 0) AS away_wins
        FROM matches m LEFT JOIN games g ON g.match_id = m.id
        WHERE m.round_id = ? AND m.published = ?
        GROUP BY m.id, m.home_team_id, m.away_team_id, m.winner_id, m.created_at
        ORDER BY m.created_at ASC`, roundID, true)
	return results, err
}

func (s *TournamentStore) CreateGame(ctx context.Context, tx *sqlx.Tx, game *bracket.Game) error {
	_, err := tx.NamedExecContext(ctx, createGameQuery, game)
	return err
}

func (s *TournamentStore) UpdateGame(ctx context.Context, tx *sqlx.Tx, game *bracket.Game) error {
	_, err := tx.NamedExecContext(ctx, updateGameQuery, game)
	return err
}

func (s *TournamentStore) DeleteGame(ctx context.Context, tx *sqlx.Tx, matchID any, order int) error {
	n, err := exec(ctx, tx, "DELETE FROM games WHERE match_id = ? AND game_order = ?", matchID, order)
	if err == nil && n == 0 {
		return bracket.ErrNotFound
	}
	return err
}

func (s *TournamentStore) GetGames(ctx context.Context, matchID any) ([]bracket.Game, error) {
	return s.getGames(ctx, s.db, matchID)
}

func (s *TournamentStore) GetGamesTx(ctx context.Context, tx *sqlx.Tx, matchID any) ([]bracket.Game, error) {
	return s.getGames(ctx, tx, matchID)
}

func (s *TournamentStore) getGames(ctx context.Context, q sqlx.ExtContext, matchID any) ([]bracket.Game, error) {
	var games []bracket.Game
	err := list(ctx, q, &games, "SELECT * FROM games WHERE match_id = ? ORDER BY game_order ASC", matchID)
	return games, err
}

func (s *TournamentStore) GetGameTx(ctx context.Context, tx *sqlx.Tx, matchID any, order int) (*bracket.Game, error) {
	var game bracket.Game
	if err := get(ctx, tx, &game, "SELECT * FROM games WHERE match_id = ? AND game_order = ?", matchID, order); err != nil {
		return nil, err
	}
	return &game, nil
}
