package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// get and list rebind "?" placeholders for the connection's driver and turn
// sql.ErrNoRows into bracket.ErrNotFound.
func get(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return bracket.ErrNotFound
	}
	return err
}

func list(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (slug, name, status, structure, games_per_match, created_at)
        VALUES (:slug, :name, :status, :structure, :games_per_match, :created_at)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, slug string) (*bracket.Tournament, error) {
	return s.getTournament(ctx, s.db, slug)
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, slug string) (*bracket.Tournament, error) {
	return s.getTournament(ctx, tx, slug)
}

func (s *TournamentStore) getTournament(ctx context.Context, q sqlx.ExtContext, slug string) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	if err := get(ctx, q, &tournament, "SELECT * FROM tournaments WHERE slug = ?", slug); err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, slug string, status bracket.TournamentStatus) error {
	n, err := exec(ctx, s.db, "UPDATE tournaments SET status = ? WHERE slug = ?", status, slug)
	if err == nil && n == 0 {
		return bracket.ErrNotFound
	}
	return err
}

// SetMapPool registers the maps and makes them the tournament's pool.
func (s *TournamentStore) SetMapPool(ctx context.Context, tx *sqlx.Tx, slug string, maps []string) error {
	if _, err := exec(ctx, tx, "DELETE FROM tournament_maps WHERE tournament_slug = ?", slug); err != nil {
		return err
	}
	for _, name := range maps {
		if _, err := exec(ctx, tx, "INSERT INTO maps (name) VALUES (?) ON CONFLICT (name) DO NOTHING", name); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, "INSERT INTO tournament_maps (tournament_slug, map_name) VALUES (?, ?) ON CONFLICT DO NOTHING", slug, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetMapPool(ctx context.Context, slug string) ([]string, error) {
	var maps []string
	err := list(ctx, s.db, &maps, "SELECT map_name FROM tournament_maps WHERE tournament_slug = ? ORDER BY map_name ASC", slug)
	return maps, err
}

func (s *TournamentStore) CreateTeams(ctx context.Context, tx *sqlx.Tx, teams []bracket.Team) error {
	if len(teams) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO teams (id, tournament_slug, name, seed)
            VALUES (:id, :tournament_slug, :name, :seed)`, teams)
	return err
}

func (s *TournamentStore) CreatePlayers(ctx context.Context, tx *sqlx.Tx, players []bracket.Player) error {
	if len(players) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO players (id, team_id, name) VALUES (:id, :team_id, :name)`, players)
	return err
}

func (s *TournamentStore) GetTeams(ctx context.Context, slug string) ([]bracket.Team, error) {
	var teams []bracket.Team
	err := list(ctx, s.db, &teams, "SELECT * FROM teams WHERE tournament_slug = ? ORDER BY seed ASC", slug)
	return teams, err
}

func (s *TournamentStore) GetTeam(ctx context.Context, id any) (*bracket.Team, error) {
	var team bracket.Team
	if err := get(ctx, s.db, &team, "SELECT * FROM teams WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *TournamentStore) GetTeamTx(ctx context.Context, tx *sqlx.Tx, id any) (*bracket.Team, error) {
	var team bracket.Team
	if err := get(ctx, tx, &team, "SELECT * FROM teams WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *TournamentStore) GetPlayerTx(ctx context.Context, tx *sqlx.Tx, id any) (*bracket.Player, error) {
	var player bracket.Player
	if err := get(ctx, tx, &player, "SELECT * FROM players WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *TournamentStore) GetPlayers(ctx context.Context, teamID any) ([]bracket.Player, error) {
	var players []bracket.Player
	err := list(ctx, s.db, &players, "SELECT * FROM players WHERE team_id = ? ORDER BY name ASC", teamID)
	return players, err
}

// CountTeamRecord counts a team's results over published matches of
// published rounds.
func (s *TournamentStore) CountTeamRecord(ctx context.Context, tx *sqlx.Tx, teamID any) (bracket.Record, error) {
	var rec bracket.Record
	err := get(ctx, tx, &rec, `SELECT
            (SELECT COUNT(*) FROM matches m JOIN rounds r ON r.id = m.round_id
                WHERE r.published = ? AND m.published = ? AND m.winner_id = ?) AS wins,
            (SELECT COUNT(*) FROM matches m JOIN rounds r ON r.id = m.round_id
                WHERE r.published = ? AND m.published = ? AND m.loser_id = ?) AS losses,
            (SELECT COUNT(*) FROM games g JOIN matches m ON m.id = g.match_id JOIN rounds r ON r.id = m.round_id
                WHERE r.published = ? AND m.published = ? AND g.winner_team_id = ?) AS game_wins,
            (SELECT COUNT(*) FROM games g JOIN matches m ON m.id = g.match_id JOIN rounds r ON r.id = m.round_id
                WHERE r.published = ? AND m.published = ? AND g.loser_team_id = ?) AS game_losses`,
		true, true, teamID,
		true, true, teamID,
		true, true, teamID,
		true, true, teamID)
	return rec, err
}

func (s *TournamentStore) UpdateTeamRecord(ctx context.Context, tx *sqlx.Tx, teamID any, rec bracket.Record) error {
	_, err := exec(ctx, tx, "UPDATE teams SET wins = ?, losses = ?, tiebreaker = ? WHERE id = ?",
		rec.Wins, rec.Losses, rec.Tiebreaker(), teamID)
	return err
}
