package store

import (
	"context"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/jmoiron/sqlx"
)

const membershipColumns = `rm.id, rm.round_id, rm.team_id, rm.wins, rm.losses, rm.tiebreaker,
        t.name AS team_name, t.seed AS seed`

func (s *TournamentStore) CreateRound(ctx context.Context, tx *sqlx.Tx, round *bracket.Round) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rounds (id, tournament_slug, round_order, stage_order, stage_name, structure, published)
        VALUES (:id, :tournament_slug, :round_order, :stage_order, :stage_name, :structure, :published)`, round)
	return err
}

func (s *TournamentStore) GetRound(ctx context.Context, id any) (*bracket.Round, error) {
	return s.getRound(ctx, s.db, id)
}

func (s *TournamentStore) GetRoundTx(ctx context.Context, tx *sqlx.Tx, id any) (*bracket.Round, error) {
	return s.getRound(ctx, tx, id)
}

func (s *TournamentStore) getRound(ctx context.Context, q sqlx.ExtContext, id any) (*bracket.Round, error) {
	var round bracket.Round
	if err := get(ctx, q, &round, "SELECT * FROM rounds WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &round, nil
}

// GetRounds lists the rounds of a tournament, latest stage first.
func (s *TournamentStore) GetRounds(ctx context.Context, slug string) ([]bracket.Round, error) {
	var rounds []bracket.Round
	err := list(ctx, s.db, &rounds, "SELECT * FROM rounds WHERE tournament_slug = ? ORDER BY stage_order DESC, round_order ASC", slug)
	return rounds, err
}

func (s *TournamentStore) GetStages(ctx context.Context, slug string) ([]bracket.Stage, error) {
	var stages []bracket.Stage
	err := list(ctx, s.db, &stages, `SELECT DISTINCT stage_name, stage_order FROM rounds
        WHERE tournament_slug = ? ORDER BY stage_order ASC, stage_name ASC`, slug)
	return stages, err
}

func (s *TournamentStore) SetRoundPublished(ctx context.Context, tx *sqlx.Tx, id any, published bool) error {
	n, err := exec(ctx, tx, "UPDATE rounds SET published = ? WHERE id = ?", published, id)
	if err == nil && n == 0 {
		return bracket.ErrNotFound
	}
	return err
}

func (s *TournamentStore) CreateMemberships(ctx context.Context, tx *sqlx.Tx, memberships []bracket.Membership) error {
	if len(memberships) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO round_memberships (id, round_id, team_id, wins, losses, tiebreaker)
        VALUES (:id, :round_id, :team_id, :wins, :losses, :tiebreaker)`, memberships)
	return err
}

// GetMemberships returns the memberships of a round with team name and seed,
// in seed order.
func (s *TournamentStore) GetMemberships(ctx context.Context, roundID any) ([]bracket.Membership, error) {
	return s.getMemberships(ctx, s.db, roundID)
}

func (s *TournamentStore) GetMembershipsTx(ctx context.Context, tx *sqlx.Tx, roundID any) ([]bracket.Membership, error) {
	return s.getMemberships(ctx, tx, roundID)
}

func (s *TournamentStore) getMemberships(ctx context.Context, q sqlx.ExtContext, roundID any) ([]bracket.Membership, error) {
	var memberships []bracket.Membership
	err := list(ctx, q, &memberships, `SELECT `+membershipColumns+`
        FROM round_memberships rm JOIN teams t ON t.id = rm.team_id
        WHERE rm.round_id = ? ORDER BY t.seed ASC`, roundID)
	return memberships, err
}

func (s *TournamentStore) GetMembership(ctx context.Context, roundID, teamID any) (*bracket.Membership, error) {
	var membership bracket.Membership
	err := get(ctx, s.db, &membership, `SELECT `+membershipColumns+`
        FROM round_memberships rm JOIN teams t ON t.id = rm.team_id
        WHERE rm.round_id = ? AND rm.team_id = ?`, roundID, teamID)
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (s *TournamentStore) HasMembershipTx(ctx context.Context, tx *sqlx.Tx, roundID, teamID any) (bool, error) {
	var count int
	err := get(ctx, tx, &count, "SELECT COUNT(*) FROM round_memberships WHERE round_id = ? AND team_id = ?", roundID, teamID)
	return count > 0, err
}

// CountRoundRecord counts a team's results over the published matches of one round.
func (s *TournamentStore) CountRoundRecord(ctx context.Context, tx *sqlx.Tx, teamID, roundID any) (bracket.Record, error) {
	var rec bracket.Record
	err := get(ctx, tx, &rec, `SELECT
            (SELECT COUNT(*) FROM matches WHERE round_id = ? AND published = ? AND winner_id = ?) AS wins,
            (SELECT COUNT(*) FROM matches WHERE round_id = ? AND published = ? AND loser_id = ?) AS losses,
            (SELECT COUNT(*) FROM games g JOIN matches m ON m.id = g.match_id
                WHERE m.round_id = ? AND m.published = ? AND g.winner_team_id = ?) AS game_wins,
            (SELECT COUNT(*) FROM games g JOIN matches m ON m.id = g.match_id
                WHERE m.round_id = ? AND m.published = ? AND g.loser_team_id = ?) AS game_losses`,
		roundID, true, teamID,
		roundID, true, teamID,
		roundID, true, teamID,
		roundID, true, teamID)
	return rec, err
}

// UpdateMembershipRecord writes the derived standings fields only. It returns
// bracket.ErrMembershipNotFound when the team has no membership in the round.
func (s *TournamentStore) UpdateMembershipRecord(ctx context.Context, tx *sqlx.Tx, roundID, teamID any, rec bracket.Record) error {
	n, err := exec(ctx, tx, "UPDATE round_memberships SET wins = ?, losses = ?, tiebreaker = ? WHERE round_id = ? AND team_id = ?",
		rec.Wins, rec.Losses, rec.Tiebreaker(), roundID, teamID)
	if err != nil {
		return err
	}
	if n == 0 {
		return bracket.ErrMembershipNotFound
	}
	return nil
}
