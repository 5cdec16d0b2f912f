package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StandingsService keeps the cached wins, losses and tiebreaker of round
// memberships and teams in line with the published match history. Every
// method taking a tx runs inside the caller's write so that a reader never
// sees a match result without its standings.
type StandingsService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewStandingsService(db *sqlx.DB, store *store.TournamentStore) *StandingsService {
	return &StandingsService{db: db, store: store}
}

// Recompute rewrites a team's standings in one round from scratch. A team
// without a membership in the round is skipped.
func (s *StandingsService) Recompute(ctx context.Context, tx *sqlx.Tx, teamID, roundID uuid.UUID) error {
	rec, err := s.store.CountRoundRecord(ctx, tx, teamID, roundID)
	if err != nil {
		return fmt.Errorf("failed to count round record: %w", err)
	}

	err = s.store.UpdateMembershipRecord(ctx, tx, roundID, teamID, rec)
	if errors.Is(err, bracket.ErrMembershipNotFound) {
		slog.DebugContext(ctx, "skipping standings recompute", "team_id", teamID, "round_id", roundID, "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update membership record: %w", err)
	}
	return nil
}

// RecomputeTeam rewrites a team's aggregate record over every published round.
func (s *StandingsService) RecomputeTeam(ctx context.Context, tx *sqlx.Tx, teamID uuid.UUID) error {
	rec, err := s.store.CountTeamRecord(ctx, tx, teamID)
	if err != nil {
		return fmt.Errorf("failed to count team record: %w", err)
	}
	if err := s.store.UpdateTeamRecord(ctx, tx, teamID, rec); err != nil {
		return fmt.Errorf("failed to update team record: %w", err)
	}
	return nil
}

// RecomputeMatch refreshes the round and aggregate standings of both teams of m.
func (s *StandingsService) RecomputeMatch(ctx context.Context, tx *sqlx.Tx, m *bracket.Match) error {
	for _, teamID := range m.Teams() {
		if err := s.Recompute(ctx, tx, teamID, m.RoundID); err != nil {
			return err
		}
		if err := s.RecomputeTeam(ctx, tx, teamID); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeRound refreshes every membership of a round and the aggregate of
// its teams.
func (s *StandingsService) RecomputeRound(ctx context.Context, roundID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.recomputeRound(ctx, tx, roundID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *StandingsService) recomputeRound(ctx context.Context, tx *sqlx.Tx, roundID uuid.UUID) error {
	if _, err := s.store.GetRoundTx(ctx, tx, roundID); err != nil {
		return err
	}

	memberships, err := s.store.GetMembershipsTx(ctx, tx, roundID)
	if err != nil {
		return fmt.Errorf("failed to get memberships: %w", err)
	}
	for _, m := range memberships {
		if err := s.Recompute(ctx, tx, m.TeamID, roundID); err != nil {
			return err
		}
		if err := s.RecomputeTeam(ctx, tx, m.TeamID); err != nil {
			return err
		}
	}
	return nil
}

// RankedParticipants returns a round's memberships in ranking order.
func (s *StandingsService) RankedParticipants(ctx context.Context, roundID uuid.UUID) (*bracket.Round, []bracket.Membership, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	memberships, err := s.store.GetMemberships(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	bracket.SortParticipants(round.Structure, memberships)
	return round, memberships, nil
}
