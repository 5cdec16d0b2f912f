package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewBracketService(db *sqlx.DB, store *store.TournamentStore) *BracketService {
	return &BracketService{db: db, store: store}
}

// Build returns the bracket rows of a round as of the moment it is called.
// Writes that commit afterwards are not observed by the returned sequence.
// A round that cannot be seeded yields an empty sequence.
func (s *BracketService) Build(ctx context.Context, roundID uuid.UUID) (iter.Seq[bracket.Row], error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	round, err := s.store.GetRoundTx(ctx, tx, roundID)
	if err != nil {
		return nil, err
	}

	participants, err := s.store.GetMembershipsTx(ctx, tx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	bracket.SortParticipants(round.Structure, participants)

	results, err := s.store.GetMatchResults(ctx, tx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if bracket.SeedOrder(len(participants)) == nil {
		slog.WarnContext(ctx, "bracket not built", "round_id", roundID, "participants", len(participants), "error", bracket.ErrSeedingUnavailable)
		return func(func(bracket.Row) bool) {}, nil
	}

	return bracket.Rows(participants, bracket.NewMatchLookup(results)), nil
}

// Collect builds the bracket of a round and materializes every row.
func (s *BracketService) Collect(ctx context.Context, roundID uuid.UUID) ([]bracket.Row, error) {
	rows, err := s.Build(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return slices.Collect(rows), nil
}
