package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
)

const defaultGamesPerMatch = 5

type TournamentService struct {
	db        *sqlx.DB
	store     *store.TournamentStore
	standings *StandingsService
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, standings *StandingsService) *TournamentService {
	return &TournamentService{db: db, store: store, standings: standings}
}

type TeamInput struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

type TournamentInput struct {
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Structure     bracket.Structure `json:"structure"`
	GamesPerMatch int               `json:"games_per_match"`
	MapPool       []string          `json:"map_pool"`
	// Teams are seeded in the order given, starting at 1
	Teams []TeamInput `json:"teams"`
}

type RoundInput struct {
	TournamentSlug string                 `json:"tournament_slug"`
	Order          int                    `json:"order"`
	StageOrder     int                    `json:"stage_order"`
	StageName      string                 `json:"stage_name"`
	Structure      bracket.RoundStructure `json:"structure"`
	Published      bool                   `json:"published"`
	TeamIDs        []uuid.UUID            `json:"team_ids"`
}

type TournamentData struct {
	Tournament *bracket.Tournament `json:"tournament"`
	Teams      []bracket.Team      `json:"teams"`
	Rounds     []bracket.Round     `json:"rounds"`
	Stages     []bracket.Stage     `json:"stages"`
	MapPool    []string            `json:"map_pool"`
}

func (s *TournamentService) GetTournamentData(ctx context.Context, slug string) (*TournamentData, error) {
	tournament, err := s.store.GetTournament(ctx, slug)
	if err != nil {
		return nil, err
	}

	teams, err := s.store.GetTeams(ctx, slug)
	if err != nil {
		return nil, err
	}

	rounds, err := s.store.GetRounds(ctx, slug)
	if err != nil {
		return nil, err
	}

	stages, err := s.store.GetStages(ctx, slug)
	if err != nil {
		return nil, err
	}

	pool, err := s.store.GetMapPool(ctx, slug)
	if err != nil {
		return nil, err
	}

	return &TournamentData{
		Tournament: tournament,
		Teams:      teams,
		Rounds:     rounds,
		Stages:     stages,
		MapPool:    pool,
	}, nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, in TournamentInput) (*bracket.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &bracket.ValidationError{Field: "name", Message: "tournament name is required"}
	}
	tournamentSlug := slug.Make(in.Slug)
	if tournamentSlug == "" {
		tournamentSlug = slug.Make(name)
	}
	if tournamentSlug == "" {
		return nil, &bracket.ValidationError{Field: "slug", Message: "tournament slug is empty"}
	}
	if in.Structure == "" {
		in.Structure = bracket.IndividualStructure
	}
	if !in.Structure.Valid() {
		return nil, &bracket.ValidationError{Field: "structure", Message: fmt.Sprintf("unknown structure %q", in.Structure)}
	}
	if in.GamesPerMatch == 0 {
		in.GamesPerMatch = defaultGamesPerMatch
	}
	if in.GamesPerMatch < 1 {
		return nil, &bracket.ValidationError{Field: "games_per_match", Message: "games per match must be at least 1"}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament := &bracket.Tournament{
		Slug:          tournamentSlug,
		Name:          name,
		Status:        bracket.TournamentSignup,
		Structure:     in.Structure,
		GamesPerMatch: in.GamesPerMatch,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	var maps []string
	for _, m := range in.MapPool {
		if m = strings.TrimSpace(m); m != "" {
			maps = append(maps, m)
		}
	}
	if err := s.store.SetMapPool(ctx, tx, tournamentSlug, maps); err != nil {
		return nil, fmt.Errorf("failed to set map pool: %w", err)
	}

	var teams []bracket.Team
	var players []bracket.Player
	for i, input := range in.Teams {
		t := bracket.Team{
			ID:             uuid.New(),
			TournamentSlug: tournamentSlug,
			Name:           strings.TrimSpace(input.Name),
			Seed:           i + 1,
		}
		if t.Name == "" {
			return nil, &bracket.ValidationError{Field: "teams", Message: fmt.Sprintf("team %d has no name", i+1)}
		}
		for _, p := range input.Players {
			players = append(players, bracket.Player{ID: uuid.New(), TeamID: t.ID, Name: p})
		}

		teams = append(teams, t)
	}

	if err := s.store.CreateTeams(ctx, tx, teams); err != nil {
		return nil, fmt.Errorf("failed to create teams: %w", err)
	}
	if err := s.store.CreatePlayers(ctx, tx, players); err != nil {
		return nil, fmt.Errorf("failed to create players: %w", err)
	}

	return tournament, tx.Commit()
}

// SetStatus moves a tournament forward to its next status.
func (s *TournamentService) SetStatus(ctx context.Context, slug string, status bracket.TournamentStatus) error {
	tournament, err := s.store.GetTournament(ctx, slug)
	if err != nil {
		return err
	}
	if !tournament.Status.CanBecome(status) {
		return &bracket.ValidationError{Field: "status", Message: fmt.Sprintf("cannot move from %s to %s", tournament.Status, status)}
	}
	return s.store.UpdateTournamentStatus(ctx, slug, status)
}

// CreateRound creates a round with one membership per listed team.
func (s *TournamentService) CreateRound(ctx context.Context, in RoundInput) (*bracket.Round, error) {
	if in.Structure == "" {
		in.Structure = bracket.GroupRound
	}
	if in.Structure != bracket.GroupRound && in.Structure != bracket.EliminationRound {
		return nil, &bracket.ValidationError{Field: "structure", Message: fmt.Sprintf("unknown round structure %q", in.Structure)}
	}
	if strings.TrimSpace(in.StageName) == "" {
		return nil, &bracket.ValidationError{Field: "stage_name", Message: "stage name is required"}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.store.GetTournamentTx(ctx, tx, in.TournamentSlug); err != nil {
		return nil, err
	}

	round := &bracket.Round{
		ID:             uuid.New(),
		TournamentSlug: in.TournamentSlug,
		Order:          in.Order,
		StageOrder:     in.StageOrder,
		StageName:      strings.TrimSpace(in.StageName),
		Structure:      in.Structure,
		Published:      in.Published,
	}
	if err := s.store.CreateRound(ctx, tx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(in.TeamIDs))
	memberships := make([]bracket.Membership, 0, len(in.TeamIDs))
	for _, teamID := range in.TeamIDs {
		if seen[teamID] {
			return nil, &bracket.ValidationError{Field: "team_ids", Message: fmt.Sprintf("team %s listed twice", teamID)}
		}
		seen[teamID] = true

		team, err := s.store.GetTeamTx(ctx, tx, teamID)
		if err != nil && !errors.Is(err, bracket.ErrNotFound) {
			return nil, fmt.Errorf("failed to get team: %w", err)
		}
		if err != nil || team.TournamentSlug != in.TournamentSlug {
			return nil, &bracket.ValidationError{Field: "team_ids", Message: fmt.Sprintf("team %s is not part of the tournament", teamID)}
		}
		memberships = append(memberships, bracket.Membership{ID: uuid.New(), RoundID: round.ID, TeamID: teamID})
	}
	if err := s.store.CreateMemberships(ctx, tx, memberships); err != nil {
		return nil, fmt.Errorf("failed to create memberships: %w", err)
	}

	return round, tx.Commit()
}

// SetRoundPublished shows or hides a round. Only published rounds count
// towards a team's aggregate record, so every member team is recomputed.
func (s *TournamentService) SetRoundPublished(ctx context.Context, roundID uuid.UUID, published bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.SetRoundPublished(ctx, tx, roundID, published); err != nil {
		return err
	}

	memberships, err := s.store.GetMembershipsTx(ctx, tx, roundID)
	if err != nil {
		return fmt.Errorf("failed to get memberships: %w", err)
	}
	for _, m := range memberships {
		if err := s.standings.RecomputeTeam(ctx, tx, m.TeamID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
