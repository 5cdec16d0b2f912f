package service

import (
	"context"
	"sync"
	"testing"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/db"
	"github.com/AdamBeresnev/league-standings/internal/notify"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(db.SQLite, "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	require.NoError(t, db.RunMigrations(database, "../../migrations"), "Failed to apply migrations")

	return database
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.MatchCreatedEvent
}

func (n *recordingNotifier) MatchCreated(_ context.Context, event notify.MatchCreatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type testEnv struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	standings   *StandingsService
	tournaments *TournamentService
	matches     *MatchService
	brackets    *BracketService
	notifier    *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := setupTestDB(t)
	t.Cleanup(func() { database.Close() })

	tournamentStore := store.NewTournamentStore(database)
	standings := NewStandingsService(database, tournamentStore)
	notifier := &recordingNotifier{}

	return &testEnv{
		db:          database,
		store:       tournamentStore,
		standings:   standings,
		tournaments: NewTournamentService(database, tournamentStore, standings),
		matches:     NewMatchService(database, tournamentStore, standings, notifier),
		brackets:    NewBracketService(database, tournamentStore),
		notifier:    notifier,
	}
}

// seedTournament creates a team tournament with the named teams seeded in
// order and one published round every team plays in.
func (e *testEnv) seedTournament(t *testing.T, structure bracket.RoundStructure, names ...string) (map[string]bracket.Team, *bracket.Round) {
	t.Helper()
	ctx := context.Background()

	in := TournamentInput{
		Name:          "Spring Cup",
		Structure:     bracket.TeamStructure,
		GamesPerMatch: 5,
		MapPool:       []string{"Dust"},
	}
	for _, name := range names {
		in.Teams = append(in.Teams, TeamInput{Name: name})
	}
	tournament, err := e.tournaments.CreateTournament(ctx, in)
	require.NoError(t, err)

	teams, err := e.store.GetTeams(ctx, tournament.Slug)
	require.NoError(t, err)

	byName := make(map[string]bracket.Team, len(teams))
	var ids []uuid.UUID
	for _, team := range teams {
		byName[team.Name] = team
		ids = append(ids, team.ID)
	}

	round, err := e.tournaments.CreateRound(ctx, RoundInput{
		TournamentSlug: tournament.Slug,
		Order:          1,
		StageOrder:     1,
		StageName:      "Main",
		Structure:      structure,
		Published:      true,
		TeamIDs:        ids,
	})
	require.NoError(t, err)

	return byName, round
}

func (e *testEnv) newMatch(t *testing.T, round *bracket.Round, home, away bracket.Team) *bracket.Match {
	t.Helper()
	m, err := e.matches.CreateMatch(context.Background(), MatchInput{
		RoundID:    round.ID,
		HomeTeamID: home.ID,
		AwayTeamID: away.ID,
		Published:  true,
	})
	require.NoError(t, err)
	return m
}

// play reports one game per winner, in order starting at 1.
func (e *testEnv) play(t *testing.T, m *bracket.Match, winners ...bracket.Team) *bracket.Match {
	t.Helper()
	for i, winner := range winners {
		var err error
		m, err = e.matches.ReportGame(context.Background(), m.ID, GameInput{
			Order:   i + 1,
			MapName: "Dust",
			Outcome: bracket.TeamOutcome{WinnerTeamID: winner.ID},
		})
		require.NoError(t, err)
	}
	return m
}

func (e *testEnv) membership(t *testing.T, round *bracket.Round, team bracket.Team) *bracket.Membership {
	t.Helper()
	m, err := e.store.GetMembership(context.Background(), round.ID, team.ID)
	require.NoError(t, err)
	return m
}
