package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/middleware"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMatch(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue", "Green")
	ctx := context.Background()

	match := env.newMatch(t, round, teams["Red"], teams["Blue"])
	assert.Equal(t, bracket.TeamStructure, match.Structure)
	assert.NotNil(t, match.PublishDate)
	assert.Nil(t, match.WinnerID)

	require.Len(t, env.notifier.events, 1)
	event := env.notifier.events[0]
	assert.True(t, strings.HasPrefix(event.MatchDescription, "Spring Cup Red vs Blue "), event.MatchDescription)
	assert.Equal(t, teams["Red"].ID, event.HomeTeamID)
	assert.Equal(t, teams["Blue"].ID, event.AwayTeamID)

	t.Run("same team twice", func(t *testing.T) {
		_, err := env.matches.CreateMatch(ctx, MatchInput{RoundID: round.ID, HomeTeamID: teams["Red"].ID, AwayTeamID: teams["Red"].ID})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("team outside the round", func(t *testing.T) {
		_, err := env.matches.CreateMatch(ctx, MatchInput{RoundID: round.ID, HomeTeamID: teams["Red"].ID, AwayTeamID: uuid.New()})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("unknown round", func(t *testing.T) {
		_, err := env.matches.CreateMatch(ctx, MatchInput{RoundID: uuid.New(), HomeTeamID: teams["Red"].ID, AwayTeamID: teams["Blue"].ID})
		assert.ErrorIs(t, err, bracket.ErrNotFound)
	})

	assert.Len(t, env.notifier.events, 1, "failed creations send nothing")
}

func TestReportGame_DecidesOnMajority(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]

	match := env.newMatch(t, round, red, blue)

	match = env.play(t, match, red, blue)
	assert.Nil(t, match.WinnerID, "1-1 after two games")

	match = env.play(t, match, red, blue, red)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, red.ID, *match.WinnerID)
	require.NotNil(t, match.LoserID)
	assert.Equal(t, blue.ID, *match.LoserID)

	home := env.membership(t, round, red)
	assert.Equal(t, 1, home.Wins)
	assert.Equal(t, 0, home.Losses)
	assert.Equal(t, 1, home.Tiebreaker)

	away := env.membership(t, round, blue)
	assert.Equal(t, 0, away.Wins)
	assert.Equal(t, 1, away.Losses)
	assert.Equal(t, -1, away.Tiebreaker)

	team, err := env.store.GetTeam(context.Background(), red.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, team.Wins)
	assert.Equal(t, 1, team.Tiebreaker)
}

func TestReportGame_Outcomes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.CreateTournament(ctx, TournamentInput{
		Name:      "Solo Open",
		Structure: bracket.IndividualStructure,
		MapPool:   []string{"Dust"},
		Teams: []TeamInput{
			{Name: "Red", Players: []string{"ash"}},
			{Name: "Blue", Players: []string{"zed"}},
		},
	})
	require.NoError(t, err)
	teams, err := env.store.GetTeams(ctx, tournament.Slug)
	require.NoError(t, err)
	red, blue := teams[0], teams[1]

	round, err := env.tournaments.CreateRound(ctx, RoundInput{
		TournamentSlug: tournament.Slug, Order: 1, StageOrder: 1, StageName: "Main",
		Published: true, TeamIDs: []uuid.UUID{red.ID, blue.ID},
	})
	require.NoError(t, err)
	match := env.newMatch(t, round, red, blue)
	assert.Equal(t, bracket.IndividualStructure, match.Structure)

	redPlayers, err := env.store.GetPlayers(ctx, red.ID)
	require.NoError(t, err)
	bluePlayers, err := env.store.GetPlayers(ctx, blue.ID)
	require.NoError(t, err)
	ash, zed := redPlayers[0].ID, bluePlayers[0].ID

	t.Run("winning player decides the team", func(t *testing.T) {
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 1, MapName: "Dust", HomePlayerID: &ash, AwayPlayerID: &zed,
			Outcome: bracket.IndividualOutcome{WinnerPlayerID: zed},
			VOD:     "https://youtu.be/abc123",
		})
		require.NoError(t, err)

		games, err := env.store.GetGames(ctx, match.ID)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, blue.ID, *games[0].WinnerTeamID)
		assert.Equal(t, red.ID, *games[0].LoserTeamID)
		assert.Equal(t, ash, *games[0].LoserPlayerID)
		assert.Equal(t, "https://www.youtube.com/embed/abc123", games[0].VOD)
	})

	t.Run("player outside the game", func(t *testing.T) {
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 2, MapName: "Dust", HomePlayerID: &ash, AwayPlayerID: &zed,
			Outcome: bracket.IndividualOutcome{WinnerPlayerID: uuid.New()},
		})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("home seat taken by an away player", func(t *testing.T) {
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 2, MapName: "Dust", HomePlayerID: &zed, AwayPlayerID: &ash,
			Outcome: bracket.IndividualOutcome{WinnerPlayerID: zed},
		})
		var verr *bracket.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "home_player", verr.Field)
	})

	t.Run("player from another tournament", func(t *testing.T) {
		other, err := env.tournaments.CreateTournament(ctx, TournamentInput{
			Name:      "Autumn Open",
			Structure: bracket.IndividualStructure,
			Teams:     []TeamInput{{Name: "Gold", Players: []string{"kai"}}},
		})
		require.NoError(t, err)
		otherTeams, err := env.store.GetTeams(ctx, other.Slug)
		require.NoError(t, err)
		otherPlayers, err := env.store.GetPlayers(ctx, otherTeams[0].ID)
		require.NoError(t, err)
		kai := otherPlayers[0].ID

		_, err = env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 2, MapName: "Dust", HomePlayerID: &ash, AwayPlayerID: &kai,
			Outcome: bracket.IndividualOutcome{WinnerPlayerID: kai},
		})
		var verr *bracket.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "away_player", verr.Field)
	})

	t.Run("unknown player", func(t *testing.T) {
		ghost := uuid.New()
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 2, MapName: "Dust", HomePlayerID: &ghost, AwayPlayerID: &zed,
		})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("same player on both sides", func(t *testing.T) {
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 2, MapName: "Dust", HomePlayerID: &ash, AwayPlayerID: &ash,
			Outcome: bracket.IndividualOutcome{WinnerPlayerID: ash},
		})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("team outcome on an individual match", func(t *testing.T) {
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{
			Order: 2, MapName: "Dust", Outcome: bracket.TeamOutcome{WinnerTeamID: red.ID},
		})
		assert.True(t, bracket.IsValidation(err))
	})

	t.Run("order below one", func(t *testing.T) {
		_, err := env.matches.ReportGame(ctx, match.ID, GameInput{Order: 0, MapName: "Dust"})
		assert.True(t, bracket.IsValidation(err))
	})

	games, err := env.store.GetGames(ctx, match.ID)
	require.NoError(t, err)
	assert.Len(t, games, 1, "rejected reports write nothing")

	data, err := env.matches.GetMatchData(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, data.Match.WinnerID)
	assert.Equal(t, blue.ID, *data.Match.WinnerID, "rejected reports leave the winner alone")
}

func TestReportGame_SetsReferee(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	match := env.newMatch(t, round, teams["Red"], teams["Blue"])

	userService := NewUserService(store.NewUserStore(env.db))
	guest, err := userService.EnsureGuestUser(context.Background())
	require.NoError(t, err)
	ctx := middleware.WithUser(context.Background(), guest)

	match, err = env.matches.ReportGame(ctx, match.ID, GameInput{Order: 1, MapName: "Dust", Outcome: bracket.TeamOutcome{WinnerTeamID: teams["Red"].ID}})
	require.NoError(t, err)
	require.NotNil(t, match.RefereeID)
	assert.Equal(t, guest.ID, *match.RefereeID)
}

func TestRemoveExtraVictories(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match := env.newMatch(t, round, red, blue)
	match = env.play(t, match, red, red, red)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, red.ID, *match.WinnerID, "decided after the third game")

	match = env.play(t, match, red, red, red, blue, blue)
	assert.Equal(t, 1, env.membership(t, round, red).Tiebreaker, "3-2 before trimming")

	trimmed, err := env.matches.RemoveExtraVictories(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, trimmed)

	games, err := env.store.GetGames(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, games, 5)
	for _, g := range games[:3] {
		assert.True(t, g.HasWinner(), "game %d", g.Order)
	}
	for _, g := range games[3:] {
		assert.False(t, g.HasWinner(), "game %d", g.Order)
		assert.Nil(t, g.LoserTeamID)
	}

	match, err = env.store.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, red.ID, *match.WinnerID)
	assert.Equal(t, 3, env.membership(t, round, red).Tiebreaker)
	assert.Equal(t, -3, env.membership(t, round, blue).Tiebreaker)

	trimmed, err = env.matches.RemoveExtraVictories(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, trimmed, "trimming twice changes nothing")
}

func TestRetractGame(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match := env.newMatch(t, round, red, blue)
	match = env.play(t, match, red, red)
	require.NotNil(t, match.WinnerID)
	require.Equal(t, 1, env.membership(t, round, red).Wins)

	match, err := env.matches.RetractGame(ctx, match.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, match.WinnerID, "one win of two games is no majority")
	assert.Nil(t, match.LoserID)

	rec := env.membership(t, round, red)
	assert.Equal(t, 0, rec.Wins)
	assert.Equal(t, 1, rec.Tiebreaker)
	assert.Equal(t, 0, env.membership(t, round, blue).Losses)

	_, err = env.matches.RetractGame(ctx, match.ID, 9)
	assert.ErrorIs(t, err, bracket.ErrNotFound)
}

func TestDeleteGame(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match := env.newMatch(t, round, red, blue)
	match = env.play(t, match, red, blue, blue)
	require.Equal(t, blue.ID, *match.WinnerID)

	// Removing a game changes the total the majority is measured against
	match, err := env.matches.DeleteGame(ctx, match.ID, 3)
	require.NoError(t, err)
	assert.Nil(t, match.WinnerID)

	match, err = env.matches.DeleteGame(ctx, match.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, blue.ID, *match.WinnerID)
	assert.Equal(t, 1, env.membership(t, round, blue).Wins)

	_, err = env.matches.DeleteGame(ctx, match.ID, 1)
	assert.ErrorIs(t, err, bracket.ErrNotFound)
}

func TestSetPublished(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match, err := env.matches.CreateMatch(ctx, MatchInput{RoundID: round.ID, HomeTeamID: red.ID, AwayTeamID: blue.ID})
	require.NoError(t, err)
	assert.Nil(t, match.PublishDate)

	match = env.play(t, match, red)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 0, env.membership(t, round, red).Wins, "hidden matches do not count")

	match, err = env.matches.SetPublished(ctx, match.ID, true)
	require.NoError(t, err)
	require.NotNil(t, match.PublishDate)
	published := *match.PublishDate
	assert.Equal(t, 1, env.membership(t, round, red).Wins)

	match, err = env.matches.SetPublished(ctx, match.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, env.membership(t, round, red).Wins)

	match, err = env.matches.SetPublished(ctx, match.ID, true)
	require.NoError(t, err)
	assert.True(t, published.Equal(*match.PublishDate), "publish date is kept from the first publish")
}

func TestSetWinner(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue", "Green")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	green := teams["Green"]
	match := env.newMatch(t, round, red, blue)

	_, err := env.matches.SetWinner(ctx, match.ID, &green.ID)
	assert.True(t, bracket.IsValidation(err))

	match, err = env.matches.SetWinner(ctx, match.ID, &blue.ID)
	require.NoError(t, err)
	assert.Equal(t, red.ID, *match.LoserID)
	assert.Equal(t, 1, env.membership(t, round, blue).Wins)
	assert.Equal(t, 1, env.membership(t, round, red).Losses)

	match, err = env.matches.SetWinner(ctx, match.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, match.LoserID)
	assert.Equal(t, 0, env.membership(t, round, blue).Wins)
}

func TestSetPublished_KeepsManualWinner(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match, err := env.matches.CreateMatch(ctx, MatchInput{RoundID: round.ID, HomeTeamID: red.ID, AwayTeamID: blue.ID})
	require.NoError(t, err)

	// A forfeit: the winner is set without any game behind it.
	_, err = env.matches.SetWinner(ctx, match.ID, &red.ID)
	require.NoError(t, err)

	match, err = env.matches.SetPublished(ctx, match.ID, true)
	require.NoError(t, err)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, red.ID, *match.WinnerID)
	assert.Equal(t, blue.ID, *match.LoserID)
	assert.Equal(t, 1, env.membership(t, round, red).Wins)
	assert.Equal(t, 1, env.membership(t, round, blue).Losses)

	// The next game write re-decides from the games.
	match = env.play(t, match, blue)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, blue.ID, *match.WinnerID)
	assert.Equal(t, 0, env.membership(t, round, red).Wins)
}

func TestDeleteMatch(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match := env.play(t, env.newMatch(t, round, red, blue), red)
	require.Equal(t, 1, env.membership(t, round, red).Wins)

	require.NoError(t, env.matches.DeleteMatch(ctx, match.ID))
	assert.Equal(t, 0, env.membership(t, round, red).Wins)
	assert.Equal(t, 0, env.membership(t, round, red).Tiebreaker)
	assert.Equal(t, 0, env.membership(t, round, blue).Losses)

	team, err := env.store.GetTeam(ctx, red.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, team.Wins)

	assert.ErrorIs(t, env.matches.DeleteMatch(ctx, match.ID), bracket.ErrNotFound)
}

func TestDeleteMatches(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue", "Green")
	red, blue, green := teams["Red"], teams["Blue"], teams["Green"]
	ctx := context.Background()

	first := env.play(t, env.newMatch(t, round, red, blue), red)
	second := env.play(t, env.newMatch(t, round, red, green), red)
	kept := env.play(t, env.newMatch(t, round, blue, green), blue)
	require.Equal(t, 2, env.membership(t, round, red).Wins)

	deleted, err := env.matches.DeleteMatches(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	assert.Equal(t, 0, env.membership(t, round, red).Wins)
	assert.Equal(t, 1, env.membership(t, round, green).Losses, "green keeps the loss of the match left")
	assert.Equal(t, 1, env.membership(t, round, blue).Wins)
	assert.Equal(t, 0, env.membership(t, round, blue).Losses)

	_, err = env.store.GetMatch(ctx, kept.ID)
	assert.NoError(t, err)
}

func TestReportGame_ConcurrentWritesSerialize(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	red, blue := teams["Red"], teams["Blue"]
	ctx := context.Background()

	match := env.newMatch(t, round, red, blue)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for order := 1; order <= 5; order++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.matches.ReportGame(ctx, match.ID, GameInput{Order: order, MapName: "Dust", Outcome: bracket.TeamOutcome{WinnerTeamID: red.ID}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	match, err := env.store.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, red.ID, *match.WinnerID)
	assert.Equal(t, 5, env.membership(t, round, red).Tiebreaker)
	assert.Equal(t, -5, env.membership(t, round, blue).Tiebreaker)
}

func TestGetMatchData(t *testing.T) {
	env := newTestEnv(t)
	teams, round := env.seedTournament(t, bracket.GroupRound, "Red", "Blue")
	ctx := context.Background()

	match := env.newMatch(t, round, teams["Red"], teams["Blue"])
	_, err := env.matches.ReportGame(ctx, match.ID, GameInput{Order: 1, MapName: "Dust"})
	require.NoError(t, err)
	_, err = env.matches.ReportGame(ctx, match.ID, GameInput{
		Order: 2, MapName: "Dust", VOD: "https://example.com/replay",
		Outcome: bracket.TeamOutcome{WinnerTeamID: teams["Blue"].ID},
	})
	require.NoError(t, err)

	data, err := env.matches.GetMatchData(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red", data.Home.Name)
	assert.Equal(t, "Blue", data.Away.Name)
	assert.Len(t, data.Games, 2)
	assert.Equal(t, 1, data.GamesPlayed)
	assert.Equal(t, "https://example.com/replay", data.FirstVOD)
	assert.True(t, strings.HasPrefix(data.Title, "Spring Cup Red vs Blue "))

	_, err = env.matches.GetMatchData(ctx, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)
}
