package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/AdamBeresnev/league-standings/internal/bracket"
	"github.com/AdamBeresnev/league-standings/internal/httputil"
	"github.com/AdamBeresnev/league-standings/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Request bodies larger than this are rejected.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid %s", name), err)
		return uuid.Nil, false
	}
	return id, true
}

func orderParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	order, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil {
		httputil.BadRequest(w, "Invalid game order", err)
		return 0, false
	}
	return order, true
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	data, err := app.tournaments.GetTournamentData(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.Error(w, "Tournament not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var in service.TournamentInput
	if !decode(w, r, &in) {
		return
	}
	tournament, err := app.tournaments.CreateTournament(r.Context(), in)
	if err != nil {
		httputil.Error(w, "Failed to create tournament", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, tournament)
}

func (app *application) setTournamentStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status bracket.TournamentStatus `json:"status"`
	}
	if !decode(w, r, &in) {
		return
	}
	if err := app.tournaments.SetStatus(r.Context(), chi.URLParam(r, "slug"), in.Status); err != nil {
		httputil.Error(w, "Tournament not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) createRound(w http.ResponseWriter, r *http.Request) {
	var in service.RoundInput
	if !decode(w, r, &in) {
		return
	}
	round, err := app.tournaments.CreateRound(r.Context(), in)
	if err != nil {
		httputil.Error(w, "Failed to create round", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, round)
}

type publishRequest struct {
	Published bool `json:"published"`
}

func (app *application) publishRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in publishRequest
	if !decode(w, r, &in) {
		return
	}
	if err := app.tournaments.SetRoundPublished(r.Context(), roundID, in.Published); err != nil {
		httputil.Error(w, "Round not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) recomputeRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := app.standings.RecomputeRound(r.Context(), roundID); err != nil {
		httputil.Error(w, "Round not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) getBracket(w http.ResponseWriter, r *http.Request) {
	roundID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	rows, err := app.brackets.Collect(r.Context(), roundID)
	if err != nil {
		httputil.Error(w, "Round not found", err)
		return
	}
	if rows == nil {
		rows = []bracket.Row{}
	}
	httputil.JSON(w, http.StatusOK, rows)
}

func (app *application) getStandings(w http.ResponseWriter, r *http.Request) {
	roundID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	round, ranked, err := app.standings.RankedParticipants(r.Context(), roundID)
	if err != nil {
		httputil.Error(w, "Round not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"round":     round,
		"name":      round.String(),
		"standings": ranked,
	})
}

func (app *application) getMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	data, err := app.matches.GetMatchData(r.Context(), matchID)
	if err != nil {
		httputil.Error(w, "Match not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

func (app *application) createMatch(w http.ResponseWriter, r *http.Request) {
	var in service.MatchInput
	if !decode(w, r, &in) {
		return
	}
	match, err := app.matches.CreateMatch(r.Context(), in)
	if err != nil {
		httputil.Error(w, "Failed to create match", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, match)
}

type gameRequest struct {
	Order          int        `json:"order"`
	Map            string     `json:"map"`
	HomePlayerID   *uuid.UUID `json:"home_player_id"`
	AwayPlayerID   *uuid.UUID `json:"away_player_id"`
	WinnerPlayerID *uuid.UUID `json:"winner_player_id"`
	WinnerTeamID   *uuid.UUID `json:"winner_team_id"`
	Forfeit        bool       `json:"forfeit"`
	IsAce          bool       `json:"is_ace"`
	VOD            string     `json:"vod"`
}

func (g gameRequest) outcome() (bracket.Outcome, error) {
	switch {
	case g.WinnerPlayerID != nil && g.WinnerTeamID != nil:
		return nil, fmt.Errorf("only one of winner_player_id and winner_team_id may be set")
	case g.WinnerPlayerID != nil:
		return bracket.IndividualOutcome{WinnerPlayerID: *g.WinnerPlayerID}, nil
	case g.WinnerTeamID != nil:
		return bracket.TeamOutcome{WinnerTeamID: *g.WinnerTeamID}, nil
	}
	return nil, nil
}

func (app *application) reportGame(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in gameRequest
	if !decode(w, r, &in) {
		return
	}
	outcome, err := in.outcome()
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	// The map must be part of the tournament's pool
	match, err := app.tournamentStore.GetMatch(r.Context(), matchID)
	if err != nil {
		httputil.Error(w, "Match not found", err)
		return
	}
	pool, err := app.tournamentStore.GetMapPool(r.Context(), match.TournamentSlug)
	if err != nil {
		httputil.InternalServerError(w, "Failed to get map pool", err)
		return
	}
	if !slices.Contains(pool, in.Map) {
		httputil.BadRequest(w, fmt.Sprintf("Map %q is not in the tournament's map pool", in.Map), nil)
		return
	}

	match, err = app.matches.ReportGame(r.Context(), matchID, service.GameInput{
		Order:        in.Order,
		MapName:      in.Map,
		HomePlayerID: in.HomePlayerID,
		AwayPlayerID: in.AwayPlayerID,
		Outcome:      outcome,
		Forfeit:      in.Forfeit,
		IsAce:        in.IsAce,
		VOD:          in.VOD,
	})
	if err != nil {
		httputil.Error(w, "Failed to report game", err)
		return
	}
	httputil.JSON(w, http.StatusOK, match)
}

func (app *application) retractGame(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	order, ok := orderParam(w, r)
	if !ok {
		return
	}
	match, err := app.matches.RetractGame(r.Context(), matchID, order)
	if err != nil {
		httputil.Error(w, "Game not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, match)
}

func (app *application) deleteGame(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	order, ok := orderParam(w, r)
	if !ok {
		return
	}
	match, err := app.matches.DeleteGame(r.Context(), matchID, order)
	if err != nil {
		httputil.Error(w, "Game not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, match)
}

func (app *application) publishMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in publishRequest
	if !decode(w, r, &in) {
		return
	}
	match, err := app.matches.SetPublished(r.Context(), matchID, in.Published)
	if err != nil {
		httputil.Error(w, "Match not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, match)
}

func (app *application) setWinner(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		WinnerID *uuid.UUID `json:"winner_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	match, err := app.matches.SetWinner(r.Context(), matchID, in.WinnerID)
	if err != nil {
		httputil.Error(w, "Match not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, match)
}

func (app *application) trimMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	trimmed, err := app.matches.RemoveExtraVictories(r.Context(), matchID)
	if err != nil {
		httputil.Error(w, "Match not found", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int{"trimmed": trimmed})
}

func (app *application) deleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := app.matches.DeleteMatch(r.Context(), matchID); err != nil {
		httputil.Error(w, "Match not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) deleteMatches(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if !decode(w, r, &in) {
		return
	}
	deleted, err := app.matches.DeleteMatches(r.Context(), in.IDs)
	if err != nil {
		httputil.Error(w, "Failed to delete matches", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
