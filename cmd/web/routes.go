package main

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/league-standings/internal/httputil"
	"github.com/AdamBeresnev/league-standings/internal/middleware"
	"github.com/AdamBeresnev/league-standings/internal/notify"
	"github.com/AdamBeresnev/league-standings/internal/service"
	"github.com/AdamBeresnev/league-standings/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
)

type application struct {
	tournamentStore *store.TournamentStore
	userStore       *store.UserStore

	tournaments *service.TournamentService
	matches     *service.MatchService
	standings   *service.StandingsService
	brackets    *service.BracketService
	users       *service.UserService
}

func newApplication(database *sqlx.DB) *application {
	tournamentStore := store.NewTournamentStore(database)
	userStore := store.NewUserStore(database)
	standings := service.NewStandingsService(database, tournamentStore)

	return &application{
		tournamentStore: tournamentStore,
		userStore:       userStore,
		tournaments:     service.NewTournamentService(database, tournamentStore, standings),
		matches:         service.NewMatchService(database, tournamentStore, standings, notify.NewLogNotifier(nil)),
		standings:       standings,
		brackets:        service.NewBracketService(database, tournamentStore),
		users:           service.NewUserService(userStore),
	}
}

func (app *application) routes(sessionManager *scs.SessionManager, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(sessionManager.LoadAndSave)

	r.Get("/tournaments/{slug}", app.getTournament)
	r.Get("/rounds/{id}/bracket", app.getBracket)
	r.Get("/rounds/{id}/standings", app.getStandings)
	r.Get("/matches/{id}", app.getMatch)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager, app.userStore))

		r.Post("/tournaments", app.createTournament)
		r.Post("/tournaments/{slug}/status", app.setTournamentStatus)
		r.Post("/rounds", app.createRound)
		r.Post("/rounds/{id}/publish", app.publishRound)
		r.Post("/rounds/{id}/recompute", app.recomputeRound)

		r.Post("/matches", app.createMatch)
		r.Post("/matches/delete", app.deleteMatches)
		r.Delete("/matches/{id}", app.deleteMatch)
		r.Post("/matches/{id}/games", app.reportGame)
		r.Delete("/matches/{id}/games/{order}", app.deleteGame)
		r.Post("/matches/{id}/games/{order}/retract", app.retractGame)
		r.Post("/matches/{id}/publish", app.publishMatch)
		r.Post("/matches/{id}/winner", app.setWinner)
		r.Post("/matches/{id}/trim", app.trimMatch)
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := app.users.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		if err := sessionManager.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
		httputil.JSON(w, http.StatusOK, user)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := app.users.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}

		if err := sessionManager.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
		httputil.JSON(w, http.StatusOK, user)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to logout", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
