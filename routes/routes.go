package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campuscup/bracket-system/handlers"
	"github.com/campuscup/bracket-system/middleware"
	"github.com/campuscup/bracket-system/models"
)

type Handlers struct {
	Tournaments *handlers.TournamentHandler
	Matches     *handlers.MatchHandler
	Leaderboard *handlers.LeaderboardHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticator(jwtSecret)
	manage := middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer)
	score := middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer, models.RoleScorekeeper)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentID}", h.Tournaments.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(manage)

			r.Post("/", h.Tournaments.Create)
			r.Put("/{tournamentID}/teams", h.Tournaments.SetTeams)
			r.Post("/{tournamentID}/bracket", h.Tournaments.GenerateBracket)
			r.Post("/{tournamentID}/cancel", h.Tournaments.Cancel)
			r.Delete("/{tournamentID}", h.Tournaments.Delete)
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/events", h.Matches.ListEvents)
		r.Get("/stream", h.WebSocket.ServeMatchStream)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(score)

			r.Post("/events", h.Matches.RecordEvent)
			r.Post("/winner", h.Matches.DeclareWinner)
			r.Post("/events/revert", h.Matches.RevertLastEvent)
		})
	})

	router.Route("/leaderboards", func(r chi.Router) {
		r.Get("/", h.Leaderboard.Standings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(manage)

			r.Post("/recompute", h.Leaderboard.Recompute)
		})
	})

	return router
}
