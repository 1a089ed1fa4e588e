package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/processor"
	"github.com/mauv0809/ripple-snapshot/internal/public"
)

// NewServer wires the HTTP surface. inngestHandler may be nil when the
// Inngest integration is not configured.
func NewServer(reader public.Reader, refresher processor.Refresher, metricsHandler http.Handler, inngestHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Reader:         reader,
		Refresher:      refresher,
		MetricsHandler: metricsHandler,
		InngestHandler: inngestHandler,
		Cfg:            cfg,
		Router:         chi.NewRouter(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	s.Router.Use(middleware.Recoverer)
	s.Router.Handle("/metrics", s.MetricsHandler)

	s.Router.Group(func(r chi.Router) {
		r.Use(paramsMiddleware)
		r.Get("/health", s.HealthCheckHandler())
		r.Post("/ripple/refresh", s.RefreshHandler())

		r.Route("/api/ripple/public", func(r chi.Router) {
			r.Get("/leaderboard", s.PublicLeaderboardHandler())
			r.Get("/leaderboard/danger", s.PublicDangerHandler())
			r.Get("/metadata", s.PublicMetadataHandler())
		})
	})

	if s.InngestHandler != nil {
		s.Router.Handle("/api/inngest", s.InngestHandler)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
