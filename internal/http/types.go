package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/processor"
	"github.com/mauv0809/ripple-snapshot/internal/public"
)

type Server struct {
	Reader         public.Reader
	Refresher      processor.Refresher
	MetricsHandler http.Handler
	InngestHandler http.Handler
	Cfg            config.Config
	Router         chi.Router
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Detail string `json:"detail"`
}
