package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/BartekS5/reviewflow/internal/metrics"
)

type Server struct{ mux *chi.Mux }

type Options struct {
	Timeout time.Duration
	// RPS and Burst bound request throughput; zero RPS disables limiting.
	RPS   float64
	Burst int
}

func New(log zerolog.Logger, m *metrics.Metrics, opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(Timeout(opts.Timeout))
	if opts.RPS > 0 {
		r.Use(RateLimit(opts.RPS, opts.Burst))
	}
	r.Use(Metrics(m))
	r.Use(Logger(log))

	return &Server{mux: r}
}

func (s *Server) Handler() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
