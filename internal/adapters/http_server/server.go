package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server is the directory API router.
type Server struct{ mux *chi.Mux }

func New(l zerolog.Logger, timeout time.Duration) *Server {
	m := chi.NewRouter()

	m.Use(chimw.RealIP, chimw.RequestID, chimw.Recoverer, chimw.StripSlashes)
	if timeout > 0 {
		m.Use(Timeout(timeout))
	}
	m.Use(Metrics, Logger(l))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})
	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
