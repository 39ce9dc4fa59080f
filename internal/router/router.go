package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tigerfox1974/StudyBuddy/internal/handlers"
	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/websocket"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Documents *handlers.DocumentHandler
	Tokens    *handlers.TokenHandler
	Export    *handlers.ExportHandler
}

type Options struct {
	FrontendURL string
	AllowSignup bool
	// AuthLimiter guards the public auth routes. The caller owns Stop.
	AuthLimiter *middleware.RateLimiter
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.FrontendURL))

	authLimiter := opts.AuthLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(10, time.Minute)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			if opts.AllowSignup {
				r.Post("/register", h.Auth.Register)
			}
			r.Post("/login", h.Auth.Login)
		})

		// ──── Authenticated Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", h.Documents.Upload)
				r.Get("/", h.Documents.History)
			})

			r.Get("/tokens", h.Tokens.Info)
			r.Get("/export/check", h.Tokens.ExportCheck)
			r.Get("/results/{id}/export", h.Export.Download)
		})

		// ──── WebSocket ────
		if wsHub != nil {
			r.Get("/ws", wsHub.HandleWebSocket)
		}
	})

	return r
}
