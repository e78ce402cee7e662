package server

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/libresonic/playersettings/internal/auth"
	"github.com/libresonic/playersettings/internal/database"
	"github.com/libresonic/playersettings/internal/events"
	"github.com/libresonic/playersettings/internal/flash"
	"github.com/libresonic/playersettings/internal/player"
	"github.com/libresonic/playersettings/internal/ratelimit"
	"github.com/libresonic/playersettings/internal/settings"
	"github.com/libresonic/playersettings/internal/transcoding"
	"github.com/libresonic/playersettings/internal/user"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB                database.DBTX
	Pinger            Pinger
	JWTSecret         string
	SessionSecret     string
	BaseURL           string
	SecureCookies     bool
	TranscodeDir      string
	DownsampleCommand string
	Locator           player.Locator
	Publisher         events.Publisher
}

type Server struct {
	router          chi.Router
	pinger          Pinger
	authHandler     *auth.Handler
	settingsHandler *settings.Handler
	limiters        []*ratelimit.Limiter
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	s := &Server{router: r, pinger: cfg.Pinger}

	if cfg.DB != nil {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}
		sessionSecret := cfg.SessionSecret
		if sessionSecret == "" {
			sessionSecret = cfg.JWTSecret
		}
		s.authHandler = auth.NewHandler(cfg.DB, cfg.JWTSecret, cfg.SecureCookies)

		players := player.NewService(cfg.DB)
		if cfg.Locator != nil {
			players.SetLocator(cfg.Locator)
		}
		transcodings := transcoding.NewService(cfg.DB, cfg.TranscodeDir, cfg.DownsampleCommand)

		s.settingsHandler = settings.NewHandler(players, user.NewService(cfg.DB), transcodings)
		s.settingsHandler.SetFlashStore(flash.NewStore(sessionSecret, cfg.SecureCookies))
		if cfg.Publisher != nil {
			s.settingsHandler.SetPublisher(cfg.Publisher)
		}
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the background work of the rate limiters.
func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

func (s *Server) newLimiter(rate float64, burst int) *ratelimit.Limiter {
	l := ratelimit.NewLimiter(rate, burst)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.authHandler != nil {
		authLimiter := s.newLimiter(0.5, 5)
		s.router.Get("/login", s.authHandler.LoginPage)
		s.router.Route("/api/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/login", s.authHandler.Login)
			r.Post("/refresh", s.authHandler.Refresh)
			r.Post("/logout", s.authHandler.Logout)
		})
	}

	if s.settingsHandler != nil {
		s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/playerSettings", http.StatusFound)
		})
		s.router.Group(func(r chi.Router) {
			r.Use(s.authHandler.PageMiddleware)
			r.Get("/playerSettings", s.settingsHandler.Display)
			r.Post("/playerSettings", s.settingsHandler.Submit)
		})

		apiLimiter := s.newLimiter(5, 20)
		s.router.Group(func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.Use(s.authHandler.Middleware)
			r.Get("/api/player-settings", s.settingsHandler.Get)
			r.Put("/api/player-settings/{id}", s.settingsHandler.Update)
			r.Post("/api/players", s.settingsHandler.Register)
			r.Delete("/api/players/{id}", s.settingsHandler.Delete)
			r.Post("/api/players/{id}/clone", s.settingsHandler.Clone)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
