package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/localtv/localtv/internal/auth"
	"github.com/localtv/localtv/internal/database"
	"github.com/localtv/localtv/internal/docs"
	"github.com/localtv/localtv/internal/metrics"
	"github.com/localtv/localtv/internal/moderation"
	"github.com/localtv/localtv/internal/notification"
	"github.com/localtv/localtv/internal/ratelimit"
	"github.com/localtv/localtv/internal/site"
	"github.com/localtv/localtv/internal/submit"
	"github.com/localtv/localtv/internal/widget"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB              database.DBTX
	Pinger          Pinger
	Storage         widget.ObjectStorage
	Remote          submit.Remote
	JWTSecret       string
	BaseURL         string
	SiteDomain      string
	StorageEndpoint string
	SecureCookies   bool

	// ApprovalNotifier is optional; without it approvals send no email.
	ApprovalNotifier        moderation.ApprovalNotifier
	SubmissionRequiresLogin bool
}

type Server struct {
	router            chi.Router
	db                database.DBTX
	pinger            Pinger
	siteDomain        string
	authHandler       *auth.Handler
	moderationHandler *moderation.Handler
	widgetHandler     *widget.Handler
	submitHandler     *submit.Handler
	preferences       *notification.Preferences
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: cfg.StorageEndpoint,
	}))

	s := &Server{router: r, db: cfg.DB, pinger: cfg.Pinger, siteDomain: cfg.SiteDomain}
	if s.siteDomain == "" {
		s.siteDomain = "localhost"
	}

	if cfg.DB != nil {
		s.authHandler = auth.NewHandler(cfg.DB, cfg.JWTSecret, cfg.SecureCookies)

		s.moderationHandler = moderation.NewHandler(moderation.NewVideoStore(cfg.DB), moderation.NewCommentStore(cfg.DB))
		if cfg.ApprovalNotifier != nil {
			s.moderationHandler.SetApprovalNotifier(cfg.ApprovalNotifier)
		}

		s.widgetHandler = widget.NewHandler(cfg.DB, cfg.Storage)

		remote := cfg.Remote
		if remote == nil {
			remote = submit.NewFetcher()
		}
		s.submitHandler = submit.NewHandler(submit.NewStore(cfg.DB), cfg.Storage, remote)
		s.submitHandler.SetRequireLogin(cfg.SubmissionRequiresLogin)

		s.preferences = notification.NewPreferences(cfg.DB)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get("/api/docs", docs.HandleDocs)
	s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)

	if s.authHandler == nil {
		return
	}

	authLimiter := ratelimit.NewLimiter(0.5, 5)
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/login", s.authHandler.Login)
		r.Post("/refresh", s.authHandler.Refresh)
		r.Post("/logout", s.authHandler.Logout)
		r.With(s.authHandler.Middleware).Post("/password", s.authHandler.ChangePassword)
	})

	s.router.Route("/api/notifications/preferences", func(r chi.Router) {
		r.Use(s.authHandler.Middleware)
		r.Get("/", s.preferences.GetPreferences)
		r.Put("/", s.preferences.PutPreferences)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(site.Middleware(s.db, s.siteDomain))

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(s.authHandler.Middleware)
			r.Use(site.RequireAdmin(s.db))
			r.Get("/moderation/videos", s.moderationHandler.VideoQueue)
			r.Post("/moderation/videos", s.moderationHandler.ModerateVideos)
			r.Get("/moderation/comments", s.moderationHandler.CommentQueue)
			r.Post("/moderation/comments", s.moderationHandler.ModerateComments)
			r.Get("/widget-settings", s.widgetHandler.GetSettings)
			r.Post("/widget-settings", s.widgetHandler.UpdateSettings)
		})

		submitLimiter := ratelimit.NewLimiter(0.2, 5)
		r.Route("/api/submit", func(r chi.Router) {
			r.Use(submitLimiter.Middleware)
			r.Use(s.authHandler.OptionalMiddleware)
			r.Post("/", s.submitHandler.Submit)
			r.Post("/direct", s.submitHandler.SubmitDirect)
			r.Post("/embed", s.submitHandler.SubmitEmbed)
			r.Post("/scraped", s.submitHandler.SubmitScraped)
		})
	})
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
