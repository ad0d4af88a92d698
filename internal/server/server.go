package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alumni-connect/apiserver/config"
	"github.com/alumni-connect/apiserver/internal/auth"
	"github.com/alumni-connect/apiserver/internal/db"
	"github.com/alumni-connect/apiserver/internal/handlers"
	"github.com/alumni-connect/apiserver/internal/logging"
	"github.com/alumni-connect/apiserver/internal/metrics"
	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/ratelimit"
	"github.com/alumni-connect/apiserver/internal/services"
	"github.com/alumni-connect/apiserver/internal/storage"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 60 * time.Second

// Services are the application services mounted under /api.
type Services struct {
	Auth        *services.AuthService
	Profile     *services.ProfileService
	Opportunity *services.OpportunityService
	Scholarship *services.ScholarshipService
	Application *services.ApplicationService
	Mentorship  *services.MentorshipService
	Message     *services.MessageService
	Connection  *services.ConnectionService
	Story       *services.StoryService
	Webinar     *services.WebinarService
}

// Server wraps the HTTP server, its router and the clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        logrus.FieldLogger

	db      *sql.DB
	limiter *ratelimit.Limiter
	broker  mq.Backend
	objects storage.ObjectStorage
}

// New connects every configured backend and wires the API on top of them.
// Redis, object storage and the broker are optional.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"bcrypt_cost":    hasher.Cost(),
		"token_ttl":      cfg.Auth.TokenTTL.String(),
		"lookup_timeout": cfg.Auth.LookupTimeout.String(),
	}).Info("auth configured")

	s := &Server{log: log}

	s.db, err = db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var throttle services.AttemptLimiter
	s.limiter = ratelimit.New(cfg.Redis)
	if s.limiter == nil {
		log.Warn("REDIS_ADDR not set, login throttling disabled")
	} else {
		throttle = s.limiter
	}

	s.objects, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	if s.objects == nil {
		log.Warn("STORAGE_BACKEND not set, profile image uploads disabled")
	} else if err := s.objects.EnsureBucket(ctx); err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("ensure bucket %s: %w", s.objects.Bucket(), err)
	}

	s.broker, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("open message broker: %w", err)
	}
	if s.broker == nil {
		log.Warn("MQ_BACKEND not set, domain events are dropped")
	}

	m := metrics.New()
	var events services.EventPublisher
	if pub := mq.NewPublisher(s.broker, cfg.MQ.EventsChannel, log, m); pub != nil {
		events = pub
	}

	users := store.NewUserRepository(s.db)
	opportunities := store.NewOpportunityRepository(s.db)
	scholarships := store.NewScholarshipRepository(s.db)

	resolver := auth.NewResolver(tokens, users, cfg.Auth.LookupTimeout)
	guard := auth.NewGuard(resolver, log, m)

	svc := Services{
		Auth:        services.NewAuthService(users, hasher, tokens, throttle, events, log),
		Profile:     services.NewProfileService(users, storage.NewImages(s.objects), log),
		Opportunity: services.NewOpportunityService(opportunities),
		Scholarship: services.NewScholarshipService(scholarships),
		Application: services.NewApplicationService(
			store.NewApplicationRepository(s.db),
			services.NewPostingLookup(opportunities, scholarships),
			events,
		),
		Mentorship: services.NewMentorshipService(store.NewMentorshipRepository(s.db), users, events),
		Message:    services.NewMessageService(store.NewMessageRepository(s.db), users, events),
		Connection: services.NewConnectionService(store.NewConnectionRepository(s.db), users, events),
		Story:      services.NewStoryService(store.NewStoryRepository(s.db), log),
		Webinar:    services.NewWebinarService(store.NewWebinarRepository(s.db), events),
	}

	s.router = NewRouter(svc, guard, m, log)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// NewRouter mounts the API routes, /metrics and the middleware stack.
func NewRouter(svc Services, guard *auth.Guard, m *metrics.Metrics, log logrus.FieldLogger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.Middleware(log),
		m.Middleware,
		middleware.Timeout(requestTimeout),
	)

	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, svc.Auth, guard, log)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Profile, guard, log)
		})
		r.Route("/opportunities", func(r chi.Router) {
			handlers.OpportunityRouter(r, svc.Opportunity, guard, log)
		})
		r.Route("/scholarships", func(r chi.Router) {
			handlers.ScholarshipRouter(r, svc.Scholarship, guard, log)
		})
		r.Route("/applications", func(r chi.Router) {
			handlers.ApplicationRouter(r, svc.Application, guard, log)
		})
		r.Route("/mentorship", func(r chi.Router) {
			handlers.MentorshipRouter(r, svc.Mentorship, guard, log)
		})
		r.Route("/messages", func(r chi.Router) {
			handlers.MessageRouter(r, svc.Message, guard, log)
		})
		r.Route("/connections", func(r chi.Router) {
			handlers.ConnectionRouter(r, svc.Connection, guard, log)
		})
		r.Route("/stories", func(r chi.Router) {
			handlers.StoryRouter(r, svc.Story, guard, log)
		})
		r.Route("/webinars", func(r chi.Router) {
			handlers.WebinarRouter(r, svc.Webinar, guard, log)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeBackends())
}

func (s *Server) closeBackends() error {
	var errs []error
	if s.broker != nil {
		errs = append(errs, s.broker.Close())
	}
	if closer, ok := s.objects.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
