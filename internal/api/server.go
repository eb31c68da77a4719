package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/lockss-laaws/internal/config"
	"github.com/JakeFAU/lockss-laaws/internal/metrics"
	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/projection"
	"github.com/JakeFAU/lockss-laaws/internal/ratelimit"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// Deps are the collaborators the handlers read from.
type Deps struct {
	Metadata store.MetadataReader
	Jobs     store.JobManager
	Polls    store.PollManager
	// Limiter throttles /v1 clients when set.
	Limiter *ratelimit.Limiter
	// Ready reports whether downstream dependencies are usable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server wires HTTP handlers to the metadata, job and poll collaborators.
type Server struct {
	router chi.Router
	deps   Deps
	polls  *projection.Polls

	cursorLimits paging.Limits
	pageSizes    paging.Limits
	linkStyle    paging.LinkStyle
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	style, err := paging.ParseLinkStyle(cfg.Paging.LinkStyle)
	if err != nil {
		logger.Warn("unknown link style, using page numbers", zap.String("link_style", cfg.Paging.LinkStyle))
		style = paging.LinkStyleNumbers
	}
	s := &Server{
		deps:         deps,
		polls:        projection.NewPolls(deps.Polls),
		cursorLimits: cursorLimitsOrDefault(cfg.CursorLimits()),
		pageSizes:    pageSizesOrDefault(cfg.PageSizeLimits()),
		linkStyle:    style,
		logger:       logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(cfg.Server.RequestTimeout))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	admin := requireRole(RoleContentAdmin)
	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.Roles()))
		}
		if deps.Limiter != nil {
			r.Use(rateLimitMiddleware(deps.Limiter, time.Second))
		}

		r.Get("/metadata/aus/{auid}", s.getAuMetadata)

		r.Route("/mdupdates", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.With(admin).Post("/", s.scheduleJob)
			r.With(admin).Delete("/", s.deleteAllJobs)
			r.Get("/{jobid}", s.getJob)
			r.With(admin).Delete("/{jobid}", s.deleteJob)
		})

		r.Route("/polls", func(r chi.Router) {
			r.With(admin).Post("/", s.requestPoll)
			r.Get("/aus/{auid}", s.getPollStatus)
			r.With(admin).Delete("/aus/{auid}", s.cancelPoll)
			r.Get("/as-poller", s.listPollerPolls)
			r.Get("/as-voter", s.listVoterPolls)
			r.Get("/poller/{pollKey}", s.getPollerDetail)
			r.Get("/voter/{pollKey}", s.getVoterDetail)
			r.Get("/{pollKey}/tally", s.listTallyURLs)
			r.Get("/{pollKey}/repairs", s.listRepairs)
			r.Get("/{pollKey}/peer/{peerId}", s.listPeerURLs)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn("not ready", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func cursorLimitsOrDefault(l paging.Limits) paging.Limits {
	if l.Max <= 0 {
		return paging.Limits{Max: paging.DefaultLimits.Max}
	}
	return l
}

func pageSizesOrDefault(l paging.Limits) paging.Limits {
	if l.Default <= 0 {
		return paging.DefaultLimits
	}
	return l
}
