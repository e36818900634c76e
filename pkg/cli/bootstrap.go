package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chirpnet/chirp/pkg/api"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/health"
	"github.com/chirpnet/chirp/pkg/middleware/logging"
	metricsmw "github.com/chirpnet/chirp/pkg/middleware/metrics"
	"github.com/chirpnet/chirp/pkg/middleware/ratelimit"
	"github.com/chirpnet/chirp/pkg/middleware/recovery"
	"github.com/chirpnet/chirp/pkg/middleware/requestid"
	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/observability/metrics"
	"github.com/chirpnet/chirp/pkg/query"
	"github.com/chirpnet/chirp/pkg/repository/document"
	"github.com/chirpnet/chirp/pkg/repository/social"
	"github.com/chirpnet/chirp/pkg/server"
	"github.com/chirpnet/chirp/pkg/server/router"
	ginrouter "github.com/chirpnet/chirp/pkg/server/router/gin"
	mongostore "github.com/chirpnet/chirp/pkg/store/mongodb"
	"github.com/chirpnet/chirp/pkg/version"
)

// indexSpecs are the access paths the repository queries depend on. User
// names are unique; tweets and relationships are looked up by their term
// fields.
func indexSpecs() []mongostore.IndexSpec {
	return []mongostore.IndexSpec{
		{Collection: query.Users, Name: query.UsersByName.Name, Field: query.UsersByName.Term, Unique: true},
		{Collection: query.Tweets, Name: query.TweetsByUser.Name, Field: query.TweetsByUser.Term},
		{Collection: query.Relationships, Name: query.RelationshipsByFollower.Name, Field: query.RelationshipsByFollower.Term},
	}
}

// RunServer assembles the service and runs it until ctx is cancelled:
// store adapter, query executor, repository, HTTP router with its
// middleware stack, and the management endpoints.
func RunServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	adapter, err := mongostore.NewAdapter(mongostore.Config{
		URL:              cfg.Database.URL,
		Database:         cfg.Database.Database,
		ConnectTimeout:   cfg.Database.ConnectTimeout,
		OperationTimeout: cfg.Database.OperationTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	if err := adapter.EnsureIndexes(ctx, indexSpecs()); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	executor, err := document.NewMongoDBExecutor(adapter, log,
		document.WithTransactions(cfg.Database.Transactions),
		document.WithPageBounds(cfg.Feed.PageSize, cfg.Feed.MaxPageSize))
	if err != nil {
		return err
	}
	repo, err := social.NewDocumentRepository(executor, log)
	if err != nil {
		return err
	}

	r := ginrouter.NewRouter()
	r.Use(requestid.RequestID())
	r.Use(logging.Logging(log))
	r.Use(recovery.Recovery(log))
	if cfg.Observability.MetricsEnabled {
		r.Use(metricsmw.Metrics())
	}

	var writeMiddleware []router.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		writeMiddleware = append(writeMiddleware, ratelimit.RateLimit(limiter, ratelimit.Config{}))
	}

	api.New(repo, log).Register(r, writeMiddleware...)
	registerManagementRoutes(r, cfg, adapter)

	srv := server.NewServer(server.Config{
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, r, log)
	return srv.Start(ctx)
}

// registerManagementRoutes mounts liveness, readiness and metrics.
func registerManagementRoutes(r router.Router, cfg *config.Config, adapter *mongostore.Adapter) {
	liveness := health.NewRegistry()
	liveness.Register(health.NewPingChecker("liveness"))

	readiness := health.NewRegistry()
	readiness.Register(health.NewAdapterChecker("mongodb", adapter, 5*time.Second))

	info := version.Current(cfg.Service.Name)
	r.GET("/healthz", healthHandler(liveness, &info))
	r.GET("/readyz", healthHandler(readiness, nil))

	if cfg.Observability.MetricsEnabled {
		promHandler := metrics.Handler()
		r.GET("/metrics", func(c router.Context) error {
			promHandler.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}
}

func healthHandler(registry *health.Registry, info *version.Info) router.HandlerFunc {
	return func(c router.Context) error {
		result := registry.Check(c.Request().Context())
		status := http.StatusOK
		if !result.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		if info != nil {
			return c.JSON(status, struct {
				health.AggregatedResult
				Version version.Info `json:"version"`
			}{result, *info})
		}
		return c.JSON(status, result)
	}
}
