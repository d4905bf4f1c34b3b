// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nyc-kinder-workers/internal/common/aws"
	"nyc-kinder-workers/internal/common/camunda"
	"nyc-kinder-workers/internal/common/config"
	"nyc-kinder-workers/internal/common/database"
	ops "nyc-kinder-workers/internal/common/http"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/pkg/registry"

	// School workers
	cb "nyc-kinder-workers/internal/workers/schools/classify-borough"
	cos "nyc-kinder-workers/internal/workers/schools/compute-overall-score"
	rs "nyc-kinder-workers/internal/workers/schools/rank-schools"
	ss "nyc-kinder-workers/internal/workers/schools/search-schools"

	// Data access
	qp "nyc-kinder-workers/internal/workers/data-access/query-postgresql"

	// Community workers
	cs "nyc-kinder-workers/internal/workers/community/compare-schools"
	mf "nyc-kinder-workers/internal/workers/community/manage-favorites"
	mr "nyc-kinder-workers/internal/workers/community/manage-reviews"
)

// retryWithBackoff runs op until it succeeds, doubling the delay after
// each failure.
func retryWithBackoff(ctx context.Context, op func(context.Context) error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying", operationName), map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// dependencies are the shared clients handed to worker constructors.
type dependencies struct {
	db     *sql.DB
	redis  *redis.Client
	es     *elasticsearch.Client
	mailer mr.Mailer
	obs    *observability.Observability
	log    logger.Logger
}

// registrations builds a handler for every enabled task type.
func registrations(cfg *config.Config, deps dependencies) ([]camunda.Registration, error) {
	engine, err := cfg.Scoring.Engine()
	if err != nil {
		return nil, fmt.Errorf("scoring engine: %w", err)
	}

	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}
	clock := mf.LoadConfig().Clock

	handlers := []struct {
		taskType string
		build    func() worker.JobHandler
	}{
		{cos.TaskType, func() worker.JobHandler {
			return cos.NewHandler(&cos.Config{
				Timeout:  timeout(cos.TaskType),
				CacheTTL: time.Duration(cfg.Scoring.CacheTTL) * time.Second,
				Engine:   engine,
			}, deps.db, deps.redis, deps.log, deps.obs).Handle
		}},
		{cb.TaskType, func() worker.JobHandler {
			c := cb.LoadConfig()
			c.Timeout = timeout(cb.TaskType)
			return cb.NewHandler(c, deps.log, deps.obs).Handle
		}},
		{rs.TaskType, func() worker.JobHandler {
			return rs.NewHandler(&rs.Config{
				MaxItems: cfg.Scoring.MaxRanked,
				Timeout:  timeout(rs.TaskType),
				Engine:   engine,
			}, deps.log, deps.obs).Handle
		}},
		{ss.TaskType, func() worker.JobHandler {
			return ss.NewHandler(&ss.Config{
				Index:       cfg.Search.Index,
				DefaultSize: cfg.Search.DefaultSize,
				MaxSize:     cfg.Search.MaxSize,
				Timeout:     timeout(ss.TaskType),
				Engine:      engine,
			}, deps.es, deps.log, deps.obs).Handle
		}},
		{qp.TaskType, func() worker.JobHandler {
			return qp.NewHandler(&qp.Config{Timeout: timeout(qp.TaskType)}, deps.db, deps.log, deps.obs).Handle
		}},
		{mf.TaskType, func() worker.JobHandler {
			return mf.NewHandler(&mf.Config{Timeout: timeout(mf.TaskType), Clock: clock}, deps.db, deps.log, deps.obs).Handle
		}},
		{mr.TaskType, func() worker.JobHandler {
			return mr.NewHandler(&mr.Config{
				Timeout:         timeout(mr.TaskType),
				MaxReviewLength: cfg.Community.MaxReviewLength,
				ModeratorEmail:  cfg.Notifications.Email.ModeratorEmail,
				Clock:           clock,
			}, deps.db, deps.mailer, deps.log, deps.obs).Handle
		}},
		{cs.TaskType, func() worker.JobHandler {
			selections := database.NewRedisSelectionStore(deps.redis,
				time.Duration(cfg.Community.SelectionTTL)*time.Second)
			return cs.NewHandler(&cs.Config{
				Timeout:    timeout(cs.TaskType),
				MaxSchools: cfg.Community.MaxCompareSchools,
				Engine:     engine,
				Clock:      clock,
			}, selections, deps.db, deps.log, deps.obs).Handle
		}},
	}

	var regs []camunda.Registration
	for _, h := range handlers {
		activity, ok := registry.Default.Lookup(h.taskType)
		if !ok {
			return nil, fmt.Errorf("task type %s is not in the activity registry", h.taskType)
		}
		if !config.IsWorkerEnabled(cfg, h.taskType) {
			deps.log.Info("worker disabled", map[string]interface{}{"taskType": h.taskType})
			continue
		}
		wc := config.GetWorkerConfig(cfg, h.taskType)
		deps.log.Debug("registering worker", map[string]interface{}{
			"taskType": h.taskType,
			"category": activity.Category,
		})
		regs = append(regs, camunda.Registration{
			TaskType:      h.taskType,
			Handler:       h.build(),
			MaxJobsActive: wc.MaxJobsActive,
			Timeout:       config.GetDuration(wc.Timeout),
		})
	}
	return regs, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	if err := run(cfg, logger.NewZapAdapter(zapLog)); err != nil {
		zapLog.Fatal("worker manager stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	if err := config.ValidateWorkerRuntime(cfg); err != nil {
		return err
	}
	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return err
	}
	defer obs.Shutdown(context.Background())

	// --- Init PostgreSQL with retry ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := retryWithBackoff(ctx, pg.Ping, 15, 2*time.Second, log, "PostgreSQL connection"); err != nil {
		return err
	}
	log.Info("PostgreSQL connected", nil)

	// --- Init Elasticsearch with retry ---
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return err
	}
	if err := retryWithBackoff(ctx, esClient.Ping, 15, 2*time.Second, log, "Elasticsearch connection"); err != nil {
		return err
	}
	log.Info("Elasticsearch connected", nil)

	// --- Init Redis with retry ---
	rc := database.NewRedis(cfg.Database.Redis)
	defer rc.Close()
	if err := retryWithBackoff(ctx, rc.Ping, 10, 2*time.Second, log, "Redis connection"); err != nil {
		return err
	}
	log.Info("Redis connected", nil)

	// --- Init Zeebe client; retries on its own ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda), log)
	if err != nil {
		return err
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	var mailer mr.Mailer
	if email := cfg.Notifications.Email; email.Enabled {
		m, err := aws.NewMailer(ctx, cfg.Notifications.AWS.Region, email.FromEmail)
		if err != nil {
			log.Warn("ses mailer unavailable, moderator emails disabled", map[string]interface{}{"error": err})
		} else {
			mailer = m
		}
	}

	regs, err := registrations(cfg, dependencies{
		db:     pg.DB,
		redis:  rc.Client,
		es:     esClient.Client,
		mailer: mailer,
		obs:    obs,
		log:    log,
	})
	if err != nil {
		return err
	}

	workers := make([]worker.JobWorker, 0, len(regs))
	for _, reg := range regs {
		workers = append(workers, zeebe.StartWorker(reg, log))
	}
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	server := ops.NewServer(cfg.Server.Address, map[string]ops.Checker{
		"postgres":      pg,
		"redis":         rc,
		"elasticsearch": esClient,
		"zeebe":         zeebe,
	}, log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serverErr:
		if err != nil {
			log.Error("ops server failed", map[string]interface{}{"error": err})
		}
	}

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops server shutdown", map[string]interface{}{"error": err})
	}

	log.Info("worker manager stopped", nil)
	return nil
}
