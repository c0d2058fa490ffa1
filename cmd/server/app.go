package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stagehand/internal/ingest/handler"
	ingestmetrics "stagehand/internal/ingest/metrics"
	"stagehand/internal/ingest/service"
	"stagehand/internal/ingest/store/batch"
	"stagehand/internal/ingest/store/cancel"
	"stagehand/internal/ingest/store/staging"
	"stagehand/internal/ingest/transform"
	jwttoken "stagehand/internal/jwt_token"
	"stagehand/internal/platform/config"
	"stagehand/internal/platform/metrics"
	"stagehand/internal/platform/postgres"
	"stagehand/internal/platform/redis"
	"stagehand/internal/target"
	audit "stagehand/pkg/platform/audit"
	"stagehand/pkg/platform/audit/consumer"
	"stagehand/pkg/platform/audit/publisher"
	"stagehand/pkg/platform/audit/sink/kafka"
	auditmemory "stagehand/pkg/platform/audit/store/memory"
	auditpostgres "stagehand/pkg/platform/audit/store/postgres"
	"stagehand/pkg/platform/circuit"
	"stagehand/pkg/platform/httputil"
	txcontext "stagehand/pkg/platform/tx"
)

// app holds the wired services and everything that must be released on exit.
type app struct {
	router        http.Handler
	sweeper       *service.Sweeper
	recovery      *service.Recovery
	auditConsumer *consumer.Consumer
	closers       []func(context.Context) error
}

func (a *app) close(log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn("shutdown step failed", "error", err)
		}
	}
}

type stores struct {
	staging service.StagingStore
	batches service.BatchStore
	cancels service.CancelSignals
	gateway target.Gateway
	tx      service.StoreTx
	db      *sql.DB
	checks  map[string]func(context.Context) error
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close(log)
		return nil, err
	}

	st, err := openStores(ctx, cfg, log, a)
	if err != nil {
		return fail(err)
	}

	reg := metrics.NewRegistry()
	platformMetrics := metrics.New(reg)
	ingestMetrics := ingestmetrics.New(reg)

	sink, reader, err := openAuditSink(ctx, cfg, st.db, log, a)
	if err != nil {
		return fail(err)
	}
	pub := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithBreaker(circuit.New("audit-sink")),
		publisher.WithMetrics(platformMetrics),
		publisher.WithLogger(log),
	)
	a.closers = append(a.closers, func(context.Context) error {
		pub.Close()
		return nil
	})

	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(pub),
		service.WithMetrics(ingestMetrics),
		service.WithPageSize(cfg.Ingest.PageSize),
		service.WithRecordTimeout(cfg.Ingest.RecordTimeout),
		service.WithRecordLease(cfg.Ingest.RecordLease),
		service.WithRunTimeout(cfg.Ingest.RunTimeout),
		service.WithCancelTTL(cfg.Ingest.CancelTTL),
		service.WithStoreTx(st.tx),
	}
	if reader != nil {
		opts = append(opts, service.WithAuditReader(reader))
	}

	transformer := transform.New(transform.WithDefaultRegion(cfg.Ingest.DefaultRegion))
	processor := service.NewProcessor(st.staging, st.gateway, transformer, opts...)
	summaries := service.NewSummaries(st.staging, st.gateway, opts...)
	coordinator := service.NewCoordinator(st.batches, st.staging, processor, st.cancels,
		append(opts, service.WithSummaryRefresher(summaries))...)
	intake := service.NewIntake(st.batches, st.staging, opts...)
	query := service.NewQuery(st.batches, st.staging, opts...)
	a.sweeper = service.NewSweeper(st.staging, st.batches, opts...)
	a.recovery = service.NewRecovery(st.staging, st.batches, opts...)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	h := handler.New(intake, coordinator, query, a.sweeper, a.recovery, log,
		handler.WithJWTValidator(jwttoken.NewJWTServiceAdapter(jwtService)),
		handler.WithAdminToken(cfg.Server.AdminToken),
		handler.WithLatencyObserver(platformMetrics),
		handler.WithApplication(cfg.Server.Application),
		handler.WithRetentionDays(cfg.Retention.Days),
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
	)

	r := chi.NewRouter()
	r.Get("/healthz", health(st))
	r.Handle("/metrics", platformMetrics.Handler())
	h.Register(r)
	a.router = r
	return a, nil
}

// openStores picks PostgreSQL and Redis when configured and in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, a *app) (*stores, error) {
	st := &stores{checks: map[string]func(context.Context) error{}}

	db, err := postgres.Open(ctx, cfg.Database.StagingURL, postgres.Pool{
		MaxOpenConns:    cfg.Database.MaxConns,
		MaxIdleConns:    postgres.DefaultPool.MaxIdleConns,
		ConnMaxLifetime: postgres.DefaultPool.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if db == nil {
		log.Warn("no staging database configured, using in-memory stores")
		stagingStore := staging.NewInMemory()
		st.staging = stagingStore
		st.batches = batch.NewInMemory(batch.WithRecordCounter(stagingStore))
		st.gateway = target.NewMemoryGateway()
	} else {
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		targetURL := cfg.Database.TargetURL
		if targetURL == "" {
			targetURL = cfg.Database.StagingURL
		}
		pool, err := postgres.OpenPool(ctx, targetURL, int32(cfg.Database.MaxConns))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		st.db = db
		st.staging = staging.NewPostgres(db)
		st.batches = batch.NewPostgres(db)
		st.gateway = target.NewPostgres(pool)
		st.tx = txcontext.NewSQLTx(db)
		st.checks["staging_db"] = db.PingContext
		st.checks["target_db"] = pool.Ping
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		st.cancels = cancel.NewInMemory()
	} else {
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		st.cancels = cancel.NewRedis(client.Client)
		st.checks["redis"] = client.Health
	}
	return st, nil
}

// openAuditSink picks the store the publisher writes to and the reader behind the
// audit trail endpoint. A kafka sink is read back through a consumer group that
// copies events into the staging database when one is configured.
func openAuditSink(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger, a *app) (audit.Store, service.AuditReader, error) {
	switch cfg.Audit.Sink {
	case config.SinkPostgres:
		if db == nil {
			return nil, nil, errors.New("postgres audit sink requires a staging database")
		}
		store := auditpostgres.New(db)
		return store, store, nil
	case config.SinkKafka:
		sink, err := kafka.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, sink.Close)
		if err := sink.EnsureTopic(ctx, 6, 1); err != nil {
			return nil, nil, err
		}
		if db == nil || cfg.Audit.KafkaGroup == "" {
			return sink, nil, nil
		}
		store := auditpostgres.New(db)
		router := consumer.NewRouter(log, nil)
		router.Register(audit.CategoryCompliance, consumer.NewComplianceHandler(store, log))
		router.Register(audit.CategoryOperations, consumer.NewOpsHandler(store, log))
		c, err := consumer.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, cfg.Audit.KafkaGroup, router,
			[]consumer.Option{consumer.WithLogger(log)})
		if err != nil {
			return nil, nil, err
		}
		a.auditConsumer = c
		a.closers = append(a.closers, func(context.Context) error {
			c.Close()
			return nil
		})
		return sink, store, nil
	default:
		store := auditmemory.NewInMemoryStore()
		return store, store, nil
	}
}

// health pings every configured backend. In-memory mode has nothing to check.
func health(st *stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range st.checks {
			if err := check(ctx); err != nil {
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
	}
}
