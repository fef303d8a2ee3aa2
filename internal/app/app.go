package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/arisan/internal/config"
	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/domain/proof"
	"github.com/riskibarqy/arisan/internal/domain/user"
	"github.com/riskibarqy/arisan/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/arisan/internal/infrastructure/account/jwtauth"
	"github.com/riskibarqy/arisan/internal/infrastructure/blobstore"
	"github.com/riskibarqy/arisan/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/arisan/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/arisan/internal/interfaces/httpapi"
	"github.com/riskibarqy/arisan/internal/observability"
	idgen "github.com/riskibarqy/arisan/internal/platform/id"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/platform/random"
	"github.com/riskibarqy/arisan/internal/usecase"
)

const dbPingTimeout = 5 * time.Second

// NewHTTPServer wires storage, identity, proof storage and the usecases behind
// the HTTP router. The returned cleanup releases the database pool.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	repo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	proofs, err := newProofStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, errors.Join(err, closeRepo())
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return nil, nil, errors.Join(err, closeRepo())
	}

	var (
		events         usecase.EventRecorder
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		metrics := observability.NewMetrics()
		events = metrics
		metricsHandler = metrics.Handler()
	}

	ids := idgen.NewUUIDGenerator()
	cycles := usecase.NewCycleService(repo, logger)
	payments := usecase.NewPaymentService(repo, proofs, ids, logger, events)
	periods := usecase.NewPeriodService(repo, payments, cycles, ids, logger, events)
	draws := usecase.NewDrawService(repo, periods, payments, cycles, random.NewCryptoPicker(), ids, logger, events)
	groups := usecase.NewGroupService(repo, proofs, ids, logger)

	handler := httpapi.NewHandler(groups, periods, payments, draws, cycles, cfg.ProofMaxBytes, logger)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins, cfg.SwaggerEnabled, metricsHandler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	logger.Info("app wired",
		"store_driver", cfg.StoreDriver,
		"auth_mode", cfg.AuthMode,
		"blob_driver", cfg.BlobDriver,
		"metrics_enabled", cfg.MetricsEnabled,
	)

	return server, closeRepo, nil
}

func newRepository(ctx context.Context, cfg config.Config, logger *logging.Logger) (arisan.Repository, func() error, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewArisanRepository(), func() error { return nil }, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewArisanRepository(db), db.Close, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}

	return db, nil
}

func newProofStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (proof.Store, error) {
	if cfg.BlobDriver == config.BlobS3 {
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PresignTTL:      cfg.S3PresignTTL,
			DeleteWorkers:   cfg.BlobDeleteWorkers,
			Circuit:         cfg.S3Circuit,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init s3 proof store: %w", err)
		}
		return store, nil
	}

	store, err := blobstore.NewLocalStore(cfg.BlobLocalDir, cfg.BlobPublicBaseURL, cfg.BlobDeleteWorkers)
	if err != nil {
		return nil, fmt.Errorf("init local proof store: %w", err)
	}
	return store, nil
}

func newVerifier(cfg config.Config, logger *logging.Logger) (user.Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthJWT:
		return jwtauth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	case config.AuthAnubis:
		return anubis.NewClient(
			&http.Client{
				Timeout:   cfg.AnubisTimeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			anubis.Config{
				BaseURL:        cfg.AnubisBaseURL,
				IntrospectPath: cfg.AnubisIntrospectPath,
				AdminKey:       cfg.AnubisAdminKey,
				CacheTTL:       cfg.AnubisCacheTTL,
				Circuit:        cfg.AnubisCircuit,
			},
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}
