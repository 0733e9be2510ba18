package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mediaapp "tumbi/internal/app/handlers/media"
	"tumbi/internal/app/outbox"
	authsvc "tumbi/internal/app/services/auth"
	"tumbi/internal/app/uow"
	"tumbi/internal/app/wiring"
	domainuser "tumbi/internal/domain/user"
	"tumbi/internal/infra/broker/kafka"
	"tumbi/internal/infra/config"
	"tumbi/internal/infra/db/postgres"
	ginserver "tumbi/internal/infra/http/gin"
	"tumbi/internal/infra/obs"
	infraoutbox "tumbi/internal/infra/outbox"
	"tumbi/internal/infra/security"
	"tumbi/internal/infra/storage/memory"
	"tumbi/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: app.ready}, app.handlers)

	if app.relay != nil {
		go func() {
			if err := app.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox relay stopped", "error", err)
			}
		}()
		logger.Info("outbox relay started", "brokers", cfg.KafkaBrokers, "topic_prefix", cfg.KafkaTopicPrefix)
	} else {
		logger.Info("outbox relay disabled: no KAFKA_BROKERS configured")
	}
	if app.prune != nil {
		go runIdempotencyJanitor(ctx, app.prune, logger)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	relay    *infraoutbox.Worker
	ready    func(ctx context.Context) error
	prune    func(ctx context.Context) (int64, error)
	closers  []io.Closer
}

func (a application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// persistence is the storage-specific part of the application graph.
type persistence struct {
	factory uow.UoWFactory
	users   domainuser.Repository
	outbox  infraoutbox.Store
	ping    func(ctx context.Context) error
	prune   func(ctx context.Context) (int64, error)
	closer  io.Closer
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var app application

	store, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return app, err
	}
	if store.closer != nil {
		app.closers = append(app.closers, store.closer)
	}

	issuer, err := security.NewJWTIssuer(cfg.JWTSecret)
	if err != nil {
		return app, err
	}
	authService := &authsvc.Service{
		Users:     store.users,
		Passwords: security.BcryptHasher{Cost: cfg.BcryptCost},
		Tokens:    issuer,
		TokenTTL:  cfg.JWTTTL,
		Logger:    logger,
	}

	var uploader mediaapp.Uploader
	images, err := s3.NewImageStore(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
	}, logger)
	if err != nil {
		logger.Warn("image uploads disabled", "error", err)
	} else {
		uploader = images
	}

	buses := wiring.Build(wiring.Deps{
		Logger:   logger,
		UoW:      store.factory,
		Encoder:  outbox.JSONEventEncoder{},
		Uploader: uploader,
	})
	logger.Debug("bus handlers registered", "commands", buses.CommandKeys, "queries", buses.QueryKeys)

	app.handlers = ginserver.Handlers{
		Auth:          ginserver.AuthHandler{Service: authService, Logger: logger},
		Listings:      ginserver.ListingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger, DefaultLimit: cfg.DefaultPageSize},
		Users:         ginserver.UserHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Saved:         ginserver.SavedHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Chat:          ginserver.ChatHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Upload:        ginserver.UploadHandler{Commands: buses.Commands, Logger: logger, MaxBytes: cfg.UploadMaxBytes},
		Authenticator: &ginserver.AuthMiddleware{Resolver: authService, Logger: logger},
	}
	app.ready = store.ping
	app.prune = store.prune

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "tumbi-api")
		if err != nil {
			app.close()
			return application{}, err
		}
		app.closers = append(app.closers, producer)
		app.relay = &infraoutbox.Worker{
			Store:       store.outbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      "tumbi-api",
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
	}
	return app, nil
}

func openPersistence(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		mem := memory.NewStore()
		return persistence{
			factory: memory.Factory{Store: mem},
			users:   mem.Users(),
			outbox:  mem.Outbox(),
			ping:    func(context.Context) error { return nil },
		}, nil
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return persistence{}, err
		}
		result, err := postgres.Migrate(db)
		if err != nil {
			_ = db.Close()
			return persistence{}, err
		}
		logger.Info("database migrated", "version", result.Version, "changed", result.Changed)
		return persistence{
			factory: postgres.NewFactory(db),
			users:   postgres.NewUserRepository(db),
			outbox:  infraoutbox.NewPostgresStore(db),
			ping:    db.PingContext,
			prune: func(ctx context.Context) (int64, error) {
				return postgres.PruneIdempotencyKeys(ctx, db, cfg.IdempotencyTTL)
			},
			closer: db,
		}, nil
	default:
		return persistence{}, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// runIdempotencyJanitor drops expired idempotency records once an hour.
func runIdempotencyJanitor(ctx context.Context, prune func(context.Context) (int64, error), logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := prune(ctx)
			if err != nil {
				logger.Warn("idempotency prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("idempotency keys pruned", "count", n)
			}
		}
	}
}
