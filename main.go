package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kayzen-ingest/domain/dto"
	"kayzen-ingest/infrastructure/cache"
	"kayzen-ingest/infrastructure/clients/kayzen"
	"kayzen-ingest/infrastructure/configuration"
	"kayzen-ingest/infrastructure/logger"
	"kayzen-ingest/infrastructure/persistence"
	"kayzen-ingest/infrastructure/pubsub"
	"kayzen-ingest/infrastructure/utils"
	"kayzen-ingest/infrastructure/warehouse"
	httpHandler "kayzen-ingest/interfaces/http"
	"kayzen-ingest/server"
	"kayzen-ingest/usecase"

	"golang.org/x/sync/errgroup"
)

const (
	upstreamTimeout = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
	tokenTTL        = 365 * 24 * time.Hour
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if err := recover(); err != nil {
			logger.GetLogger().WithField("error", err).Error("Application panic recovered")
			code = 2
		}
	}()

	once := flag.Bool("once", false, "run a single ingestion and exit")
	tokenSubject := flag.String("print-token", "", "print a trigger token for the given subject and exit")
	flag.Parse()

	// non-destructive: the real environment keeps precedence
	if loaded := configuration.LoadEnvFromFile("config.env", ".env"); len(loaded) > 0 {
		logger.GetLogger().WithField("files", loaded).Info("Loaded environment files")
	}

	cfg, err := configuration.Load()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Invalid configuration")
		if *once {
			printResponse(dto.NewIngestFailure(err))
		}
		return 1
	}
	if *once {
		cfg.App.RunMode = configuration.RunModeOnce
	}

	if *tokenSubject != "" {
		return printToken(*tokenSubject, cfg.App.SecretKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingest, cleanup, err := buildIngestUsecase(ctx, cfg)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Initialization failed")
		return 1
	}
	defer cleanup()

	if cfg.App.RunMode == configuration.RunModeOnce {
		res := ingest.Run(ctx)
		printResponse(res)
		if res.StatusCode != http.StatusOK {
			return 1
		}
		return 0
	}

	if err := serve(ctx, cfg, ingest); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		return 2
	}
	return 0
}

// buildIngestUsecase wires the required pipeline and whichever optional
// run lock, run history and notifier are configured. Optional backends that
// cannot be reached are logged and skipped.
func buildIngestUsecase(ctx context.Context, cfg *configuration.Config) (usecase.IIngestUsecase, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	tables, err := warehouse.NewBigQueryTables(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Location, cfg.BigQuery.CredentialsFile)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() { _ = tables.Close() })

	kayzenClient := kayzen.NewKayzenClient(&kayzen.Config{
		BaseURL:    cfg.Kayzen.BaseURL,
		HTTPClient: &http.Client{Timeout: upstreamTimeout},
	})

	ingest := usecase.NewIngestUsecase(
		usecase.IngestConfig{
			Credentials: cfg.Credentials(),
			Destination: cfg.Destination(),
			LockTTL:     cfg.RunLock.TTL,
		},
		kayzenClient,
		kayzenClient,
		usecase.NewCampaignLoader(tables),
	)

	if addr := cfg.RedisAddr(); addr != "" {
		redisClient, err := cache.NewCache(ctx, addr, cfg.Redis.Username, cfg.Redis.Password)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis not available - running without run lock")
		} else {
			closers = append(closers, func() { _ = redisClient.Close() })
			ingest = ingest.WithRunLock(cache.NewRunLock(redisClient))
		}
	}

	db, runRepository, err := persistence.NewRunHistoryDB(cfg.Database)
	switch {
	case err != nil:
		logger.GetLogger().WithField("error", err).Warn("Run history database not available - continuing without it")
	case runRepository != nil:
		closers = append(closers, func() { _ = db.Close() })
		ingest = ingest.WithRunHistory(runRepository)
		logger.GetLogger().WithField("vendor", cfg.Database.Vendor).Info("Run history enabled")
	}

	if cfg.Pubsub.Topic != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Error while instantiate PubSub - run notifications disabled")
		} else {
			notifier := pubsub.NewRunNotifier(pubSubClient, cfg.Pubsub.Topic)
			closers = append(closers, func() {
				notifier.Stop()
				_ = pubSubClient.Close()
			})
			ingest = ingest.WithRunNotifier(notifier)
		}
	}

	return ingest, cleanup, nil
}

func serve(ctx context.Context, cfg *configuration.Config, ingest usecase.IIngestUsecase) error {
	router := server.InitiateRouter(httpHandler.NewIngestHandler(ingest), cfg.App.SecretKey)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.GetLogger().WithField("port", cfg.App.Port).Info("Starting application")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func printResponse(res dto.IngestResponse) {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(res); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while writing response")
	}
}

func printToken(subject, secretKey string) int {
	if secretKey == "" {
		logger.GetLogger().Error("SECRET_KEY is not set; trigger routes are unauthenticated")
		return 1
	}
	token, err := utils.GenerateToken(subject, secretKey, tokenTTL)
	if err != nil {
		return 1
	}
	fmt.Println(token)
	return 0
}
