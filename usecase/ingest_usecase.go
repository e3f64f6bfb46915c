package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kayzen-ingest/domain/dto"
	"kayzen-ingest/domain/model"
	"kayzen-ingest/domain/repository"
	"kayzen-ingest/infrastructure/logger"
	"kayzen-ingest/infrastructure/metrics"

	"github.com/google/uuid"
)

// ErrHistoryDisabled is returned by Runs when no run history store is wired.
var ErrHistoryDisabled = errors.New("run history is not configured")

const runLockPrefix = "kayzen-ingest:lock:"

// IngestConfig is everything one run needs to know up front.
type IngestConfig struct {
	Credentials model.Credentials
	Destination model.TableRef
	LockTTL     time.Duration
}

// Validate reports every empty required setting under its environment name.
func (c IngestConfig) Validate() error {
	return model.ValidateSettings(c.Credentials, c.Destination)
}

type IIngestUsecase interface {
	// Run performs one authenticate, fetch and load cycle and never panics.
	Run(ctx context.Context) dto.IngestResponse
	Runs(ctx context.Context, limit int) ([]model.IngestionRun, error)
	WithRunLock(lock repository.IRunLock) IIngestUsecase
	WithRunHistory(history repository.IRunHistory) IIngestUsecase
	WithRunNotifier(notifier repository.IRunNotifier) IIngestUsecase
}

type ingestUsecase struct {
	cfg      IngestConfig
	auth     repository.IKayzenAuth
	source   repository.ICampaignSource
	loader   ICampaignLoader
	lock     repository.IRunLock
	history  repository.IRunHistory
	notifier repository.IRunNotifier
	now      func() time.Time
}

func NewIngestUsecase(cfg IngestConfig, auth repository.IKayzenAuth, source repository.ICampaignSource, loader ICampaignLoader) IIngestUsecase {
	return &ingestUsecase{
		cfg:    cfg,
		auth:   auth,
		source: source,
		loader: loader,
		now:    time.Now,
	}
}

func (u *ingestUsecase) WithRunLock(lock repository.IRunLock) IIngestUsecase {
	u.lock = lock
	return u
}

func (u *ingestUsecase) WithRunHistory(history repository.IRunHistory) IIngestUsecase {
	u.history = history
	return u
}

func (u *ingestUsecase) WithRunNotifier(notifier repository.IRunNotifier) IIngestUsecase {
	u.notifier = notifier
	return u
}

func (u *ingestUsecase) Run(ctx context.Context) dto.IngestResponse {
	started := u.now()
	run := &model.IngestionRun{
		ID:        uuid.NewString(),
		Table:     u.cfg.Destination.FullyQualified(),
		Status:    model.RunStatusRunning,
		StartedAt: started.UTC(),
	}
	log := logger.GetLogger().WithField("run_id", run.ID)

	if err := u.cfg.Validate(); err != nil {
		return u.fail(run, started, err)
	}

	if u.lock != nil {
		release, acquired, err := u.lock.Acquire(ctx, runLockPrefix+run.Table, u.cfg.LockTTL)
		switch {
		case err != nil:
			log.WithField("error", err).Warn("Run lock unavailable, continuing without it")
		case !acquired:
			return u.fail(run, started, model.ErrRunInProgress)
		default:
			defer func() {
				if err := release(context.Background()); err != nil {
					log.WithField("error", err).Warn("Failed to release run lock")
				}
			}()
		}
	}

	if u.history != nil {
		if err := u.history.StartRun(ctx, run); err != nil {
			log.WithField("error", err).Warn("Failed to record run start")
		}
	}

	log.WithField("table", run.Table).Info("Ingestion run started")
	processed, err := u.ingest(ctx)
	if err != nil {
		res := u.fail(run, started, err)
		u.record(ctx, run)
		return res
	}

	finished := u.now().UTC()
	run.Status = model.RunStatusSuccess
	run.CampaignsProcessed = processed
	run.FinishedAt = &finished
	metrics.ObserveRun(run.Status, processed, finished.Sub(started))
	u.record(ctx, run)

	log.WithField("campaigns_processed", processed).Info("Ingestion run finished")
	return dto.NewIngestSuccess(processed)
}

func (u *ingestUsecase) Runs(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if u.history == nil {
		return nil, ErrHistoryDisabled
	}
	return u.history.LatestRuns(ctx, limit)
}

// ingest runs the pipeline and turns a panic anywhere below into an error.
func (u *ingestUsecase) ingest(ctx context.Context) (processed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during ingestion: %v", r)
		}
	}()

	token, err := u.auth.GetAccessToken(ctx, u.cfg.Credentials)
	if err != nil {
		return 0, err
	}
	logger.GetLogger().Debug("Obtained Kayzen access token")

	campaigns, err := u.source.FetchAllCampaigns(ctx, token)
	if err != nil {
		return 0, err
	}
	logger.GetLogger().WithField("campaigns", len(campaigns)).Info("Fetched campaigns")

	if err := u.loader.Load(ctx, campaigns, u.cfg.Destination); err != nil {
		return 0, err
	}
	return len(campaigns), nil
}

func (u *ingestUsecase) fail(run *model.IngestionRun, started time.Time, err error) dto.IngestResponse {
	finished := u.now().UTC()
	msg := err.Error()
	run.Status = model.RunStatusFailed
	run.ErrorKind = model.ErrorKind(err)
	run.ErrorMessage = &msg
	run.FinishedAt = &finished
	metrics.ObserveRun(run.Status, 0, finished.Sub(started))

	logger.GetLogger().
		WithField("run_id", run.ID).
		WithField("error_kind", run.ErrorKind).
		WithField("error", err).
		Error("Ingestion run failed")
	return dto.NewIngestFailure(err)
}

// record persists and announces the final state of run. Failures here are
// logged only; they never change the invocation's outcome.
func (u *ingestUsecase) record(ctx context.Context, run *model.IngestionRun) {
	ctx = context.WithoutCancel(ctx)
	if u.history != nil {
		if err := u.history.FinishRun(ctx, run); err != nil {
			logger.GetLogger().WithField("run_id", run.ID).WithField("error", err).Warn("Failed to record run result")
		}
	}
	if u.notifier != nil {
		if _, err := u.notifier.NotifyRun(ctx, run); err != nil {
			logger.GetLogger().WithField("run_id", run.ID).WithField("error", err).Warn("Failed to publish run notification")
		}
	}
}
