package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-fin/meridian-fin/internal/revenue/recognition"
	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// RecognitionRunJob executes scheduled recognition sweeps. Each organisation
// is guarded by a redis lock so overlapping cron fires or manual runs cannot
// double-process a tenant; a locked org is skipped and picked up next fire.
type RecognitionRunJob struct {
	service *recognition.Service
	lock    *shared.RunLock
	logger  *slog.Logger
}

func NewRecognitionRunJob(logger *slog.Logger, service *recognition.Service, lock *shared.RunLock) *RecognitionRunJob {
	return &RecognitionRunJob{logger: logger, service: service, lock: lock}
}

// Handle processes TaskTypeRecognitionRun tasks.
func (j *RecognitionRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RecognitionRunPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	var asOf time.Time
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			j.logger.Error("recognition run payload", slog.String("as_of", payload.AsOf))
			return asynq.SkipRetry
		}
		asOf = parsed
	}

	orgIDs := []int64{payload.OrgID}
	if payload.OrgID == 0 {
		ids, err := j.service.ActiveOrgIDs(ctx)
		if err != nil {
			return err
		}
		orgIDs = ids
	}

	holder := uuid.NewString()
	var errs []error
	for _, orgID := range orgIDs {
		if err := j.runOrg(ctx, orgID, asOf, payload.DryRun, holder); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *RecognitionRunJob) runOrg(ctx context.Context, orgID int64, asOf time.Time, dryRun bool, holder string) error {
	key := shared.RecognitionLockKey(orgID)
	acquired, err := j.lock.Acquire(ctx, key, holder)
	if err != nil {
		return err
	}
	if !acquired {
		j.logger.Info("recognition run already in progress, skipping", slog.Int64("org_id", orgID))
		return nil
	}
	defer func() {
		if err := j.lock.Release(ctx, key, holder); err != nil {
			j.logger.Warn("release recognition lock", slog.Int64("org_id", orgID), slog.Any("error", err))
		}
	}()

	result, err := j.service.Run(ctx, recognition.RunInput{OrgID: orgID, AsOf: asOf, DryRun: dryRun})
	if err != nil {
		return err
	}
	j.logger.Info("scheduled recognition run",
		slog.Int64("org_id", orgID),
		slog.String("run_id", result.RunID.String()),
		slog.Int("posted", result.LinesPosted),
		slog.Int("failed", result.LinesFailed))
	return nil
}
