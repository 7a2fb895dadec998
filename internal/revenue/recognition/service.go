package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// MetricsPort receives run outcomes; nil disables instrumentation.
type MetricsPort interface {
	ObserveRecognitionRun(posted, failed int)
}

type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{logger: logger, repo: repo, audit: audit, metrics: metrics, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ActiveOrgIDs lists organisations with active contracts, for scheduled
// runs that sweep every tenant.
func (s *Service) ActiveOrgIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListActiveOrgIDs(ctx)
}

// PostRecognition posts one schedule line regardless of its due date. The
// line must be PLANNED and its contract line must carry both posting
// accounts; a line someone else posted meanwhile returns ErrAlreadyPosted.
func (s *Service) PostRecognition(ctx context.Context, scheduleLineID int64, actorID int64) (PostedEntry, error) {
	if scheduleLineID == 0 {
		return PostedEntry{}, fmt.Errorf("revenue: schedule line id required: %w", internalShared.ErrValidation)
	}
	line, err := s.repo.GetLine(ctx, scheduleLineID)
	if err != nil {
		return PostedEntry{}, err
	}
	switch line.Status {
	case "PLANNED":
	case "POSTED":
		return PostedEntry{}, shared.ErrAlreadyPosted
	default:
		return PostedEntry{}, shared.ErrLineNotPlanned
	}
	if line.RevenueAccountID == nil || line.DeferredAccountID == nil {
		return PostedEntry{}, shared.ErrMissingAccounts
	}
	posted, err := s.repo.PostLine(ctx, line, actorID, s.now())
	if err != nil {
		return PostedEntry{}, err
	}
	s.recordAudit(ctx, actorID, "recognition.post", line.ScheduleLineID, map[string]any{
		"entry_number": posted.Number,
		"amount":       line.Amount.StringFixed(2),
	})
	return posted, nil
}

// Run posts every planned schedule line due on or before AsOf for one
// organisation. Failures are collected per line and never abort the run, so
// one contract with missing accounts cannot block everyone else's
// recognition. Posting is idempotent: a re-run over the same as-of date
// finds nothing left to post.
func (s *Service) Run(ctx context.Context, in RunInput) (RunResult, error) {
	if in.OrgID == 0 {
		return RunResult{}, fmt.Errorf("revenue: org id required: %w", internalShared.ErrValidation)
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	result := RunResult{
		RunID:       uuid.New(),
		OrgID:       in.OrgID,
		AsOf:        asOf,
		DryRun:      in.DryRun,
		TotalAmount: decimal.Zero,
	}

	due, err := s.repo.ListDue(ctx, in.OrgID, asOf)
	if err != nil {
		return RunResult{}, err
	}

	for _, line := range due {
		result.LinesProcessed++
		lr := LineResult{
			ScheduleLineID: line.ScheduleLineID,
			ContractLineID: line.ContractLineID,
			ContractID:     line.ContractID,
			ScheduleDate:   line.ScheduleDate,
			Amount:         line.Amount,
		}
		switch {
		case in.DryRun:
			lr.Outcome = OutcomeDue
			result.TotalAmount = result.TotalAmount.Add(line.Amount)
		case line.RevenueAccountID == nil || line.DeferredAccountID == nil:
			lr.Outcome = OutcomeFailed
			lr.Reason = shared.ErrMissingAccounts.Error()
			result.LinesFailed++
		default:
			posted, err := s.repo.PostLine(ctx, line, in.ActorID, s.now())
			switch {
			case err == nil:
				lr.Outcome = OutcomePosted
				lr.EntryID = &posted.EntryID
				lr.EntryNumber = posted.Number
				result.LinesPosted++
				result.TotalAmount = result.TotalAmount.Add(line.Amount)
			case errors.Is(err, shared.ErrAlreadyPosted):
				lr.Outcome = OutcomeSkipped
				result.LinesSkipped++
			default:
				lr.Outcome = OutcomeFailed
				lr.Reason = err.Error()
				result.LinesFailed++
				s.logger.Error("recognition post failed",
					slog.Int64("schedule_line_id", line.ScheduleLineID),
					slog.Any("error", err))
			}
		}
		result.Lines = append(result.Lines, lr)
	}

	if s.metrics != nil && !in.DryRun {
		s.metrics.ObserveRecognitionRun(result.LinesPosted, result.LinesFailed)
	}
	if !in.DryRun && result.LinesProcessed > 0 {
		s.recordAudit(ctx, in.ActorID, "recognition.run", in.OrgID, map[string]any{
			"run_id":       result.RunID.String(),
			"as_of":        asOf.Format("2006-01-02"),
			"processed":    result.LinesProcessed,
			"posted":       result.LinesPosted,
			"failed":       result.LinesFailed,
			"total_amount": result.TotalAmount.StringFixed(2),
		})
	}
	s.logger.Info("recognition run finished",
		slog.Int64("org_id", in.OrgID),
		slog.Bool("dry_run", in.DryRun),
		slog.Int("processed", result.LinesProcessed),
		slog.Int("posted", result.LinesPosted),
		slog.Int("failed", result.LinesFailed))
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "recognition",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
