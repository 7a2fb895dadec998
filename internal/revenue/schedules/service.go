package schedules

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-fin/meridian-fin/internal/revenue/contracts"
	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GenerateForContractLine builds and stores the schedule for an allocated
// contract line. Create-once: a line that already has a schedule is left
// untouched and the call succeeds, so contract activation can be retried.
func (s *Service) GenerateForContractLine(ctx context.Context, line contracts.ContractLine, contractStart time.Time, contractEnd *time.Time) error {
	_, err := s.repo.GetByContractLine(ctx, line.ID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, shared.ErrScheduleNotFound):
		return err
	}

	lines, err := buildLines(line, contractStart, contractEnd)
	if err != nil {
		return err
	}
	_, err = s.repo.Create(ctx, Schedule{
		ContractLineID: line.ID,
		Method:         line.Pattern,
		TotalAmount:    shared.RoundCents(*line.AllocatedPrice),
		Status:         ScheduleStatusPlanned,
		Lines:          lines,
	})
	if errors.Is(err, errScheduleExists) {
		// Lost a race with a concurrent activation; the schedule exists.
		return nil
	}
	return err
}

func (s *Service) Get(ctx context.Context, scheduleID int64) (Schedule, error) {
	return s.repo.Get(ctx, scheduleID)
}

func (s *Service) GetByContractLine(ctx context.Context, contractLineID int64) (Schedule, error) {
	return s.repo.GetByContractLine(ctx, contractLineID)
}

func (s *Service) ListByContract(ctx context.Context, contractID int64) ([]Schedule, error) {
	return s.repo.ListByContract(ctx, contractID)
}
