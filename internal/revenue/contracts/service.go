package contracts

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// ScheduleGenerator builds the recognition schedule for an activated line.
// Generation is idempotent per line, so activation can safely retry it.
type ScheduleGenerator interface {
	GenerateForContractLine(ctx context.Context, line ContractLine, contractStart time.Time, contractEnd *time.Time) error
}

type Service struct {
	repo      Repository
	schedules ScheduleGenerator
	audit     AuditPort
	now       func() time.Time
}

func NewService(repo Repository, schedules ScheduleGenerator, audit AuditPort) *Service {
	return &Service{repo: repo, schedules: schedules, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, orgID int64, page, perPage int) ([]Contract, internalShared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	contracts, total, err := s.repo.List(ctx, orgID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	return contracts, internalShared.NewPagination(page, perPage, total), nil
}

func (s *Service) Get(ctx context.Context, contractID int64) (Contract, error) {
	return s.repo.Get(ctx, contractID)
}

func (s *Service) Create(ctx context.Context, in CreateContractInput) (Contract, error) {
	if err := in.Validate(); err != nil {
		return Contract{}, err
	}
	contract, err := s.repo.Create(ctx, in)
	if err != nil {
		return Contract{}, err
	}
	s.recordAudit(ctx, in.ActorID, "contract.create", contract.ID, map[string]any{"name": contract.Name})
	return contract, nil
}

// UpdateDraft replaces the header and lines of a draft contract. Active and
// terminal contracts are immutable through this path.
func (s *Service) UpdateDraft(ctx context.Context, in UpdateContractInput) (Contract, error) {
	if in.ContractID == 0 {
		return Contract{}, fmt.Errorf("revenue: contract id required: %w", internalShared.ErrValidation)
	}
	if in.Name == "" {
		return Contract{}, fmt.Errorf("revenue: contract name required: %w", internalShared.ErrValidation)
	}
	if !in.TotalPrice.IsPositive() {
		return Contract{}, fmt.Errorf("revenue: total transaction price must be positive: %w", internalShared.ErrValidation)
	}
	if err := validateLines(in.Lines); err != nil {
		return Contract{}, err
	}
	current, err := s.repo.Get(ctx, in.ContractID)
	if err != nil {
		return Contract{}, err
	}
	if current.Status != ContractStatusDraft {
		return Contract{}, shared.ErrInvalidStatus
	}
	return s.repo.Update(ctx, in)
}

// Activate runs the allocation engine and moves the contract DRAFT -> ACTIVE
// in a single transaction: either every line gets its allocated price or the
// contract stays draft. Schedule generation follows per line outside that
// transaction; it is idempotent, so a failed activation re-run completes any
// missing schedules without duplicating the ones already built.
func (s *Service) Activate(ctx context.Context, contractID int64, actorID int64) (Contract, error) {
	if contractID == 0 {
		return Contract{}, fmt.Errorf("revenue: contract id required: %w", internalShared.ErrValidation)
	}
	var contract Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if current.Status != ContractStatusDraft {
			return shared.ErrInvalidStatus
		}
		if _, err := Allocate(&current); err != nil {
			return err
		}
		for _, line := range current.Lines {
			if err := tx.SetLineAllocation(ctx, line.ID, *line.AllocatedPrice); err != nil {
				return err
			}
		}
		if err := tx.SetStatus(ctx, current.ID, ContractStatusActive); err != nil {
			return err
		}
		if err := tx.SetLineStatuses(ctx, current.ID, LineStatusDraft, LineStatusActive); err != nil {
			return err
		}
		current.Status = ContractStatusActive
		for i := range current.Lines {
			current.Lines[i].Status = LineStatusActive
		}
		contract = current
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	if s.schedules != nil {
		for _, line := range contract.Lines {
			if err := s.schedules.GenerateForContractLine(ctx, line, contract.StartDate, contract.EndDate); err != nil {
				return contract, fmt.Errorf("revenue: generate schedule for line %d: %w", line.ID, err)
			}
		}
	}
	s.recordAudit(ctx, actorID, "contract.activate", contract.ID, map[string]any{"lines": len(contract.Lines)})
	return contract, nil
}

// Cancel terminates an active contract. Unposted schedule lines are
// cancelled in the same transaction; already posted recognition stays on the
// ledger.
func (s *Service) Cancel(ctx context.Context, contractID int64, actorID int64) (Contract, error) {
	return s.terminate(ctx, contractID, actorID, ContractStatusCancelled, "contract.cancel")
}

// Complete marks an active contract COMPLETED once its obligations are
// fulfilled. Remaining planned schedule lines keep their status so trailing
// recognition runs can still post them.
func (s *Service) Complete(ctx context.Context, contractID int64, actorID int64) (Contract, error) {
	return s.terminate(ctx, contractID, actorID, ContractStatusCompleted, "contract.complete")
}

func (s *Service) terminate(ctx context.Context, contractID int64, actorID int64, target ContractStatus, action string) (Contract, error) {
	if contractID == 0 {
		return Contract{}, fmt.Errorf("revenue: contract id required: %w", internalShared.ErrValidation)
	}
	var contract Contract
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if current.Status != ContractStatusActive {
			return shared.ErrInvalidStatus
		}
		if err := tx.SetStatus(ctx, current.ID, target); err != nil {
			return err
		}
		lineTarget := LineStatusCompleted
		if target == ContractStatusCancelled {
			lineTarget = LineStatusCancelled
			if err := tx.CancelSchedules(ctx, current.ID); err != nil {
				return err
			}
		}
		if err := tx.SetLineStatuses(ctx, current.ID, LineStatusActive, lineTarget); err != nil {
			return err
		}
		current.Status = target
		for i := range current.Lines {
			if current.Lines[i].Status == LineStatusActive {
				current.Lines[i].Status = lineTarget
			}
		}
		contract = current
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	s.recordAudit(ctx, actorID, action, contract.ID, nil)
	return contract, nil
}

// Delete removes a draft contract and its lines. Activated contracts are
// never deleted; cancel them instead so the allocation trail survives.
func (s *Service) Delete(ctx context.Context, contractID int64) error {
	if contractID == 0 {
		return fmt.Errorf("revenue: contract id required: %w", internalShared.ErrValidation)
	}
	current, err := s.repo.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if current.Status != ContractStatusDraft {
		return shared.ErrInvalidStatus
	}
	return s.repo.Delete(ctx, contractID)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, contractID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "contract",
		EntityID: fmt.Sprintf("%d", contractID),
		Meta:     meta,
		At:       s.now(),
	})
}
