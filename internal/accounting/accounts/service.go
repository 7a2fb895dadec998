package accounts

import (
	"context"
	"strings"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput groups fields for a new account.
type CreateInput struct {
	OrgID    int64
	Code     string
	Name     string
	Type     AccountType
	IsSystem bool
}

// UpdateInput groups mutable account fields.
type UpdateInput struct {
	ID       int64
	Code     string
	Name     string
	Type     AccountType
	IsActive bool
}

func (s *Service) List(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.List(ctx, orgID)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if in.OrgID == 0 || code == "" || name == "" || !in.Type.Valid() {
		return Account{}, shared.ErrInvalidAccount
	}
	return s.repo.Insert(ctx, Account{
		OrgID:    in.OrgID,
		Code:     code,
		Name:     name,
		Type:     in.Type,
		IsActive: true,
		IsSystem: in.IsSystem,
	})
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (Account, error) {
	current, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return Account{}, err
	}
	if !in.Type.Valid() {
		in.Type = current.Type
	}
	if current.IsSystem && in.Type != current.Type {
		return Account{}, shared.ErrSystemAccount
	}
	current.Code = strings.TrimSpace(in.Code)
	current.Name = strings.TrimSpace(in.Name)
	current.Type = in.Type
	current.IsActive = in.IsActive
	if current.Code == "" || current.Name == "" {
		return Account{}, shared.ErrInvalidAccount
	}
	return s.repo.Update(ctx, current)
}

// Delete removes an account unless it is a system account or still referenced
// by journal or contract lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return shared.ErrSystemAccount
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return shared.ErrAccountInUse
	}
	return s.repo.Delete(ctx, id)
}
