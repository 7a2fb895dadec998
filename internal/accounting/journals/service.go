package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, orgID int64, status EntryStatus) ([]JournalEntry, error) {
	return s.repo.List(ctx, orgID, status)
}

func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, entryID)
}

// CreateDraft opens a draft entry. Balance is not enforced here: drafts
// support incremental entry building and are only checked at posting time.
func (s *Service) CreateDraft(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextEntryNumber(ctx, in.OrgID)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, in, number, EntryStatusDraft, nil, nil)
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, in.CreatedBy, "journal.create", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// UpdateDraft replaces header fields and lines of a draft entry. Posted and
// voided entries are immutable.
func (s *Service) UpdateDraft(ctx context.Context, in UpdateEntryInput) (JournalEntry, error) {
	if in.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("accounting: entry id required: %w", internalShared.ErrValidation)
	}
	if err := validateLines(in.Lines); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		lines, err := tx.ReplaceLines(ctx, current.ID, in.Lines)
		if err != nil {
			return err
		}
		current.Lines = lines
		if !in.EntryDate.IsZero() {
			current.EntryDate = in.EntryDate
		}
		if in.Description != "" {
			current.Description = in.Description
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Post moves a draft to POSTED after the exact-balance check. Recognition
// entries never pass through here; they are inserted already posted.
func (s *Service) Post(ctx context.Context, in PostInput) (JournalEntry, error) {
	if in.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("accounting: entry id required: %w", internalShared.ErrValidation)
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := checkBalanced(lines); err != nil {
			return err
		}
		now := s.now()
		if err := tx.MarkPosted(ctx, current.ID, now, in.ActorID); err != nil {
			return err
		}
		current.Status = EntryStatusPosted
		current.PostedAt = &now
		current.PostedBy = &in.ActorID
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, in.ActorID, "journal.post", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// Void marks a posted entry VOIDED. It is an audit record, not a reversal:
// any correcting entry is a separate draft created by the caller.
func (s *Service) Void(ctx context.Context, in VoidInput) (JournalEntry, error) {
	if in.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("accounting: entry id required: %w", internalShared.ErrValidation)
	}
	if in.Reason == "" {
		return JournalEntry{}, fmt.Errorf("accounting: void reason required: %w", internalShared.ErrValidation)
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusPosted {
			return shared.ErrInvalidStatus
		}
		now := s.now()
		if err := tx.MarkVoided(ctx, current.ID, now, in.ActorID, in.Reason); err != nil {
			return err
		}
		current.Status = EntryStatusVoided
		current.VoidedAt = &now
		current.VoidedBy = &in.ActorID
		current.VoidReason = in.Reason
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, in.ActorID, "journal.void", entry.ID, map[string]any{"reason": in.Reason})
	return entry, nil
}

// Delete removes a draft entry outright. Posted entries can only be voided.
func (s *Service) Delete(ctx context.Context, entryID int64) error {
	if entryID == 0 {
		return fmt.Errorf("accounting: entry id required: %w", internalShared.ErrValidation)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		return tx.DeleteEntry(ctx, current.ID)
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}
