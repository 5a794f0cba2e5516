package service

import (
	"context"
	"database/sql"
	"time"

	"agrosync-server/internal/domain"
	"agrosync-server/internal/repository"
)

type ConflictService struct {
	runner    repository.TxRunner
	conflicts repository.ConflictRepository
}

func NewConflictService(runner repository.TxRunner, conflicts repository.ConflictRepository) *ConflictService {
	return &ConflictService{
		runner:    runner,
		conflicts: conflicts,
	}
}

// List returns conflicts with the given status, most recent first.
func (s *ConflictService) List(ctx context.Context, tenantID string, status domain.ConflictStatus, limit int) (*domain.ConflictListResponse, error) {
	if status == "" {
		status = domain.ConflictPending
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	var conflicts []*domain.SyncConflict
	err := s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		var err error
		conflicts, err = s.conflicts.ListByStatus(ctx, tx, status, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	if conflicts == nil {
		conflicts = []*domain.SyncConflict{}
	}

	return &domain.ConflictListResponse{
		Conflicts: conflicts,
		Total:     len(conflicts),
	}, nil
}

// Resolve transitions a pending conflict to manually resolved and stamps the
// resolution metadata. It records the decision only; the winning operation is
// never re-applied or re-validated against current state.
func (s *ConflictService) Resolve(ctx context.Context, tenantID, conflictID string, req *domain.ConflictResolutionRequest) (*domain.SyncConflict, error) {
	var resolved *domain.SyncConflict

	err := s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		conflict, err := s.conflicts.FindByID(ctx, tx, conflictID)
		if err != nil {
			return err
		}
		if conflict == nil {
			return ErrConflictNotFound
		}
		if conflict.Status != domain.ConflictPending {
			return ErrConflictNotPending
		}

		now := time.Now().UTC()
		if err := s.conflicts.MarkResolvedManual(ctx, tx, conflictID, req.WinnerID, req.ResolvedBy, req.Feedback, now); err != nil {
			return err
		}

		conflict.Status = domain.ConflictResolvedManual
		conflict.WinnerID = req.WinnerID
		conflict.ResolvedBy = &req.ResolvedBy
		conflict.ResolvedAt = &now
		conflict.UserFeedback = req.Feedback
		resolved = conflict
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resolved, nil
}
