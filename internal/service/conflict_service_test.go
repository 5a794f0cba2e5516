package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrosync-server/internal/domain"
)

func pendingConflict(id string, detectedAt time.Time) *domain.SyncConflict {
	return &domain.SyncConflict{
		ID:               id,
		TenantID:         testTenant,
		DetectedAt:       detectedAt,
		EntityType:       "StockEvent",
		EntityID:         testProduct,
		OperationAID:     "88888888-8888-8888-8888-888888888888",
		OperationBID:     "99999999-9999-9999-9999-999999999999",
		Status:           domain.ConflictPending,
		ResolutionMethod: domain.MethodManual,
		Confidence:       0.5,
	}
}

func TestConflictListDefaultsToPending(t *testing.T) {
	repo := &mockConflictRepo{}
	now := time.Now().UTC()
	repo.conflicts = []*domain.SyncConflict{
		pendingConflict("c1", now),
		pendingConflict("c2", now.Add(-time.Minute)),
	}
	resolved := pendingConflict("c3", now)
	resolved.Status = domain.ConflictResolvedAuto
	repo.conflicts = append(repo.conflicts, resolved)

	svc := NewConflictService(&mockRunner{}, repo)

	res, err := svc.List(context.Background(), testTenant, "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if res.Total != 2 {
		t.Errorf("total = %d, want 2 pending conflicts", res.Total)
	}
	for _, c := range res.Conflicts {
		if c.Status != domain.ConflictPending {
			t.Errorf("conflict %s status = %s, want PENDING", c.ID, c.Status)
		}
	}
}

func TestConflictListEmptyReturnsNonNilSlice(t *testing.T) {
	svc := NewConflictService(&mockRunner{}, &mockConflictRepo{})

	res, err := svc.List(context.Background(), testTenant, domain.ConflictPending, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Conflicts == nil {
		t.Error("Conflicts is nil, want empty slice")
	}
	if res.Total != 0 {
		t.Errorf("total = %d, want 0", res.Total)
	}
}

func TestConflictResolve(t *testing.T) {
	repo := &mockConflictRepo{}
	repo.conflicts = []*domain.SyncConflict{pendingConflict("c1", time.Now().UTC())}
	svc := NewConflictService(&mockRunner{}, repo)

	feedback := "device A was offline, the paid sale is correct"
	req := &domain.ConflictResolutionRequest{
		WinnerID:   "88888888-8888-8888-8888-888888888888",
		ResolvedBy: testUser,
		Feedback:   &feedback,
	}

	resolved, err := svc.Resolve(context.Background(), testTenant, "c1", req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if resolved.Status != domain.ConflictResolvedManual {
		t.Errorf("status = %s, want RESOLVED_MANUAL", resolved.Status)
	}
	if resolved.WinnerID != req.WinnerID {
		t.Errorf("winner = %s, want %s", resolved.WinnerID, req.WinnerID)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != testUser {
		t.Error("resolved_by not stamped")
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolved_at not stamped")
	}
	if resolved.UserFeedback == nil || *resolved.UserFeedback != feedback {
		t.Error("feedback not stored")
	}

	if repo.conflicts[0].Status != domain.ConflictResolvedManual {
		t.Error("stored conflict not transitioned")
	}
}

func TestConflictResolveNotFound(t *testing.T) {
	svc := NewConflictService(&mockRunner{}, &mockConflictRepo{})

	_, err := svc.Resolve(context.Background(), testTenant, "missing", &domain.ConflictResolutionRequest{
		WinnerID:   "88888888-8888-8888-8888-888888888888",
		ResolvedBy: testUser,
	})
	if !errors.Is(err, ErrConflictNotFound) {
		t.Errorf("error = %v, want ErrConflictNotFound", err)
	}
}

func TestConflictResolveAlreadyResolved(t *testing.T) {
	repo := &mockConflictRepo{}
	c := pendingConflict("c1", time.Now().UTC())
	c.Status = domain.ConflictResolvedManual
	repo.conflicts = []*domain.SyncConflict{c}
	svc := NewConflictService(&mockRunner{}, repo)

	_, err := svc.Resolve(context.Background(), testTenant, "c1", &domain.ConflictResolutionRequest{
		WinnerID:   "88888888-8888-8888-8888-888888888888",
		ResolvedBy: testUser,
	})
	if !errors.Is(err, ErrConflictNotPending) {
		t.Errorf("error = %v, want ErrConflictNotPending", err)
	}
}
