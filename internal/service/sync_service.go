package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"agrosync-server/internal/domain"
	"agrosync-server/internal/repository"
)

// SyncOptions tunes the conflict detection heuristic and pull paging.
type SyncOptions struct {
	// ConflictWindow bounds how many recent events on the same product are
	// scanned for concurrency candidates.
	ConflictWindow int
	// LamportThreshold is the maximum lamport distance at which two events
	// from different devices are treated as concurrent. This is a proxy for
	// causal independence, not an exact test.
	LamportThreshold int64
	DefaultPageSize  int
	MaxPageSize      int
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.ConflictWindow <= 0 {
		o.ConflictWindow = 10
	}
	if o.LamportThreshold <= 0 {
		o.LamportThreshold = 100
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = 100
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 500
	}
	return o
}

type SyncService struct {
	runner    repository.TxRunner
	events    repository.EventRepository
	products  repository.ProductRepository
	payments  repository.PaymentRepository
	conflicts repository.ConflictRepository
	clock     repository.ClockRepository
	resolver  *ConflictResolver
	rules     RuleChain
	validate  *validator.Validate
	opts      SyncOptions
}

func NewSyncService(
	runner repository.TxRunner,
	events repository.EventRepository,
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	conflicts repository.ConflictRepository,
	clock repository.ClockRepository,
	rules RuleChain,
	opts SyncOptions,
) *SyncService {
	return &SyncService{
		runner:    runner,
		events:    events,
		products:  products,
		payments:  payments,
		conflicts: conflicts,
		clock:     clock,
		resolver:  NewConflictResolver(),
		rules:     rules,
		validate:  validator.New(),
		opts:      opts.withDefaults(),
	}
}

// Push processes a device batch. Each item runs in its own tenant-bound
// transaction, so one item's failure never rolls back its siblings; results
// preserve submission order across the three lists.
func (s *SyncService) Push(ctx context.Context, tenantID string, req *domain.SyncPushRequest) (*domain.SyncPushResponse, error) {
	results := make([]domain.SyncResult, 0, len(req.Operations)+len(req.Products)+len(req.Payments))

	for i := range req.Operations {
		op := &req.Operations[i]
		if err := s.validate.Struct(op); err != nil {
			results = append(results, invalidItem(err))
			continue
		}
		ev, err := op.ToEvent(tenantID)
		if err != nil {
			results = append(results, invalidItem(err))
			continue
		}
		res, err := s.Accept(ctx, tenantID, ev)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	for i := range req.Products {
		snap := &req.Products[i]
		if err := s.validate.Struct(snap); err != nil {
			results = append(results, invalidItem(err))
			continue
		}
		p, err := snap.ToProduct(tenantID)
		if err != nil {
			results = append(results, invalidItem(err))
			continue
		}
		res, err := s.Accept(ctx, tenantID, p)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	for i := range req.Payments {
		snap := &req.Payments[i]
		if err := s.validate.Struct(snap); err != nil {
			results = append(results, invalidItem(err))
			continue
		}
		p, err := snap.ToPayment(tenantID)
		if err != nil {
			results = append(results, invalidItem(err))
			continue
		}
		res, err := s.Accept(ctx, tenantID, p)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	server, err := s.serverLamport(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &domain.SyncPushResponse{
		Results:       results,
		ServerLamport: server,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// Accept routes a single item to its handler. Storage policy violations
// propagate as errors; everything else is reported in the result.
func (s *SyncService) Accept(ctx context.Context, tenantID string, item domain.SyncItem) (domain.SyncResult, error) {
	var res domain.SyncResult
	var err error

	switch it := item.(type) {
	case *domain.StockEvent:
		res, err = s.acceptEvent(ctx, tenantID, it)
	case *domain.Product:
		res, err = s.acceptProduct(ctx, tenantID, it)
	case *domain.PendingPayment:
		res, err = s.acceptPayment(ctx, tenantID, it)
	default:
		return domain.SyncResult{
			Status:  domain.StatusRejected,
			Message: fmt.Sprintf("unsupported entity type: %T", item),
		}, nil
	}

	if err != nil {
		if repository.IsPolicyViolation(err) {
			return domain.SyncResult{}, err
		}
		return domain.SyncResult{Status: domain.StatusRejected, Message: err.Error()}, nil
	}
	return res, nil
}

// acceptEvent runs the append-only pipeline: idempotency gate, clock
// assignment, content hash, version bump, conflict scan, resolution,
// business rules, persist.
func (s *SyncService) acceptEvent(ctx context.Context, tenantID string, ev *domain.StockEvent) (domain.SyncResult, error) {
	var res domain.SyncResult

	err := s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		existing, err := s.events.FindByIdempotencyKey(ctx, tx, ev.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			res = domain.SyncResult{
				Status:      domain.StatusDuplicate,
				OperationID: existing.ID,
				Message:     "operation already processed",
			}
			return nil
		}

		order, err := s.clock.Advance(ctx, tx, tenantID, ev.LamportTS)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		ev.LamportTS = order
		ev.SyncedAt = &now

		hash, err := ev.ComputeContentHash()
		if err != nil {
			return err
		}
		ev.ContentHash = hash

		ev.Version++
		ev.UpdatedAt = now

		recent, err := s.events.ListRecentByProduct(ctx, tx, ev.ProductID, ev.ID, s.opts.ConflictWindow)
		if err != nil {
			return err
		}

		var autoConflictID string
		var autoResolution *domain.ResolutionInfo

		if candidates := s.concurrentCandidates(ev, recent); len(candidates) > 0 {
			resolution := s.resolver.Resolve(ev, candidates[0])

			conflictID, err := s.logConflict(ctx, tenantID, ev, candidates[0], resolution)
			if err != nil {
				return err
			}

			if resolution.RequiresApproval {
				res = domain.SyncResult{
					Status:     domain.StatusConflict,
					ConflictID: conflictID,
					Resolution: resolution.Info(),
					Message:    "conflict detected - requires producer approval",
				}
				return errDropItem
			}

			autoConflictID = conflictID
			autoResolution = resolution.Info()
		}

		if v := s.rules.Validate(ctx, ev); v != nil {
			res = domain.SyncResult{
				Status:     domain.StatusRejected,
				Reason:     v.Reason,
				Suggestion: v.Suggestion,
				Message:    "business rule violation",
			}
			return errDropItem
		}

		if err := s.events.Insert(ctx, tx, ev); err != nil {
			return err
		}

		res = domain.SyncResult{
			Status:        domain.StatusAccepted,
			OperationID:   ev.ID,
			ServerLamport: order,
			ConflictID:    autoConflictID,
			Resolution:    autoResolution,
			Message:       "event accepted",
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDropItem) {
		return domain.SyncResult{}, err
	}

	return res, nil
}

// concurrentCandidates applies the timestamp-distance heuristic: events on
// the same product from a different device whose lamport order is within the
// threshold are treated as concurrent.
func (s *SyncService) concurrentCandidates(ev *domain.StockEvent, recent []*domain.StockEvent) []*domain.StockEvent {
	var candidates []*domain.StockEvent
	for _, op := range recent {
		distance := op.LamportTS - ev.LamportTS
		if distance < 0 {
			distance = -distance
		}
		if distance < s.opts.LamportThreshold && op.DeviceID != ev.DeviceID {
			candidates = append(candidates, op)
		}
	}
	return candidates
}

// logConflict writes the audit record in its own transaction, so it survives
// regardless of whether the triggering operation is ultimately persisted.
func (s *SyncService) logConflict(ctx context.Context, tenantID string, incoming, existing *domain.StockEvent, resolution Resolution) (string, error) {
	payloadA, err := json.Marshal(incoming)
	if err != nil {
		return "", err
	}
	payloadB, err := json.Marshal(existing)
	if err != nil {
		return "", err
	}

	status := domain.ConflictResolvedAuto
	if resolution.RequiresApproval {
		status = domain.ConflictPending
	}

	conflict := &domain.SyncConflict{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		DetectedAt:       time.Now().UTC(),
		EntityType:       "StockEvent",
		EntityID:         incoming.ProductID,
		OperationAID:     incoming.ID,
		OperationBID:     existing.ID,
		PayloadA:         payloadA,
		PayloadB:         payloadB,
		Status:           status,
		ResolutionMethod: resolution.Method,
		WinnerID:         resolution.WinnerID,
		ResolutionReason: resolution.Reason,
		Confidence:       resolution.Confidence,
	}

	err = s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		return s.conflicts.Insert(ctx, tx, conflict)
	})
	if err != nil {
		return "", err
	}
	return conflict.ID, nil
}

type lwwOutcome int

const (
	lwwCreate lwwOutcome = iota
	lwwReplace
	lwwStale
	lwwTie
)

// decideLWW compares the incoming order against the stored one. Ties are
// unconditionally server-wins.
func decideLWW(incoming int64, existing *int64) lwwOutcome {
	switch {
	case existing == nil:
		return lwwCreate
	case incoming > *existing:
		return lwwReplace
	case incoming < *existing:
		return lwwStale
	default:
		return lwwTie
	}
}

type stateOps struct {
	find    func(tx *sql.Tx) (*domain.SyncMeta, error)
	create  func(tx *sql.Tx) error
	replace func(tx *sql.Tx) error
}

// acceptState applies whole-record last-write-wins to a replicated entity.
func (s *SyncService) acceptState(ctx context.Context, tenantID string, meta *domain.SyncMeta, ops stateOps) (domain.SyncResult, error) {
	var res domain.SyncResult

	err := s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		existingMeta, err := ops.find(tx)
		if err != nil {
			return err
		}
		var existingOrder *int64
		if existingMeta != nil {
			existingOrder = &existingMeta.LamportTS
		}

		switch decideLWW(meta.LamportTS, existingOrder) {
		case lwwCreate:
			order, err := s.clock.Advance(ctx, tx, tenantID, meta.LamportTS)
			if err != nil {
				return err
			}
			stampSynced(meta, order)
			if err := ops.create(tx); err != nil {
				return err
			}
			res = domain.SyncResult{
				Status:        domain.StatusAccepted,
				EntityID:      meta.ID,
				ServerLamport: order,
				Message:       "new state created",
			}

		case lwwReplace:
			order, err := s.clock.Advance(ctx, tx, tenantID, meta.LamportTS)
			if err != nil {
				return err
			}
			stampSynced(meta, order)
			if err := ops.replace(tx); err != nil {
				return err
			}
			res = domain.SyncResult{
				Status:        domain.StatusAccepted,
				EntityID:      meta.ID,
				ServerLamport: order,
				Message:       "state updated",
			}

		case lwwStale:
			res = domain.SyncResult{
				Status:   domain.StatusIgnored,
				EntityID: meta.ID,
				Message:  "state stale (older lamport order)",
			}

		case lwwTie:
			res = domain.SyncResult{
				Status:   domain.StatusIgnored,
				EntityID: meta.ID,
				Message:  "concurrent update - server state preserved",
			}
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, err
	}

	return res, nil
}

func stampSynced(meta *domain.SyncMeta, order int64) {
	now := time.Now().UTC()
	meta.LamportTS = order
	meta.SyncedAt = &now
	meta.UpdatedAt = now
}

func (s *SyncService) acceptProduct(ctx context.Context, tenantID string, p *domain.Product) (domain.SyncResult, error) {
	var existing *domain.Product
	return s.acceptState(ctx, tenantID, &p.SyncMeta, stateOps{
		find: func(tx *sql.Tx) (*domain.SyncMeta, error) {
			var err error
			existing, err = s.products.FindByID(ctx, tx, p.ID)
			if err != nil || existing == nil {
				return nil, err
			}
			return &existing.SyncMeta, nil
		},
		create: func(tx *sql.Tx) error {
			return s.products.Insert(ctx, tx, p)
		},
		replace: func(tx *sql.Tx) error {
			p.CreatedAt = existing.CreatedAt
			p.CreatedBy = existing.CreatedBy
			return s.products.Replace(ctx, tx, p)
		},
	})
}

func (s *SyncService) acceptPayment(ctx context.Context, tenantID string, p *domain.PendingPayment) (domain.SyncResult, error) {
	var existing *domain.PendingPayment
	return s.acceptState(ctx, tenantID, &p.SyncMeta, stateOps{
		find: func(tx *sql.Tx) (*domain.SyncMeta, error) {
			var err error
			existing, err = s.payments.FindByID(ctx, tx, p.ID)
			if err != nil || existing == nil {
				return nil, err
			}
			return &existing.SyncMeta, nil
		},
		create: func(tx *sql.Tx) error {
			return s.payments.Insert(ctx, tx, p)
		},
		replace: func(tx *sql.Tx) error {
			p.CreatedAt = existing.CreatedAt
			p.CreatedBy = existing.CreatedBy
			return s.payments.Replace(ctx, tx, p)
		},
	})
}

// Pull returns events with lamport order strictly greater than the client's
// cursor, ascending.
func (s *SyncService) Pull(ctx context.Context, tenantID string, req *domain.SyncPullRequest) (*domain.SyncPullResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.DefaultPageSize
	}
	if limit > s.opts.MaxPageSize {
		limit = s.opts.MaxPageSize
	}

	var ops []*domain.StockEvent
	var server int64

	err := s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		var err error
		ops, err = s.events.ListAfter(ctx, tx, req.LastLamport, limit)
		if err != nil {
			return err
		}
		server, err = s.clock.Current(ctx, tx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ops == nil {
		ops = []*domain.StockEvent{}
	}

	return &domain.SyncPullResponse{
		Operations:    ops,
		ServerLamport: server,
		HasMore:       len(ops) == limit,
	}, nil
}

func (s *SyncService) serverLamport(ctx context.Context, tenantID string) (int64, error) {
	var server int64
	err := s.runner.WithTenant(ctx, tenantID, func(tx *sql.Tx) error {
		var err error
		server, err = s.clock.Current(ctx, tx, tenantID)
		return err
	})
	return server, err
}

func invalidItem(err error) domain.SyncResult {
	return domain.SyncResult{
		Status:  domain.StatusRejected,
		Message: "validation failed",
		Reason:  err.Error(),
	}
}
