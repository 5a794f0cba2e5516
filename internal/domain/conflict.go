package domain

import (
	"encoding/json"
	"time"
)

type ConflictStatus string

const (
	ConflictPending        ConflictStatus = "PENDING"
	ConflictResolvedAuto   ConflictStatus = "RESOLVED_AUTO"
	ConflictResolvedManual ConflictStatus = "RESOLVED_MANUAL"
)

type ResolutionMethod string

const (
	MethodHardcoded ResolutionMethod = "HARDCODED"
	MethodHeuristic ResolutionMethod = "HEURISTIC"
	MethodManual    ResolutionMethod = "MANUAL"
)

// SyncConflict is the audit record of a detected clash between two concurrent
// operations. Both payloads are stored verbatim for later analysis; a pending
// conflict transitions only through an explicit resolve action.
type SyncConflict struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	DetectedAt time.Time `json:"detected_at"`

	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	OperationAID string `json:"operation_a_id"`
	OperationBID string `json:"operation_b_id"`

	PayloadA json.RawMessage `json:"payload_a"`
	PayloadB json.RawMessage `json:"payload_b"`

	Status           ConflictStatus   `json:"status"`
	ResolutionMethod ResolutionMethod `json:"resolution_method"`
	WinnerID         string           `json:"winner_id"`
	ResolutionReason string           `json:"resolution_reason"`
	Confidence       float64          `json:"confidence"`

	ResolvedBy   *string    `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	UserFeedback *string    `json:"user_feedback,omitempty"`
}

type ConflictListResponse struct {
	Conflicts []*SyncConflict `json:"conflicts"`
	Total     int             `json:"total"`
}

type ConflictResolutionRequest struct {
	WinnerID   string  `json:"winner_id" validate:"required,uuid"`
	ResolvedBy string  `json:"resolved_by" validate:"required,uuid"`
	Feedback   *string `json:"feedback"`
}
