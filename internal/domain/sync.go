package domain

import "time"

type DeviceType string

const (
	DeviceWeb     DeviceType = "WEB"
	DeviceMobile  DeviceType = "MOBILE"
	DeviceDesktop DeviceType = "DESKTOP"
)

type SyncStatus string

const (
	StatusAccepted  SyncStatus = "accepted"
	StatusDuplicate SyncStatus = "duplicate"
	StatusIgnored   SyncStatus = "ignored"
	StatusConflict  SyncStatus = "conflict"
	StatusRejected  SyncStatus = "rejected"
)

// SyncMeta is the replication metadata carried by every synchronized row.
// Business fields live on the embedding entity; only lamport_ts, version and
// synced_at may change after an event row is persisted.
type SyncMeta struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	Version   int   `json:"version"`
	LamportTS int64 `json:"lamport_ts"`

	DeviceID   string     `json:"device_id"`
	DeviceType DeviceType `json:"device_type"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	ContentHash string `json:"content_hash"`

	CreatedBy string `json:"created_by"`
	UpdatedBy string `json:"updated_by"`
}

// SyncItem is the closed set of entities the dispatcher accepts. The
// unexported marker keeps the union sealed to this package.
type SyncItem interface {
	syncItem()
}

func (*StockEvent) syncItem()     {}
func (*Product) syncItem()        {}
func (*PendingPayment) syncItem() {}

// SyncResult is the per-item outcome of a push.
type SyncResult struct {
	Status        SyncStatus      `json:"status"`
	Message       string          `json:"message,omitempty"`
	OperationID   string          `json:"operation_id,omitempty"`
	EntityID      string          `json:"entity_id,omitempty"`
	ConflictID    string          `json:"conflict_id,omitempty"`
	ServerLamport int64           `json:"server_lamport,omitempty"`
	Resolution    *ResolutionInfo `json:"resolution,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Suggestion    string          `json:"suggestion,omitempty"`
}

type ResolutionInfo struct {
	Method           ResolutionMethod `json:"method"`
	Reason           string           `json:"reason"`
	Confidence       float64          `json:"confidence"`
	RequiresApproval bool             `json:"requires_approval"`
}

type SyncPushRequest struct {
	Operations []StockEventCreate   `json:"operations"`
	Products   []ProductSync        `json:"products"`
	Payments   []PendingPaymentSync `json:"payments"`

	ClientLamport int64  `json:"client_lamport"`
	DeviceID      string `json:"device_id" validate:"required,uuid"`
}

type SyncPushResponse struct {
	Results       []SyncResult `json:"results"`
	ServerLamport int64        `json:"server_lamport"`
	Timestamp     time.Time    `json:"timestamp"`
}

type SyncPullRequest struct {
	LastLamport int64 `json:"last_lamport" validate:"min=0"`
	Limit       int   `json:"limit" validate:"min=0"`
}

type SyncPullResponse struct {
	Operations    []*StockEvent `json:"operations"`
	ServerLamport int64         `json:"server_lamport"`
	HasMore       bool          `json:"has_more"`
}
