package domain

import (
	"testing"
	"time"
)

func testEvent() *StockEvent {
	createdAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return &StockEvent{
		SyncMeta: SyncMeta{
			ID:         "9f1b8c44-0000-0000-0000-000000000001",
			TenantID:   "9f1b8c44-0000-0000-0000-00000000000a",
			Version:    1,
			LamportTS:  42,
			DeviceID:   "9f1b8c44-0000-0000-0000-00000000000b",
			DeviceType: DeviceMobile,
			CreatedAt:  createdAt,
			UpdatedAt:  createdAt,
			CreatedBy:  "9f1b8c44-0000-0000-0000-00000000000c",
			UpdatedBy:  "9f1b8c44-0000-0000-0000-00000000000c",
		},
		ProductID: "9f1b8c44-0000-0000-0000-00000000000d",
		Operation: OperationDecrement,
		Delta:     -5,
		Reason:    "SALE",
	}
}

func TestContentHashIgnoresSyncMetadata(t *testing.T) {
	ev := testEvent()
	base, err := ev.ComputeContentHash()
	if err != nil {
		t.Fatalf("ComputeContentHash() error = %v", err)
	}

	ev.LamportTS = 999
	ev.Version = 7
	now := time.Now()
	ev.SyncedAt = &now
	ev.UpdatedAt = now
	ev.ContentHash = "something"

	after, err := ev.ComputeContentHash()
	if err != nil {
		t.Fatalf("ComputeContentHash() error = %v", err)
	}

	if base != after {
		t.Error("content hash changed after metadata-only mutation")
	}
}

func TestContentHashDetectsBusinessChange(t *testing.T) {
	ev := testEvent()
	base, err := ev.ComputeContentHash()
	if err != nil {
		t.Fatalf("ComputeContentHash() error = %v", err)
	}

	ev.Delta = -6
	after, err := ev.ComputeContentHash()
	if err != nil {
		t.Fatalf("ComputeContentHash() error = %v", err)
	}

	if base == after {
		t.Error("content hash identical after delta change")
	}
}

func TestIdempotencyKeyDeterministic(t *testing.T) {
	a := testEvent()
	b := testEvent()
	b.ID = "different-server-id"
	b.LamportTS = 7

	keyA, err := a.ComputeIdempotencyKey()
	if err != nil {
		t.Fatalf("ComputeIdempotencyKey() error = %v", err)
	}
	keyB, err := b.ComputeIdempotencyKey()
	if err != nil {
		t.Fatalf("ComputeIdempotencyKey() error = %v", err)
	}

	if keyA != keyB {
		t.Error("idempotency key depends on non-business fields")
	}

	b.Delta = -3
	keyC, err := b.ComputeIdempotencyKey()
	if err != nil {
		t.Fatalf("ComputeIdempotencyKey() error = %v", err)
	}
	if keyA == keyC {
		t.Error("idempotency key identical for different deltas")
	}
}

func TestToEventComputesKeyWhenMissing(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	req := &StockEventCreate{
		ProductID:  "9f1b8c44-0000-0000-0000-00000000000d",
		DeviceID:   "9f1b8c44-0000-0000-0000-00000000000b",
		DeviceType: DeviceMobile,
		Operation:  OperationDecrement,
		Delta:      -5,
		Reason:     "SALE",
		CreatedAt:  &createdAt,
		CreatedBy:  "9f1b8c44-0000-0000-0000-00000000000c",
		UpdatedBy:  "9f1b8c44-0000-0000-0000-00000000000c",
	}

	ev, err := req.ToEvent("9f1b8c44-0000-0000-0000-00000000000a")
	if err != nil {
		t.Fatalf("ToEvent() error = %v", err)
	}

	if ev.IdempotencyKey == "" {
		t.Error("ToEvent() left idempotency key empty")
	}
	if ev.Version != 1 {
		t.Errorf("ToEvent() version = %d, want 1", ev.Version)
	}
	if ev.TenantID != "9f1b8c44-0000-0000-0000-00000000000a" {
		t.Errorf("ToEvent() tenant = %s", ev.TenantID)
	}

	ev2, err := req.ToEvent("9f1b8c44-0000-0000-0000-00000000000a")
	if err != nil {
		t.Fatalf("ToEvent() error = %v", err)
	}
	if ev.IdempotencyKey != ev2.IdempotencyKey {
		t.Error("ToEvent() key not deterministic for identical payloads")
	}
}
