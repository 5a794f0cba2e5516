package service

import (
	"testing"

	"agrosync-server/internal/domain"
)

func event(id string, op domain.OperationKind, lamport int64, paid bool) *domain.StockEvent {
	ev := &domain.StockEvent{
		SyncMeta: domain.SyncMeta{
			ID:        id,
			LamportTS: lamport,
		},
		Operation: op,
		Delta:     -1,
	}
	if paid {
		status := domain.PaymentPaid
		ev.PaymentStatus = &status
	}
	return ev
}

func TestResolveCascade(t *testing.T) {
	resolver := NewConflictResolver()

	tests := []struct {
		name             string
		incoming         *domain.StockEvent
		existing         *domain.StockEvent
		wantWinner       string
		wantMethod       domain.ResolutionMethod
		wantConfidence   float64
		requiresApproval bool
	}{
		{
			name:           "incoming paid beats unpaid",
			incoming:       event("a", domain.OperationDecrement, 10, true),
			existing:       event("b", domain.OperationDecrement, 5, false),
			wantWinner:     "a",
			wantMethod:     domain.MethodHardcoded,
			wantConfidence: 1.0,
		},
		{
			name:           "existing paid beats unpaid incoming",
			incoming:       event("a", domain.OperationDecrement, 10, false),
			existing:       event("b", domain.OperationIncrement, 5, true),
			wantWinner:     "b",
			wantMethod:     domain.MethodHardcoded,
			wantConfidence: 1.0,
		},
		{
			name:           "unpaid sale beats restock",
			incoming:       event("a", domain.OperationDecrement, 10, false),
			existing:       event("b", domain.OperationIncrement, 5, false),
			wantWinner:     "a",
			wantMethod:     domain.MethodHardcoded,
			wantConfidence: 0.95,
		},
		{
			name:           "earlier lamport order wins",
			incoming:       event("a", domain.OperationIncrement, 3, false),
			existing:       event("b", domain.OperationIncrement, 7, false),
			wantWinner:     "a",
			wantMethod:     domain.MethodHeuristic,
			wantConfidence: 0.9,
		},
		{
			name:             "ambiguous decrements escalate",
			incoming:         event("a", domain.OperationDecrement, 9, false),
			existing:         event("b", domain.OperationDecrement, 5, false),
			wantWinner:       "a",
			wantMethod:       domain.MethodManual,
			wantConfidence:   0.5,
			requiresApproval: true,
		},
		{
			name:           "both paid falls through to earlier wins",
			incoming:       event("a", domain.OperationDecrement, 2, true),
			existing:       event("b", domain.OperationDecrement, 8, true),
			wantWinner:     "a",
			wantMethod:     domain.MethodHeuristic,
			wantConfidence: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.incoming, tt.existing)

			if got.WinnerID != tt.wantWinner {
				t.Errorf("winner = %s, want %s", got.WinnerID, tt.wantWinner)
			}
			if got.Method != tt.wantMethod {
				t.Errorf("method = %s, want %s", got.Method, tt.wantMethod)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.RequiresApproval != tt.requiresApproval {
				t.Errorf("requiresApproval = %v, want %v", got.RequiresApproval, tt.requiresApproval)
			}
		})
	}
}

func TestPaidPrecedenceBothSidesPaidDoesNotApply(t *testing.T) {
	res := paidPrecedence(
		event("a", domain.OperationDecrement, 1, true),
		event("b", domain.OperationDecrement, 2, true),
	)
	if res != nil {
		t.Errorf("paidPrecedence applied when both sides paid: %+v", res)
	}
}

func TestSalePrecedenceIncrementVsDecrementDoesNotApply(t *testing.T) {
	res := salePrecedence(
		event("a", domain.OperationIncrement, 1, false),
		event("b", domain.OperationDecrement, 2, false),
	)
	if res != nil {
		t.Errorf("salePrecedence applied for incoming restock: %+v", res)
	}
}
