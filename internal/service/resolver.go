package service

import (
	"agrosync-server/internal/domain"
)

// Resolution is the outcome of one resolver invocation. RequiresApproval
// escalates the conflict to manual resolution and drops the incoming write.
type Resolution struct {
	WinnerID         string
	Reason           string
	Method           domain.ResolutionMethod
	Confidence       float64
	RequiresApproval bool
}

func (r Resolution) Info() *domain.ResolutionInfo {
	return &domain.ResolutionInfo{
		Method:           r.Method,
		Reason:           r.Reason,
		Confidence:       r.Confidence,
		RequiresApproval: r.RequiresApproval,
	}
}

// resolutionRule is one tier of the cascade: a pure function returning nil
// when the tier does not apply.
type resolutionRule struct {
	name  string
	apply func(incoming, existing *domain.StockEvent) *Resolution
}

// ConflictResolver evaluates an ordered rule cascade; the first matching
// tier wins. The final tier always matches, so Resolve never fails.
type ConflictResolver struct {
	rules []resolutionRule
}

func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{
		rules: []resolutionRule{
			{name: "paid_precedence", apply: paidPrecedence},
			{name: "sale_precedence", apply: salePrecedence},
			{name: "earlier_wins", apply: earlierWins},
			{name: "escalate", apply: escalate},
		},
	}
}

func (r *ConflictResolver) Resolve(incoming, existing *domain.StockEvent) Resolution {
	for _, rule := range r.rules {
		if res := rule.apply(incoming, existing); res != nil {
			return *res
		}
	}
	// Unreachable: escalate always matches.
	return *escalate(incoming, existing)
}

// paidPrecedence: a paid operation beats a non-paid one outright, in either
// direction.
func paidPrecedence(incoming, existing *domain.StockEvent) *Resolution {
	if incoming.IsPaid() && !existing.IsPaid() {
		return &Resolution{
			WinnerID:   incoming.ID,
			Reason:     "Paid sale has absolute priority",
			Method:     domain.MethodHardcoded,
			Confidence: 1.0,
		}
	}
	if existing.IsPaid() && !incoming.IsPaid() {
		return &Resolution{
			WinnerID:   existing.ID,
			Reason:     "Existing operation is a paid sale",
			Method:     domain.MethodHardcoded,
			Confidence: 1.0,
		}
	}
	return nil
}

// salePrecedence: stock decrements (sales) beat increments (restocks) when
// neither side is paid.
func salePrecedence(incoming, existing *domain.StockEvent) *Resolution {
	if incoming.Operation == domain.OperationDecrement && existing.Operation == domain.OperationIncrement {
		return &Resolution{
			WinnerID:   incoming.ID,
			Reason:     "Sales take priority over restocks",
			Method:     domain.MethodHardcoded,
			Confidence: 0.95,
		}
	}
	return nil
}

// earlierWins: the operation with the lower lamport order happened first.
func earlierWins(incoming, existing *domain.StockEvent) *Resolution {
	if incoming.LamportTS < existing.LamportTS {
		return &Resolution{
			WinnerID:   incoming.ID,
			Reason:     "Operation occurred first (lower lamport order)",
			Method:     domain.MethodHeuristic,
			Confidence: 0.9,
		}
	}
	return nil
}

// escalate: no deterministic rule applied; the newer operation is the
// provisional winner pending producer approval.
func escalate(incoming, existing *domain.StockEvent) *Resolution {
	return &Resolution{
		WinnerID:         incoming.ID,
		Reason:           "Ambiguous conflict - requires producer decision",
		Method:           domain.MethodManual,
		Confidence:       0.5,
		RequiresApproval: true,
	}
}
