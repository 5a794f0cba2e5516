package service

import (
	"context"

	"agrosync-server/internal/domain"
)

// RuleViolation rejects an operation with a reason and an optional suggested
// alternative for the device to retry with.
type RuleViolation struct {
	Reason     string
	Suggestion string
}

// BusinessRule validates an event against domain constraints (non-negative
// resulting stock, writes on deleted products, and so on). Returning nil
// accepts the operation.
type BusinessRule func(ctx context.Context, op *domain.StockEvent) *RuleViolation

// RuleChain evaluates rules in order and stops at the first violation.
type RuleChain []BusinessRule

func (c RuleChain) Validate(ctx context.Context, op *domain.StockEvent) *RuleViolation {
	for _, rule := range c {
		if v := rule(ctx, op); v != nil {
			return v
		}
	}
	return nil
}

// DefaultRules is the extension point for domain validation; the default
// chain accepts every operation.
func DefaultRules() RuleChain {
	return nil
}
