// Package budget enforces per-API-key research request budgets.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ize202/slipshark/pkg/models"
	"github.com/ize202/slipshark/pkg/store"
)

// ErrBudgetExceeded is returned when a request exceeds the budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks research usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	store    store.Store
}

// New creates an Enforcer with the given policies and history store.
func New(policies []models.BudgetPolicy, s store.Store) *Enforcer {
	return &Enforcer{policies: policies, store: s}
}

// Check returns ErrBudgetExceeded if the API key has exhausted any policy
// applicable to a research request of the given mode.
func (e *Enforcer) Check(ctx context.Context, apiKey string, mode models.ResearchMode) error {
	for _, p := range e.applicablePolicies(apiKey, mode) {
		used, err := e.store.CountByKey(ctx, apiKey, p.Mode, periodStart(p.Period))
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxRequests {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns the budget status for an API key across all applicable
// policies.
func (e *Enforcer) Status(ctx context.Context, apiKey string) ([]models.BudgetStatus, error) {
	policies := e.policiesForKey(apiKey)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		used, err := e.store.CountByKey(ctx, apiKey, p.Mode, periodStart(p.Period))
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxRequests - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

// policiesForKey returns all policies matching an API key (ignoring mode).
func (e *Enforcer) policiesForKey(apiKey string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.APIKey == "*" || p.APIKey == apiKey {
			result = append(result, p)
		}
	}
	return result
}

func (e *Enforcer) applicablePolicies(apiKey string, mode models.ResearchMode) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.APIKey == "*" || p.APIKey == apiKey {
			if p.Mode == "" || p.Mode == mode {
				result = append(result, p)
			}
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod) time.Time {
	now := time.Now().UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
