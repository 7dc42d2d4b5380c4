// Package billing enforces subscription plan quotas on resource creation.
package billing

import (
	"context"
	"errors"
	"fmt"

	"alugix.app/internal/auth"
)

// Resource is a countable, quota-limited resource kind.
type Resource string

const (
	ResourceProperty Resource = "imovel"
	ResourceRenter   Resource = "locatario"
	ResourceContract Resource = "contrato"
)

// Subscription statuses that keep the tenant operational.
const (
	StatusActive   = "active"
	StatusTrial    = "trial"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

var (
	// ErrTenantNotFound indicates the tenant has no current subscription row.
	ErrTenantNotFound = errors.New("billing: tenant plan not found")
	// ErrSubscriptionInactive indicates a subscription outside {active, trial}.
	ErrSubscriptionInactive = errors.New("billing: subscription inactive")
)

// QuotaExceededError carries the plan limit and the current usage so the
// response body can include both.
type QuotaExceededError struct {
	Resource Resource
	Limit    int
	Current  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("billing: quota exceeded for %s: %d/%d", e.Resource, e.Current, e.Limit)
}

// Plan is the tenant's current subscription plan. A nil limit means the plan
// places no cap on that resource kind.
type Plan struct {
	Name          string
	Status        string
	PropertyLimit *int
	RenterLimit   *int
	ContractLimit *int
}

// QuotaFor resolves the limit for a resource kind; nil means unlimited.
func (p Plan) QuotaFor(resource Resource) *int {
	switch resource {
	case ResourceProperty:
		return p.PropertyLimit
	case ResourceRenter:
		return p.RenterLimit
	case ResourceContract:
		return p.ContractLimit
	default:
		return nil
	}
}

// Store describes the reads the guard performs. Usage is always derived from
// a live count, never a stored counter.
type Store interface {
	// PlanByTenant joins tenant -> current subscription -> plan and returns
	// ErrTenantNotFound when no such row exists.
	PlanByTenant(ctx context.Context, tenantID string) (Plan, error)
	// UsageCount counts existing rows of the resource kind scoped to the tenant.
	UsageCount(ctx context.Context, tenantID string, resource Resource) (int, error)
}

// Guard is a stateless per-route quota strategy bound to one resource kind.
type Guard struct {
	store    Store
	resource Resource
}

// NewGuard builds a guard for a fixed resource kind.
func NewGuard(store Store, resource Resource) Guard {
	return Guard{store: store, resource: resource}
}

// Allow decides whether the tenant scoped in ctx may create one more row of
// the guard's resource kind. Quota 0 blocks all creation; current >= quota
// denies, so the last allowed creation is the one that brings usage to
// quota-1 -> quota.
func (g Guard) Allow(ctx context.Context) error {
	tenantID, ok := auth.TenantFromContext(ctx)
	if !ok {
		return auth.ErrNoTenant
	}
	plan, err := g.store.PlanByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if plan.Status != StatusActive && plan.Status != StatusTrial {
		return ErrSubscriptionInactive
	}
	quota := plan.QuotaFor(g.resource)
	if quota == nil {
		return nil
	}
	current, err := g.store.UsageCount(ctx, tenantID, g.resource)
	if err != nil {
		return fmt.Errorf("billing: usage count: %w", err)
	}
	if current >= *quota {
		return &QuotaExceededError{Resource: g.resource, Limit: *quota, Current: current}
	}
	return nil
}

// Resource exposes the resource kind the guard was registered with.
func (g Guard) Resource() Resource { return g.resource }
