package billing

import (
	"context"
	"errors"
	"testing"

	"alugix.app/internal/auth"
)

type fakeStore struct {
	plan    Plan
	planErr error
	usage   map[Resource]int

	planCalls  int
	usageCalls int
}

func (f *fakeStore) PlanByTenant(_ context.Context, _ string) (Plan, error) {
	f.planCalls++
	if f.planErr != nil {
		return Plan{}, f.planErr
	}
	return f.plan, nil
}

func (f *fakeStore) UsageCount(_ context.Context, _ string, resource Resource) (int, error) {
	f.usageCalls++
	return f.usage[resource], nil
}

func scopedCtx() context.Context {
	return auth.ContextWithTenant(context.Background(), "tenant-1")
}

func intPtr(n int) *int { return &n }

func TestAllowRequiresTenantScope(t *testing.T) {
	store := &fakeStore{}
	guard := NewGuard(store, ResourceContract)

	if err := guard.Allow(context.Background()); !errors.Is(err, auth.ErrNoTenant) {
		t.Fatalf("expected ErrNoTenant, got %v", err)
	}
	if store.planCalls != 0 {
		t.Fatalf("plan lookup must not run without tenant scope")
	}
}

func TestAllowTenantWithoutPlan(t *testing.T) {
	store := &fakeStore{planErr: ErrTenantNotFound}
	guard := NewGuard(store, ResourceProperty)

	if err := guard.Allow(scopedCtx()); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestAllowInactiveSubscription(t *testing.T) {
	for _, status := range []string{StatusPastDue, StatusCanceled, "suspended"} {
		store := &fakeStore{plan: Plan{Status: status, ContractLimit: intPtr(100)}}
		guard := NewGuard(store, ResourceContract)

		if err := guard.Allow(scopedCtx()); !errors.Is(err, ErrSubscriptionInactive) {
			t.Fatalf("status %q: expected ErrSubscriptionInactive, got %v", status, err)
		}
		if store.usageCalls != 0 {
			t.Fatalf("status %q: usage count must not run for inactive subscription", status)
		}
	}
}

func TestAllowNilQuotaIsUnlimited(t *testing.T) {
	store := &fakeStore{
		plan:  Plan{Status: StatusActive},
		usage: map[Resource]int{ResourceProperty: 1 << 20},
	}
	guard := NewGuard(store, ResourceProperty)

	if err := guard.Allow(scopedCtx()); err != nil {
		t.Fatalf("expected allow with nil quota, got %v", err)
	}
	if store.usageCalls != 0 {
		t.Fatalf("nil quota must skip the usage count query")
	}
}

func TestAllowQuotaBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		quota   int
		current int
		allowed bool
	}{
		{"under quota", 5, 4, true},
		{"at quota", 5, 5, false},
		{"over quota", 5, 6, false},
		{"zero quota blocks all", 0, 0, false},
		{"empty tenant under quota", 1, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{
				plan:  Plan{Status: StatusTrial, ContractLimit: intPtr(tc.quota)},
				usage: map[Resource]int{ResourceContract: tc.current},
			}
			guard := NewGuard(store, ResourceContract)
			err := guard.Allow(scopedCtx())
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			var quotaErr *QuotaExceededError
			if !errors.As(err, &quotaErr) {
				t.Fatalf("expected QuotaExceededError, got %v", err)
			}
			if quotaErr.Limit != tc.quota || quotaErr.Current != tc.current {
				t.Fatalf("unexpected payload: limit=%d current=%d", quotaErr.Limit, quotaErr.Current)
			}
		})
	}
}

func TestAllowChecksOnlyOwnResource(t *testing.T) {
	store := &fakeStore{
		plan: Plan{
			Status:        StatusActive,
			PropertyLimit: intPtr(0),
			ContractLimit: intPtr(10),
		},
		usage: map[Resource]int{ResourceContract: 3},
	}
	guard := NewGuard(store, ResourceContract)

	// The exhausted property quota must not affect contract creation.
	if err := guard.Allow(scopedCtx()); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
}
