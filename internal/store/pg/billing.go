package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"alugix.app/internal/billing"
)

var _ billing.Store = (*Store)(nil)

// PlanByTenant joins tenant -> current subscription -> plan.
func (s *Store) PlanByTenant(ctx context.Context, tenantID string) (billing.Plan, error) {
	var (
		plan                                      billing.Plan
		propertyLimit, renterLimit, contractLimit sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		select p.name, sub.status, p.property_limit, p.renter_limit, p.contract_limit
		from subscriptions sub
		join plans p on p.id = sub.plan_id
		where sub.tenant_id = $1 and sub.current
	`, tenantID).Scan(&plan.Name, &plan.Status, &propertyLimit, &renterLimit, &contractLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.Plan{}, billing.ErrTenantNotFound
		}
		return billing.Plan{}, err
	}
	plan.PropertyLimit = nullableInt(propertyLimit)
	plan.RenterLimit = nullableInt(renterLimit)
	plan.ContractLimit = nullableInt(contractLimit)
	return plan, nil
}

// UsageCount counts existing rows of the resource kind scoped to the tenant.
func (s *Store) UsageCount(ctx context.Context, tenantID string, resource billing.Resource) (int, error) {
	var table string
	switch resource {
	case billing.ResourceProperty:
		table = "properties"
	case billing.ResourceRenter:
		table = "renters"
	case billing.ResourceContract:
		table = "contracts"
	default:
		return 0, fmt.Errorf("unknown resource kind %q", resource)
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from %s where tenant_id = $1`, table), tenantID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
