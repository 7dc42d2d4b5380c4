package pg

import (
	"context"
	"database/sql"
	"errors"

	"alugix.app/internal/ids"
	"alugix.app/internal/rental"
)

var _ rental.Service = (*Store)(nil)

// Properties ----------------------------------------------------------------

func (s *Store) CreateProperty(ctx context.Context, p *rental.Property) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into properties (id, tenant_id, title, address, city, kind)
		 values ($1, $2, $3, $4, $5, $6)
		 returning created_at, updated_at`,
		p.ID, p.TenantID, p.Title, p.Address, p.City, p.Kind,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return rental.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListProperties(ctx context.Context, tenantID string) ([]rental.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, tenant_id, title, address, city, kind, created_at, updated_at
		 from properties where tenant_id = $1 order by created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rental.Property
	for rows.Next() {
		var p rental.Property
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Title, &p.Address, &p.City, &p.Kind, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) GetProperty(ctx context.Context, tenantID, id string) (rental.Property, error) {
	var p rental.Property
	err := s.db.QueryRowContext(ctx,
		`select id, tenant_id, title, address, city, kind, created_at, updated_at
		 from properties where tenant_id = $1 and id = $2`, tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.Title, &p.Address, &p.City, &p.Kind, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rental.Property{}, rental.ErrNotFound
		}
		return rental.Property{}, err
	}
	return p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p *rental.Property) error {
	row := s.db.QueryRowContext(ctx,
		`update properties
		 set title = $1, address = $2, city = $3, kind = $4, updated_at = now()
		 where tenant_id = $5 and id = $6
		 returning created_at, updated_at`,
		p.Title, p.Address, p.City, p.Kind, p.TenantID, p.ID,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rental.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from properties where tenant_id = $1 and id = $2`, tenantID, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return rental.ErrConflict
		}
		return err
	}
	return ensureAffected(res, rental.ErrNotFound)
}

// Renters --------------------------------------------------------------------

func (s *Store) CreateRenter(ctx context.Context, r *rental.Renter) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into renters (id, tenant_id, name, email, phone, document)
		 values ($1, $2, $3, $4, $5, $6)
		 returning created_at, updated_at`,
		r.ID, r.TenantID, r.Name, r.Email, r.Phone, r.Document,
	)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return rental.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListRenters(ctx context.Context, tenantID string) ([]rental.Renter, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, tenant_id, name, email, phone, document, created_at, updated_at
		 from renters where tenant_id = $1 order by name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rental.Renter
	for rows.Next() {
		var r rental.Renter
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.Email, &r.Phone, &r.Document, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) GetRenter(ctx context.Context, tenantID, id string) (rental.Renter, error) {
	var r rental.Renter
	err := s.db.QueryRowContext(ctx,
		`select id, tenant_id, name, email, phone, document, created_at, updated_at
		 from renters where tenant_id = $1 and id = $2`, tenantID, id,
	).Scan(&r.ID, &r.TenantID, &r.Name, &r.Email, &r.Phone, &r.Document, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rental.Renter{}, rental.ErrNotFound
		}
		return rental.Renter{}, err
	}
	return r, nil
}

func (s *Store) DeleteRenter(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from renters where tenant_id = $1 and id = $2`, tenantID, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return rental.ErrConflict
		}
		return err
	}
	return ensureAffected(res, rental.ErrNotFound)
}

// Contracts -------------------------------------------------------------------

func (s *Store) CreateContract(ctx context.Context, c *rental.Contract) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.Status == "" {
		c.Status = rental.ContractStatusActive
	}
	row := s.db.QueryRowContext(ctx,
		`insert into contracts (id, tenant_id, property_id, renter_id, rent_amount, start_date, end_date, status)
		 values ($1, $2, $3, $4, $5, $6, $7, $8)
		 returning created_at, updated_at`,
		c.ID, c.TenantID, c.PropertyID, c.RenterID, c.RentAmount, c.StartDate, c.EndDate, c.Status,
	)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return rental.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListContracts(ctx context.Context, tenantID string) ([]rental.Contract, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, tenant_id, property_id, renter_id, rent_amount, start_date, end_date, status, created_at, updated_at
		 from contracts where tenant_id = $1 order by created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rental.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) GetContract(ctx context.Context, tenantID, id string) (rental.Contract, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, tenant_id, property_id, renter_id, rent_amount, start_date, end_date, status, created_at, updated_at
		 from contracts where tenant_id = $1 and id = $2`, tenantID, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rental.Contract{}, rental.ErrNotFound
		}
		return rental.Contract{}, err
	}
	return c, nil
}

func (s *Store) TerminateContract(ctx context.Context, tenantID, id string) (rental.Contract, error) {
	row := s.db.QueryRowContext(ctx,
		`update contracts
		 set status = $1, end_date = coalesce(end_date, now()), updated_at = now()
		 where tenant_id = $2 and id = $3
		 returning id, tenant_id, property_id, renter_id, rent_amount, start_date, end_date, status, created_at, updated_at`,
		rental.ContractStatusTerminated, tenantID, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rental.Contract{}, rental.ErrNotFound
		}
		return rental.Contract{}, err
	}
	return c, nil
}

// TenantSummary aggregates the dashboard numbers in one round trip.
func (s *Store) TenantSummary(ctx context.Context, tenantID string) (rental.Summary, error) {
	var summary rental.Summary
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from properties where tenant_id = $1),
			(select count(*) from renters where tenant_id = $1),
			(select count(*) from contracts where tenant_id = $1 and status = 'active'),
			(select coalesce(sum(rent_amount), 0) from contracts where tenant_id = $1 and status = 'active')
	`, tenantID).Scan(&summary.Properties, &summary.Renters, &summary.ActiveContracts, &summary.MonthlyRent)
	if err != nil {
		return rental.Summary{}, err
	}
	return summary, nil
}

// helpers ---------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (rental.Contract, error) {
	var (
		c       rental.Contract
		endDate sql.NullTime
	)
	err := row.Scan(&c.ID, &c.TenantID, &c.PropertyID, &c.RenterID, &c.RentAmount,
		&c.StartDate, &endDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return rental.Contract{}, err
	}
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	return c, nil
}

func ensureAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
