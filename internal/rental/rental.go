// Package rental holds the tenant-owned domain records of the application.
// Every operation is scoped by tenant id; handlers obtain that id from the
// request context, never from client input.
package rental

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("rental: not found")
	ErrInvalidInput = errors.New("rental: invalid input")
	ErrConflict     = errors.New("rental: resource conflict")
)

// Property is a rentable building or lot.
type Property struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Title     string    `json:"title"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Kind      string    `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Renter is a person or company renting a property.
type Renter struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Document  string    `json:"document,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contract binds a renter to a property for a period. Rent is stored in
// centavos.
type Contract struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"-"`
	PropertyID string     `json:"property_id"`
	RenterID   string     `json:"renter_id"`
	RentAmount int64      `json:"rent_amount"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

const (
	ContractStatusActive     = "active"
	ContractStatusTerminated = "terminated"
)

// Summary aggregates per-tenant figures for the dashboard report.
type Summary struct {
	Properties      int   `json:"properties"`
	Renters         int   `json:"renters"`
	ActiveContracts int   `json:"active_contracts"`
	MonthlyRent     int64 `json:"monthly_rent"`
}

// Service defines the rental operations exposed over HTTP.
type Service interface {
	CreateProperty(ctx context.Context, p *Property) error
	ListProperties(ctx context.Context, tenantID string) ([]Property, error)
	GetProperty(ctx context.Context, tenantID, id string) (Property, error)
	UpdateProperty(ctx context.Context, p *Property) error
	DeleteProperty(ctx context.Context, tenantID, id string) error

	CreateRenter(ctx context.Context, r *Renter) error
	ListRenters(ctx context.Context, tenantID string) ([]Renter, error)
	GetRenter(ctx context.Context, tenantID, id string) (Renter, error)
	DeleteRenter(ctx context.Context, tenantID, id string) error

	CreateContract(ctx context.Context, c *Contract) error
	ListContracts(ctx context.Context, tenantID string) ([]Contract, error)
	GetContract(ctx context.Context, tenantID, id string) (Contract, error)
	TerminateContract(ctx context.Context, tenantID, id string) (Contract, error)

	TenantSummary(ctx context.Context, tenantID string) (Summary, error)
}
