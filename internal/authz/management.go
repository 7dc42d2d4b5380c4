package authz

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("authz: not found")
	ErrInvalidInput = errors.New("authz: invalid input")
	ErrConflict     = errors.New("authz: resource conflict")
)

// Profile is a named bundle of granted module/action pairs for
// non-administrator users of one tenant.
type Profile struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grant is one (profile, module, action, allowed) tuple.
type Grant struct {
	ProfileID string `json:"-"`
	Module    Module `json:"module"`
	Action    Action `json:"action"`
	Allowed   bool   `json:"allowed"`
}

// AdminStore is the management side of the evaluator: it maintains the rows
// the per-request checks read.
type AdminStore interface {
	CreateProfile(ctx context.Context, profile *Profile) error
	ListProfiles(ctx context.Context, tenantID string) ([]Profile, error)
	GetProfile(ctx context.Context, tenantID, id string) (Profile, error)
	SetGrants(ctx context.Context, profileID string, grants []Grant) error
	ListGrants(ctx context.Context, profileID string) ([]Grant, error)
	AssignProfile(ctx context.Context, tenantID, userID string, profileID *string) error
}

// Manager validates and applies profile changes.
type Manager struct {
	store AdminStore
}

// NewManager constructs a Manager.
func NewManager(store AdminStore) (*Manager, error) {
	if store == nil {
		return nil, errors.New("authz: admin store is required")
	}
	return &Manager{store: store}, nil
}

func (m *Manager) CreateProfile(ctx context.Context, tenantID, name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, ErrInvalidInput
	}
	profile := Profile{TenantID: tenantID, Name: name}
	if err := m.store.CreateProfile(ctx, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (m *Manager) ListProfiles(ctx context.Context, tenantID string) ([]Profile, error) {
	return m.store.ListProfiles(ctx, tenantID)
}

func (m *Manager) GetProfile(ctx context.Context, tenantID, id string) (Profile, error) {
	return m.store.GetProfile(ctx, tenantID, id)
}

// SetGrants replaces the profile's grant rows. The profile must belong to the
// caller's tenant; grants for unknown modules or actions are rejected.
func (m *Manager) SetGrants(ctx context.Context, tenantID, profileID string, grants []Grant) error {
	if _, err := m.store.GetProfile(ctx, tenantID, profileID); err != nil {
		return err
	}
	for _, g := range grants {
		if !validModule(g.Module) || !validAction(g.Action) {
			return ErrInvalidInput
		}
	}
	return m.store.SetGrants(ctx, profileID, grants)
}

func (m *Manager) ListGrants(ctx context.Context, tenantID, profileID string) ([]Grant, error) {
	if _, err := m.store.GetProfile(ctx, tenantID, profileID); err != nil {
		return nil, err
	}
	return m.store.ListGrants(ctx, profileID)
}

// AssignProfile links a user to a profile, or clears the link when profileID
// is nil.
func (m *Manager) AssignProfile(ctx context.Context, tenantID, userID string, profileID *string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	if profileID != nil {
		if _, err := m.store.GetProfile(ctx, tenantID, *profileID); err != nil {
			return err
		}
	}
	return m.store.AssignProfile(ctx, tenantID, userID, profileID)
}

func validModule(m Module) bool {
	switch m {
	case ModuleProperties, ModuleRenters, ModuleContracts, ModuleUnits, ModuleReports, ModuleProfiles, ModuleUsers:
		return true
	default:
		return false
	}
}

func validAction(a Action) bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}
