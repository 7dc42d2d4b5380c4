// Package authz evaluates module/action permissions against the principal's
// profile. Decisions are never cached: every request re-reads the grants so
// the outcome always reflects current database state.
package authz

import (
	"context"
	"errors"
	"fmt"

	"alugix.app/internal/auth"
)

// Module names a feature area of the application.
type Module string

const (
	ModuleProperties Module = "imoveis"
	ModuleRenters    Module = "locatarios"
	ModuleContracts  Module = "contratos"
	ModuleUnits      Module = "unidades"
	ModuleReports    Module = "relatorios"
	ModuleProfiles   Module = "perfis"
	ModuleUsers      Module = "usuarios"
)

// Action names an operation within a module.
type Action string

const (
	ActionView   Action = "visualizar"
	ActionCreate Action = "criar"
	ActionUpdate Action = "editar"
	ActionDelete Action = "excluir"
)

var (
	// ErrNoProfile indicates a non-administrator principal with no profile
	// assigned; nothing can be granted to them.
	ErrNoProfile = errors.New("authz: no profile assigned")
	// ErrPermissionDenied indicates the profile holds no allowing grant for
	// the requested module/action pair.
	ErrPermissionDenied = errors.New("authz: permission denied")
)

// Store describes the two reads the evaluator may perform.
type Store interface {
	// ProfileIDByUser returns the user's profile id, or nil when none is
	// assigned.
	ProfileIDByUser(ctx context.Context, userID string) (*string, error)
	// GrantAllowed reports whether an allowing grant row exists for the
	// triple. Absence of a row is equivalent to "not allowed".
	GrantAllowed(ctx context.Context, profileID string, module Module, action Action) (bool, error)
}

// Checker is a stateless per-route permission strategy built once at route
// registration time.
type Checker struct {
	store  Store
	module Module
	action Action
}

// NewChecker builds a checker for a fixed module/action pair.
func NewChecker(store Store, module Module, action Action) Checker {
	return Checker{store: store, module: module, action: action}
}

// Evaluate decides whether the principal attached to ctx may perform the
// checker's module/action. Rules apply in order, short-circuiting at the
// first applicable one:
//
//  1. no principal: unauthenticated
//  2. administrator: allowed, no lookups performed
//  3. no profile assigned: rejected
//  4. no allowing grant row: rejected
func (c Checker) Evaluate(ctx context.Context) error {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return auth.ErrUnauthenticated
	}
	if principal.Admin {
		return nil
	}
	profileID, err := c.store.ProfileIDByUser(ctx, principal.UserID)
	if err != nil {
		return fmt.Errorf("authz: profile lookup: %w", err)
	}
	if profileID == nil {
		return ErrNoProfile
	}
	allowed, err := c.store.GrantAllowed(ctx, *profileID, c.module, c.action)
	if err != nil {
		return fmt.Errorf("authz: grant lookup: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// Module and Action expose the pair the checker was registered with.
func (c Checker) Module() Module { return c.module }
func (c Checker) Action() Action { return c.action }
