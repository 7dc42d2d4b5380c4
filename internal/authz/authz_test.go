package authz

import (
	"context"
	"errors"
	"testing"

	"alugix.app/internal/auth"
)

type fakeStore struct {
	profileID *string
	allowed   map[string]bool

	profileCalls int
	grantCalls   int
}

func (f *fakeStore) ProfileIDByUser(_ context.Context, _ string) (*string, error) {
	f.profileCalls++
	return f.profileID, nil
}

func (f *fakeStore) GrantAllowed(_ context.Context, profileID string, module Module, action Action) (bool, error) {
	f.grantCalls++
	return f.allowed[profileID+"/"+string(module)+"/"+string(action)], nil
}

func ctxWithPrincipal(admin bool) context.Context {
	return auth.ContextWithPrincipal(context.Background(), auth.Principal{
		UserID:   "user-1",
		TenantID: "tenant-1",
		Admin:    admin,
	})
}

func strPtr(s string) *string { return &s }

func TestEvaluateRejectsMissingPrincipal(t *testing.T) {
	store := &fakeStore{}
	checker := NewChecker(store, ModuleProperties, ActionCreate)

	if err := checker.Evaluate(context.Background()); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if store.profileCalls != 0 || store.grantCalls != 0 {
		t.Fatalf("expected zero store calls, got %d/%d", store.profileCalls, store.grantCalls)
	}
}

func TestEvaluateAdminBypassSkipsLookups(t *testing.T) {
	store := &fakeStore{}
	checker := NewChecker(store, ModuleContracts, ActionDelete)

	if err := checker.Evaluate(ctxWithPrincipal(true)); err != nil {
		t.Fatalf("expected admin allowed, got %v", err)
	}
	if store.profileCalls != 0 {
		t.Fatalf("admin bypass performed %d profile lookups", store.profileCalls)
	}
	if store.grantCalls != 0 {
		t.Fatalf("admin bypass performed %d grant lookups", store.grantCalls)
	}
}

func TestEvaluateNoProfile(t *testing.T) {
	store := &fakeStore{profileID: nil}
	checker := NewChecker(store, ModuleProperties, ActionView)

	if err := checker.Evaluate(ctxWithPrincipal(false)); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
	if store.grantCalls != 0 {
		t.Fatalf("grant lookup must not run without a profile")
	}
}

func TestEvaluateGrantDecisions(t *testing.T) {
	store := &fakeStore{
		profileID: strPtr("profile-1"),
		allowed: map[string]bool{
			"profile-1/imoveis/criar": true,
			// editar present but explicitly disallowed is represented the
			// same way as an absent row: GrantAllowed returns false.
		},
	}

	if err := NewChecker(store, ModuleProperties, ActionCreate).Evaluate(ctxWithPrincipal(false)); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if err := NewChecker(store, ModuleProperties, ActionUpdate).Evaluate(ctxWithPrincipal(false)); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := NewChecker(store, ModuleReports, ActionView).Evaluate(ctxWithPrincipal(false)); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for unknown module, got %v", err)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	store := &fakeStore{
		profileID: strPtr("profile-1"),
		allowed:   map[string]bool{"profile-1/contratos/visualizar": true},
	}
	checker := NewChecker(store, ModuleContracts, ActionView)
	ctx := ctxWithPrincipal(false)

	for i := 0; i < 5; i++ {
		if err := checker.Evaluate(ctx); err != nil {
			t.Fatalf("iteration %d: expected allow, got %v", i, err)
		}
	}
	if store.profileCalls != 5 || store.grantCalls != 5 {
		t.Fatalf("expected one profile and one grant lookup per call, got %d/%d", store.profileCalls, store.grantCalls)
	}
}
