package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	users         map[string]*User
	usersByEmail  map[string]*User
	refreshTokens map[string]*RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*User),
		usersByEmail:  make(map[string]*User),
		refreshTokens: make(map[string]*RefreshToken),
	}
}

func (f *fakeStore) addUser(u *User) {
	f.users[u.ID] = u
	f.usersByEmail[u.Email] = u
}

func (f *fakeStore) FindUser(_ context.Context, id string) (*User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	if u, ok := f.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, tok *RefreshToken) error {
	f.refreshTokens[tok.ID] = tok
	return nil
}

func (f *fakeStore) FindRefreshToken(_ context.Context, id string) (*RefreshToken, error) {
	if t, ok := f.refreshTokens[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) RevokeRefreshToken(_ context.Context, id string) error {
	if t, ok := f.refreshTokens[id]; ok {
		t.Revoked = true
		return nil
	}
	return ErrNotFound
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithSecret("test-secret"), WithIssuer("test-issuer")}
	svc, err := NewService(newFakeStore(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService(t)

	token, exp, err := svc.GenerateToken("user-42", "tenant-7", false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiration, got %v", exp)
	}

	principal, err := svc.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if principal.UserID != "user-42" {
		t.Fatalf("unexpected user id: %s", principal.UserID)
	}
	if principal.TenantID != "tenant-7" {
		t.Fatalf("unexpected tenant id: %s", principal.TenantID)
	}
	if principal.Admin {
		t.Fatalf("expected non-admin principal")
	}
}

func TestValidateKeepsAdminFlag(t *testing.T) {
	svc := newTestService(t)

	token, _, err := svc.GenerateToken("user-1", "tenant-1", true)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	principal, err := svc.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if !principal.Admin {
		t.Fatalf("admin flag lost in round trip")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	issued := newTestService(t, WithClock(func() time.Time { return past }))

	token, _, err := issued.GenerateToken("user-1", "tenant-1", false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	svc := newTestService(t)
	if _, err := svc.ParseAndValidate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.ParseAndValidate(""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if _, err := svc.ParseAndValidate("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	other, err := NewService(newFakeStore(), WithSecret("other-secret"), WithIssuer("test-issuer"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	token, _, err := other.GenerateToken("user-1", "tenant-1", false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	svc := newTestService(t)
	if _, err := svc.ParseAndValidate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	store := newFakeStore()
	hash, err := HashPassword("s3nh4-forte")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store.addUser(&User{
		ID:           "user-1",
		TenantID:     "tenant-1",
		Email:        "dona@imobiliaria.com.br",
		PasswordHash: hash,
		Status:       UserStatusActive,
	})
	svc, err := NewService(store, WithSecret("test-secret"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	pair, user, err := svc.Login(context.Background(), "Dona@imobiliaria.com.br", "s3nh4-forte")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("unexpected user: %s", user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens issued")
	}

	rotated, _, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	// The presented token is revoked; replaying it must fail.
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on replay, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newFakeStore()
	hash, _ := HashPassword("certa")
	store.addUser(&User{
		ID:           "user-1",
		TenantID:     "tenant-1",
		Email:        "dona@imobiliaria.com.br",
		PasswordHash: hash,
		Status:       UserStatusActive,
	})
	store.addUser(&User{
		ID:           "user-2",
		TenantID:     "tenant-1",
		Email:        "inativo@imobiliaria.com.br",
		PasswordHash: hash,
		Status:       UserStatusDisabled,
	})
	svc, err := NewService(store, WithSecret("test-secret"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []struct{ email, password string }{
		{"dona@imobiliaria.com.br", "errada"},
		{"ninguem@imobiliaria.com.br", "certa"},
		{"inativo@imobiliaria.com.br", "certa"},
		{"", ""},
	}
	for _, c := range cases {
		if _, _, err := svc.Login(context.Background(), c.email, c.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%q): expected ErrInvalidCredentials, got %v", c.email, err)
		}
	}
}

func TestResolveTenant(t *testing.T) {
	ctx := context.Background()
	if _, err := ResolveTenant(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	ctx = ContextWithPrincipal(context.Background(), Principal{UserID: "user-1"})
	if _, err := ResolveTenant(ctx); !errors.Is(err, ErrNoTenant) {
		t.Fatalf("expected ErrNoTenant, got %v", err)
	}

	ctx = ContextWithPrincipal(context.Background(), Principal{UserID: "user-1", TenantID: "tenant-9"})
	scoped, err := ResolveTenant(ctx)
	if err != nil {
		t.Fatalf("ResolveTenant: %v", err)
	}
	if got, ok := TenantFromContext(scoped); !ok || got != "tenant-9" {
		t.Fatalf("tenant not published: %q %v", got, ok)
	}
}
