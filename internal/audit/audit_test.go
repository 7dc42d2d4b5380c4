package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func TestActionForMethod(t *testing.T) {
	cases := map[string]struct {
		action string
		ok     bool
	}{
		"POST":    {ActionCreate, true},
		"PUT":     {ActionUpdate, true},
		"PATCH":   {ActionUpdate, true},
		"DELETE":  {ActionDelete, true},
		"GET":     {"", false},
		"HEAD":    {"", false},
		"OPTIONS": {"", false},
	}
	for method, want := range cases {
		action, ok := ActionForMethod(method)
		if action != want.action || ok != want.ok {
			t.Fatalf("ActionForMethod(%q) = %q,%v; want %q,%v", method, action, ok, want.action, want.ok)
		}
	}
}

func TestEntityFromPath(t *testing.T) {
	cases := []struct {
		path string
		kind string
		id   string
	}{
		{"/v1/imoveis", "IMOVEL", ""},
		{"/v1/imoveis/01J9W9GZ2M0QG4V1T3Y8KXB7NC", "IMOVEL", "01J9W9GZ2M0QG4V1T3Y8KXB7NC"},
		// "fotos" is shorter than the id threshold: it is a static
		// sub-resource, not an identifier.
		{"/v1/imoveis/fotos", "IMOVEL", ""},
		{"/v1/contratos/01J9W9GZ2M0QG4V1T3Y8KXB7NC/assinar", "CONTRATO", "01J9W9GZ2M0QG4V1T3Y8KXB7NC"},
		{"/v1/locatarios", "LOCATARIO", ""},
		// Unmapped segments pass through uppercased.
		{"/v1/vistorias/01J9W9GZ2M0QG4V1T3Y8KXB7NC", "VISTORIAS", "01J9W9GZ2M0QG4V1T3Y8KXB7NC"},
		{"/v1/", "", ""},
	}
	for _, tc := range cases {
		kind, id := EntityFromPath(tc.path, "/v1")
		if kind != tc.kind || id != tc.id {
			t.Fatalf("EntityFromPath(%q) = %q,%q; want %q,%q", tc.path, kind, id, tc.kind, tc.id)
		}
	}
}

func TestSanitizeBodyStripsSensitiveFields(t *testing.T) {
	body := []byte(`{"email":"dona@imobiliaria.com.br","password":"s3cr3t","current-password":"old","new-password":"new","name":"Dona"}`)
	clean := SanitizeBody(body)
	if clean == nil {
		t.Fatal("expected sanitized body")
	}
	var payload map[string]any
	if err := json.Unmarshal(clean, &payload); err != nil {
		t.Fatalf("sanitized body is not JSON: %v", err)
	}
	for _, field := range []string{"password", "current-password", "new-password"} {
		if _, ok := payload[field]; ok {
			t.Fatalf("field %q survived sanitization", field)
		}
	}
	if payload["email"] != "dona@imobiliaria.com.br" || payload["name"] != "Dona" {
		t.Fatalf("non-sensitive fields were altered: %v", payload)
	}
}

func TestSanitizeBodyDiscardsNonJSON(t *testing.T) {
	if got := SanitizeBody([]byte("senha=123&user=x")); got != nil {
		t.Fatalf("expected nil for non-JSON body, got %s", got)
	}
	if got := SanitizeBody(nil); got != nil {
		t.Fatalf("expected nil for empty body, got %s", got)
	}
}

type captureStore struct {
	mu      sync.Mutex
	entries []Entry
	fail    bool
	wrote   chan struct{}
}

func (s *captureStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		select {
		case s.wrote <- struct{}{}:
		default:
		}
	}()
	if s.fail {
		return errors.New("insert failed")
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func TestRecorderPersistsSubmittedEntries(t *testing.T) {
	store := &captureStore{wrote: make(chan struct{}, 8)}
	rec := NewRecorder(store)

	rec.Submit(Entry{
		TenantID:   "tenant-1",
		ActorID:    "user-1",
		Action:     ActionCreate,
		EntityKind: "IMOVEL",
	})
	rec.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry persisted, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.ID == "" {
		t.Fatal("expected generated entry id")
	}
	if entry.OccurredAt.IsZero() {
		t.Fatal("expected timestamp to be filled")
	}
}

func TestRecorderSwallowsStoreFailure(t *testing.T) {
	store := &captureStore{fail: true, wrote: make(chan struct{}, 8)}
	rec := NewRecorder(store)

	// Must not panic or propagate anywhere.
	rec.Submit(Entry{Action: ActionDelete, EntityKind: "CONTRATO"})
	rec.Close()
}
