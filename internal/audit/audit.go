// Package audit records mutating actions against entities, keyed by tenant
// and actor. Recording is best-effort: a failed write is logged and swallowed,
// never surfaced to the client and never allowed to mask the handler outcome.
package audit

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry is an immutable record of one mutating action. Created once, never
// updated or deleted by this pipeline.
type Entry struct {
	ID         string
	TenantID   string
	ActorID    string
	Action     string
	EntityKind string
	EntityID   string
	OldData    json.RawMessage
	NewData    json.RawMessage
	Detail     string
	SourceIP   string
	OccurredAt time.Time
}

// Actions derived from the HTTP method.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ActionForMethod maps a mutating HTTP method to an audit action. The second
// return is false for methods the recorder ignores (GET, HEAD, OPTIONS, ...).
func ActionForMethod(method string) (string, bool) {
	switch method {
	case "POST":
		return ActionCreate, true
	case "PUT", "PATCH":
		return ActionUpdate, true
	case "DELETE":
		return ActionDelete, true
	default:
		return "", false
	}
}

// entitySynonyms maps the first URL path segment after the API prefix to the
// entity kind stored in the log. Unmapped segments pass through uppercased.
var entitySynonyms = map[string]string{
	"imoveis":     "IMOVEL",
	"properties":  "IMOVEL",
	"locatarios":  "LOCATARIO",
	"tenants":     "LOCATARIO",
	"contratos":   "CONTRATO",
	"contracts":   "CONTRATO",
	"unidades":    "UNIDADE",
	"units":       "UNIDADE",
	"usuarios":    "USUARIO",
	"users":       "USUARIO",
	"perfis":      "PERFIL",
	"profiles":    "PERFIL",
	"relatorios":  "RELATORIO",
	"assinaturas": "ASSINATURA",
}

// minEntityIDLength separates real identifiers from static sub-resource
// names: a second path segment counts as an entity id only when longer than
// this. TODO: replace the length heuristic with per-route entity declarations
// once the route table carries them.
const minEntityIDLength = 10

// EntityFromPath derives the entity kind and, when present, the entity id
// from a request path like /v1/imoveis/01J9W9GZ2M0QG4V1T3Y8KXB7NC/fotos.
func EntityFromPath(path, apiPrefix string) (kind, id string) {
	trimmed := strings.TrimPrefix(path, apiPrefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.Split(trimmed, "/")
	segment := strings.ToLower(parts[0])
	kind, ok := entitySynonyms[segment]
	if !ok {
		kind = strings.ToUpper(segment)
	}
	if len(parts) > 1 && len(parts[1]) > minEntityIDLength {
		id = parts[1]
	}
	return kind, id
}

// sensitiveFields are stripped from captured request bodies before the entry
// is persisted.
var sensitiveFields = []string{"password", "current-password", "new-password"}

// SanitizeBody strips sensitive fields from a JSON request body. Bodies that
// are not JSON objects are discarded entirely rather than stored raw.
func SanitizeBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	for _, field := range sensitiveFields {
		delete(payload, field)
	}
	clean, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return clean
}
