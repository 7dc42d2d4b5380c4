package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"alugix.app/internal/audit"
	"alugix.app/internal/auth"
)

// maxAuditBody caps how much of a request body the audit trail captures.
const maxAuditBody = 64 << 10

// auditTrail records mutating requests that complete with a 2xx/3xx status.
// Recording happens after the handler returns and is submitted to a detached
// queue, so the response is never delayed and a failed write never changes
// the outcome the client saw.
func (a *API) auditTrail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action, mutating := audit.ActionForMethod(r.Method)
		if !mutating || !strings.HasPrefix(r.URL.Path, apiPrefix) || isAuditExcluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Capture the body for the entry while leaving it readable for the
		// handler.
		var captured []byte
		if r.Body != nil {
			captured, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditBody))
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(captured), r.Body), r.Body}
		}

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		if sw.code < 200 || sw.code >= 400 || a.recorder == nil {
			return
		}

		entry := audit.Entry{
			Action:   action,
			NewData:  audit.SanitizeBody(captured),
			SourceIP: clientIP(r),
		}
		entry.EntityKind, entry.EntityID = audit.EntityFromPath(r.URL.Path, apiPrefix)
		if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
			entry.ActorID = principal.UserID
		}
		if tenantID, ok := auth.TenantFromContext(r.Context()); ok {
			entry.TenantID = tenantID
		}
		a.recorder.Submit(entry)
	})
}

func isAuditExcluded(path string) bool {
	for _, prefix := range auditExcludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
