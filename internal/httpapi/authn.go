package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"alugix.app/internal/auth"
	"alugix.app/internal/authz"
	"alugix.app/internal/billing"
	"alugix.app/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	apiPrefix + "/auth/login",
	apiPrefix + "/auth/refresh",
	apiPrefix + "/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth verifies the bearer credential and attaches the principal to the
// request context. Expiry is reported separately from other failures so the
// frontend can refresh instead of logging the user out.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "token não informado")
			return
		}

		principal, err := a.auth.ParseAndValidate(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeErrorCode(w, r, http.StatusUnauthorized, "token expirado", "TOKEN_EXPIRED")
			case errors.Is(err, auth.ErrTokenMissing):
				writeError(w, r, http.StatusUnauthorized, "token não informado")
			default:
				writeError(w, r, http.StatusForbidden, "token inválido")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

// extractToken reads the Authorization header, falling back to the ?token=
// query parameter for contexts where custom headers are unavailable (report
// download links opened directly by the browser).
func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" {
		if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			return ""
		}
		return strings.TrimSpace(header[len(bearer):])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// withTenant publishes the principal's tenant id for downstream stages.
func (a *API) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := auth.ResolveTenant(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrNoTenant):
				writeError(w, r, http.StatusForbidden, "nenhuma empresa vinculada ao usuário")
			default:
				writeError(w, r, http.StatusUnauthorized, "não autenticado")
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// allow runs a permission checker and writes the rejection when it fails.
func (a *API) allow(w http.ResponseWriter, r *http.Request, checker authz.Checker) bool {
	err := checker.Evaluate(r.Context())
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "não autenticado")
	case errors.Is(err, authz.ErrNoProfile):
		writeError(w, r, http.StatusForbidden, "perfil de acesso não atribuído")
	case errors.Is(err, authz.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "permissão negada")
	default:
		writeError(w, r, http.StatusInternalServerError, "erro interno")
	}
	return false
}

// withinQuota runs a subscription guard and writes the rejection when the
// tenant is out of quota or its subscription lapsed.
func (a *API) withinQuota(w http.ResponseWriter, r *http.Request, guard billing.Guard) bool {
	err := guard.Allow(r.Context())
	if err == nil {
		return true
	}
	var quotaErr *billing.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		obs.QuotaDenied(string(quotaErr.Resource))
		writeErrorPayload(w, r, http.StatusForbidden, map[string]any{
			"error":   "limite do plano atingido",
			"limit":   quotaErr.Limit,
			"current": quotaErr.Current,
		})
	case errors.Is(err, billing.ErrTenantNotFound):
		writeError(w, r, http.StatusNotFound, "plano da empresa não encontrado")
	case errors.Is(err, billing.ErrSubscriptionInactive):
		writeError(w, r, http.StatusForbidden, "assinatura inativa")
	case errors.Is(err, auth.ErrNoTenant):
		writeError(w, r, http.StatusForbidden, "nenhuma empresa vinculada ao usuário")
	default:
		writeError(w, r, http.StatusInternalServerError, "erro interno")
	}
	return false
}
