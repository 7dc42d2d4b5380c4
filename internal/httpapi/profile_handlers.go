package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"alugix.app/internal/audit"
	"alugix.app/internal/auth"
	"alugix.app/internal/authz"
)

type createProfileRequest struct {
	Name string `json:"name"`
}

type setGrantsRequest struct {
	Grants []authz.Grant `json:"grants"`
}

type assignProfileRequest struct {
	ProfileID *string `json:"profile_id"`
}

func (a *API) handleProfilesCollection(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, a.perm.profileManage) {
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := a.profiles.ListProfiles(r.Context(), tenantID)
		if err != nil {
			handleAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req createProfileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		profile, err := a.profiles.CreateProfile(r.Context(), tenantID, req.Name)
		if err != nil {
			handleAuthzError(w, r, err)
			return
		}
		a.recordAdminAction(r, audit.ActionCreate, "PERFIL", profile.ID, nil, profile)
		w.Header().Set("Location", apiPrefix+"/perfis/"+profile.ID)
		writeJSON(w, http.StatusCreated, profile)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProfileResource(w http.ResponseWriter, r *http.Request) {
	if !a.allow(w, r, a.perm.profileManage) {
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix+"/perfis/"), "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		profile, err := a.profiles.GetProfile(r.Context(), tenantID, parts[0])
		if err != nil {
			handleAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case len(parts) == 2 && parts[1] == "permissoes":
		a.handleProfileGrants(w, r, tenantID, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
	}
}

func (a *API) handleProfileGrants(w http.ResponseWriter, r *http.Request, tenantID, profileID string) {
	switch r.Method {
	case http.MethodGet:
		grants, err := a.profiles.ListGrants(r.Context(), tenantID, profileID)
		if err != nil {
			handleAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": grants})
	case http.MethodPut:
		var req setGrantsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		previous, err := a.profiles.ListGrants(r.Context(), tenantID, profileID)
		if err != nil {
			handleAuthzError(w, r, err)
			return
		}
		if err := a.profiles.SetGrants(r.Context(), tenantID, profileID, req.Grants); err != nil {
			handleAuthzError(w, r, err)
			return
		}
		a.recordAdminAction(r, audit.ActionUpdate, "PERFIL", profileID, previous, req.Grants)
		writeJSON(w, http.StatusOK, map[string]any{"items": req.Grants})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix+"/usuarios/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "perfil" {
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.allow(w, r, a.perm.userManage) {
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	userID := parts[0]
	var req assignProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.profiles.AssignProfile(r.Context(), tenantID, userID, req.ProfileID); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	a.recordAdminAction(r, audit.ActionUpdate, "USUARIO", userID, nil, req)
	writeJSON(w, http.StatusOK, map[string]any{"status": "atualizado"})
}

// recordAdminAction audits profile and user administration inline. The routes
// are excluded from the generic trail so their request bodies can be logged
// with the exact shapes the handlers validated.
func (a *API) recordAdminAction(r *http.Request, action, kind, entityID string, oldData, newData any) {
	if a.recorder == nil {
		return
	}
	entry := audit.Entry{
		Action:     action,
		EntityKind: kind,
		EntityID:   entityID,
		SourceIP:   clientIP(r),
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		entry.ActorID = p.UserID
	}
	if tenantID, ok := auth.TenantFromContext(r.Context()); ok {
		entry.TenantID = tenantID
	}
	if oldData != nil {
		if raw, err := json.Marshal(oldData); err == nil {
			entry.OldData = raw
		}
	}
	if newData != nil {
		if raw, err := json.Marshal(newData); err == nil {
			entry.NewData = raw
		}
	}
	a.recorder.Submit(entry)
}

func handleAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "dados inválidos")
	case errors.Is(err, authz.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
	case errors.Is(err, authz.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflito de recursos")
	default:
		writeError(w, r, http.StatusInternalServerError, "erro interno")
	}
}
