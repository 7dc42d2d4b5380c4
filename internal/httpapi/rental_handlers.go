package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"alugix.app/internal/auth"
	"alugix.app/internal/rental"
)

type createPropertyRequest struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	City    string `json:"city"`
	Kind    string `json:"kind"`
}

type createRenterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

type createContractRequest struct {
	PropertyID string     `json:"property_id"`
	RenterID   string     `json:"renter_id"`
	RentAmount int64      `json:"rent_amount"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
}

func (a *API) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusForbidden, "nenhuma empresa vinculada ao usuário")
		return "", false
	}
	return tenantID, true
}

// Properties ------------------------------------------------------------------

func (a *API) handlePropertiesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.allow(w, r, a.perm.propertyView) {
			return
		}
		a.listProperties(w, r)
	case http.MethodPost:
		if !a.allow(w, r, a.perm.propertyCreate) {
			return
		}
		if !a.withinQuota(w, r, a.guard.property) {
			return
		}
		a.createProperty(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePropertyResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, apiPrefix+"/imoveis/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.allow(w, r, a.perm.propertyView) {
			return
		}
		a.getProperty(w, r, id)
	case http.MethodPut:
		if !a.allow(w, r, a.perm.propertyUpdate) {
			return
		}
		a.updateProperty(w, r, id)
	case http.MethodDelete:
		if !a.allow(w, r, a.perm.propertyDelete) {
			return
		}
		a.deleteProperty(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listProperties(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	items, err := a.rentals.ListProperties(r.Context(), tenantID)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createProperty(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Address) == "" {
		writeError(w, r, http.StatusBadRequest, "título e endereço são obrigatórios")
		return
	}
	property := rental.Property{
		TenantID: tenantID,
		Title:    strings.TrimSpace(req.Title),
		Address:  strings.TrimSpace(req.Address),
		City:     strings.TrimSpace(req.City),
		Kind:     strings.TrimSpace(req.Kind),
	}
	if err := a.rentals.CreateProperty(r.Context(), &property); err != nil {
		handleRentalError(w, r, err)
		return
	}
	w.Header().Set("Location", apiPrefix+"/imoveis/"+property.ID)
	writeJSON(w, http.StatusCreated, property)
}

func (a *API) getProperty(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	property, err := a.rentals.GetProperty(r.Context(), tenantID, id)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (a *API) updateProperty(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	property := rental.Property{
		ID:       id,
		TenantID: tenantID,
		Title:    strings.TrimSpace(req.Title),
		Address:  strings.TrimSpace(req.Address),
		City:     strings.TrimSpace(req.City),
		Kind:     strings.TrimSpace(req.Kind),
	}
	if err := a.rentals.UpdateProperty(r.Context(), &property); err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (a *API) deleteProperty(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	if err := a.rentals.DeleteProperty(r.Context(), tenantID, id); err != nil {
		handleRentalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Renters ----------------------------------------------------------------------

func (a *API) handleRentersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.allow(w, r, a.perm.renterView) {
			return
		}
		a.listRenters(w, r)
	case http.MethodPost:
		if !a.allow(w, r, a.perm.renterCreate) {
			return
		}
		if !a.withinQuota(w, r, a.guard.renter) {
			return
		}
		a.createRenter(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRenterResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, apiPrefix+"/locatarios/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.allow(w, r, a.perm.renterView) {
			return
		}
		a.getRenter(w, r, id)
	case http.MethodDelete:
		if !a.allow(w, r, a.perm.renterDelete) {
			return
		}
		a.deleteRenter(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) listRenters(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	items, err := a.rentals.ListRenters(r.Context(), tenantID)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createRenter(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req createRenterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "nome é obrigatório")
		return
	}
	renter := rental.Renter{
		TenantID: tenantID,
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(strings.ToLower(req.Email)),
		Phone:    strings.TrimSpace(req.Phone),
		Document: strings.TrimSpace(req.Document),
	}
	if err := a.rentals.CreateRenter(r.Context(), &renter); err != nil {
		handleRentalError(w, r, err)
		return
	}
	w.Header().Set("Location", apiPrefix+"/locatarios/"+renter.ID)
	writeJSON(w, http.StatusCreated, renter)
}

func (a *API) getRenter(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	renter, err := a.rentals.GetRenter(r.Context(), tenantID, id)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renter)
}

func (a *API) deleteRenter(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	if err := a.rentals.DeleteRenter(r.Context(), tenantID, id); err != nil {
		handleRentalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Contracts ----------------------------------------------------------------------

func (a *API) handleContractsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.allow(w, r, a.perm.contractView) {
			return
		}
		a.listContracts(w, r)
	case http.MethodPost:
		if !a.allow(w, r, a.perm.contractCreate) {
			return
		}
		if !a.withinQuota(w, r, a.guard.contract) {
			return
		}
		a.createContract(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleContractResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPrefix+"/contratos/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 && parts[1] == "encerrar" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		if !a.allow(w, r, a.perm.contractUpdate) {
			return
		}
		a.terminateContract(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !a.allow(w, r, a.perm.contractView) {
			return
		}
		a.getContract(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) listContracts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	items, err := a.rentals.ListContracts(r.Context(), tenantID)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createContract(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	var req createContractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.PropertyID == "" || req.RenterID == "" {
		writeError(w, r, http.StatusBadRequest, "imóvel e locatário são obrigatórios")
		return
	}
	if req.RentAmount <= 0 {
		writeError(w, r, http.StatusBadRequest, "valor do aluguel deve ser positivo")
		return
	}
	if req.StartDate.IsZero() {
		writeError(w, r, http.StatusBadRequest, "data de início é obrigatória")
		return
	}
	// Contracts can only reference rows of the same tenant.
	if _, err := a.rentals.GetProperty(r.Context(), tenantID, req.PropertyID); err != nil {
		handleRentalError(w, r, err)
		return
	}
	if _, err := a.rentals.GetRenter(r.Context(), tenantID, req.RenterID); err != nil {
		handleRentalError(w, r, err)
		return
	}
	contract := rental.Contract{
		TenantID:   tenantID,
		PropertyID: req.PropertyID,
		RenterID:   req.RenterID,
		RentAmount: req.RentAmount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	if err := a.rentals.CreateContract(r.Context(), &contract); err != nil {
		handleRentalError(w, r, err)
		return
	}
	w.Header().Set("Location", apiPrefix+"/contratos/"+contract.ID)
	writeJSON(w, http.StatusCreated, contract)
}

func (a *API) getContract(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	contract, err := a.rentals.GetContract(r.Context(), tenantID, id)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (a *API) terminateContract(w http.ResponseWriter, r *http.Request, id string) {
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	contract, err := a.rentals.TerminateContract(r.Context(), tenantID, id)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Reports ----------------------------------------------------------------------

func (a *API) handleSummaryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.allow(w, r, a.perm.reportView) {
		return
	}
	tenantID, ok := a.tenantID(w, r)
	if !ok {
		return
	}
	summary, err := a.rentals.TenantSummary(r.Context(), tenantID)
	if err != nil {
		handleRentalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// helpers -------------------------------------------------------------------------

func resourceID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func handleRentalError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rental.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "dados inválidos")
	case errors.Is(err, rental.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "recurso não encontrado")
	case errors.Is(err, rental.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflito de recursos")
	default:
		writeError(w, r, http.StatusInternalServerError, "erro interno")
	}
}
