package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"alugix.app/internal/audit"
	"alugix.app/internal/auth"
	"alugix.app/internal/authz"
	"alugix.app/internal/billing"
	"alugix.app/internal/obs"
	"alugix.app/internal/rental"
)

const apiPrefix = "/v1"

// ReadyProbe checks readiness by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the collaborators the HTTP layer is wired with.
type Config struct {
	Version    string
	Probe      ReadyProbe
	Auth       *auth.Service
	AuthzStore authz.Store
	Profiles   *authz.Manager
	Billing    billing.Store
	Rentals    rental.Service
	Recorder   *audit.Recorder
}

// auditExcludedPrefixes lists route prefixes the generic audit middleware
// skips because their handlers perform fine-grained audit calls inline.
// Built once at startup; never mutated afterwards.
var auditExcludedPrefixes = []string{
	apiPrefix + "/auth",
	apiPrefix + "/perfis",
	apiPrefix + "/usuarios",
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	probe    ReadyProbe
	version  string
	auth     *auth.Service
	profiles *authz.Manager
	rentals  rental.Service
	recorder *audit.Recorder

	// Permission checkers and quota guards are constructed once, at route
	// registration time; each is a stateless per-request check.
	perm struct {
		propertyView, propertyCreate, propertyUpdate, propertyDelete authz.Checker
		renterView, renterCreate, renterDelete                       authz.Checker
		contractView, contractCreate, contractUpdate                 authz.Checker
		reportView                                                   authz.Checker
		profileManage                                                authz.Checker
		userManage                                                   authz.Checker
	}
	guard struct {
		property, renter, contract billing.Guard
	}
}

// New wires routes and builds the per-route checkers.
func New(cfg Config) *API {
	a := &API{
		mux:      http.NewServeMux(),
		probe:    cfg.Probe,
		version:  cfg.Version,
		auth:     cfg.Auth,
		profiles: cfg.Profiles,
		rentals:  cfg.Rentals,
		recorder: cfg.Recorder,
	}

	a.perm.propertyView = authz.NewChecker(cfg.AuthzStore, authz.ModuleProperties, authz.ActionView)
	a.perm.propertyCreate = authz.NewChecker(cfg.AuthzStore, authz.ModuleProperties, authz.ActionCreate)
	a.perm.propertyUpdate = authz.NewChecker(cfg.AuthzStore, authz.ModuleProperties, authz.ActionUpdate)
	a.perm.propertyDelete = authz.NewChecker(cfg.AuthzStore, authz.ModuleProperties, authz.ActionDelete)
	a.perm.renterView = authz.NewChecker(cfg.AuthzStore, authz.ModuleRenters, authz.ActionView)
	a.perm.renterCreate = authz.NewChecker(cfg.AuthzStore, authz.ModuleRenters, authz.ActionCreate)
	a.perm.renterDelete = authz.NewChecker(cfg.AuthzStore, authz.ModuleRenters, authz.ActionDelete)
	a.perm.contractView = authz.NewChecker(cfg.AuthzStore, authz.ModuleContracts, authz.ActionView)
	a.perm.contractCreate = authz.NewChecker(cfg.AuthzStore, authz.ModuleContracts, authz.ActionCreate)
	a.perm.contractUpdate = authz.NewChecker(cfg.AuthzStore, authz.ModuleContracts, authz.ActionUpdate)
	a.perm.reportView = authz.NewChecker(cfg.AuthzStore, authz.ModuleReports, authz.ActionView)
	a.perm.profileManage = authz.NewChecker(cfg.AuthzStore, authz.ModuleProfiles, authz.ActionUpdate)
	a.perm.userManage = authz.NewChecker(cfg.AuthzStore, authz.ModuleUsers, authz.ActionUpdate)

	a.guard.property = billing.NewGuard(cfg.Billing, billing.ResourceProperty)
	a.guard.renter = billing.NewGuard(cfg.Billing, billing.ResourceRenter)
	a.guard.contract = billing.NewGuard(cfg.Billing, billing.ResourceContract)

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc(apiPrefix+"/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc(apiPrefix+"/auth/login", a.handleLogin)
	a.mux.HandleFunc(apiPrefix+"/auth/refresh", a.handleRefresh)

	// rental resources
	a.mux.HandleFunc(apiPrefix+"/imoveis", a.handlePropertiesCollection)
	a.mux.HandleFunc(apiPrefix+"/imoveis/", a.handlePropertyResource)
	a.mux.HandleFunc(apiPrefix+"/locatarios", a.handleRentersCollection)
	a.mux.HandleFunc(apiPrefix+"/locatarios/", a.handleRenterResource)
	a.mux.HandleFunc(apiPrefix+"/contratos", a.handleContractsCollection)
	a.mux.HandleFunc(apiPrefix+"/contratos/", a.handleContractResource)
	a.mux.HandleFunc(apiPrefix+"/relatorios/resumo", a.handleSummaryReport)

	// profile administration (inline audit; excluded from the generic recorder)
	a.mux.HandleFunc(apiPrefix+"/perfis", a.handleProfilesCollection)
	a.mux.HandleFunc(apiPrefix+"/perfis/", a.handleProfileResource)
	a.mux.HandleFunc(apiPrefix+"/usuarios/", a.handleUserResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux. Order matters: the
// audit trail sits inside authentication so it sees the principal and tenant,
// and outside the business handlers so it observes their status codes.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.auditTrail(h)
	h = a.withTenant(h)
	h = a.withAuth(h)
	h = RateLimit(h, 50, 25)
	h = LoggingJSON(h)
	h = CORS(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- ops handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "alugix-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.probe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "alugix-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
