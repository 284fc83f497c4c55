package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// BizidRequest carries a bare tenant id. Used by every lookup endpoint.
type BizidRequest struct {
	Bizid string `json:"bizid"`
}

// TenantListResponse for POST /api/business/list
type TenantListResponse struct {
	Tenants []models.Tenant `json:"tenants"`
	Total   int             `json:"total"`
}

// UpdatePromptRequest for POST /api/prompt/update
type UpdatePromptRequest struct {
	Bizid    string `json:"bizid"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

// DeleteSynonymRequest for POST /api/synonym/delete
type DeleteSynonymRequest struct {
	Bizid       string `json:"bizid"`
	PrimaryTerm string `json:"primary_term"`
}

// DeleteSQLCasesRequest for POST /api/sqlcases/delete
type DeleteSQLCasesRequest struct {
	Bizid   string   `json:"bizid"`
	CaseIDs []string `json:"case_ids"`
}

// DeletedResponse reports how many rows a batch delete removed.
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// ============================================================================
// Handler
// ============================================================================

// AdminHandler handles tenant administration HTTP requests: tenants,
// settings, prompt overrides, synonyms, and the fewshot case library.
type AdminHandler struct {
	admin  services.AdminService
	logger *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// RegisterRoutes registers the admin handler's routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/business/create", h.CreateTenant)
	mux.HandleFunc("POST /api/business/delete", h.DeleteTenant)
	mux.HandleFunc("POST /api/business/list", h.ListTenants)

	mux.HandleFunc("POST /api/settings/get", h.GetSettings)
	mux.HandleFunc("POST /api/settings/update", h.UpdateSettings)

	mux.HandleFunc("POST /api/prompt/get", h.GetPrompts)
	mux.HandleFunc("POST /api/prompt/update", h.UpdatePrompt)

	mux.HandleFunc("POST /api/synonym/create", h.UpsertSynonym)
	mux.HandleFunc("POST /api/synonym/delete", h.DeleteSynonym)
	mux.HandleFunc("POST /api/synonym/list", h.ListSynonyms)

	mux.HandleFunc("POST /api/sqlcases/create", h.UpsertSQLCase)
	mux.HandleFunc("POST /api/sqlcases/delete", h.DeleteSQLCases)
	mux.HandleFunc("POST /api/sqlcases/list", h.ListSQLCases)
}

// CreateTenant handles POST /api/business/create
func (h *AdminHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.CreateTenant(r.Context(), req.Bizid); err != nil {
		h.logger.Error("Failed to create tenant",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: map[string]string{"bizid": req.Bizid}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteTenant handles POST /api/business/delete
func (h *AdminHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.DeleteTenant(r.Context(), req.Bizid); err != nil {
		h.logger.Error("Failed to delete tenant",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListTenants handles POST /api/business/list
func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.admin.ListTenants(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tenants", zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	response := TenantListResponse{Tenants: tenants, Total: len(tenants)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetSettings handles POST /api/settings/get
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	settings, err := h.admin.GetSettings(r.Context(), req.Bizid)
	if err != nil {
		h.logger.Error("Failed to get settings",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: settings}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateSettings handles POST /api/settings/update
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.UpdateSettings(r.Context(), &req); err != nil {
		h.logger.Error("Failed to update settings",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: req}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetPrompts handles POST /api/prompt/get
func (h *AdminHandler) GetPrompts(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	templates, err := h.admin.GetPrompts(r.Context(), req.Bizid)
	if err != nil {
		h.logger.Error("Failed to get prompts",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: templates}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdatePrompt handles POST /api/prompt/update
func (h *AdminHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.UpdatePrompt(r.Context(), req.Bizid, req.Name, req.Template); err != nil {
		h.logger.Error("Failed to update prompt",
			zap.String("bizid", req.Bizid),
			zap.String("name", req.Name),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"name": req.Name}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpsertSynonym handles POST /api/synonym/create
func (h *AdminHandler) UpsertSynonym(w http.ResponseWriter, r *http.Request) {
	var req models.Synonym
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.UpsertSynonym(r.Context(), &req); err != nil {
		h.logger.Error("Failed to upsert synonym",
			zap.String("bizid", req.Bizid),
			zap.String("primary_term", req.PrimaryTerm),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: req}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteSynonym handles POST /api/synonym/delete
func (h *AdminHandler) DeleteSynonym(w http.ResponseWriter, r *http.Request) {
	var req DeleteSynonymRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.DeleteSynonym(r.Context(), req.Bizid, req.PrimaryTerm); err != nil {
		h.logger.Error("Failed to delete synonym",
			zap.String("bizid", req.Bizid),
			zap.String("primary_term", req.PrimaryTerm),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListSynonyms handles POST /api/synonym/list
func (h *AdminHandler) ListSynonyms(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	synonyms, err := h.admin.ListSynonyms(r.Context(), req.Bizid)
	if err != nil {
		h.logger.Error("Failed to list synonyms",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: synonyms}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpsertSQLCase handles POST /api/sqlcases/create
func (h *AdminHandler) UpsertSQLCase(w http.ResponseWriter, r *http.Request) {
	var req models.SQLCase
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.admin.UpsertSQLCase(r.Context(), &req); err != nil {
		h.logger.Error("Failed to upsert sql case",
			zap.String("bizid", req.Bizid),
			zap.String("case_id", req.CaseID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: req}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteSQLCases handles POST /api/sqlcases/delete
func (h *AdminHandler) DeleteSQLCases(w http.ResponseWriter, r *http.Request) {
	var req DeleteSQLCasesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	deleted, err := h.admin.DeleteSQLCases(r.Context(), req.Bizid, req.CaseIDs)
	if err != nil {
		h.logger.Error("Failed to delete sql cases",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: DeletedResponse{Deleted: deleted}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListSQLCases handles POST /api/sqlcases/list
func (h *AdminHandler) ListSQLCases(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	cases, err := h.admin.ListSQLCases(r.Context(), req.Bizid)
	if err != nil {
		h.logger.Error("Failed to list sql cases",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cases}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
