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

// GetTableRequest for POST /api/tableinfo/get
type GetTableRequest struct {
	Bizid   string `json:"bizid"`
	TableID string `json:"table_id"`
}

// DeleteTablesRequest for POST /api/tableinfo/delete
type DeleteTablesRequest struct {
	Bizid    string   `json:"bizid"`
	TableIDs []string `json:"table_ids"`
}

// UpdateFieldValuesRequest for POST /api/tableinfo/update_field_values
type UpdateFieldValuesRequest struct {
	Bizid   string `json:"bizid"`
	TableID string `json:"table_id"`
	FieldID string `json:"field_id"`
	Values  string `json:"values"`
}

// DeleteKnowledgeRequest for POST /api/knowledge/delete
type DeleteKnowledgeRequest struct {
	Bizid        string   `json:"bizid"`
	KnowledgeIDs []string `json:"knowledge_ids"`
}

// DimensionValuesRequest for POST /api/dim_values/create
type DimensionValuesRequest struct {
	Bizid  string                  `json:"bizid"`
	Values []models.DimensionValue `json:"values"`
}

// DeleteDimensionValuesRequest for POST /api/dim_values/delete
type DeleteDimensionValuesRequest struct {
	Bizid   string `json:"bizid"`
	TableID string `json:"table_id"`
	FieldID string `json:"field_id"`
}

// ListDimensionValuesRequest for POST /api/dim_values/list
type ListDimensionValuesRequest struct {
	Bizid   string `json:"bizid"`
	TableID string `json:"table_id"`
}

// SearchDimensionValuesRequest for POST /api/dim_values/search
type SearchDimensionValuesRequest struct {
	Bizid string   `json:"bizid"`
	Terms []string `json:"terms"`
}

// ============================================================================
// Handler
// ============================================================================

// SchemaHandler handles schema metadata HTTP requests: tables, business
// knowledge, and dimension values.
type SchemaHandler struct {
	schema services.SchemaService
	logger *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(schema services.SchemaService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{schema: schema, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tableinfo/create", h.UpsertTable)
	mux.HandleFunc("POST /api/tableinfo/get", h.GetTable)
	mux.HandleFunc("POST /api/tableinfo/list", h.ListTables)
	mux.HandleFunc("POST /api/tableinfo/delete", h.DeleteTables)
	mux.HandleFunc("POST /api/tableinfo/update_field_values", h.UpdateFieldValues)

	mux.HandleFunc("POST /api/knowledge/create", h.UpsertKnowledge)
	mux.HandleFunc("POST /api/knowledge/delete", h.DeleteKnowledge)
	mux.HandleFunc("POST /api/knowledge/list", h.ListKnowledge)

	mux.HandleFunc("POST /api/dim_values/create", h.UpsertDimensionValues)
	mux.HandleFunc("POST /api/dim_values/delete", h.DeleteDimensionValues)
	mux.HandleFunc("POST /api/dim_values/list", h.ListDimensionValues)
	mux.HandleFunc("POST /api/dim_values/search", h.SearchDimensionValues)
}

// UpsertTable handles POST /api/tableinfo/create
func (h *SchemaHandler) UpsertTable(w http.ResponseWriter, r *http.Request) {
	var req models.TableInfo
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.schema.UpsertTable(r.Context(), &req); err != nil {
		h.logger.Error("Failed to upsert table",
			zap.String("bizid", req.Bizid),
			zap.String("table_id", req.TableID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"table_id": req.TableID}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetTable handles POST /api/tableinfo/get
func (h *SchemaHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	var req GetTableRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	info, err := h.schema.GetTable(r.Context(), req.Bizid, req.TableID)
	if err != nil {
		h.logger.Error("Failed to get table",
			zap.String("bizid", req.Bizid),
			zap.String("table_id", req.TableID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: info}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListTables handles POST /api/tableinfo/list
func (h *SchemaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	tables, err := h.schema.ListTables(r.Context(), req.Bizid)
	if err != nil {
		h.logger.Error("Failed to list tables",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tables}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteTables handles POST /api/tableinfo/delete
func (h *SchemaHandler) DeleteTables(w http.ResponseWriter, r *http.Request) {
	var req DeleteTablesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	deleted, err := h.schema.DeleteTables(r.Context(), req.Bizid, req.TableIDs)
	if err != nil {
		h.logger.Error("Failed to delete tables",
			zap.String("bizid", req.Bizid),
			zap.Strings("table_ids", req.TableIDs),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: DeletedResponse{Deleted: deleted}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateFieldValues handles POST /api/tableinfo/update_field_values
func (h *SchemaHandler) UpdateFieldValues(w http.ResponseWriter, r *http.Request) {
	var req UpdateFieldValuesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.schema.UpdateFieldValues(r.Context(), req.Bizid, req.TableID, req.FieldID, req.Values); err != nil {
		h.logger.Error("Failed to update field values",
			zap.String("bizid", req.Bizid),
			zap.String("table_id", req.TableID),
			zap.String("field_id", req.FieldID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"field_id": req.FieldID}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpsertKnowledge handles POST /api/knowledge/create
func (h *SchemaHandler) UpsertKnowledge(w http.ResponseWriter, r *http.Request) {
	var req models.Knowledge
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.schema.UpsertKnowledge(r.Context(), &req); err != nil {
		h.logger.Error("Failed to upsert knowledge",
			zap.String("bizid", req.Bizid),
			zap.String("knowledge_id", req.KnowledgeID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: req}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteKnowledge handles POST /api/knowledge/delete
func (h *SchemaHandler) DeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	var req DeleteKnowledgeRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	deleted, err := h.schema.DeleteKnowledge(r.Context(), req.Bizid, req.KnowledgeIDs)
	if err != nil {
		h.logger.Error("Failed to delete knowledge",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: DeletedResponse{Deleted: deleted}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListKnowledge handles POST /api/knowledge/list
func (h *SchemaHandler) ListKnowledge(w http.ResponseWriter, r *http.Request) {
	var req BizidRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	knowledge, err := h.schema.ListKnowledge(r.Context(), req.Bizid)
	if err != nil {
		h.logger.Error("Failed to list knowledge",
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: knowledge}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpsertDimensionValues handles POST /api/dim_values/create
func (h *SchemaHandler) UpsertDimensionValues(w http.ResponseWriter, r *http.Request) {
	var req DimensionValuesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.schema.UpsertDimensionValues(r.Context(), req.Bizid, req.Values); err != nil {
		h.logger.Error("Failed to upsert dimension values",
			zap.String("bizid", req.Bizid),
			zap.Int("count", len(req.Values)),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]int{"count": len(req.Values)}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteDimensionValues handles POST /api/dim_values/delete
func (h *SchemaHandler) DeleteDimensionValues(w http.ResponseWriter, r *http.Request) {
	var req DeleteDimensionValuesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	deleted, err := h.schema.DeleteDimensionValues(r.Context(), req.Bizid, req.TableID, req.FieldID)
	if err != nil {
		h.logger.Error("Failed to delete dimension values",
			zap.String("bizid", req.Bizid),
			zap.String("table_id", req.TableID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: DeletedResponse{Deleted: deleted}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListDimensionValues handles POST /api/dim_values/list
func (h *SchemaHandler) ListDimensionValues(w http.ResponseWriter, r *http.Request) {
	var req ListDimensionValuesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	values, err := h.schema.ListDimensionValues(r.Context(), req.Bizid, req.TableID)
	if err != nil {
		h.logger.Error("Failed to list dimension values",
			zap.String("bizid", req.Bizid),
			zap.String("table_id", req.TableID),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: values}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SearchDimensionValues handles POST /api/dim_values/search
func (h *SchemaHandler) SearchDimensionValues(w http.ResponseWriter, r *http.Request) {
	var req SearchDimensionValuesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	matches, err := h.schema.SearchDimensionValues(r.Context(), req.Bizid, req.Terms)
	if err != nil {
		h.logger.Error("Failed to search dimension values",
			zap.String("bizid", req.Bizid),
			zap.Strings("terms", req.Terms),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: matches}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
