package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// GenerateSQLRequest for POST /api/nl2sql/generate
type GenerateSQLRequest struct {
	Bizid   string `json:"bizid"`
	Query   string `json:"query"`
	TableID string `json:"table_id,omitempty"`
	// Stream switches the response to SSE token chunks.
	Stream bool `json:"stream,omitempty"`
}

// SQLTextRequest for the explain/comment/correct endpoints.
type SQLTextRequest struct {
	Bizid     string `json:"bizid"`
	SQL       string `json:"sql"`
	TableInfo string `json:"table_info,omitempty"`
}

// StreamEvent is one SSE payload of the streaming generate endpoint.
type StreamEvent struct {
	Type    string `json:"type"` // "chunk", "done", or "error"
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// QueryHandler handles SQL generation HTTP requests.
type QueryHandler struct {
	sql    services.SQLService
	logger *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(sql services.SQLService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{sql: sql, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/nl2sql/generate", h.Generate)
	mux.HandleFunc("POST /api/nl2sql/query_metadata", h.QueryMetadata)
	mux.HandleFunc("POST /api/nl2sql/sql_explain", h.Explain)
	mux.HandleFunc("POST /api/nl2sql/sql_comment", h.Comment)
	mux.HandleFunc("POST /api/nl2sql/sql_correct", h.Correct)
}

// Generate handles POST /api/nl2sql/generate
func (h *QueryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateSQLRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.Query == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_query", "Query is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	genReq := &services.GenerateRequest{
		Bizid:   req.Bizid,
		Query:   req.Query,
		TableID: req.TableID,
	}

	if req.Stream {
		h.stream(w, r, genReq)
		return
	}

	result, err := h.sql.Generate(r.Context(), genReq)
	if errors.Is(err, apperrors.ErrNoMatch) {
		// No table matched the question. Not an error to the caller; the
		// sql field comes back null.
		if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]any{
			"query": req.Query,
			"sql":   nil,
		}}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}
	if err != nil {
		h.logger.Error("Failed to generate sql",
			zap.String("bizid", req.Bizid),
			zap.String("query", req.Query),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// stream runs the generation in SSE mode, forwarding fence-stripped
// chunks as they arrive.
func (h *QueryHandler) stream(w http.ResponseWriter, r *http.Request, req *services.GenerateRequest) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("SSE not supported")
		if err := ErrorResponse(w, http.StatusInternalServerError, "sse_unsupported", "SSE not supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	chunks := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(chunks)
		errCh <- h.sql.Stream(r.Context(), req, chunks)
	}()

	for chunk := range chunks {
		h.writeEvent(w, flusher, StreamEvent{Type: "chunk", Content: chunk})
	}

	if err := <-errCh; err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("Failed to stream sql",
			zap.String("bizid", req.Bizid),
			zap.String("query", req.Query),
			zap.Error(err))
		h.writeEvent(w, flusher, StreamEvent{Type: "error", Error: err.Error()})
		return
	}

	h.writeEvent(w, flusher, StreamEvent{Type: "done"})
}

func (h *QueryHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal stream event", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// QueryMetadata handles POST /api/nl2sql/query_metadata
func (h *QueryHandler) QueryMetadata(w http.ResponseWriter, r *http.Request) {
	var req GenerateSQLRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	meta, err := h.sql.QueryMetadata(r.Context(), &services.GenerateRequest{
		Bizid:   req.Bizid,
		Query:   req.Query,
		TableID: req.TableID,
	})
	if err != nil {
		h.logger.Error("Failed to resolve query metadata",
			zap.String("bizid", req.Bizid),
			zap.String("query", req.Query),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: meta}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Explain handles POST /api/nl2sql/sql_explain
func (h *QueryHandler) Explain(w http.ResponseWriter, r *http.Request) {
	h.sqlAgent(w, r, "explain", func(ctx context.Context, req *SQLTextRequest) (string, error) {
		return h.sql.Explain(ctx, req.Bizid, req.SQL, req.TableInfo)
	})
}

// Comment handles POST /api/nl2sql/sql_comment
func (h *QueryHandler) Comment(w http.ResponseWriter, r *http.Request) {
	h.sqlAgent(w, r, "comment", func(ctx context.Context, req *SQLTextRequest) (string, error) {
		return h.sql.Comment(ctx, req.Bizid, req.SQL)
	})
}

// Correct handles POST /api/nl2sql/sql_correct
func (h *QueryHandler) Correct(w http.ResponseWriter, r *http.Request) {
	h.sqlAgent(w, r, "correct", func(ctx context.Context, req *SQLTextRequest) (string, error) {
		return h.sql.Correct(ctx, req.Bizid, req.SQL)
	})
}

func (h *QueryHandler) sqlAgent(w http.ResponseWriter, r *http.Request, op string, run func(ctx context.Context, req *SQLTextRequest) (string, error)) {
	var req SQLTextRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.SQL == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_sql", "SQL is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := run(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to run sql agent",
			zap.String("op", op),
			zap.String("bizid", req.Bizid),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"result": result}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
