package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-share/pkg/audit"
	"github.com/tendant/simple-share/pkg/delegation"
)

// AuditHandler handles HTTP requests for change history
type AuditHandler struct {
	recorder *audit.Recorder
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

// ListChangesResponse represents the response body for listing change records
type ListChangesResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Changes []audit.ChangeRecord `json:"changes"`
	Total   int64                `json:"total"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func renderErrorResponse(w http.ResponseWriter, r *http.Request, code int, message, detail string) {
	render.Status(r, code)
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Message: message,
		Error:   detail,
	})
}

// ListChanges handles listing the caller's change history
func (h *AuditHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	effective, ok := delegation.EffectiveFromContext(r.Context())
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	limit := int32(50)
	offset := int32(0)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 0 {
			renderErrorResponse(w, r, http.StatusBadRequest, "Invalid limit", raw)
			return
		}
		limit = int32(parsed)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 0 {
			renderErrorResponse(w, r, http.StatusBadRequest, "Invalid offset", raw)
			return
		}
		offset = int32(parsed)
	}

	changes, total, err := h.recorder.List(r.Context(), effective.UserID, limit, offset)
	if err != nil {
		slog.Error("Failed to list change records", "error", err, "owner", effective.UserID)
		renderErrorResponse(w, r, http.StatusInternalServerError, "Failed to list change records", err.Error())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListChangesResponse{
		Status:  "success",
		Message: "Change records retrieved successfully",
		Changes: changes,
		Total:   total,
	})
}

// Handler returns a http.Handler for the change history API
func Handler(h *AuditHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.ListChanges)

	return r
}
