package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tendant/simple-share/pkg/delegation"
	"github.com/tendant/simple-share/pkg/sharing"
)

// ShareHandler handles HTTP requests for sharing session management
type ShareHandler struct {
	sharingService *sharing.SharingService
}

// NewShareHandler creates a new share handler
func NewShareHandler(sharingService *sharing.SharingService) *ShareHandler {
	return &ShareHandler{
		sharingService: sharingService,
	}
}

// CreateShareRequest represents the request body for issuing a share
type CreateShareRequest struct {
	InviteeEmail    string   `json:"invitee_email"`
	ResourceIDs     []string `json:"resource_ids"`
	Role            string   `json:"role"`
	DurationMinutes int32    `json:"duration_minutes"`
}

// CreateShareResponse represents the response body for issuing a share
type CreateShareResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Session sharing.SharingSession `json:"session"`
}

// ListSharesResponse represents the response body for listing shares
type ListSharesResponse struct {
	Status   string                   `json:"status"`
	Message  string                   `json:"message"`
	Sessions []sharing.SessionSummary `json:"sessions"`
	Total    int64                    `json:"total"`
}

// VerifyShareRequest represents the request body for verifying or opening a share
type VerifyShareRequest struct {
	Email string `json:"email"`
}

// SessionView is the invitee-facing projection of a sharing session. It
// leaves out the owner id and the resource list.
type SessionView struct {
	ID                 uuid.UUID    `json:"id"`
	Role               sharing.Role `json:"role"`
	DurationMinutes    int32        `json:"duration_minutes"`
	CreatedAt          time.Time    `json:"created_at"`
	ActivatedAt        *time.Time   `json:"activated_at,omitempty"`
	ExpiresAt          *time.Time   `json:"expires_at,omitempty"`
	TotalResourceCount int32        `json:"total_resource_count"`
}

// VerifyShareResponse represents the invitee-facing view of a share
type VerifyShareResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Session SessionView `json:"session"`
}

// SharedResourcesResponse represents the response body for listing shared resources
type SharedResourcesResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	ResourceIDs []string `json:"resource_ids"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
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

// statusForError maps sharing service errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, sharing.ErrSessionNotFound),
		errors.Is(err, sharing.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharing.ErrEmailMismatch),
		errors.Is(err, sharing.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, sharing.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, sharing.ErrSelfShare),
		errors.Is(err, sharing.ErrInvalidRole),
		errors.Is(err, sharing.ErrInvalidDuration),
		errors.Is(err, sharing.ErrNoResources):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func effectiveOwner(w http.ResponseWriter, r *http.Request) (delegation.EffectivePrincipal, bool) {
	effective, ok := delegation.EffectiveFromContext(r.Context())
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, "Authentication required", "")
		return delegation.EffectivePrincipal{}, false
	}
	return effective, true
}

// CreateShare handles issuing a new sharing session
func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	effective, ok := effectiveOwner(w, r)
	if !ok {
		return
	}

	var req CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		renderErrorResponse(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resourceIDs := make([]uuid.UUID, 0, len(req.ResourceIDs))
	for _, raw := range req.ResourceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			renderErrorResponse(w, r, http.StatusBadRequest, "Invalid resource id", raw)
			return
		}
		resourceIDs = append(resourceIDs, id)
	}

	session, err := h.sharingService.Share(r.Context(), effective.UserID, sharing.ShareParams{
		InviteeEmail:    req.InviteeEmail,
		ResourceIDs:     resourceIDs,
		Role:            sharing.Role(req.Role),
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		slog.Error("Failed to issue sharing session", "error", err, "owner", effective.UserID)
		renderErrorResponse(w, r, statusForError(err), "Failed to issue sharing session", err.Error())
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreateShareResponse{
		Status:  "success",
		Message: "Sharing session issued successfully",
		Session: session,
	})
}

// ListShares handles listing the owner's sharing sessions
func (h *ShareHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	effective, ok := effectiveOwner(w, r)
	if !ok {
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

	sessions, total, err := h.sharingService.ListSessions(r.Context(), effective.UserID, limit, offset)
	if err != nil {
		slog.Error("Failed to list sharing sessions", "error", err, "owner", effective.UserID)
		renderErrorResponse(w, r, statusForError(err), "Failed to list sharing sessions", err.Error())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListSharesResponse{
		Status:   "success",
		Message:  "Sharing sessions retrieved successfully",
		Sessions: sessions,
		Total:    total,
	})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "session_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "Invalid session id", raw)
		return uuid.Nil, false
	}
	return id, true
}

// RevokeShare handles ending a sharing session immediately
func (h *ShareHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	effective, ok := effectiveOwner(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.sharingService.Revoke(r.Context(), effective.UserID, sessionID); err != nil {
		slog.Error("Failed to revoke sharing session", "error", err, "sessionId", sessionID)
		renderErrorResponse(w, r, statusForError(err), "Failed to revoke sharing session", err.Error())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{
		Status:  "success",
		Message: "Sharing session revoked successfully",
	})
}

// ForgetShare handles removing a sharing session from history
func (h *ShareHandler) ForgetShare(w http.ResponseWriter, r *http.Request) {
	effective, ok := effectiveOwner(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.sharingService.Forget(r.Context(), effective.UserID, sessionID); err != nil {
		slog.Error("Failed to forget sharing session", "error", err, "sessionId", sessionID)
		renderErrorResponse(w, r, statusForError(err), "Failed to forget sharing session", err.Error())
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{
		Status:  "success",
		Message: "Sharing session forgotten successfully",
	})
}

// VerifyShare handles the invitee checking a share before opening it. It is
// read only and never starts the expiry countdown.
func (h *ShareHandler) VerifyShare(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		renderErrorResponse(w, r, http.StatusBadRequest, "Missing required parameter", "email is required")
		return
	}

	session, err := h.sharingService.Verify(r.Context(), sessionID, email)
	if err != nil {
		renderErrorResponse(w, r, statusForError(err), "Failed to verify sharing session", err.Error())
		return
	}

	var view SessionView
	copier.Copy(&view, &session)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyShareResponse{
		Status:  "success",
		Message: "Sharing session is usable",
		Session: view,
	})
}

// ActivateShare handles the invitee opening a share for the first time
func (h *ShareHandler) ActivateShare(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	// The session id alone opens the share; the email is an optional
	// cross-check and the body may be omitted entirely
	var req VerifyShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		renderErrorResponse(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	session, err := h.sharingService.EnsureActivated(r.Context(), sessionID, req.Email)
	if err != nil {
		renderErrorResponse(w, r, statusForError(err), "Failed to open sharing session", err.Error())
		return
	}

	var view SessionView
	copier.Copy(&view, &session)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyShareResponse{
		Status:  "success",
		Message: "Sharing session opened successfully",
		Session: view,
	})
}

// ListSharedResources handles listing the resources a share grants access
// to. Listing counts as opening the share.
func (h *ShareHandler) ListSharedResources(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		renderErrorResponse(w, r, http.StatusBadRequest, "Missing required parameter", "email is required")
		return
	}

	resourceIDs, err := h.sharingService.AuthorizedResources(r.Context(), sessionID, email)
	if err != nil {
		renderErrorResponse(w, r, statusForError(err), "Failed to list shared resources", err.Error())
		return
	}

	// Optional ids filter: the response is the intersection of the requested
	// ids and the ids the session links
	if raw := r.URL.Query().Get("ids"); raw != "" {
		requested := make(map[uuid.UUID]bool)
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				renderErrorResponse(w, r, http.StatusBadRequest, "Invalid resource id", part)
				return
			}
			requested[id] = true
		}
		filtered := resourceIDs[:0]
		for _, id := range resourceIDs {
			if requested[id] {
				filtered = append(filtered, id)
			}
		}
		resourceIDs = filtered
	}

	ids := make([]string, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		ids = append(ids, id.String())
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SharedResourcesResponse{
		Status:      "success",
		Message:     "Shared resources retrieved successfully",
		ResourceIDs: ids,
	})
}

// Handler returns a http.Handler for the owner-facing sharing API
func Handler(h *ShareHandler) http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.CreateShare)
	r.Get("/", h.ListShares)
	r.Delete("/{session_id}", h.RevokeShare)
	r.Post("/{session_id}/forget", h.ForgetShare)

	return r
}

// InviteeHandler returns a http.Handler for the unauthenticated invitee
// endpoints. Callers should mount it behind rate limiting.
func InviteeHandler(h *ShareHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/{session_id}/verify", h.VerifyShare)
	r.Post("/{session_id}/activate", h.ActivateShare)
	r.Get("/{session_id}/resources", h.ListSharedResources)

	return r
}
