package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/problem-tracker/comments-service/internal/errors"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/http/middleware"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/models"
	"github.com/pribylovaa/problem-tracker/comments-service/internal/service"
)

// Wire-схемы REST API.

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

type commentResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Author     string `json:"author"`
	AuthorRole string `json:"author_role"`
	Content    string `json:"content"`
	ParentID   string `json:"parent_id,omitempty"`
	Resolved   bool   `json:"resolved"`
	ResolvedBy string `json:"resolved_by,omitempty"`
	ResolvedAt string `json:"resolved_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type threadItemResponse struct {
	Comment commentResponse `json:"comment"`
	Depth   int             `json:"depth"`
}

type threadResponse struct {
	Items []threadItemResponse `json:"items"`
}

type statsResponse struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

func commentToResponse(c models.Comment) commentResponse {
	out := commentResponse{
		ID:         c.ID,
		EntityType: string(c.Entity.Type),
		EntityID:   c.Entity.ID,
		Author:     c.Author,
		AuthorRole: string(c.AuthorRole),
		Content:    c.Content,
		ParentID:   c.ParentID,
		Resolved:   c.Resolved,
		ResolvedBy: c.ResolvedBy,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}

	if !c.ResolvedAt.IsZero() {
		out.ResolvedAt = c.ResolvedAt.UTC().Format(time.RFC3339)
	}

	return out
}

// entityRefFromRequest — пара (тип, id) из path-параметров.
func entityRefFromRequest(r *http.Request) models.EntityRef {
	return models.EntityRef{
		Type: models.EntityType(chi.URLParam(r, "type")),
		ID:   chi.URLParam(r, "id"),
	}
}

// CreateComment — POST /entities/{type}/{id}/comments.
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in createCommentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	// Анонимный запрос доедет до сервиса с нулевым актором и получит 401.
	actor, _ := middleware.ActorFrom(r.Context())

	comm, err := h.Service.CreateComment(r.Context(), actor, service.CreateCommentInput{
		Entity:   entityRefFromRequest(r),
		ParentID: in.ParentID,
		Content:  in.Content,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, commentToResponse(*comm))
}

// ListThread — GET /entities/{type}/{id}/comments?order=asc|desc.
func (h *Handlers) ListThread(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListThread(r.Context(), service.ListThreadInput{
		Entity: entityRefFromRequest(r),
		Order:  models.Order(r.URL.Query().Get("order")),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := threadResponse{Items: make([]threadItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, threadItemResponse{
			Comment: commentToResponse(it.Comment),
			Depth:   it.Depth,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// Stats — GET /entities/{type}/{id}/comments/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), entityRefFromRequest(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Total:      stats.Total,
		Resolved:   stats.Resolved,
		Unresolved: stats.Unresolved,
	})
}

// ResolveComment — POST /comments/{id}/resolve.
func (h *Handlers) ResolveComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	comm, err := h.Service.ResolveComment(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentToResponse(*comm))
}

// UnresolveComment — POST /comments/{id}/unresolve.
func (h *Handlers) UnresolveComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	comm, err := h.Service.UnresolveComment(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentToResponse(*comm))
}

// DeleteComment — DELETE /comments/{id}.
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	if err := h.Service.DeleteComment(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
