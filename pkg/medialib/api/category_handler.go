package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edulib/media-backend/pkg/medialib"
)

// CategoryHandler serves the /categories route tree.
type CategoryHandler struct {
	svc medialib.Service
}

// NewCategoryHandler creates a category handler on the given service.
func NewCategoryHandler(svc medialib.Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// Routes builds the category router.
func (h *CategoryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/tree", h.Tree)
	r.Get("/slug/{slug}", h.GetBySlug)
	r.Post("/", h.Create)

	r.Route("/{categoryID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})

	return r
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if cats == nil {
		cats = []*medialib.Category{}
	}
	respondOK(w, r, cats)
}

func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.CategoryTree(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if tree == nil {
		tree = []*medialib.CategoryNode{}
	}
	respondOK(w, r, tree)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	cat, err := h.svc.GetCategory(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, cat)
}

func (h *CategoryHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, cat)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		NameAlt     string `json:"name_alt"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		ParentID    *int64 `json:"parent_id"`
		OrderIndex  int    `json:"order_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	cat, err := h.svc.CreateCategory(r.Context(), medialib.CreateCategoryRequest{
		Name:        payload.Name,
		NameAlt:     payload.NameAlt,
		Slug:        payload.Slug,
		Description: payload.Description,
		Icon:        payload.Icon,
		ParentID:    payload.ParentID,
		OrderIndex:  payload.OrderIndex,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCreated(w, r, cat)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name        *string         `json:"name"`
		NameAlt     *string         `json:"name_alt"`
		Slug        *string         `json:"slug"`
		Description *string         `json:"description"`
		Icon        *string         `json:"icon"`
		ParentID    json.RawMessage `json:"parent_id"`
		OrderIndex  *int            `json:"order_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	req := medialib.UpdateCategoryRequest{
		Name:        payload.Name,
		NameAlt:     payload.NameAlt,
		Slug:        payload.Slug,
		Description: payload.Description,
		Icon:        payload.Icon,
		OrderIndex:  payload.OrderIndex,
	}
	if len(payload.ParentID) > 0 {
		if string(payload.ParentID) == "null" {
			var none *int64
			req.ParentID = &none
		} else {
			var parentID int64
			if err := json.Unmarshal(payload.ParentID, &parentID); err != nil {
				respondError(w, r, http.StatusBadRequest, "Invalid parent_id")
				return
			}
			ptr := &parentID
			req.ParentID = &ptr
		}
	}

	cat, err := h.svc.UpdateCategory(r.Context(), id, req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, cat)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, map[string]any{"deleted": true})
}

func categoryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "Invalid category id")
		return 0, false
	}
	return id, true
}
