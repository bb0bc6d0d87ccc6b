package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/edulib/media-backend/pkg/medialib"
)

// Every JSON response carries the same envelope: success flag, payload on
// success, message on failure. Listing endpoints add a pagination block.
type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type pagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Pages  int64 `json:"pages"`
}

func respondOK(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, envelope{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, envelope{Success: true, Data: data})
}

func respondPage(w http.ResponseWriter, r *http.Request, page *medialib.ContentPage) {
	items := page.Items
	if items == nil {
		items = []*medialib.ContentItem{}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, envelope{
		Success: true,
		Data:    items,
		Pagination: &pagination{
			Total:  page.Total,
			Limit:  page.Limit,
			Offset: page.Offset,
			Pages:  page.Pages(),
		},
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, envelope{Success: false, Message: message})
}

// respondDomainError maps domain errors onto HTTP statuses. Unknown errors
// are logged and masked as a 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *medialib.ValidationError
	var upErr *medialib.UpstreamError

	switch {
	case errors.Is(err, medialib.ErrContentNotFound):
		respondError(w, r, http.StatusNotFound, "Content not found")
	case errors.Is(err, medialib.ErrCategoryNotFound):
		respondError(w, r, http.StatusNotFound, "Category not found")
	case errors.Is(err, medialib.ErrAssetNotFound):
		respondError(w, r, http.StatusNotFound, "File not found")
	case errors.Is(err, medialib.ErrUnsupportedMedia):
		respondError(w, r, http.StatusBadRequest, "Unsupported file type")
	case errors.Is(err, medialib.ErrSlugTaken):
		respondError(w, r, http.StatusConflict, "Category slug already exists")
	case errors.Is(err, medialib.ErrCategoryCycle):
		respondError(w, r, http.StatusConflict, "Category hierarchy would contain a cycle")
	case errors.Is(err, medialib.ErrNoGateway):
		respondError(w, r, http.StatusServiceUnavailable, "File storage is not configured")
	case errors.As(err, &valErr):
		respondError(w, r, http.StatusBadRequest, valErr.Error())
	case errors.As(err, &upErr):
		// The origin's status passes through unchanged.
		respondError(w, r, upErr.StatusCode, "Upstream fetch failed")
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
