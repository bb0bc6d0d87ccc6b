package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/edulib/media-backend/pkg/medialib"
)

// UploadsHandler serves the /uploads/* static namespace. A path that exists
// on disk streams as-is; a miss goes through the fallback matcher and
// redirects to the item's remote URL, or 404s when nothing matches.
type UploadsHandler struct {
	svc medialib.Service
	dir string
}

// NewUploadsHandler creates the handler rooted at dir.
func NewUploadsHandler(svc medialib.Service, dir string) *UploadsHandler {
	return &UploadsHandler{svc: svc, dir: dir}
}

func (h *UploadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/uploads/")
	if rel == "" || strings.Contains(rel, "..") {
		respondError(w, r, http.StatusNotFound, "File not found")
		return
	}

	local := filepath.Join(h.dir, filepath.FromSlash(rel))
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		http.ServeFile(w, r, local)
		return
	}

	if target, ok := h.svc.MatchFallbackPath(r.Context(), r.URL.Path); ok {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	respondError(w, r, http.StatusNotFound, "File not found")
}
