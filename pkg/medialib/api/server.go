package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/edulib/media-backend/pkg/medialib"
)

// NewRouter assembles the full HTTP surface: the JSON API under /api/v1, the
// /uploads static namespace with its fallback matcher, liveness, and a
// service-info root.
func NewRouter(svc medialib.Service, uploadDir string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(corsHeaders)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		respondOK(w, req, map[string]any{
			"name":    "media-backend",
			"status":  "running",
			"version": "1.0.0",
			"endpoints": map[string]string{
				"content":    "/api/v1/content",
				"categories": "/api/v1/categories",
				"uploads":    "/uploads",
				"health":     "/health",
			},
		})
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		respondOK(w, req, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/content", NewContentHandler(svc).Routes())
		r.Mount("/categories", NewCategoryHandler(svc).Routes())
	})

	r.Handle("/uploads/*", NewUploadsHandler(svc, uploadDir))

	return r
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization, Range")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
