package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edulib/media-backend/pkg/medialib"
)

// Upload limits, enforced before any byte reaches the gateway.
const (
	maxUploadBytes = 500 << 20 // per file
	maxBulkFiles   = 50

	// memory ceiling for multipart parsing; larger parts spill to disk
	multipartMemory = 32 << 20
)

// ContentHandler serves the /content route tree.
type ContentHandler struct {
	svc medialib.Service
}

// NewContentHandler creates a content handler on the given service.
func NewContentHandler(svc medialib.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// Routes builds the content router.
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/popular", h.Popular)
	r.Get("/types", h.Types)
	r.Post("/", h.Upload)
	r.Post("/bulk", h.UploadBulk)

	r.Route("/{contentID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/related", h.Related)
		r.Get("/file", h.File)
		r.Get("/thumbnail", h.Thumbnail)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})

	return r
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := medialib.ListFilters{
		Kind:      medialib.ContentKind(q.Get("type")),
		Search:    q.Get("search"),
		SortField: q.Get("sortBy"),
		SortDir:   q.Get("sortDir"),
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "Invalid category_id")
			return
		}
		filters.CategoryID = &id
	}
	if v := q.Get("featured"); v != "" {
		featured := v == "true" || v == "1"
		filters.Featured = &featured
	}
	if v := q.Get("limit"); v != "" {
		filters.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filters.Offset, _ = strconv.Atoi(v)
	}

	page, err := h.svc.ListContent(r.Context(), filters)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondPage(w, r, page)
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.ViewContent(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, item)
}

func (h *ContentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.LibraryStats(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, stats)
}

func (h *ContentHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.PopularContent(r.Context(), r.URL.Query().Get("sortBy"), limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*medialib.ContentItem{}
	}
	respondOK(w, r, items)
}

func (h *ContentHandler) Types(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, medialib.SupportedExtensions())
}

func (h *ContentHandler) Related(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.RelatedContent(r.Context(), id, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*medialib.ContentItem{}
	}
	respondOK(w, r, items)
}

func (h *ContentHandler) File(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.OpenPrimary(r.Context(), id, r.Header.Get("Range"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeDelivery(w, r, d)
}

func (h *ContentHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.OpenThumbnail(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeDelivery(w, r, d)
}

func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		respondError(w, r, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	req := uploadRequestFromForm(r, header.Filename, header.Size, file)
	item, err := h.svc.UploadContent(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCreated(w, r, item)
}

func (h *ContentHandler) UploadBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, r, http.StatusBadRequest, "No files provided")
		return
	}
	if len(headers) > maxBulkFiles {
		respondError(w, r, http.StatusBadRequest, "Too many files")
		return
	}

	// Each file succeeds or fails on its own; one bad upload does not void
	// the batch.
	type bulkResult struct {
		FileName string                `json:"file_name"`
		Item     *medialib.ContentItem `json:"item,omitempty"`
		Error    string                `json:"error,omitempty"`
	}
	results := make([]bulkResult, 0, len(headers))

	for _, header := range headers {
		res := bulkResult{FileName: header.Filename}
		if header.Size > maxUploadBytes {
			res.Error = "file too large"
			results = append(results, res)
			continue
		}
		file, err := header.Open()
		if err != nil {
			res.Error = "unreadable file part"
			results = append(results, res)
			continue
		}
		req := uploadRequestFromForm(r, header.Filename, header.Size, file)
		item, err := h.svc.UploadContent(r.Context(), req)
		file.Close()
		if err != nil {
			slog.Warn("Bulk upload item failed", "file", header.Filename, "error", err)
			res.Error = err.Error()
		} else {
			res.Item = item
		}
		results = append(results, res)
	}

	respondCreated(w, r, results)
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title          *string         `json:"title"`
		TitleAlt       *string         `json:"title_alt"`
		Description    *string         `json:"description"`
		DescriptionAlt *string         `json:"description_alt"`
		CategoryID     json.RawMessage `json:"category_id"`
		Tags           *[]string       `json:"tags"`
		IsFeatured     *bool           `json:"is_featured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	req := medialib.UpdateContentRequest{
		Title:          payload.Title,
		TitleAlt:       payload.TitleAlt,
		Description:    payload.Description,
		DescriptionAlt: payload.DescriptionAlt,
		Tags:           payload.Tags,
		IsFeatured:     payload.IsFeatured,
	}
	// category_id distinguishes absent (untouched), null (detach) and a
	// numeric id.
	if len(payload.CategoryID) > 0 {
		if string(payload.CategoryID) == "null" {
			var none *int64
			req.CategoryID = &none
		} else {
			var catID int64
			if err := json.Unmarshal(payload.CategoryID, &catID); err != nil {
				respondError(w, r, http.StatusBadRequest, "Invalid category_id")
				return
			}
			ptr := &catID
			req.CategoryID = &ptr
		}
	}

	item, err := h.svc.UpdateContent(r.Context(), id, req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, item)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteContent(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, map[string]any{"deleted": true})
}

func contentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "Invalid content id")
		return 0, false
	}
	return id, true
}

func uploadRequestFromForm(r *http.Request, fileName string, size int64, body io.Reader) medialib.UploadRequest {
	req := medialib.UploadRequest{
		FileName:   fileName,
		Size:       size,
		Body:       body,
		Title:      r.FormValue("title"),
		TitleAlt:   r.FormValue("title_alt"),
		Descr:      r.FormValue("description"),
		IsFeatured: r.FormValue("is_featured") == "true",
	}
	if v := r.FormValue("category_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CategoryID = &id
		}
	}
	if v := r.FormValue("tags"); v != "" {
		var tags []string
		if err := json.Unmarshal([]byte(v), &tags); err != nil {
			for _, t := range strings.Split(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}
		req.Tags = tags
	}
	return req
}

// writeDelivery renders a resolved delivery: a 302, a whole body, or a
// partial-content slice.
func writeDelivery(w http.ResponseWriter, r *http.Request, d *medialib.Delivery) {
	if d.RedirectURL != "" {
		http.Redirect(w, r, d.RedirectURL, http.StatusFound)
		return
	}
	defer d.Close()

	if d.ContentType != "" {
		w.Header().Set("Content-Type", d.ContentType)
	}
	if d.Disposition != "" {
		w.Header().Set("Content-Disposition", d.Disposition)
	}
	if d.CacheControl != "" {
		w.Header().Set("Cache-Control", d.CacheControl)
	}
	if d.AllowAnyOrigin {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	if d.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.ContentLength, 10))
	}

	status := http.StatusOK
	if d.Range != nil {
		w.Header().Set("Content-Range", d.Range.ContentRange())
		w.Header().Set("Accept-Ranges", "bytes")
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	if _, err := io.Copy(w, d.Body); err != nil {
		// Client gone or upstream cut off mid-stream; nothing to send back.
		slog.Debug("Delivery stream aborted", "path", r.URL.Path, "error", err)
	}
}
