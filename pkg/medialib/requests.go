package medialib

import (
	"io"
	"strings"
)

// Pagination and sorting bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100

	DefaultPopularLimit = 10
	DefaultRelatedLimit = 6

	// MatcherScanLimit bounds the fallback matcher's linear scan.
	MatcherScanLimit = 2000
)

var sortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"title":          true,
	"view_count":     true,
	"download_count": true,
}

// ListFilters describes one content listing query. Zero values mean
// "no filter". Normalize validates fields and applies defaults before the
// filters reach a repository.
type ListFilters struct {
	CategoryID *int64
	Kind       ContentKind
	Search     string
	Featured   *bool
	SortField  string
	SortDir    string
	Limit      int
	Offset     int
}

// Normalize validates sort fields against the allow-list, clamps the limit
// and defaults pagination.
func (f *ListFilters) Normalize() error {
	if f.Kind != "" && !f.Kind.IsValid() {
		return &ValidationError{Field: "type", Reason: "unknown content kind"}
	}
	if f.SortField == "" {
		f.SortField = "created_at"
	}
	if !sortFields[f.SortField] {
		return &ValidationError{Field: "sortBy", Reason: "not a sortable field"}
	}
	switch strings.ToLower(f.SortDir) {
	case "":
		f.SortDir = "desc"
	case "asc", "desc":
		f.SortDir = strings.ToLower(f.SortDir)
	default:
		return &ValidationError{Field: "sortDir", Reason: "must be asc or desc"}
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return nil
}

// CreateContentRequest creates a metadata record for an asset that already
// landed in storage.
type CreateContentRequest struct {
	Title          string
	TitleAlt       string
	Description    string
	DescriptionAlt string
	CategoryID     *int64
	Kind           ContentKind
	LocalPath      string
	AssetURL       string
	ThumbnailPath  string
	ThumbnailURL   string
	FileSize       int64
	MimeType       string
	Tags           []string
	IsFeatured     bool
}

// Validate enforces the record invariants at construction time.
func (r *CreateContentRequest) Validate() error {
	if r.Title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if !r.Kind.IsValid() {
		return &ValidationError{Field: "type", Reason: "unknown content kind"}
	}
	if r.AssetURL == "" {
		return &ValidationError{Field: "file_url", Reason: "required"}
	}
	if r.FileSize < 0 {
		return &ValidationError{Field: "file_size", Reason: "must be >= 0"}
	}
	return nil
}

// UpdateContentRequest is a partial metadata update; nil fields are left
// untouched. Kind is immutable after creation and deliberately absent.
type UpdateContentRequest struct {
	Title          *string
	TitleAlt       *string
	Description    *string
	DescriptionAlt *string
	CategoryID     **int64
	Tags           *[]string
	IsFeatured     *bool
}

// UploadRequest carries one multipart upload plus its metadata fields.
type UploadRequest struct {
	FileName   string
	Size       int64
	Body       io.Reader
	Title      string
	TitleAlt   string
	Descr      string
	CategoryID *int64
	Tags       []string
	IsFeatured bool
}

// CreateCategoryRequest creates a category node.
type CreateCategoryRequest struct {
	Name        string
	NameAlt     string
	Slug        string
	Description string
	Icon        string
	ParentID    *int64
	OrderIndex  int
}

// Validate requires name and slug, per the category contract.
func (r *CreateCategoryRequest) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if r.Slug == "" {
		return &ValidationError{Field: "slug", Reason: "required"}
	}
	return nil
}

// UpdateCategoryRequest is a partial category update; nil fields are left
// untouched.
type UpdateCategoryRequest struct {
	Name        *string
	NameAlt     *string
	Slug        *string
	Description *string
	Icon        *string
	ParentID    **int64
	OrderIndex  *int
}
