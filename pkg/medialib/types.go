package medialib

import (
	"strings"
	"time"
)

// ContentKind is the closed enumeration of supported media kinds.
type ContentKind string

// Content kind constants (typed).
const (
	KindPDF          ContentKind = "pdf"
	KindImage        ContentKind = "image"
	KindVideo        ContentKind = "video"
	KindPresentation ContentKind = "presentation"
)

// IsValid reports whether the kind is one of the supported media kinds.
func (k ContentKind) IsValid() bool {
	switch k {
	case KindPDF, KindImage, KindVideo, KindPresentation:
		return true
	}
	return false
}

// AssetVariant selects which representation of an item is being requested.
type AssetVariant string

// Asset variant constants (typed).
const (
	VariantPrimary   AssetVariant = "primary"
	VariantThumbnail AssetVariant = "thumbnail"
)

// ContentItem represents one stored asset plus its metadata record.
//
// AssetURL is never empty: it is either an absolute remote URL or a
// local-relative path of the form /uploads/<kind-dir>/<filename>. LocalPath
// holds the on-disk location when the asset is replicated locally, or an
// opaque remote object key after migration.
type ContentItem struct {
	ID             int64       `json:"id"`
	Title          string      `json:"title"`
	TitleAlt       string      `json:"title_alt"`
	Description    string      `json:"description,omitempty"`
	DescriptionAlt string      `json:"description_alt,omitempty"`
	CategoryID     *int64      `json:"category_id,omitempty"`
	Kind           ContentKind `json:"type"`
	LocalPath      string      `json:"file_path,omitempty"`
	AssetURL       string      `json:"file_url"`
	ThumbnailPath  string      `json:"thumbnail_path,omitempty"`
	ThumbnailURL   string      `json:"thumbnail_url,omitempty"`
	FileSize       int64       `json:"file_size"`
	MimeType       string      `json:"mime_type,omitempty"`
	Tags           []string    `json:"tags"`
	ViewCount      int64       `json:"view_count"`
	DownloadCount  int64       `json:"download_count"`
	IsFeatured     bool        `json:"is_featured"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Joined from the category row on reads; not persisted on content.
	CategoryName    string `json:"category_name,omitempty"`
	CategoryNameAlt string `json:"category_name_alt,omitempty"`
}

// Category is one node of the category hierarchy. Slug is unique across all
// categories. Deleting a category nulls CategoryID on its items; it never
// cascades item deletion.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	NameAlt     string    `json:"name_alt"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined aggregate on reads.
	ContentCount int64 `json:"content_count"`
}

// CategoryNode is a materialized tree node of owned (non-shared) categories.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// AssetLocation is the tagged union describing where an asset's bytes live.
// It is constructed in exactly one place (LocateAsset) so the
// "string happens to start with http" decision is never repeated at call
// sites.
type AssetLocation struct {
	remote bool
	url    string
	path   string
}

// LocateAsset classifies a URL field and its local-path counterpart. A URL
// beginning with an absolute http(s) scheme means the asset is remote.
func LocateAsset(urlField, pathField string) AssetLocation {
	if IsRemoteURL(urlField) {
		return AssetLocation{remote: true, url: urlField, path: pathField}
	}
	return AssetLocation{url: urlField, path: pathField}
}

// IsRemoteURL reports whether s is an absolute remote URL.
func IsRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Remote reports whether the asset's canonical bytes live behind a remote URL.
func (l AssetLocation) Remote() bool { return l.remote }

// URL returns the URL field the location was built from (remote URL or
// local-relative /uploads path).
func (l AssetLocation) URL() string { return l.url }

// Path returns the local filesystem path, which may be empty.
func (l AssetLocation) Path() string { return l.path }

// LibraryStats is the on-demand aggregate read model.
type LibraryStats struct {
	TotalContent       int64 `json:"total_content"`
	TotalPDFs          int64 `json:"total_pdf"`
	TotalImages        int64 `json:"total_images"`
	TotalVideos        int64 `json:"total_videos"`
	TotalPresentations int64 `json:"total_presentations"`
	TotalViews         int64 `json:"total_views"`
	TotalDownloads     int64 `json:"total_downloads"`
	TotalCategories    int64 `json:"total_categories"`
}

// ContentPage is one page of a filtered listing.
type ContentPage struct {
	Items  []*ContentItem
	Total  int64
	Limit  int
	Offset int
}

// Pages returns the total page count for the page size used.
func (p *ContentPage) Pages() int64 {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + int64(p.Limit) - 1) / int64(p.Limit)
}
