package medialib

import (
	"context"
	"io"
	"time"
)

// Repository is the metadata store contract. Implementations must serialize
// concurrent counter increments per row with a store-native atomic add;
// read-modify-write increments in application code are not acceptable.
type Repository interface {
	// Content operations. UpdateContent is a whole-row replacement keyed by
	// ID (last-write-wins); it bumps UpdatedAt, counter increments do not.
	CreateContent(ctx context.Context, item *ContentItem) error
	GetContent(ctx context.Context, id int64) (*ContentItem, error)
	UpdateContent(ctx context.Context, item *ContentItem) error
	DeleteContent(ctx context.Context, id int64) error
	ListContent(ctx context.Context, filters ListFilters) ([]*ContentItem, error)
	CountContent(ctx context.Context, filters ListFilters) (int64, error)
	IncrementViewCount(ctx context.Context, id int64) error
	IncrementDownloadCount(ctx context.Context, id int64) error
	PopularContent(ctx context.Context, sortField string, limit int) ([]*ContentItem, error)
	RelatedContent(ctx context.Context, ref *ContentItem, limit int) ([]*ContentItem, error)
	LibraryStats(ctx context.Context) (*LibraryStats, error)

	// Category operations. DeleteCategory nulls CategoryID on referencing
	// items before removing the row.
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

// ObjectInfo describes a blob held by the remote object gateway.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
	UpdatedAt   time.Time
}

// PutResult is returned after a blob lands in the gateway. ThumbnailURL is
// empty for resource types the gateway cannot derive a thumbnail from; the
// caller falls back to the kind's placeholder.
type PutResult struct {
	Key          string
	URL          string
	ThumbnailURL string
}

// ObjectGateway abstracts the remote content-addressed object service:
// put/describe/delete a blob and derive canonical and thumbnail URLs.
type ObjectGateway interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string, kind ContentKind) (*PutResult, error)
	Describe(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error

	// KeyFromURL recovers the object key from a canonical URL previously
	// produced by this gateway, for best-effort deletion of stored assets.
	KeyFromURL(url string) (string, bool)
}

// Service is the media library's orchestration surface.
type Service interface {
	// Content CRUD and read models.
	CreateContent(ctx context.Context, req CreateContentRequest) (*ContentItem, error)
	GetContent(ctx context.Context, id int64) (*ContentItem, error)
	// ViewContent is GetContent plus a best-effort view-count increment; the
	// API detail endpoint goes through it.
	ViewContent(ctx context.Context, id int64) (*ContentItem, error)
	UpdateContent(ctx context.Context, id int64, req UpdateContentRequest) (*ContentItem, error)
	DeleteContent(ctx context.Context, id int64) error
	ListContent(ctx context.Context, filters ListFilters) (*ContentPage, error)
	PopularContent(ctx context.Context, sortField string, limit int) ([]*ContentItem, error)
	RelatedContent(ctx context.Context, id int64, limit int) ([]*ContentItem, error)
	LibraryStats(ctx context.Context) (*LibraryStats, error)
	UploadContent(ctx context.Context, req UploadRequest) (*ContentItem, error)

	// Delivery. OpenPrimary increments the download counter on every
	// successful resolution regardless of the path taken (stream, proxy or
	// redirect).
	OpenPrimary(ctx context.Context, id int64, rangeHeader string) (*Delivery, error)
	OpenThumbnail(ctx context.Context, id int64) (*Delivery, error)
	MatchFallbackPath(ctx context.Context, requestPath string) (string, bool)

	// Categories.
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	CategoryTree(ctx context.Context) ([]*CategoryNode, error)
	UpdateCategory(ctx context.Context, id int64, req UpdateCategoryRequest) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}
