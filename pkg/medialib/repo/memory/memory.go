// Package memory provides an in-memory repository for tests and development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/edulib/media-backend/pkg/medialib"
)

// Repository is a mutex-guarded in-memory implementation of
// medialib.Repository. Counter increments happen under the lock, so they are
// atomic with respect to each other and to reads.
type Repository struct {
	mu         sync.RWMutex
	content    map[int64]*medialib.ContentItem
	categories map[int64]*medialib.Category
	nextContID int64
	nextCatID  int64
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{
		content:    make(map[int64]*medialib.ContentItem),
		categories: make(map[int64]*medialib.Category),
		nextContID: 1,
		nextCatID:  1,
	}
}

func (r *Repository) CreateContent(_ context.Context, item *medialib.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.ID = r.nextContID
	r.nextContID++
	cp := *item
	r.content[item.ID] = &cp
	return nil
}

func (r *Repository) GetContent(_ context.Context, id int64) (*medialib.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.content[id]
	if !ok {
		return nil, medialib.ErrContentNotFound
	}
	return r.withCategoryLocked(item), nil
}

func (r *Repository) UpdateContent(_ context.Context, item *medialib.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.content[item.ID]
	if !ok {
		return medialib.ErrContentNotFound
	}
	cp := *item
	// Counters are owned by the increment operations, never by row updates.
	cp.ViewCount = stored.ViewCount
	cp.DownloadCount = stored.DownloadCount
	r.content[item.ID] = &cp
	return nil
}

func (r *Repository) DeleteContent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.content[id]; !ok {
		return medialib.ErrContentNotFound
	}
	delete(r.content, id)
	return nil
}

func (r *Repository) ListContent(_ context.Context, filters medialib.ListFilters) ([]*medialib.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.filterLocked(filters)
	sortItems(items, filters.SortField, filters.SortDir)

	start := filters.Offset
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if filters.Limit > 0 && start+filters.Limit < end {
		end = start + filters.Limit
	}

	out := make([]*medialib.ContentItem, 0, end-start)
	for _, item := range items[start:end] {
		out = append(out, r.withCategoryLocked(item))
	}
	return out, nil
}

func (r *Repository) CountContent(_ context.Context, filters medialib.ListFilters) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.filterLocked(filters))), nil
}

func (r *Repository) IncrementViewCount(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.content[id]
	if !ok {
		return medialib.ErrContentNotFound
	}
	item.ViewCount++
	return nil
}

func (r *Repository) IncrementDownloadCount(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.content[id]
	if !ok {
		return medialib.ErrContentNotFound
	}
	item.DownloadCount++
	return nil
}

func (r *Repository) PopularContent(_ context.Context, sortField string, limit int) ([]*medialib.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*medialib.ContentItem
	for _, item := range r.content {
		count := item.ViewCount
		if sortField == "download_count" {
			count = item.DownloadCount
		}
		if count > 0 {
			items = append(items, item)
		}
	}
	sortItems(items, sortField, "desc")
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]*medialib.ContentItem, 0, len(items))
	for _, item := range items {
		out = append(out, r.withCategoryLocked(item))
	}
	return out, nil
}

func (r *Repository) RelatedContent(_ context.Context, ref *medialib.ContentItem, limit int) ([]*medialib.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*medialib.ContentItem
	for _, item := range r.content {
		if item.ID == ref.ID {
			continue
		}
		sameCategory := ref.CategoryID != nil && item.CategoryID != nil && *item.CategoryID == *ref.CategoryID
		if sameCategory || item.Kind == ref.Kind {
			items = append(items, item)
		}
	}

	// Same-category items first, most viewed within each group.
	sort.SliceStable(items, func(i, j int) bool {
		iSame := sameCat(items[i], ref)
		jSame := sameCat(items[j], ref)
		if iSame != jSame {
			return iSame
		}
		return items[i].ViewCount > items[j].ViewCount
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]*medialib.ContentItem, 0, len(items))
	for _, item := range items {
		out = append(out, r.withCategoryLocked(item))
	}
	return out, nil
}

func sameCat(item, ref *medialib.ContentItem) bool {
	return ref.CategoryID != nil && item.CategoryID != nil && *item.CategoryID == *ref.CategoryID
}

func (r *Repository) LibraryStats(_ context.Context) (*medialib.LibraryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &medialib.LibraryStats{
		TotalContent:    int64(len(r.content)),
		TotalCategories: int64(len(r.categories)),
	}
	for _, item := range r.content {
		switch item.Kind {
		case medialib.KindPDF:
			stats.TotalPDFs++
		case medialib.KindImage:
			stats.TotalImages++
		case medialib.KindVideo:
			stats.TotalVideos++
		case medialib.KindPresentation:
			stats.TotalPresentations++
		}
		stats.TotalViews += item.ViewCount
		stats.TotalDownloads += item.DownloadCount
	}
	return stats, nil
}

func (r *Repository) CreateCategory(_ context.Context, c *medialib.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.categories {
		if existing.Slug == c.Slug {
			return medialib.ErrSlugTaken
		}
	}
	c.ID = r.nextCatID
	r.nextCatID++
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r *Repository) GetCategory(_ context.Context, id int64) (*medialib.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok {
		return nil, medialib.ErrCategoryNotFound
	}
	return r.withCountLocked(c), nil
}

func (r *Repository) GetCategoryBySlug(_ context.Context, slug string) (*medialib.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.categories {
		if c.Slug == slug {
			return r.withCountLocked(c), nil
		}
	}
	return nil, medialib.ErrCategoryNotFound
}

func (r *Repository) ListCategories(_ context.Context) ([]*medialib.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*medialib.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, r.withCountLocked(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repository) UpdateCategory(_ context.Context, c *medialib.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[c.ID]; !ok {
		return medialib.ErrCategoryNotFound
	}
	for _, existing := range r.categories {
		if existing.ID != c.ID && existing.Slug == c.Slug {
			return medialib.ErrSlugTaken
		}
	}
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r *Repository) DeleteCategory(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[id]; !ok {
		return medialib.ErrCategoryNotFound
	}
	for _, item := range r.content {
		if item.CategoryID != nil && *item.CategoryID == id {
			item.CategoryID = nil
		}
	}
	for _, c := range r.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	delete(r.categories, id)
	return nil
}

// filterLocked applies list filters; caller holds at least a read lock.
func (r *Repository) filterLocked(filters medialib.ListFilters) []*medialib.ContentItem {
	search := strings.ToLower(filters.Search)
	var items []*medialib.ContentItem
	for _, item := range r.content {
		if filters.CategoryID != nil && (item.CategoryID == nil || *item.CategoryID != *filters.CategoryID) {
			continue
		}
		if filters.Kind != "" && item.Kind != filters.Kind {
			continue
		}
		if filters.Featured != nil && item.IsFeatured != *filters.Featured {
			continue
		}
		if search != "" && !matchesSearch(item, search) {
			continue
		}
		items = append(items, item)
	}
	return items
}

func matchesSearch(item *medialib.ContentItem, search string) bool {
	if strings.Contains(strings.ToLower(item.Title), search) ||
		strings.Contains(strings.ToLower(item.TitleAlt), search) ||
		strings.Contains(strings.ToLower(item.Description), search) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func sortItems(items []*medialib.ContentItem, field, dir string) {
	desc := dir != "asc"
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		var less bool
		switch field {
		case "title":
			less = a.Title < b.Title
		case "view_count":
			less = a.ViewCount < b.ViewCount
		case "download_count":
			less = a.DownloadCount < b.DownloadCount
		case "updated_at":
			less = a.UpdatedAt.Before(b.UpdatedAt)
		default: // created_at
			if a.CreatedAt.Equal(b.CreatedAt) {
				less = a.ID < b.ID
			} else {
				less = a.CreatedAt.Before(b.CreatedAt)
			}
		}
		if desc {
			return !less && !equalOn(a, b, field)
		}
		return less
	})
}

func equalOn(a, b *medialib.ContentItem, field string) bool {
	switch field {
	case "title":
		return a.Title == b.Title
	case "view_count":
		return a.ViewCount == b.ViewCount
	case "download_count":
		return a.DownloadCount == b.DownloadCount
	case "updated_at":
		return a.UpdatedAt.Equal(b.UpdatedAt)
	default:
		return a.CreatedAt.Equal(b.CreatedAt) && a.ID == b.ID
	}
}

// withCategoryLocked copies the item and joins the category names.
func (r *Repository) withCategoryLocked(item *medialib.ContentItem) *medialib.ContentItem {
	cp := *item
	if cp.CategoryID != nil {
		if cat, ok := r.categories[*cp.CategoryID]; ok {
			cp.CategoryName = cat.Name
			cp.CategoryNameAlt = cat.NameAlt
		}
	}
	return &cp
}

// withCountLocked copies the category and joins its direct content count.
func (r *Repository) withCountLocked(c *medialib.Category) *medialib.Category {
	cp := *c
	cp.ContentCount = 0
	for _, item := range r.content {
		if item.CategoryID != nil && *item.CategoryID == c.ID {
			cp.ContentCount++
		}
	}
	return &cp
}
