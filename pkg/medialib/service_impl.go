package medialib

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type service struct {
	repo       Repository
	gateway    ObjectGateway
	resolver   *Resolver
	matcher    *Matcher
	httpClient *http.Client
	uploadDir  string
	statsCache *redis.Client
	statsTTL   time.Duration
}

const statsCacheKey = "medialib:stats"

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*ContentItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &ContentItem{
		Title:          req.Title,
		TitleAlt:       req.TitleAlt,
		Description:    req.Description,
		DescriptionAlt: req.DescriptionAlt,
		CategoryID:     req.CategoryID,
		Kind:           req.Kind,
		LocalPath:      req.LocalPath,
		AssetURL:       req.AssetURL,
		ThumbnailPath:  req.ThumbnailPath,
		ThumbnailURL:   req.ThumbnailURL,
		FileSize:       req.FileSize,
		MimeType:       req.MimeType,
		Tags:           req.Tags,
		IsFeatured:     req.IsFeatured,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if item.TitleAlt == "" {
		item.TitleAlt = item.Title
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.ThumbnailURL == "" {
		item.ThumbnailURL = PlaceholderThumbnail(item.Kind)
	}

	if item.Description == "" || item.DescriptionAlt == "" {
		var catName, catNameAlt string
		if item.CategoryID != nil {
			if cat, err := s.repo.GetCategory(ctx, *item.CategoryID); err == nil {
				catName, catNameAlt = cat.Name, cat.NameAlt
			}
		}
		en, alt := GenerateDescriptions(item.Title, item.TitleAlt, item.Kind, catName, catNameAlt)
		if item.Description == "" {
			item.Description = en
		}
		if item.DescriptionAlt == "" {
			item.DescriptionAlt = alt
		}
	}

	if err := s.repo.CreateContent(ctx, item); err != nil {
		return nil, err
	}
	slog.Info("Content created", "content_id", item.ID, "type", item.Kind, "title", item.Title)
	return item, nil
}

func (s *service) GetContent(ctx context.Context, id int64) (*ContentItem, error) {
	return s.repo.GetContent(ctx, id)
}

func (s *service) ViewContent(ctx context.Context, id int64) (*ContentItem, error) {
	item, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		slog.Warn("Failed to increment view count", "content_id", id, "error", err)
	}
	return item, nil
}

func (s *service) UpdateContent(ctx context.Context, id int64, req UpdateContentRequest) (*ContentItem, error) {
	item, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, &ValidationError{Field: "title", Reason: "cannot be empty"}
		}
		item.Title = *req.Title
	}
	if req.TitleAlt != nil {
		item.TitleAlt = *req.TitleAlt
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.DescriptionAlt != nil {
		item.DescriptionAlt = *req.DescriptionAlt
	}
	if req.CategoryID != nil {
		item.CategoryID = *req.CategoryID
	}
	if req.Tags != nil {
		item.Tags = *req.Tags
	}
	if req.IsFeatured != nil {
		item.IsFeatured = *req.IsFeatured
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateContent(ctx, item); err != nil {
		return nil, err
	}
	slog.Info("Content updated", "content_id", id)
	return item, nil
}

func (s *service) DeleteContent(ctx context.Context, id int64) error {
	item, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return err
	}

	// Asset cleanup is fire-and-forget: it runs detached from the request
	// and a failure is logged, never surfaced. Metadata deletion must not
	// block on it.
	go s.cleanupAssets(item)

	if err := s.repo.DeleteContent(ctx, id); err != nil {
		return err
	}
	slog.Info("Content deleted", "content_id", id)
	return nil
}

func (s *service) cleanupAssets(item *ContentItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.gateway != nil {
		for _, u := range []string{item.AssetURL, item.ThumbnailURL} {
			if !IsRemoteURL(u) {
				continue
			}
			key, ok := s.gateway.KeyFromURL(u)
			if !ok {
				continue
			}
			if err := s.gateway.Delete(ctx, key); err != nil {
				slog.Warn("Remote asset cleanup failed", "content_id", item.ID, "key", key, "error", err)
			}
		}
	}

	for _, p := range []string{item.LocalPath, item.ThumbnailPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("Local asset cleanup failed", "content_id", item.ID, "path", p, "error", err)
		}
	}
}

func (s *service) ListContent(ctx context.Context, filters ListFilters) (*ContentPage, error) {
	if err := filters.Normalize(); err != nil {
		return nil, err
	}
	items, err := s.repo.ListContent(ctx, filters)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountContent(ctx, filters)
	if err != nil {
		return nil, err
	}
	return &ContentPage{Items: items, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (s *service) PopularContent(ctx context.Context, sortField string, limit int) ([]*ContentItem, error) {
	switch sortField {
	case "", "view_count":
		sortField = "view_count"
	case "download_count":
	default:
		return nil, &ValidationError{Field: "sortBy", Reason: "must be view_count or download_count"}
	}
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	return s.repo.PopularContent(ctx, sortField, limit)
}

func (s *service) RelatedContent(ctx context.Context, id int64, limit int) ([]*ContentItem, error) {
	ref, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	return s.repo.RelatedContent(ctx, ref, limit)
}

func (s *service) LibraryStats(ctx context.Context) (*LibraryStats, error) {
	if s.statsCache != nil {
		if raw, err := s.statsCache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var cached LibraryStats
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.repo.LibraryStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.statsCache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.statsCache.Set(ctx, statsCacheKey, raw, s.statsTTL).Err(); err != nil {
				slog.Warn("Failed to cache stats", "error", err)
			}
		}
	}
	return stats, nil
}

func (s *service) UploadContent(ctx context.Context, req UploadRequest) (*ContentItem, error) {
	// Reject before any I/O: the extension decides both admission and kind.
	kind, ok := KindForFilename(req.FileName)
	if !ok {
		return nil, ErrUnsupportedMedia
	}
	if s.gateway == nil {
		return nil, ErrNoGateway
	}

	mimeType := MimeForFilename(req.FileName)
	key := objectKeyFor(kind, req.FileName)

	result, err := s.gateway.Put(ctx, key, req.Body, mimeType, kind)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "put", Err: err}
	}

	title := req.Title
	if title == "" {
		title = titleFromFilename(req.FileName)
	}

	create := CreateContentRequest{
		Title:       title,
		TitleAlt:    req.TitleAlt,
		Description: req.Descr,
		CategoryID:  req.CategoryID,
		Kind:        kind,
		LocalPath:   result.Key,
		AssetURL:    result.URL,
		ThumbnailURL: func() string {
			if result.ThumbnailURL != "" {
				return result.ThumbnailURL
			}
			return PlaceholderThumbnail(kind)
		}(),
		FileSize:   req.Size,
		MimeType:   mimeType,
		Tags:       req.Tags,
		IsFeatured: req.IsFeatured,
	}
	return s.CreateContent(ctx, create)
}

func (s *service) OpenPrimary(ctx context.Context, id int64, rangeHeader string) (*Delivery, error) {
	item, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := s.resolver.ResolveAsset(ctx, item, VariantPrimary, rangeHeader)
	if err != nil {
		return nil, err
	}
	// Counted on every successful resolution, redirects included.
	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		slog.Warn("Failed to increment download count", "content_id", id, "error", err)
	}
	return d, nil
}

func (s *service) OpenThumbnail(ctx context.Context, id int64) (*Delivery, error) {
	item, err := s.repo.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveAsset(ctx, item, VariantThumbnail, "")
}

func (s *service) MatchFallbackPath(ctx context.Context, requestPath string) (string, bool) {
	return s.matcher.MatchByRequestPath(ctx, requestPath)
}

// objectKeyFor builds a collision-free gateway key preserving the sanitized
// original name for the fallback matcher's benefit.
func objectKeyFor(kind ContentKind, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := sanitizeFilename(strings.TrimSuffix(path.Base(fileName), path.Ext(fileName)))
	return fmt.Sprintf("%s/%s-%s%s", KindDir(kind), base, uuid.NewString()[:8], ext)
}

// sanitizeFilename keeps ASCII letters, digits and Arabic script; everything
// else collapses to single underscores.
func sanitizeFilename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		keep := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || (r >= 0x0600 && r <= 0x06FF)
		if keep {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func titleFromFilename(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
