// Package postgres provides a PostgreSQL repository backed by pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edulib/media-backend/pkg/medialib"
)

// Repository is a PostgreSQL implementation of medialib.Repository.
// Counter increments are single UPDATE statements with a relative SET, so
// concurrent increments serialize row-locally inside the database.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a repository on an existing connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contentColumns = `c.id, c.title, c.title_alt, c.description, c.description_alt,
	c.category_id, c.type, c.file_path, c.file_url, c.thumbnail_path, c.thumbnail_url,
	c.file_size, c.mime_type, c.tags, c.view_count, c.download_count, c.is_featured,
	c.created_at, c.updated_at, COALESCE(cat.name, ''), COALESCE(cat.name_alt, '')`

const contentFrom = ` FROM content c LEFT JOIN categories cat ON cat.id = c.category_id`

func (r *Repository) CreateContent(ctx context.Context, item *medialib.ContentItem) error {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO content (title, title_alt, description, description_alt,
			category_id, type, file_path, file_url, thumbnail_path, thumbnail_url,
			file_size, mime_type, tags, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		item.Title, item.TitleAlt, item.Description, item.DescriptionAlt,
		item.CategoryID, item.Kind, item.LocalPath, item.AssetURL,
		item.ThumbnailPath, item.ThumbnailURL, item.FileSize, item.MimeType,
		string(tags), item.IsFeatured, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		return translateError(err, "create content")
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id int64) (*medialib.ContentItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contentColumns+contentFrom+` WHERE c.id = $1`, id)
	item, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, medialib.ErrContentNotFound
		}
		return nil, translateError(err, "get content")
	}
	return item, nil
}

func (r *Repository) UpdateContent(ctx context.Context, item *medialib.ContentItem) error {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE content SET title = $1, title_alt = $2, description = $3,
			description_alt = $4, category_id = $5, file_path = $6, file_url = $7,
			thumbnail_path = $8, thumbnail_url = $9, file_size = $10,
			mime_type = $11, tags = $12, is_featured = $13, updated_at = $14
		WHERE id = $15`,
		item.Title, item.TitleAlt, item.Description, item.DescriptionAlt,
		item.CategoryID, item.LocalPath, item.AssetURL, item.ThumbnailPath,
		item.ThumbnailURL, item.FileSize, item.MimeType, string(tags),
		item.IsFeatured, item.UpdatedAt, item.ID)
	if err != nil {
		return translateError(err, "update content")
	}
	if tag.RowsAffected() == 0 {
		return medialib.ErrContentNotFound
	}
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "delete content")
	}
	if tag.RowsAffected() == 0 {
		return medialib.ErrContentNotFound
	}
	return nil
}

func (r *Repository) ListContent(ctx context.Context, filters medialib.ListFilters) ([]*medialib.ContentItem, error) {
	where, args := buildFilters(filters)
	// Sort inputs pass through the allow-list in Normalize before reaching
	// this string; they are never raw client input.
	query := `SELECT ` + contentColumns + contentFrom + where +
		fmt.Sprintf(` ORDER BY c.%s %s, c.id DESC LIMIT $%d OFFSET $%d`,
			filters.SortField, strings.ToUpper(filters.SortDir), len(args)+1, len(args)+2)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "list content")
	}
	defer rows.Close()

	var items []*medialib.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, translateError(err, "list content")
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) CountContent(ctx context.Context, filters medialib.ListFilters) (int64, error) {
	where, args := buildFilters(filters)
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+contentFrom+where, args...).Scan(&total)
	if err != nil {
		return 0, translateError(err, "count content")
	}
	return total, nil
}

func (r *Repository) IncrementViewCount(ctx context.Context, id int64) error {
	return r.increment(ctx, "view_count", id)
}

func (r *Repository) IncrementDownloadCount(ctx context.Context, id int64) error {
	return r.increment(ctx, "download_count", id)
}

func (r *Repository) increment(ctx context.Context, column string, id int64) error {
	// updated_at is deliberately untouched: counters are not edits.
	tag, err := r.pool.Exec(ctx,
		`UPDATE content SET `+column+` = `+column+` + 1 WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "increment "+column)
	}
	if tag.RowsAffected() == 0 {
		return medialib.ErrContentNotFound
	}
	return nil
}

func (r *Repository) PopularContent(ctx context.Context, sortField string, limit int) ([]*medialib.ContentItem, error) {
	query := `SELECT ` + contentColumns + contentFrom +
		fmt.Sprintf(` WHERE c.%s > 0 ORDER BY c.%s DESC LIMIT $1`, sortField, sortField)
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, translateError(err, "popular content")
	}
	defer rows.Close()

	var items []*medialib.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, translateError(err, "popular content")
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) RelatedContent(ctx context.Context, ref *medialib.ContentItem, limit int) ([]*medialib.ContentItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contentColumns+contentFrom+`
		WHERE c.id <> $1 AND (c.category_id = $2 OR c.type = $3)
		ORDER BY (c.category_id = $2) DESC NULLS LAST, c.view_count DESC
		LIMIT $4`,
		ref.ID, ref.CategoryID, ref.Kind, limit)
	if err != nil {
		return nil, translateError(err, "related content")
	}
	defer rows.Close()

	var items []*medialib.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, translateError(err, "related content")
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) LibraryStats(ctx context.Context) (*medialib.LibraryStats, error) {
	stats := &medialib.LibraryStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE type = 'pdf'),
			COUNT(*) FILTER (WHERE type = 'image'),
			COUNT(*) FILTER (WHERE type = 'video'),
			COUNT(*) FILTER (WHERE type = 'presentation'),
			COALESCE(SUM(view_count), 0),
			COALESCE(SUM(download_count), 0),
			(SELECT COUNT(*) FROM categories)
		FROM content`).Scan(
		&stats.TotalContent, &stats.TotalPDFs, &stats.TotalImages,
		&stats.TotalVideos, &stats.TotalPresentations,
		&stats.TotalViews, &stats.TotalDownloads, &stats.TotalCategories)
	if err != nil {
		return nil, translateError(err, "library stats")
	}
	return stats, nil
}

const categoryColumns = `cat.id, cat.name, cat.name_alt, cat.slug, cat.description,
	cat.icon, cat.parent_id, cat.order_index, cat.created_at, cat.updated_at,
	(SELECT COUNT(*) FROM content c WHERE c.category_id = cat.id)`

func (r *Repository) CreateCategory(ctx context.Context, c *medialib.Category) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, name_alt, slug, description, icon,
			parent_id, order_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		c.Name, c.NameAlt, c.Slug, c.Description, c.Icon,
		c.ParentID, c.OrderIndex, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return translateError(err, "create category")
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (*medialib.Category, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories cat WHERE cat.id = $1`, id)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, medialib.ErrCategoryNotFound
		}
		return nil, translateError(err, "get category")
	}
	return c, nil
}

func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (*medialib.Category, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories cat WHERE cat.slug = $1`, slug)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, medialib.ErrCategoryNotFound
		}
		return nil, translateError(err, "get category by slug")
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]*medialib.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories cat ORDER BY cat.order_index, cat.id`)
	if err != nil {
		return nil, translateError(err, "list categories")
	}
	defer rows.Close()

	var cats []*medialib.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, translateError(err, "list categories")
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, c *medialib.Category) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE categories SET name = $1, name_alt = $2, slug = $3,
			description = $4, icon = $5, parent_id = $6, order_index = $7,
			updated_at = $8
		WHERE id = $9`,
		c.Name, c.NameAlt, c.Slug, c.Description, c.Icon,
		c.ParentID, c.OrderIndex, c.UpdatedAt, c.ID)
	if err != nil {
		return translateError(err, "update category")
	}
	if tag.RowsAffected() == 0 {
		return medialib.ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	// The schema's ON DELETE SET NULL covers both references; deleting the
	// row is enough.
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "delete category")
	}
	if tag.RowsAffected() == 0 {
		return medialib.ErrCategoryNotFound
	}
	return nil
}

// buildFilters renders the WHERE clause for content listings.
func buildFilters(filters medialib.ListFilters) (string, []any) {
	var conds []string
	var args []any
	next := func() int { return len(args) + 1 }

	if filters.CategoryID != nil {
		conds = append(conds, fmt.Sprintf("c.category_id = $%d", next()))
		args = append(args, *filters.CategoryID)
	}
	if filters.Kind != "" {
		conds = append(conds, fmt.Sprintf("c.type = $%d", next()))
		args = append(args, filters.Kind)
	}
	if filters.Featured != nil {
		conds = append(conds, fmt.Sprintf("c.is_featured = $%d", next()))
		args = append(args, *filters.Featured)
	}
	if filters.Search != "" {
		n := next()
		conds = append(conds, fmt.Sprintf(
			"(c.title ILIKE $%d OR c.title_alt ILIKE $%d OR c.description ILIKE $%d OR c.tags ILIKE $%d)",
			n, n, n, n))
		args = append(args, "%"+filters.Search+"%")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*medialib.ContentItem, error) {
	var item medialib.ContentItem
	var tags string
	err := row.Scan(&item.ID, &item.Title, &item.TitleAlt, &item.Description,
		&item.DescriptionAlt, &item.CategoryID, &item.Kind, &item.LocalPath,
		&item.AssetURL, &item.ThumbnailPath, &item.ThumbnailURL, &item.FileSize,
		&item.MimeType, &tags, &item.ViewCount, &item.DownloadCount,
		&item.IsFeatured, &item.CreatedAt, &item.UpdatedAt,
		&item.CategoryName, &item.CategoryNameAlt)
	if err != nil {
		return nil, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			// Legacy rows hold comma-separated tags; keep them readable.
			item.Tags = strings.Split(tags, ",")
		}
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return &item, nil
}

func scanCategory(row rowScanner) (*medialib.Category, error) {
	var c medialib.Category
	err := row.Scan(&c.ID, &c.Name, &c.NameAlt, &c.Slug, &c.Description,
		&c.Icon, &c.ParentID, &c.OrderIndex, &c.CreatedAt, &c.UpdatedAt,
		&c.ContentCount)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// translateError maps database error classes onto domain errors so callers
// never see driver details.
func translateError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return medialib.ErrSlugTaken
			}
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "category") ||
				strings.Contains(pgErr.ConstraintName, "parent") {
				return medialib.ErrCategoryNotFound
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
