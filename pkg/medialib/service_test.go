package medialib_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulib/media-backend/pkg/medialib"
	gatewaymem "github.com/edulib/media-backend/pkg/medialib/gateway/memory"
	repomem "github.com/edulib/media-backend/pkg/medialib/repo/memory"
)

func newTestService(t *testing.T) (medialib.Service, *repomem.Repository, *gatewaymem.Gateway) {
	t.Helper()
	repo := repomem.New()
	gw := gatewaymem.New("")
	svc, err := medialib.New(
		medialib.WithRepository(repo),
		medialib.WithObjectGateway(gw),
	)
	require.NoError(t, err)
	return svc, repo, gw
}

func createItem(t *testing.T, svc medialib.Service, title string, kind medialib.ContentKind, categoryID *int64) *medialib.ContentItem {
	t.Helper()
	item, err := svc.CreateContent(context.Background(), medialib.CreateContentRequest{
		Title:      title,
		Kind:       kind,
		AssetURL:   "https://objects.test/" + medialib.KindDir(kind) + "/" + strings.ToLower(title) + ".bin",
		CategoryID: categoryID,
	})
	require.NoError(t, err)
	return item
}

func TestCreateContentDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.CreateContent(ctx, medialib.CreateContentRequest{
		Title:    "Camp Guide",
		Kind:     medialib.KindPDF,
		AssetURL: "https://objects.test/pdfs/camp-guide.pdf",
	})
	require.NoError(t, err)

	assert.NotZero(t, item.ID)
	assert.Equal(t, "Camp Guide", item.TitleAlt, "alternate title defaults to primary")
	assert.NotNil(t, item.Tags)
	assert.NotEmpty(t, item.Description, "description is generated when absent")
	assert.NotEmpty(t, item.DescriptionAlt)
	assert.Equal(t, medialib.PlaceholderThumbnail(medialib.KindPDF), item.ThumbnailURL)
}

func TestViewContentIncrementsOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	item := createItem(t, svc, "Doc", medialib.KindPDF, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.ViewContent(ctx, item.ID)
		require.NoError(t, err)
	}

	got, err := svc.GetContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ViewCount)
	assert.Equal(t, int64(0), got.DownloadCount)
	assert.Equal(t, item.UpdatedAt, got.UpdatedAt, "counters must not bump updated_at")
}

func TestOpenPrimaryCountsDownloadsIncludingRedirects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Local path is gone and the stored URL is local-relative, so resolution
	// is a redirect; the download still counts.
	item, err := svc.CreateContent(ctx, medialib.CreateContentRequest{
		Title:     "Missing",
		Kind:      medialib.KindImage,
		LocalPath: "no/such/file.png",
		AssetURL:  "/uploads/images/missing.png",
	})
	require.NoError(t, err)

	d, err := svc.OpenPrimary(ctx, item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/images/missing.png", d.RedirectURL)

	got, err := svc.GetContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.DownloadCount)
}

func TestUpdateContentPartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "Guides", Slug: "guides"})
	require.NoError(t, err)
	item := createItem(t, svc, "Old Title", medialib.KindPDF, &cat.ID)

	newTitle := "New Title"
	updated, err := svc.UpdateContent(ctx, item.ID, medialib.UpdateContentRequest{Title: &newTitle})
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, &cat.ID, updated.CategoryID, "untouched fields survive")
	assert.True(t, updated.UpdatedAt.After(item.UpdatedAt) || updated.UpdatedAt.Equal(item.UpdatedAt))

	t.Run("explicit category detach", func(t *testing.T) {
		var none *int64
		updated, err := svc.UpdateContent(ctx, item.ID, medialib.UpdateContentRequest{CategoryID: &none})
		require.NoError(t, err)
		assert.Nil(t, updated.CategoryID)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		empty := ""
		_, err := svc.UpdateContent(ctx, item.ID, medialib.UpdateContentRequest{Title: &empty})
		var valErr *medialib.ValidationError
		assert.ErrorAs(t, err, &valErr)
	})
}

func TestListContentPagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		createItem(t, svc, fmt.Sprintf("Item %02d", i), medialib.KindImage, nil)
	}

	page, err := svc.ListContent(ctx, medialib.ListFilters{Limit: 20, Offset: 20})
	require.NoError(t, err)

	assert.Equal(t, int64(45), page.Total)
	assert.Len(t, page.Items, 20)
	assert.Equal(t, int64(3), page.Pages())

	last, err := svc.ListContent(ctx, medialib.ListFilters{Limit: 20, Offset: 40})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
}

func TestListContentFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "Knots", Slug: "knots"})
	require.NoError(t, err)

	createItem(t, svc, "Bowline Guide", medialib.KindPDF, &cat.ID)
	createItem(t, svc, "Campfire Songs", medialib.KindPDF, nil)
	createItem(t, svc, "Bowline Demo", medialib.KindVideo, &cat.ID)

	t.Run("by kind", func(t *testing.T) {
		page, err := svc.ListContent(ctx, medialib.ListFilters{Kind: medialib.KindVideo})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("by category with joined names", func(t *testing.T) {
		page, err := svc.ListContent(ctx, medialib.ListFilters{CategoryID: &cat.ID})
		require.NoError(t, err)
		require.Equal(t, int64(2), page.Total)
		assert.Equal(t, "Knots", page.Items[0].CategoryName)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		page, err := svc.ListContent(ctx, medialib.ListFilters{Search: "bowline"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})
}

func TestPopularContent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a := createItem(t, svc, "A", medialib.KindPDF, nil)
	b := createItem(t, svc, "B", medialib.KindPDF, nil)
	createItem(t, svc, "Unviewed", medialib.KindPDF, nil)

	for i := 0; i < 5; i++ {
		_, err := svc.ViewContent(ctx, a.ID)
		require.NoError(t, err)
	}
	_, err := svc.ViewContent(ctx, b.ID)
	require.NoError(t, err)

	items, err := svc.PopularContent(ctx, "view_count", 10)
	require.NoError(t, err)
	require.Len(t, items, 2, "zero-count items are excluded")
	assert.Equal(t, a.ID, items[0].ID)

	t.Run("bad sort field rejected", func(t *testing.T) {
		_, err := svc.PopularContent(ctx, "title", 10)
		assert.Error(t, err)
	})
}

func TestRelatedContentOrdering(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "Maps", Slug: "maps"})
	require.NoError(t, err)

	ref := createItem(t, svc, "Ref", medialib.KindPDF, &cat.ID)
	sameCat := createItem(t, svc, "SameCat", medialib.KindImage, &cat.ID)
	sameKind := createItem(t, svc, "SameKind", medialib.KindPDF, nil)
	createItem(t, svc, "Unrelated", medialib.KindVideo, nil)

	// Give the same-kind item more views; same-category must still win.
	for i := 0; i < 3; i++ {
		_, err := svc.ViewContent(ctx, sameKind.ID)
		require.NoError(t, err)
	}

	items, err := svc.RelatedContent(ctx, ref.ID, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, sameCat.ID, items[0].ID)
	assert.Equal(t, sameKind.ID, items[1].ID)
}

func TestUploadContent(t *testing.T) {
	svc, _, gw := newTestService(t)
	ctx := context.Background()

	t.Run("pdf upload", func(t *testing.T) {
		item, err := svc.UploadContent(ctx, medialib.UploadRequest{
			FileName: "first aid manual.pdf",
			Size:     9,
			Body:     strings.NewReader("pdf bytes"),
		})
		require.NoError(t, err)

		assert.Equal(t, medialib.KindPDF, item.Kind)
		assert.Equal(t, "application/pdf", item.MimeType)
		assert.Equal(t, "first aid manual", item.Title)
		assert.True(t, strings.HasPrefix(item.LocalPath, "pdfs/"))
		assert.True(t, medialib.IsRemoteURL(item.AssetURL))
		assert.Equal(t, medialib.PlaceholderThumbnail(medialib.KindPDF), item.ThumbnailURL)

		data, ok := gw.Bytes(item.LocalPath)
		require.True(t, ok, "object landed under its key")
		assert.Equal(t, "pdf bytes", string(data))
	})

	t.Run("image is its own thumbnail", func(t *testing.T) {
		item, err := svc.UploadContent(ctx, medialib.UploadRequest{
			FileName: "badge.png",
			Size:     3,
			Body:     strings.NewReader("png"),
		})
		require.NoError(t, err)
		assert.Equal(t, item.AssetURL, item.ThumbnailURL)
	})

	t.Run("disallowed extension rejected before storage", func(t *testing.T) {
		_, err := svc.UploadContent(ctx, medialib.UploadRequest{
			FileName: "script.exe",
			Body:     strings.NewReader("nope"),
		})
		assert.ErrorIs(t, err, medialib.ErrUnsupportedMedia)
	})
}

func TestUploadWithoutGateway(t *testing.T) {
	svc, err := medialib.New(medialib.WithRepository(repomem.New()))
	require.NoError(t, err)

	_, err = svc.UploadContent(context.Background(), medialib.UploadRequest{
		FileName: "doc.pdf",
		Body:     strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, medialib.ErrNoGateway)
}

func TestDeleteCategoryDetachesContent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "Temp", Slug: "temp"})
	require.NoError(t, err)

	var ids []int64
	for i := 0; i < 4; i++ {
		ids = append(ids, createItem(t, svc, fmt.Sprintf("T%d", i), medialib.KindPDF, &cat.ID).ID)
	}

	require.NoError(t, svc.DeleteCategory(ctx, cat.ID))

	for _, id := range ids {
		item, err := svc.GetContent(ctx, id)
		require.NoError(t, err, "items survive category deletion")
		assert.Nil(t, item.CategoryID)
	}

	_, err = svc.GetCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, medialib.ErrCategoryNotFound)
}

func TestCategorySlugUniqueness(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "One", Slug: "dup"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "Two", Slug: "dup"})
	assert.ErrorIs(t, err, medialib.ErrSlugTaken)
}

func TestCategoryTreeAndCycles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "Root", Slug: "root", OrderIndex: 1})
	require.NoError(t, err)
	childA, err := svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "A", Slug: "a", ParentID: &root.ID, OrderIndex: 2})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, medialib.CreateCategoryRequest{Name: "B", Slug: "b", ParentID: &childA.ID})
	require.NoError(t, err)

	tree, err := svc.CategoryTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Root", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "A", tree[0].Children[0].Name)
	require.Len(t, tree[0].Children[0].Children, 1)

	t.Run("re-parent creating a cycle is rejected", func(t *testing.T) {
		ptr := &childA.ID
		_, err := svc.UpdateCategory(ctx, root.ID, medialib.UpdateCategoryRequest{ParentID: &ptr})
		assert.ErrorIs(t, err, medialib.ErrCategoryCycle)
	})

	t.Run("self-parent is rejected", func(t *testing.T) {
		ptr := &root.ID
		_, err := svc.UpdateCategory(ctx, root.ID, medialib.UpdateCategoryRequest{ParentID: &ptr})
		assert.ErrorIs(t, err, medialib.ErrCategoryCycle)
	})
}

func TestLibraryStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createItem(t, svc, "P1", medialib.KindPDF, nil)
	createItem(t, svc, "P2", medialib.KindPDF, nil)
	v := createItem(t, svc, "V1", medialib.KindVideo, nil)
	_, err := svc.ViewContent(ctx, v.ID)
	require.NoError(t, err)

	stats, err := svc.LibraryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalContent)
	assert.Equal(t, int64(2), stats.TotalPDFs)
	assert.Equal(t, int64(1), stats.TotalVideos)
	assert.Equal(t, int64(1), stats.TotalViews)
}

func TestMatchFallbackPath(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateContent(ctx, medialib.CreateContentRequest{
		Title:     "AirScout",
		Kind:      medialib.KindVideo,
		LocalPath: "uploads/videos/kashafa_airscout.mp4",
		AssetURL:  "https://cdn.example.com/videos/kashafa_airscout.mp4",
	})
	require.NoError(t, err)

	t.Run("exact basename", func(t *testing.T) {
		url, ok := svc.MatchFallbackPath(ctx, "/uploads/videos/kashafa_airscout.mp4")
		require.True(t, ok)
		assert.Equal(t, "https://cdn.example.com/videos/kashafa_airscout.mp4", url)
	})

	t.Run("renamed but containing the normalized name", func(t *testing.T) {
		url, ok := svc.MatchFallbackPath(ctx, "/uploads/videos/kashafa_airscout-v2.mp4")
		require.True(t, ok)
		assert.Equal(t, "https://cdn.example.com/videos/kashafa_airscout.mp4", url)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := svc.MatchFallbackPath(ctx, "/uploads/videos/unknown.mp4")
		assert.False(t, ok)
	})

	t.Run("local-only target is skipped", func(t *testing.T) {
		_, err := svc.CreateContent(ctx, medialib.CreateContentRequest{
			Title:     "LocalOnly",
			Kind:      medialib.KindPDF,
			LocalPath: "uploads/pdfs/localonly.pdf",
			AssetURL:  "/uploads/pdfs/localonly.pdf",
		})
		require.NoError(t, err)

		_, ok := svc.MatchFallbackPath(ctx, "/uploads/pdfs/localonly.pdf")
		assert.False(t, ok, "a local URL is never a redirect target")
	})
}
