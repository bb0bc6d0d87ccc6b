package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulib/media-backend/pkg/medialib"
	"github.com/edulib/media-backend/pkg/medialib/repo/memory"
)

func seed(t *testing.T, repo *memory.Repository, title string, created time.Time) *medialib.ContentItem {
	t.Helper()
	item := &medialib.ContentItem{
		Title:     title,
		TitleAlt:  title,
		Kind:      medialib.KindPDF,
		AssetURL:  "https://objects.test/pdfs/" + title + ".pdf",
		Tags:      []string{},
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, repo.CreateContent(context.Background(), item))
	return item
}

func TestListContentSortDirections(t *testing.T) {
	repo := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo, "alpha", base.Add(2*time.Hour))
	seed(t, repo, "bravo", base)
	seed(t, repo, "charlie", base.Add(time.Hour))

	t.Run("created_at desc", func(t *testing.T) {
		items, err := repo.ListContent(context.Background(), medialib.ListFilters{
			SortField: "created_at", SortDir: "desc", Limit: 10,
		})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "alpha", items[0].Title)
		assert.Equal(t, "bravo", items[2].Title)
	})

	t.Run("title asc", func(t *testing.T) {
		items, err := repo.ListContent(context.Background(), medialib.ListFilters{
			SortField: "title", SortDir: "asc", Limit: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, "alpha", items[0].Title)
		assert.Equal(t, "charlie", items[2].Title)
	})
}

func TestConcurrentIncrements(t *testing.T) {
	repo := memory.New()
	item := seed(t, repo, "counted", time.Now().UTC())

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = repo.IncrementViewCount(context.Background(), item.ID)
			_ = repo.IncrementDownloadCount(context.Background(), item.ID)
		}()
	}
	wg.Wait()

	got, err := repo.GetContent(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), got.ViewCount)
	assert.Equal(t, int64(workers), got.DownloadCount)
}

func TestUpdateContentPreservesCounters(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	item := seed(t, repo, "stable", time.Now().UTC())
	require.NoError(t, repo.IncrementViewCount(ctx, item.ID))

	// A stale row write must not clobber counters owned by increments.
	stale := *item
	stale.Title = "renamed"
	stale.ViewCount = 0
	require.NoError(t, repo.UpdateContent(ctx, &stale))

	got, err := repo.GetContent(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, int64(1), got.ViewCount)
}

func TestOffsetBeyondEnd(t *testing.T) {
	repo := memory.New()
	for i := 0; i < 3; i++ {
		seed(t, repo, fmt.Sprintf("item%d", i), time.Now().UTC())
	}

	items, err := repo.ListContent(context.Background(), medialib.ListFilters{
		SortField: "created_at", SortDir: "desc", Limit: 10, Offset: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
}
