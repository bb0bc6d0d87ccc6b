package medialib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiltersNormalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := ListFilters{}
		require.NoError(t, f.Normalize())
		assert.Equal(t, "created_at", f.SortField)
		assert.Equal(t, "desc", f.SortDir)
		assert.Equal(t, DefaultListLimit, f.Limit)
		assert.Equal(t, 0, f.Offset)
	})

	t.Run("limit clamped to max", func(t *testing.T) {
		f := ListFilters{Limit: 500}
		require.NoError(t, f.Normalize())
		assert.Equal(t, MaxListLimit, f.Limit)
	})

	t.Run("negative offset reset", func(t *testing.T) {
		f := ListFilters{Offset: -10}
		require.NoError(t, f.Normalize())
		assert.Equal(t, 0, f.Offset)
	})

	t.Run("sort field outside allow-list rejected", func(t *testing.T) {
		f := ListFilters{SortField: "id; DROP TABLE content"}
		err := f.Normalize()
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, "sortBy", valErr.Field)
	})

	t.Run("bad sort direction rejected", func(t *testing.T) {
		f := ListFilters{SortDir: "sideways"}
		assert.Error(t, f.Normalize())
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		f := ListFilters{Kind: "hologram"}
		assert.Error(t, f.Normalize())
	})
}

func TestCreateContentRequestValidate(t *testing.T) {
	valid := CreateContentRequest{Title: "T", Kind: KindPDF, AssetURL: "https://x/y.pdf"}
	require.NoError(t, valid.Validate())

	t.Run("missing title", func(t *testing.T) {
		r := valid
		r.Title = ""
		assert.Error(t, r.Validate())
	})

	t.Run("bad kind", func(t *testing.T) {
		r := valid
		r.Kind = "audio"
		assert.Error(t, r.Validate())
	})

	t.Run("missing url", func(t *testing.T) {
		r := valid
		r.AssetURL = ""
		assert.Error(t, r.Validate())
	})

	t.Run("negative size", func(t *testing.T) {
		r := valid
		r.FileSize = -1
		assert.Error(t, r.Validate())
	})
}

func TestCreateCategoryRequestValidate(t *testing.T) {
	require.NoError(t, (&CreateCategoryRequest{Name: "Guides", Slug: "guides"}).Validate())
	assert.Error(t, (&CreateCategoryRequest{Slug: "guides"}).Validate())
	assert.Error(t, (&CreateCategoryRequest{Name: "Guides"}).Validate())
}
