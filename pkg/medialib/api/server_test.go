package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulib/media-backend/pkg/medialib"
	"github.com/edulib/media-backend/pkg/medialib/api"
	gatewaymem "github.com/edulib/media-backend/pkg/medialib/gateway/memory"
	repomem "github.com/edulib/media-backend/pkg/medialib/repo/memory"
)

type apiEnvelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *struct {
		Total  int64 `json:"total"`
		Limit  int   `json:"limit"`
		Offset int   `json:"offset"`
		Pages  int64 `json:"pages"`
	} `json:"pagination"`
}

func newTestServer(t *testing.T) (*httptest.Server, medialib.Service, string) {
	t.Helper()
	uploadDir := t.TempDir()
	svc, err := medialib.New(
		medialib.WithRepository(repomem.New()),
		medialib.WithObjectGateway(gatewaymem.New("")),
		medialib.WithUploadDir(uploadDir),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(svc, uploadDir))
	t.Cleanup(srv.Close)
	return srv, svc, uploadDir
}

func decodeEnvelope(t *testing.T, resp *http.Response) apiEnvelope {
	t.Helper()
	defer resp.Body.Close()
	var env apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func seedItem(t *testing.T, svc medialib.Service, title string, kind medialib.ContentKind) *medialib.ContentItem {
	t.Helper()
	item, err := svc.CreateContent(context.Background(), medialib.CreateContentRequest{
		Title:    title,
		Kind:     kind,
		AssetURL: "https://objects.test/" + medialib.KindDir(kind) + "/" + strings.ToLower(title) + ".bin",
	})
	require.NoError(t, err)
	return item
}

func TestHealthAndInfo(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "media-backend")
}

func TestContentListEnvelope(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	for i := 0; i < 25; i++ {
		seedItem(t, svc, fmt.Sprintf("Item%02d", i), medialib.KindPDF)
	}

	resp, err := http.Get(srv.URL + "/api/v1/content?limit=10&offset=10")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	require.True(t, env.Success)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(25), env.Pagination.Total)
	assert.Equal(t, 10, env.Pagination.Limit)
	assert.Equal(t, int64(3), env.Pagination.Pages)

	var items []*medialib.ContentItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 10)
}

func TestContentDetailIncrementsViews(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	item := seedItem(t, svc, "Viewed", medialib.KindPDF)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/content/%d", srv.URL, item.ID))
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)

	got, err := svc.GetContent(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)
}

func TestContentNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/content/99999")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestContentFileRedirect(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	item, err := svc.CreateContent(context.Background(), medialib.CreateContentRequest{
		Title:     "Gone",
		Kind:      medialib.KindImage,
		LocalPath: "no/such/file.png",
		AssetURL:  "/uploads/images/gone.png",
	})
	require.NoError(t, err)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(fmt.Sprintf("%s/api/v1/content/%d/file", srv.URL, item.ID))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/uploads/images/gone.png", resp.Header.Get("Location"))
}

func TestThumbnailWithoutSourceIs404(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	item, err := svc.CreateContent(context.Background(), medialib.CreateContentRequest{
		Title:    "NoThumb",
		Kind:     medialib.KindImage,
		AssetURL: "/uploads/images/nothumb.png",
	})
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/content/%d/thumbnail", srv.URL, item.ID))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "trail map.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF fake"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", "Trail Map"))
	require.NoError(t, mw.WriteField("tags", `["maps","hiking"]`))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/content", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var item medialib.ContentItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "Trail Map", item.Title)
	assert.Equal(t, medialib.KindPDF, item.Kind)
	assert.Equal(t, []string{"maps", "hiking"}, item.Tags)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "virus.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/content", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestBulkUploadMixedResults(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.pdf", "b.exe", "c.png"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/content/bulk", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var results []struct {
		FileName string                `json:"file_name"`
		Item     *medialib.ContentItem `json:"item"`
		Error    string                `json:"error"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 3)
	assert.NotNil(t, results[0].Item)
	assert.Empty(t, results[0].Error)
	assert.Nil(t, results[1].Item)
	assert.NotEmpty(t, results[1].Error)
	assert.NotNil(t, results[2].Item)
}

func TestCategoryEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"name":"Guides","name_alt":"أدلة","slug":"guides"}`
	resp, err := http.Post(srv.URL+"/api/v1/categories", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cat medialib.Category
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	t.Run("get by slug", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/categories/slug/guides")
		require.NoError(t, err)
		env := decodeEnvelope(t, resp)
		require.True(t, env.Success)
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/categories", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		env := decodeEnvelope(t, resp)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.False(t, env.Success)
	})

	t.Run("tree", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/categories/tree")
		require.NoError(t, err)
		env := decodeEnvelope(t, resp)
		require.True(t, env.Success)

		var tree []*medialib.CategoryNode
		require.NoError(t, json.Unmarshal(env.Data, &tree))
		require.Len(t, tree, 1)
		assert.Equal(t, cat.ID, tree[0].ID)
	})
}

func TestUploadsStaticAndFallback(t *testing.T) {
	srv, svc, uploadDir := newTestServer(t)

	t.Run("existing file is served", func(t *testing.T) {
		dir := filepath.Join(uploadDir, "pdfs")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "local.pdf"), []byte("%PDF local"), 0o644))

		resp, err := http.Get(srv.URL + "/uploads/pdfs/local.pdf")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing file falls back to matcher redirect", func(t *testing.T) {
		_, err := svc.CreateContent(context.Background(), medialib.CreateContentRequest{
			Title:     "AirScout",
			Kind:      medialib.KindVideo,
			LocalPath: "uploads/videos/kashafa_airscout.mp4",
			AssetURL:  "https://cdn.example.com/videos/kashafa_airscout.mp4",
		})
		require.NoError(t, err)

		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
		resp, err := client.Get(srv.URL + "/uploads/videos/kashafa_airscout.mp4")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://cdn.example.com/videos/kashafa_airscout.mp4", resp.Header.Get("Location"))
	})

	t.Run("no match is a 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/uploads/images/never-existed.png")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
