// Package memory provides an in-memory object gateway for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/edulib/media-backend/pkg/medialib"
)

const defaultBaseURL = "https://objects.test"

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// Gateway is a mutex-guarded in-memory medialib.ObjectGateway.
type Gateway struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New creates an empty gateway. An empty baseURL gets a test default.
func New(baseURL string) *Gateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Gateway{
		objects: make(map[string]object),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (g *Gateway) Put(_ context.Context, key string, r io.Reader, contentType string, kind medialib.ContentKind) (*medialib.PutResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("memory: put %s: %w", key, err)
	}

	g.mu.Lock()
	g.objects[key] = object{data: buf.Bytes(), contentType: contentType, updatedAt: time.Now().UTC()}
	g.mu.Unlock()

	url := g.baseURL + "/" + key
	result := &medialib.PutResult{Key: key, URL: url}
	if medialib.KindResourceType(kind) == medialib.ResourceImage {
		result.ThumbnailURL = url
	}
	return result, nil
}

func (g *Gateway) Describe(_ context.Context, key string) (*medialib.ObjectInfo, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	obj, ok := g.objects[key]
	if !ok {
		return nil, medialib.ErrAssetNotFound
	}
	return &medialib.ObjectInfo{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}

func (g *Gateway) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.objects, key)
	return nil
}

func (g *Gateway) KeyFromURL(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, g.baseURL+"/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// Bytes returns a stored object's payload, for test assertions.
func (g *Gateway) Bytes(key string) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	obj, ok := g.objects[key]
	return obj.data, ok
}
