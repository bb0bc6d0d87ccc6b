package medialib

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Delivery is the outcome of resolving an asset request. Exactly one of
// RedirectURL and Body is set; a nil Delivery never leaves the resolver
// without an error.
type Delivery struct {
	// RedirectURL, when non-empty, means the client should be redirected
	// (302) instead of streamed to.
	RedirectURL string

	Body           io.ReadCloser
	ContentType    string
	ContentLength  int64 // -1 when unknown
	Disposition    string
	CacheControl   string
	AllowAnyOrigin bool

	// Range, when non-nil, means the body is a partial-content response.
	Range *ByteRange
}

// ByteRange describes the satisfied slice of a range request.
type ByteRange struct {
	Start int64
	End   int64
	Size  int64
}

// ContentRange renders the Content-Range header value.
func (r ByteRange) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// Length returns the byte count of the satisfied slice.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// Close releases the delivery's body if it has one.
func (d *Delivery) Close() error {
	if d.Body != nil {
		return d.Body.Close()
	}
	return nil
}

// Resolver decides and executes the serving strategy for an item's primary
// asset or thumbnail: local stream, range-streamed video, proxied remote
// bytes, or a redirect.
type Resolver struct {
	client *http.Client
}

// NewResolver creates a resolver. A nil client gets a default with bounded
// dial and response-header timeouts; the body read itself stays unbounded so
// large assets can stream, and is cancelled through the request context.
func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	return &Resolver{client: client}
}

// ResolveAsset resolves the requested variant of an item.
//
// Remote primary assets are proxied, never redirected, so Content-Type and
// Content-Disposition stay under this service's control. Remote thumbnails
// redirect. Local assets stream from disk, with byte-range support for
// videos; a missing local file falls back to the stored URL when one is
// known. Absence of any source yields ErrAssetNotFound.
func (rv *Resolver) ResolveAsset(ctx context.Context, item *ContentItem, variant AssetVariant, rangeHeader string) (*Delivery, error) {
	urlField, pathField := item.AssetURL, item.LocalPath
	if variant == VariantThumbnail {
		urlField, pathField = item.ThumbnailURL, item.ThumbnailPath
	}

	loc := LocateAsset(urlField, pathField)
	if loc.Remote() {
		if variant == VariantThumbnail {
			return &Delivery{RedirectURL: loc.URL()}, nil
		}
		return rv.proxy(ctx, item, loc.URL())
	}

	if loc.Path() == "" {
		if loc.URL() != "" {
			return &Delivery{RedirectURL: loc.URL()}, nil
		}
		return nil, ErrAssetNotFound
	}

	info, err := os.Stat(loc.Path())
	if err != nil {
		// Local file has gone away; redirect to the stored URL if the
		// record still knows one, local-relative included (the uploads
		// fallback handler resolves those).
		if loc.URL() != "" {
			return &Delivery{RedirectURL: loc.URL()}, nil
		}
		return nil, ErrAssetNotFound
	}

	var d *Delivery
	if variant == VariantPrimary && item.Kind == KindVideo {
		d, err = rv.openVideo(loc.Path(), info.Size(), item.MimeType, rangeHeader)
	} else {
		d, err = rv.openWhole(loc.Path(), info.Size(), contentTypeFor(item, variant))
	}
	if err != nil {
		return nil, err
	}
	if variant == VariantPrimary {
		d.Disposition = inlineDisposition(item.Title)
	}
	return d, nil
}

// proxy streams the remote origin's bytes through this service. A non-2xx
// upstream status is surfaced unchanged via UpstreamError.
func (rv *Resolver) proxy(ctx context.Context, item *ContentItem, remoteURL string) (*Delivery, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, &StorageError{Key: remoteURL, Op: "proxy", Err: err}
	}

	resp, err := rv.client.Do(req)
	if err != nil {
		return nil, &StorageError{Key: remoteURL, Op: "proxy", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		slog.Error("Upstream returned non-success while proxying",
			"url", remoteURL, "status", resp.StatusCode)
		return nil, &UpstreamError{URL: remoteURL, StatusCode: resp.StatusCode}
	}

	length := int64(-1)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			length = n
		}
	}

	return &Delivery{
		Body:           resp.Body,
		ContentType:    contentTypeFor(item, VariantPrimary),
		ContentLength:  length,
		Disposition:    inlineDisposition(item.Title),
		CacheControl:   "public, max-age=86400",
		AllowAnyOrigin: true,
	}, nil
}

func (rv *Resolver) openWhole(path string, size int64, contentType string) (*Delivery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Key: path, Op: "open", Err: err}
	}
	return &Delivery{
		Body:          f,
		ContentType:   contentType,
		ContentLength: size,
	}, nil
}

// openVideo honors a byte-range request header against a local video file.
// A malformed range degrades to whole-file streaming; availability beats
// strict RFC compliance here.
func (rv *Resolver) openVideo(path string, size int64, mimeType, rangeHeader string) (*Delivery, error) {
	br := parseRange(rangeHeader, size)
	if br == nil {
		return rv.openWhole(path, size, mimeType)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Key: path, Op: "open", Err: err}
	}
	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, &StorageError{Key: path, Op: "seek", Err: err}
	}

	return &Delivery{
		Body:          &boundedReadCloser{r: io.LimitReader(f, br.Length()), c: f},
		ContentType:   mimeType,
		ContentLength: br.Length(),
		Range:         br,
	}, nil
}

// parseRange parses "bytes=<start>-<end>" against the file size. End is
// optional and clamped to size-1. Any malformed input (non-numeric, start
// past end, start beyond the file) returns nil, meaning "no range".
func parseRange(header string, size int64) *ByteRange {
	if header == "" || size <= 0 {
		return nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 || start >= size {
		return nil
	}

	end := size - 1
	if s := strings.TrimSpace(endStr); s != "" {
		end, err = strconv.ParseInt(s, 10, 64)
		if err != nil || end < start {
			return nil
		}
		if end > size-1 {
			end = size - 1
		}
	}

	return &ByteRange{Start: start, End: end, Size: size}
}

// contentTypeFor picks the response Content-Type. PDFs force the canonical
// MIME type regardless of the stored value; historical records carry
// octet-stream there.
func contentTypeFor(item *ContentItem, variant AssetVariant) string {
	if variant == VariantPrimary && item.Kind == KindPDF {
		return "application/pdf"
	}
	if item.MimeType != "" {
		return item.MimeType
	}
	return "application/octet-stream"
}

func inlineDisposition(title string) string {
	if title == "" {
		title = "file"
	}
	return fmt.Sprintf(`inline; filename="%s"`, url.PathEscape(title))
}

type boundedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (b *boundedReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *boundedReadCloser) Close() error               { return b.c.Close() }
