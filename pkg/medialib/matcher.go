package medialib

import (
	"context"
	"log/slog"
	"path"
	"strings"
)

// Matcher is the filename-based fallback resolver used when the local static
// layer receives a request for a path that no longer exists on disk. It is a
// correctness safety net for storage whose physical layout has drifted from
// the database records, not a primary lookup path.
type Matcher struct {
	repo      Repository
	scanLimit int
}

// NewMatcher creates a matcher scanning at most scanLimit items per request
// (MatcherScanLimit when <= 0).
func NewMatcher(repo Repository, scanLimit int) *Matcher {
	if scanLimit <= 0 {
		scanLimit = MatcherScanLimit
	}
	return &Matcher{repo: repo, scanLimit: scanLimit}
}

// MatchByRequestPath determines which item the missing path was meant to
// reference and returns its remote URL for redirection. Only an absolute
// remote URL is a valid redirect target; matches whose stored URL is local
// are skipped and scanning continues. No match is a normal outcome, not an
// error.
func (m *Matcher) MatchByRequestPath(ctx context.Context, requestPath string) (string, bool) {
	filename := path.Base(requestPath)
	if filename == "." || filename == "/" {
		return "", false
	}
	wantThumbnail := strings.Contains(requestPath, "/thumbnails/")
	normalized := normalizeBasename(filename)

	items, err := m.repo.ListContent(ctx, ListFilters{
		SortField: "created_at",
		SortDir:   "desc",
		Limit:     m.scanLimit,
	})
	if err != nil {
		slog.Error("Fallback matcher scan failed", "path", requestPath, "error", err)
		return "", false
	}

	for _, item := range items {
		if !matchesFilename(item, filename, normalized) {
			continue
		}
		target := item.AssetURL
		if wantThumbnail {
			target = item.ThumbnailURL
		}
		if !IsRemoteURL(target) {
			// A local URL cannot break the miss loop; keep scanning.
			continue
		}
		slog.Info("Fallback matcher redirect", "path", requestPath, "content_id", item.ID, "url", target)
		return target, true
	}

	return "", false
}

// matchesFilename applies the drift-tolerant match rules: exact basename
// match on either stored path, or substring containment in either direction
// of the normalized name.
func matchesFilename(item *ContentItem, filename, normalized string) bool {
	if item.ThumbnailPath != "" && path.Base(item.ThumbnailPath) == filename {
		return true
	}
	if item.LocalPath == "" {
		return false
	}
	itemFile := path.Base(item.LocalPath)
	if itemFile == filename {
		return true
	}
	if itemNorm := normalizeBasename(itemFile); itemNorm != "" && strings.Contains(filename, itemNorm) {
		return true
	}
	return normalized != "" && strings.Contains(itemFile, normalized)
}

// normalizeBasename strips the extension and the thumbnail suffix marker so
// names survive the renaming applied by earlier sanitization passes.
func normalizeBasename(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.ReplaceAll(name, "_thumb", "")
}
