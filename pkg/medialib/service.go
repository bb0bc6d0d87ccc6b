package medialib

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Option configures the service.
type Option func(*service)

// WithRepository sets the metadata store. Required.
func WithRepository(repo Repository) Option {
	return func(s *service) { s.repo = repo }
}

// WithObjectGateway sets the remote object gateway used for uploads and
// best-effort asset cleanup. Optional; uploads fail without one.
func WithObjectGateway(gw ObjectGateway) Option {
	return func(s *service) { s.gateway = gw }
}

// WithHTTPClient overrides the HTTP client the delivery resolver proxies
// remote assets through.
func WithHTTPClient(client *http.Client) Option {
	return func(s *service) { s.httpClient = client }
}

// WithUploadDir sets the local directory new uploads are staged under.
func WithUploadDir(dir string) Option {
	return func(s *service) { s.uploadDir = dir }
}

// WithStatsCache caches the stats read model in redis with a short TTL.
func WithStatsCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *service) {
		s.statsCache = client
		if ttl > 0 {
			s.statsTTL = ttl
		}
	}
}

// New creates the library service.
func New(opts ...Option) (Service, error) {
	s := &service{
		uploadDir: "uploads",
		statsTTL:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo == nil {
		return nil, errors.New("repository is required")
	}
	s.resolver = NewResolver(s.httpClient)
	s.matcher = NewMatcher(s.repo, MatcherScanLimit)
	return s, nil
}
