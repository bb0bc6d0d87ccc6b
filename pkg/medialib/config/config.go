// Package config loads server configuration from the environment and builds
// a wired service from it.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/edulib/media-backend/pkg/medialib"
	memorygw "github.com/edulib/media-backend/pkg/medialib/gateway/memory"
	s3gw "github.com/edulib/media-backend/pkg/medialib/gateway/s3"
	memoryrepo "github.com/edulib/media-backend/pkg/medialib/repo/memory"
	postgresrepo "github.com/edulib/media-backend/pkg/medialib/repo/postgres"
)

// ServerConfig is the complete server configuration. Every field has an
// environment binding; zero-config boots an in-memory development server.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// DatabaseURL selects the postgres repository when set; empty means the
	// in-memory repository.
	DatabaseURL string `env:"DATABASE_URL"`

	UploadDir string `env:"UPLOAD_DIR" env-default:"uploads"`

	// RedisURL enables the stats cache when set.
	RedisURL      string        `env:"REDIS_URL"`
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" env-default:"5m"`

	// Object gateway. S3Bucket selects the S3 gateway when set; empty means
	// the in-memory gateway (development only).
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-default:"false"`
	CDNBaseURL        string `env:"CDN_BASE_URL"`
}

// Load reads the configuration from the environment.
func Load() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Validate catches configuration combinations that cannot work.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.S3Bucket != "" && c.Environment == "production" && c.S3AccessKeyID == "" {
		return fmt.Errorf("s3 credentials are required in production")
	}
	if c.DatabaseURL == "" && c.Environment == "production" {
		return fmt.Errorf("a database is required in production")
	}
	return nil
}

// BuildService wires repository, gateway and cache per the configuration and
// returns the service plus a cleanup releasing the connections.
func (c *ServerConfig) BuildService(ctx context.Context) (medialib.Service, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var repo medialib.Repository
	if c.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		repo = postgresrepo.New(pool)
	} else {
		repo = memoryrepo.New()
	}

	var gateway medialib.ObjectGateway
	if c.S3Bucket != "" {
		gw, err := s3gw.New(ctx, s3gw.Config{
			Region:                 c.S3Region,
			Bucket:                 c.S3Bucket,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               c.S3Endpoint,
			UsePathStyle:           c.S3UsePathStyle,
			CDNBaseURL:             c.CDNBaseURL,
			CreateBucketIfNotExist: c.S3CreateBucket,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		gateway = gw
	} else {
		gateway = memorygw.New("")
	}

	opts := []medialib.Option{
		medialib.WithRepository(repo),
		medialib.WithObjectGateway(gateway),
		medialib.WithUploadDir(c.UploadDir),
	}

	if c.RedisURL != "" {
		redisOpts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		cleanups = append(cleanups, func() { client.Close() })
		opts = append(opts, medialib.WithStatsCache(client, c.StatsCacheTTL))
	}

	svc, err := medialib.New(opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
