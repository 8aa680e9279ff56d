package redis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/entity"
)

// ArtifactCache implements port.ArtifactCache on Redis. Each artifact is two
// independent records, "{id}:meta" (JSON) and "{id}:data" (base64 payload),
// written with identical TTLs. Expiry is entirely Redis's job: no scans, no
// background jobs, no explicit deletes.
type ArtifactCache struct {
	client *redis.Client
}

type Config struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewArtifactCache connects to Redis and verifies the connection.
func NewArtifactCache(cfg Config) (*ArtifactCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ArtifactCache{client: client}, nil
}

func metaKey(id string) string { return id + ":meta" }
func dataKey(id string) string { return id + ":data" }

// Put writes the metadata and payload records concurrently. There is no
// multi-key transaction; the pair becomes a logical unit only at read time,
// so a narrow window where one record is visible without the other is
// accepted.
func (c *ArtifactCache) Put(ctx context.Context, id string, meta entity.ArtifactMetadata, payload []byte, ttl time.Duration) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	var wg sync.WaitGroup
	var metaErr, dataErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		metaErr = c.client.Set(ctx, metaKey(id), metaJSON, ttl).Err()
	}()
	go func() {
		defer wg.Done()
		dataErr = c.client.Set(ctx, dataKey(id), encoded, ttl).Err()
	}()
	wg.Wait()

	if metaErr != nil || dataErr != nil {
		return fmt.Errorf("cache unavailable: %w", errors.Join(metaErr, dataErr))
	}
	return nil
}

// Get returns metadata and decoded payload if both records are present and
// unexpired. A pair with only one retrievable record is reported not-found;
// no partial result is ever synthesized.
func (c *ArtifactCache) Get(ctx context.Context, id string) (entity.ArtifactMetadata, []byte, error) {
	var meta entity.ArtifactMetadata

	metaVal, err := c.client.Get(ctx, metaKey(id)).Result()
	if err == redis.Nil {
		return meta, nil, port.ErrArtifactNotFound
	}
	if err != nil {
		return meta, nil, fmt.Errorf("cache unavailable: %w", err)
	}

	dataVal, err := c.client.Get(ctx, dataKey(id)).Result()
	if err == redis.Nil {
		return meta, nil, port.ErrArtifactDataNotFound
	}
	if err != nil {
		return meta, nil, fmt.Errorf("cache unavailable: %w", err)
	}

	if err := json.Unmarshal([]byte(metaVal), &meta); err != nil {
		return meta, nil, fmt.Errorf("failed to unmarshal artifact metadata: %w", err)
	}

	payload, err := base64.StdEncoding.DecodeString(dataVal)
	if err != nil {
		return meta, nil, fmt.Errorf("failed to decode artifact payload: %w", err)
	}

	return meta, payload, nil
}

// Close closes the Redis connection.
func (c *ArtifactCache) Close() error {
	return c.client.Close()
}
