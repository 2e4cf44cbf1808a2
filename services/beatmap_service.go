// services/beatmap_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
)

const setIDKeyPrefix = "beatmap:setid:"

var (
	ErrBeatmapNotFound = errors.New("beatmap not found on mirror")
	ErrInvalidChecksum = errors.New("invalid beatmap checksum")
)

// SetIDCache remembers checksum to set id mappings.
type SetIDCache interface {
	Get(ctx context.Context, md5 string) (string, bool, error)
	Set(ctx context.Context, md5, setID string) error
}

// RedisSetIDCache keeps set ids in redis with a TTL.
type RedisSetIDCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSetIDCache(ctx context.Context, client *redis.Client, ttl time.Duration) (*RedisSetIDCache, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisSetIDCache{client: client, ttl: ttl}, nil
}

func (c *RedisSetIDCache) Get(ctx context.Context, md5 string) (string, bool, error) {
	setID, err := c.client.Get(ctx, setIDKeyPrefix+md5).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setID, true, nil
}

func (c *RedisSetIDCache) Set(ctx context.Context, md5, setID string) error {
	return c.client.Set(ctx, setIDKeyPrefix+md5, setID, c.ttl).Err()
}

// BeatmapService looks up beatmap set ids on the beatmap mirror.
type BeatmapService struct {
	endpoint string
	client   *http.Client
	cache    SetIDCache
}

// NewBeatmapService 创建谱面服务, cache 可以为 nil
func NewBeatmapService(endpoint string, client *http.Client, cache SetIDCache) *BeatmapService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &BeatmapService{endpoint: endpoint, client: client, cache: cache}
}

type mirrorBeatmap struct {
	BeatmapSetID json.RawMessage `json:"beatmapset_id"`
}

// FetchSetID returns the set id for a beatmap checksum. Cache failures are
// logged and fall through to the mirror.
func (s *BeatmapService) FetchSetID(ctx context.Context, md5 string) (string, error) {
	if s.endpoint == "" {
		return "", errors.New("beatmap mirror not configured")
	}
	if !models.ValidChecksum(md5) {
		return "", ErrInvalidChecksum
	}
	if s.cache != nil {
		setID, ok, err := s.cache.Get(ctx, md5)
		if err != nil {
			logger.Log.Warnw("beatmap cache read failed", "md5", md5, "error", err)
		} else if ok {
			return setID, nil
		}
	}

	setID, err := s.fetchFromMirror(ctx, md5)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, md5, setID); err != nil {
			logger.Log.Warnw("beatmap cache write failed", "md5", md5, "error", err)
		}
	}
	return setID, nil
}

func (s *BeatmapService) fetchFromMirror(ctx context.Context, md5 string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"md5/"+url.PathEscape(md5), nil)
	if err != nil {
		return "", fmt.Errorf("build mirror request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query beatmap mirror: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrBeatmapNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("beatmap mirror returned %s", resp.Status)
	}

	var body mirrorBeatmap
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode mirror response: %w", err)
	}
	// the mirror sends the id either as a number or as a string
	setID := strings.Trim(strings.TrimSpace(string(body.BeatmapSetID)), `"`)
	if setID == "" || setID == "null" {
		return "", ErrBeatmapNotFound
	}
	return setID, nil
}
