package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/logger"
	"github.com/valkey-io/valkey-go"
)

type Client struct {
	client valkey.Client
}

const (
	dispatchKeyPrefix = "campaign_dispatch:"
	dispatchTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// CacheDispatchResult stores the outcome of one campaign execution so the
// dashboard can show recent dispatches without hitting MySQL.
func (c *Client) CacheDispatchResult(ctx context.Context, scheduledCampaignID int64, cache domain.DispatchCache) error {
	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := fmt.Sprintf("%s%d", dispatchKeyPrefix, scheduledCampaignID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(dispatchTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache dispatch result: %w", err)
	}

	logger.Debugf("Cached dispatch result for scheduled campaign %d", scheduledCampaignID)

	return nil
}

func (c *Client) GetDispatchResult(ctx context.Context, scheduledCampaignID int64) (*domain.DispatchCache, error) {
	key := fmt.Sprintf("%s%d", dispatchKeyPrefix, scheduledCampaignID)

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached dispatch result: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached dispatch result: %w", err)
	}

	var cache domain.DispatchCache
	if err := json.Unmarshal([]byte(data), &cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &cache, nil
}

func (c *Client) GetAllDispatchResults(ctx context.Context) (map[int64]*domain.DispatchCache, error) {
	pattern := fmt.Sprintf("%s*", dispatchKeyPrefix)

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	results := make(map[int64]*domain.DispatchCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var cache domain.DispatchCache
		if err := json.Unmarshal([]byte(data), &cache); err != nil {
			continue
		}

		var id int64

		if _, err := fmt.Sscanf(key, dispatchKeyPrefix+"%d", &id); err != nil {
			logger.Warnf("failed to parse campaign id from redis key %q: %v", key, err)
			continue
		}

		results[id] = &cache
	}

	return results, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
