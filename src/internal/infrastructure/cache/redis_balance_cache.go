package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL 快取項目預設存活時間
const DefaultTTL = 30 * time.Second

const (
	keyPrefix   = "loyalty:balance:"
	fencePrefix = "loyalty:balance-fence:"
)

// setScript 版本低於圍欄時不寫入
//
// KEYS[1] 值、KEYS[2] 圍欄；ARGV[1] JSON、ARGV[2] 版本、ARGV[3] TTL（毫秒）
var setScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[2]) < fence then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// invalidateScript 刪除值並把圍欄推進到已提交的版本
//
// KEYS[1] 值、KEYS[2] 圍欄；ARGV[1] 版本、ARGV[2] TTL（毫秒）
var invalidateScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > fence then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
end
redis.call('DEL', KEYS[1])
return 1
`)

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisBalanceCache 以 Redis 實現 ledger.BalanceCache
//
// 值為 GetBalanceResult 的 JSON，只供讀取路徑使用。
// 失效時留下版本圍欄（與值同 TTL），提交前讀到的舊版本無法回填。
type RedisBalanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ledger.BalanceCache = (*RedisBalanceCache)(nil)

// NewRedisClient 建立 client 並確認可連線
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  3,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisBalanceCache 創建快取；ttl <= 0 時使用 DefaultTTL
func NewRedisBalanceCache(client redis.UniversalClient, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBalanceCache{client: client, ttl: ttl}
}

// Get 讀取快取；未命中返回 (nil, false, nil)
func (c *RedisBalanceCache) Get(ctx context.Context, customerID loyalty.CustomerID) (*ledger.GetBalanceResult, bool, error) {
	raw, err := c.client.Get(ctx, balanceKey(customerID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result ledger.GetBalanceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// 格式損壞視為未命中，回填時覆寫
		return nil, false, nil
	}
	return &result, true, nil
}

// Set 寫入快取；版本低於失效圍欄時靜默丟棄
func (c *RedisBalanceCache) Set(ctx context.Context, result *ledger.GetBalanceResult) error {
	if result == nil || result.CustomerID == "" {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}
	keys := []string{balanceKey(result.CustomerID), fenceKey(result.CustomerID)}
	if err := setScript.Run(ctx, c.client, keys, raw, result.Version, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate 刪除指定顧客的快取並記錄已提交的版本
func (c *RedisBalanceCache) Invalidate(ctx context.Context, committed ...ledger.CommittedVersion) error {
	if len(committed) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, v := range committed {
		id := v.CustomerID.String()
		invalidateScript.Eval(ctx, pipe, []string{balanceKey(id), fenceKey(id)}, v.Version, c.ttl.Milliseconds())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

func balanceKey(customerID string) string {
	return keyPrefix + customerID
}

func fenceKey(customerID string) string {
	return fencePrefix + customerID
}
