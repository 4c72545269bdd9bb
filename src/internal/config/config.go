// Package config 載入服務設定（預設值 → 設定檔 → LOYALTY_* 環境變數）
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/cache"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/messaging"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/persistence"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix 環境變數前綴，例如 LOYALTY_DATABASE_DSN
const EnvPrefix = "LOYALTY"

// Config 服務設定
type Config struct {
	Environment string         `mapstructure:"environment"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Points      PointsConfig   `mapstructure:"points"`
	Tiers       TiersConfig    `mapstructure:"tiers"`
}

// HTTPConfig HTTP 伺服器
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 資料庫與事務重試
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	LogLevel        string        `mapstructure:"log_level"`
	TxMaxAttempts   uint          `mapstructure:"tx_max_attempts"`
	TxBackoffStart  time.Duration `mapstructure:"tx_backoff_start"`
	TxBackoffMax    time.Duration `mapstructure:"tx_backoff_max"`
	Serializable    bool          `mapstructure:"serializable"`
}

// RedisConfig 餘額快取；Addr 為空時停用
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// KafkaConfig 訂單事件消費與帳本事件發布；Brokers 為空時停用
type KafkaConfig struct {
	Brokers       []string      `mapstructure:"brokers"`
	OrderTopic    string        `mapstructure:"order_topic"`
	GroupID       string        `mapstructure:"group_id"`
	LedgerTopic   string        `mapstructure:"ledger_topic"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Concurrency   int           `mapstructure:"concurrency"`
	MaxAttempts   uint          `mapstructure:"max_attempts"`
}

// TracingConfig OTLP；Endpoint 為空時停用
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig 日誌
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	FilePath    string `mapstructure:"file_path"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

// PointsConfig 積分規則（金額以字串表示，避免浮點誤差）
type PointsConfig struct {
	MinOrderAmountForPoints string `mapstructure:"min_order_amount_for_points"`
	PointsPerCurrencyUnit   string `mapstructure:"points_per_currency_unit"`
	PointsPerUnitDiscount   int    `mapstructure:"points_per_unit_discount"`
	MaxDiscountPercentage   string `mapstructure:"max_discount_percentage"`
	MinPointsToRedeem       int    `mapstructure:"min_points_to_redeem"`
	PointsExpirationDays    int    `mapstructure:"points_expiration_days"`
	ReferrerPoints          int    `mapstructure:"referrer_points"`
	ReferredFirstOrderBonus int    `mapstructure:"referred_first_order_bonus"`
}

// TiersConfig 等級門檻與權益
type TiersConfig struct {
	SilverThreshold   int                       `mapstructure:"silver_threshold"`
	GoldThreshold     int                       `mapstructure:"gold_threshold"`
	PlatinumThreshold int                       `mapstructure:"platinum_threshold"`
	Benefits          map[string]BenefitsConfig `mapstructure:"benefits"`
}

// BenefitsConfig 單一等級權益
type BenefitsConfig struct {
	DiscountPercentage string `mapstructure:"discount_percentage"`
	PointsMultiplier   string `mapstructure:"points_multiplier"`
}

// Load 載入設定；path 為空時只使用預設值與環境變數
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:loyalty.db?_busy_timeout=5000&_foreign_keys=on")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.tx_max_attempts", 5)
	v.SetDefault("database.tx_backoff_start", 10*time.Millisecond)
	v.SetDefault("database.tx_backoff_max", 500*time.Millisecond)
	v.SetDefault("database.serializable", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", cache.DefaultTTL)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.order_topic", "order-events")
	v.SetDefault("kafka.group_id", "loyalty-ledger")
	v.SetDefault("kafka.ledger_topic", "")
	v.SetDefault("kafka.batch_size", 20)
	v.SetDefault("kafka.flush_interval", 500*time.Millisecond)
	v.SetDefault("kafka.concurrency", 5)
	v.SetDefault("kafka.max_attempts", 5)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	points := loyalty.DefaultPointsPolicy()
	v.SetDefault("points.min_order_amount_for_points", points.MinOrderAmountForPoints.String())
	v.SetDefault("points.points_per_currency_unit", points.PointsPerCurrencyUnit.String())
	v.SetDefault("points.points_per_unit_discount", points.PointsPerUnitDiscount)
	v.SetDefault("points.max_discount_percentage", points.MaxDiscountPercentage.String())
	v.SetDefault("points.min_points_to_redeem", points.MinPointsToRedeem)
	v.SetDefault("points.points_expiration_days", points.PointsExpirationDays)
	v.SetDefault("points.referrer_points", points.ReferrerPoints)
	v.SetDefault("points.referred_first_order_bonus", points.ReferredFirstOrderBonus)

	tiers := loyalty.DefaultTierPolicyConfig()
	v.SetDefault("tiers.silver_threshold", tiers.SilverThreshold)
	v.SetDefault("tiers.gold_threshold", tiers.GoldThreshold)
	v.SetDefault("tiers.platinum_threshold", tiers.PlatinumThreshold)
	benefits := make(map[string]any, len(tiers.Benefits))
	for tier, b := range tiers.Benefits {
		benefits[strings.ToLower(tier.String())] = map[string]any{
			"discount_percentage": b.DiscountPercentage.String(),
			"points_multiplier":   b.PointsMultiplier.String(),
		}
	}
	v.SetDefault("tiers.benefits", benefits)
}

// Validate 檢查必要欄位；積分與等級規則在轉換時驗證
func (c *Config) Validate() error {
	if c.Database.Driver == "" || c.Database.DSN == "" {
		return errors.New("database driver and dsn are required")
	}
	if c.HTTP.Addr == "" {
		return errors.New("http addr is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.OrderTopic == "" {
		return errors.New("kafka order topic is required when brokers are set")
	}
	if _, err := c.PointsPolicy(); err != nil {
		return err
	}
	if _, err := c.TierPolicy(); err != nil {
		return err
	}
	return nil
}

// PointsPolicy 轉為領域積分規則
func (c *Config) PointsPolicy() (loyalty.PointsPolicy, error) {
	p := c.Points
	minOrder, err := parseDecimal("points.min_order_amount_for_points", p.MinOrderAmountForPoints)
	if err != nil {
		return loyalty.PointsPolicy{}, err
	}
	perUnit, err := parseDecimal("points.points_per_currency_unit", p.PointsPerCurrencyUnit)
	if err != nil {
		return loyalty.PointsPolicy{}, err
	}
	maxDiscount, err := parseDecimal("points.max_discount_percentage", p.MaxDiscountPercentage)
	if err != nil {
		return loyalty.PointsPolicy{}, err
	}

	policy := loyalty.PointsPolicy{
		MinOrderAmountForPoints: minOrder,
		PointsPerCurrencyUnit:   perUnit,
		PointsPerUnitDiscount:   p.PointsPerUnitDiscount,
		MaxDiscountPercentage:   maxDiscount,
		MinPointsToRedeem:       p.MinPointsToRedeem,
		PointsExpirationDays:    p.PointsExpirationDays,
		ReferrerPoints:          p.ReferrerPoints,
		ReferredFirstOrderBonus: p.ReferredFirstOrderBonus,
	}
	if err := policy.Validate(); err != nil {
		return loyalty.PointsPolicy{}, err
	}
	return policy, nil
}

// TierPolicy 轉為領域等級規則
func (c *Config) TierPolicy() (*loyalty.TierPolicy, error) {
	benefits := make(map[loyalty.Tier]loyalty.TierBenefits, len(c.Tiers.Benefits))
	for name, b := range c.Tiers.Benefits {
		discount, err := parseDecimal("tiers.benefits."+name+".discount_percentage", b.DiscountPercentage)
		if err != nil {
			return nil, err
		}
		multiplier, err := parseDecimal("tiers.benefits."+name+".points_multiplier", b.PointsMultiplier)
		if err != nil {
			return nil, err
		}
		benefits[loyalty.Tier(strings.ToUpper(name))] = loyalty.TierBenefits{
			DiscountPercentage: discount,
			PointsMultiplier:   multiplier,
		}
	}

	return loyalty.NewTierPolicy(loyalty.TierPolicyConfig{
		SilverThreshold:   c.Tiers.SilverThreshold,
		GoldThreshold:     c.Tiers.GoldThreshold,
		PlatinumThreshold: c.Tiers.PlatinumThreshold,
		Benefits:          benefits,
	})
}

// PersistenceConfig 轉為 persistence.DatabaseConfig
func (c *Config) PersistenceConfig() persistence.DatabaseConfig {
	return persistence.DatabaseConfig{
		Driver:          c.Database.Driver,
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		SlowThreshold:   c.Database.SlowThreshold,
		LogLevel:        c.Database.LogLevel,
	}
}

// TransactionOptions 事務管理器選項
func (c *Config) TransactionOptions() []persistence.TransactionOption {
	opts := []persistence.TransactionOption{
		persistence.WithMaxAttempts(c.Database.TxMaxAttempts),
		persistence.WithBackoff(c.Database.TxBackoffStart, c.Database.TxBackoffMax),
	}
	if c.Database.Serializable {
		opts = append(opts, persistence.WithSerializable())
	}
	return opts
}

// CacheConfig 轉為 cache.RedisConfig
func (c *Config) CacheConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.Redis.Addr,
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TTL:      c.Redis.TTL,
	}
}

// ConsumerConfig 轉為 messaging.ConsumerConfig
func (c *Config) ConsumerConfig() messaging.ConsumerConfig {
	return messaging.ConsumerConfig{
		BatchSize:     c.Kafka.BatchSize,
		FlushInterval: c.Kafka.FlushInterval,
		Concurrency:   c.Kafka.Concurrency,
		MaxAttempts:   c.Kafka.MaxAttempts,
	}
}

// TracingSetup 轉為 observability.TracingConfig
func (c *Config) TracingSetup(serviceName string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName: serviceName,
		Environment: c.Environment,
		Endpoint:    c.Tracing.Endpoint,
		Insecure:    c.Tracing.Insecure,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// LoggerSetup 轉為 observability.LoggingConfig
func (c *Config) LoggerSetup() observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		FilePath:    c.Logging.FilePath,
		MaxSizeMB:   c.Logging.MaxSizeMB,
		MaxBackups:  c.Logging.MaxBackups,
		MaxAgeDays:  c.Logging.MaxAgeDays,
		Compress:    c.Logging.Compress,
	}
}

func parseDecimal(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal for %s: %q", key, raw)
	}
	return d, nil
}
