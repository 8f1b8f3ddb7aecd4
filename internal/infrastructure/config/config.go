package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、.env文件、环境变量覆盖
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Zotero   ZoteroConfig   `mapstructure:"zotero"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Shop     ShopConfig     `mapstructure:"shop"`
	MQ       MQConfig       `mapstructure:"mq"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | sqlite
	Path            string        `mapstructure:"path"`   // sqlite文件路径（driver=sqlite时使用）
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 生成MySQL连接字符串
// 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
// 注意：loc参数需要URL编码（Europe/Vienna → Europe%2FVienna）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BlobTTL      time.Duration `mapstructure:"blob_ttl"` // 附件缓存有效期
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
	BcryptCost         int           `mapstructure:"bcrypt_cost"` // 密码哈希成本，测试环境可调低
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // text | json
}

// ZoteroConfig 远程书目服务配置
type ZoteroConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	UserID      string        `mapstructure:"user_id"`
	APIKey      string        `mapstructure:"api_key"`
	LibraryType string        `mapstructure:"library_type"` // user | group
	PageSize    int           `mapstructure:"page_size"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// 熔断器参数
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// SyncConfig 同步任务配置
type SyncConfig struct {
	Interval             time.Duration `mapstructure:"interval"`
	HealthPort           int           `mapstructure:"health_port"`
	LockTTL              time.Duration `mapstructure:"lock_ttl"`
	OwnedTags            []string      `mapstructure:"owned_tags"`
	ExcludedTags         []string      `mapstructure:"excluded_tags"`
	ItemTypes            []string      `mapstructure:"item_types"` // 允许同步的远程条目类型，空表示全部
	AttachmentFormats    []string      `mapstructure:"attachment_formats"`
	PhysicalItemType     string        `mapstructure:"physical_item_type"`
	PhysicalDefaultPrice int           `mapstructure:"physical_default_price"`
	DigitalDefaultPrice  int           `mapstructure:"digital_default_price"`
}

// ShopConfig 捐赠与购买配置
type ShopConfig struct {
	DonationPeriodDays int `mapstructure:"donation_period_days"`
	ExpiringDays       int `mapstructure:"expiring_days"`

	// CallbackSecret 支付网关回调共享密钥，为空时不校验
	CallbackSecret string `mapstructure:"callback_secret"`

	// LendingItemType 出借商品类型的Slug
	LendingItemType string `mapstructure:"lending_item_type"`
}

// DonationPeriod 捐赠有效期
func (s ShopConfig) DonationPeriod() time.Duration {
	return time.Duration(s.DonationPeriodDays) * 24 * time.Hour
}

type MQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量SCHOLARIUM_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如SCHOLARIUM_DATABASE_PASSWORD）
// 4. 启动目录下的.env文件会先写入进程环境
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom 从指定目录加载配置
func LoadFrom(paths ...string) (*Config, error) {
	// .env不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if env := os.Getenv("SCHOLARIUM_ENV"); env != "" {
		v.SetConfigName("config." + env)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// SCHOLARIUM_ZOTERO_API_KEY → zotero.api_key
	v.SetEnvPrefix("SCHOLARIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.password", "")
	v.SetDefault("jwt.access_token_expire", 2*time.Hour)
	v.SetDefault("jwt.refresh_token_expire", 7*24*time.Hour)
	v.SetDefault("jwt.bcrypt_cost", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("zotero.base_url", "https://api.zotero.org")
	v.SetDefault("zotero.user_id", "")
	v.SetDefault("zotero.api_key", "")
	v.SetDefault("zotero.library_type", "user")
	v.SetDefault("zotero.page_size", 100)
	v.SetDefault("zotero.timeout", 30*time.Second)
	v.SetDefault("zotero.breaker_failures", 5)
	v.SetDefault("zotero.breaker_timeout", time.Minute)
	v.SetDefault("sync.interval", time.Hour)
	v.SetDefault("sync.health_port", 9090)
	v.SetDefault("sync.lock_ttl", 10*time.Minute)
	v.SetDefault("sync.physical_item_type", "purchase")
	v.SetDefault("sync.attachment_formats", []string{"pdf", "epub", "mobi", "note"})
	v.SetDefault("shop.donation_period_days", 365)
	v.SetDefault("shop.expiring_days", 30)
	v.SetDefault("shop.lending_item_type", "lending")
	v.SetDefault("tracing.service_name", "scholarium")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.JWT.Secret == "your-secret-key-change-in-production" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须修改JWT密钥")
	}

	switch cfg.Database.Driver {
	case "mysql":
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("sqlite驱动必须配置database.path")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	if cfg.JWT.BcryptCost < 4 || cfg.JWT.BcryptCost > 31 {
		return fmt.Errorf("jwt.bcrypt_cost必须在4-31之间: %d", cfg.JWT.BcryptCost)
	}

	if cfg.Shop.CallbackSecret == "" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须配置shop.callback_secret")
	}

	if cfg.Zotero.PageSize <= 0 || cfg.Zotero.PageSize > 100 {
		return fmt.Errorf("zotero.page_size必须在1-100之间: %d", cfg.Zotero.PageSize)
	}

	if cfg.Sync.PhysicalItemType == "" {
		return fmt.Errorf("sync.physical_item_type不能为空")
	}

	if cfg.Shop.LendingItemType == "" || cfg.Shop.LendingItemType == cfg.Sync.PhysicalItemType {
		return fmt.Errorf("shop.lending_item_type不能为空且不能与sync.physical_item_type相同")
	}

	if cfg.Shop.DonationPeriodDays <= 0 {
		return fmt.Errorf("shop.donation_period_days必须大于0")
	}

	return nil
}
