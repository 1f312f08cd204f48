package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

const (
	ChainIDAgung = 9990
	ChainIDPeaq  = 3338

	DefaultGasLimit = 900000

	DefaultDIDPrecompile     = "0x0000000000000000000000000000000000000800"
	DefaultStoragePrecompile = "0x0000000000000000000000000000000000000801"
)

type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Log         LogConfig        `mapstructure:"log"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Chain       ChainConfig      `mapstructure:"chain"`
	Station     StationConfig    `mapstructure:"station"`
	Precompiles PrecompileConfig `mapstructure:"precompiles"`
	GetReal     GetRealConfig    `mapstructure:"getreal"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Relay       RelayConfig      `mapstructure:"relay"`
	Quota       QuotaConfig      `mapstructure:"quota"`
	Clients     []ClientConfig   `mapstructure:"clients"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	AuditDir string `mapstructure:"audit_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	RequireAPIKey  bool   `mapstructure:"require_api_key"`
	APIKey         string `mapstructure:"api_key"`
	AdminKey       string `mapstructure:"admin_key"`
	AdminSecretKey string `mapstructure:"admin_secret_key"`
}

type DatabaseConfig struct {
	DSN                       string `mapstructure:"dsn"`
	IdempotencyRetentionHours int    `mapstructure:"idempotency_retention_hours"`
	AuditRetentionDays        int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes    int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	AuditListKey          string `mapstructure:"audit_list_key"`
	AuditListMax          int    `mapstructure:"audit_list_max"`
}

type ChainConfig struct {
	RPCURL               string `mapstructure:"rpc_url"`
	ChainID              int64  `mapstructure:"chain_id"`
	GasLimit             uint64 `mapstructure:"gas_limit"`
	SubmitTimeoutSeconds int    `mapstructure:"submit_timeout_seconds"`
	ReceiptPollMs        int    `mapstructure:"receipt_poll_ms"`
}

// StationConfig holds the single gas station this relay sponsors through.
type StationConfig struct {
	Address           string `mapstructure:"address"`
	OwnerPrivateKey   string `mapstructure:"owner_private_key"`
	MachinePrivateKey string `mapstructure:"machine_private_key"` // non-production flows only
}

type PrecompileConfig struct {
	DID     string `mapstructure:"did"`
	Storage string `mapstructure:"storage"`
}

type GetRealConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ServiceAPIKey string `mapstructure:"service_api_key"`
	ProjectAPIKey string `mapstructure:"project_api_key"`
	TimeoutMs     int    `mapstructure:"timeout_ms"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RelayConfig struct {
	ReadOnly bool `mapstructure:"read_only"`
}

type QuotaConfig struct {
	MaxDailyActions int `mapstructure:"max_daily_actions"`
}

type ClientConfig struct {
	ID              string  `mapstructure:"id"`
	Name            string  `mapstructure:"name"`
	APIKey          string  `mapstructure:"api_key"`
	QPS             float64 `mapstructure:"qps"`
	Burst           int     `mapstructure:"burst"`
	MaxDailyActions int     `mapstructure:"max_daily_actions"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// e.g. GASGATE_STATION_OWNER_PRIVATE_KEY
	viper.SetEnvPrefix("gasgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.audit_dir", "./logs")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.require_api_key", false)
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.audit_list_key", "audit_logs")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("database.idempotency_retention_hours", 168)
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("database.cleanup_interval_minutes", 60)
	v.SetDefault("chain.chain_id", ChainIDAgung)
	v.SetDefault("chain.gas_limit", DefaultGasLimit)
	v.SetDefault("chain.submit_timeout_seconds", 120)
	v.SetDefault("chain.receipt_poll_ms", 1000)
	v.SetDefault("precompiles.did", DefaultDIDPrecompile)
	v.SetDefault("precompiles.storage", DefaultStoragePrecompile)
	v.SetDefault("getreal.timeout_ms", 10000)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("relay.read_only", false)
	v.SetDefault("quota.max_daily_actions", 0)
}
