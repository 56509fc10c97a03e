package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeDebug   = "debug"
	ModeRelease = "release"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Polling   PollingConfig   `mapstructure:"polling"`
	Exam      ExamConfig      `mapstructure:"exam"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`

	// 配置文件路径（运行时填充，用于热加载）
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// IsRelease 生产模式下不向前端暴露原始错误信息
func (s ServerConfig) IsRelease() bool {
	return s.Mode == ModeRelease
}

// APIConfig 远程测验服务
type APIConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRPS         float64 `mapstructure:"max_rps"`
	Burst          int     `mapstructure:"burst"`

	// 身份缓存时间，token 过期时间更早时以其为准
	IdentityCacheSeconds int `mapstructure:"identity_cache_seconds"`

	// 作答详情路径模板，占位符 {quizId} {attemptId}
	AttemptPath string `mapstructure:"attempt_path"`
}

func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (a APIConfig) IdentityCacheTTL() time.Duration {
	return time.Duration(a.IdentityCacheSeconds) * time.Second
}

// PollingConfig 任务轮询参数，支持热加载
type PollingConfig struct {
	IntervalMS     int `mapstructure:"interval_ms"`
	MaxWaitSeconds int `mapstructure:"max_wait_seconds"`
	MaxChecks      int `mapstructure:"max_checks"`
}

func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

func (p PollingConfig) MaxWait() time.Duration {
	return time.Duration(p.MaxWaitSeconds) * time.Second
}

type ExamConfig struct {
	PageSize          int    `mapstructure:"page_size"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
	Store             string `mapstructure:"store"`          // memory, redis
	DefaultScorer     string `mapstructure:"default_scorer"` // local, remote
}

func (e ExamConfig) SessionTTL() time.Duration {
	return time.Duration(e.SessionTTLMinutes) * time.Minute
}

type JobsConfig struct {
	RetentionMinutes int    `mapstructure:"retention_minutes"`
	JanitorSchedule  string `mapstructure:"janitor_schedule"`
}

func (j JobsConfig) Retention() time.Duration {
	return time.Duration(j.RetentionMinutes) * time.Minute
}

type DatabaseConfig struct {
	Enabled   bool
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type StorageConfig struct {
	ArchiveMaterials bool   `mapstructure:"archive_materials"`
	Type             string `mapstructure:"type"`
	LocalPath        string `mapstructure:"local_path"`
	MinioEndpoint    string `mapstructure:"minio_endpoint"`
	MinioAccessID    string `mapstructure:"minio_access_key"`
	MinioSecret      string `mapstructure:"minio_secret_key"`
	MinioBucket      string `mapstructure:"minio_bucket"`
	MinioSecure      bool   `mapstructure:"minio_secure"`
	OSSEndpoint      string `mapstructure:"oss_endpoint"`
	OSSAccessKey     string `mapstructure:"oss_access_key"`
	OSSSecretKey     string `mapstructure:"oss_secret_key"`
	OSSBucket        string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

type LogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", ModeDebug)

	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.max_rps", 20)
	v.SetDefault("api.burst", 10)
	v.SetDefault("api.identity_cache_seconds", 300)
	v.SetDefault("api.attempt_path", "/quizzing/quizzes/{quizId}/attempts/{attemptId}")

	v.SetDefault("polling.interval_ms", 2000)
	v.SetDefault("polling.max_wait_seconds", 300)
	v.SetDefault("polling.max_checks", 0)

	v.SetDefault("exam.page_size", 30)
	v.SetDefault("exam.session_ttl_minutes", 180)
	v.SetDefault("exam.store", "memory")
	v.SetDefault("exam.default_scorer", "remote")

	v.SetDefault("jobs.retention_minutes", 30)
	v.SetDefault("jobs.janitor_schedule", "@every 1m")

	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("log.filename", "logs/gateway.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

func LoadConfig(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUIZGEN")
	v.AutomaticEnv()

	setDefaults(v)

	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Remote API
	v.BindEnv("api.base_url", "QUIZ_API_URL")
	v.BindEnv("api.attempt_path", "QUIZ_API_ATTEMPT_PATH")

	// Database
	v.BindEnv("database.enabled", "DATABASE_ENABLED")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" && cfg.Storage.ArchiveMaterials {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(filepath.Clean(cfg.Storage.LocalPath), 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.Contains(c.API.AttemptPath, "{quizId}") || !strings.Contains(c.API.AttemptPath, "{attemptId}") {
		return fmt.Errorf("api.attempt_path must contain {quizId} and {attemptId}, got %q", c.API.AttemptPath)
	}
	if c.Polling.IntervalMS <= 0 {
		return fmt.Errorf("polling.interval_ms must be positive, got %d", c.Polling.IntervalMS)
	}
	if c.Exam.PageSize <= 0 {
		return fmt.Errorf("exam.page_size must be positive, got %d", c.Exam.PageSize)
	}
	switch c.Exam.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("exam.store must be memory or redis, got %q", c.Exam.Store)
	}
	switch c.Exam.DefaultScorer {
	case "local", "remote":
	default:
		return fmt.Errorf("exam.default_scorer must be local or remote, got %q", c.Exam.DefaultScorer)
	}
	return nil
}
