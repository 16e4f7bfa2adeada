package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Publisher PublisherConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
}

type ServerConfig struct {
	Host string
	Port int
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SchedulerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	ClaimWindow     time.Duration
	DispatchMode    string // "queue" or "local"
	GlobalRateLimit int    // dispatches per minute
	UserRateLimit   int    // dispatches per minute per user
	LeaderKey       string
	LeaderTTL       time.Duration
	StuckThreshold  time.Duration
	CleanupInterval time.Duration
	RetentionDays   int
	ShutdownTimeout time.Duration
}

type PublisherConfig struct {
	PublishTimeout   time.Duration
	DefaultTimezone  string
	MonthlyPostLimit int // 0 = unlimited
	WorkerConcurrency int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config

	// App
	cfg.App.Name = viper.GetString("app.name")
	cfg.App.Environment = viper.GetString("app.environment")
	cfg.App.Debug = viper.GetBool("app.debug")

	// Server
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Port = viper.GetInt("server.port")

	// Database
	cfg.Database.Host = viper.GetString("database.host")
	cfg.Database.Port = viper.GetInt("database.port")
	cfg.Database.User = viper.GetString("database.user")
	cfg.Database.Password = viper.GetString("database.password")
	cfg.Database.Name = viper.GetString("database.name")
	cfg.Database.SSLMode = viper.GetString("database.sslmode")
	cfg.Database.MaxOpenConns = viper.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = viper.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = viper.GetDuration("database.conn_max_lifetime")

	// Redis
	cfg.Redis.Host = viper.GetString("redis.host")
	cfg.Redis.Port = viper.GetInt("redis.port")
	cfg.Redis.Password = viper.GetString("redis.password")
	cfg.Redis.DB = viper.GetInt("redis.db")

	// Scheduler
	cfg.Scheduler.PollInterval = viper.GetDuration("scheduler.poll_interval")
	cfg.Scheduler.BatchSize = viper.GetInt("scheduler.batch_size")
	cfg.Scheduler.ClaimWindow = viper.GetDuration("scheduler.claim_window")
	cfg.Scheduler.DispatchMode = viper.GetString("scheduler.dispatch_mode")
	cfg.Scheduler.GlobalRateLimit = viper.GetInt("scheduler.global_rate_limit")
	cfg.Scheduler.UserRateLimit = viper.GetInt("scheduler.user_rate_limit")
	cfg.Scheduler.LeaderKey = viper.GetString("scheduler.leader_key")
	cfg.Scheduler.LeaderTTL = viper.GetDuration("scheduler.leader_ttl")
	cfg.Scheduler.StuckThreshold = viper.GetDuration("scheduler.stuck_threshold")
	cfg.Scheduler.CleanupInterval = viper.GetDuration("scheduler.cleanup_interval")
	cfg.Scheduler.RetentionDays = viper.GetInt("scheduler.retention_days")
	cfg.Scheduler.ShutdownTimeout = viper.GetDuration("scheduler.shutdown_timeout")

	// Publisher
	cfg.Publisher.PublishTimeout = viper.GetDuration("publisher.publish_timeout")
	cfg.Publisher.DefaultTimezone = viper.GetString("publisher.default_timezone")
	cfg.Publisher.MonthlyPostLimit = viper.GetInt("publisher.monthly_post_limit")
	cfg.Publisher.WorkerConcurrency = viper.GetInt("publisher.worker_concurrency")

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "postflow")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", true)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8090)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "postflow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Scheduler defaults. Poll interval must stay at or below one
	// minute or exact-minute time slots are skipped.
	viper.SetDefault("scheduler.poll_interval", "30s")
	viper.SetDefault("scheduler.batch_size", 100)
	viper.SetDefault("scheduler.claim_window", "45s")
	viper.SetDefault("scheduler.dispatch_mode", "queue")
	viper.SetDefault("scheduler.global_rate_limit", 1000)
	viper.SetDefault("scheduler.user_rate_limit", 60)
	viper.SetDefault("scheduler.leader_key", "postflow:scheduler:leader")
	viper.SetDefault("scheduler.leader_ttl", "30s")
	viper.SetDefault("scheduler.stuck_threshold", "5m")
	viper.SetDefault("scheduler.cleanup_interval", "1h")
	viper.SetDefault("scheduler.retention_days", 90)
	viper.SetDefault("scheduler.shutdown_timeout", "30s")

	// Publisher defaults
	viper.SetDefault("publisher.publish_timeout", "30s")
	viper.SetDefault("publisher.default_timezone", "Asia/Kolkata")
	viper.SetDefault("publisher.monthly_post_limit", 0)
	viper.SetDefault("publisher.worker_concurrency", 10)
}
