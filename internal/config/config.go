package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Socket   SocketConfig   `envPrefix:"SOCKET_"`
	Chat     ChatConfig     `envPrefix:"CHAT_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type ServerConfig struct {
	Addr              string `env:"ADDR" envDefault:":8080"`
	CORSOriginPattern string `env:"CORS_ORIGIN_PATTERN" envDefault:".*"`
	EnablePprof       bool   `env:"ENABLE_PPROF" envDefault:"false"`
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017" envSeparator:","`
	Direct   bool     `env:"DIRECT" envDefault:"true"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Database string   `env:"DATABASE" envDefault:"livechat"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
}

type RedisConfig struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	Addr      string `env:"ADDR" envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	PoolSize  int    `env:"POOL_SIZE" envDefault:"10"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"livechat"`
}

type KafkaConfig struct {
	Enabled        bool          `env:"ENABLED" envDefault:"false"`
	Brokers        []string      `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	EventsTopic    string        `env:"EVENTS_TOPIC" envDefault:"livechat.events"`
	GroupID        string        `env:"GROUP_ID" envDefault:"livechat-gateway"`
	NumWorkers     int           `env:"NUM_WORKERS" envDefault:"1"`
	ConsumeTimeout time.Duration `env:"CONSUME_TIMEOUT" envDefault:"30s"`
}

type SocketConfig struct {
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"25s"`
	PingTimeout  time.Duration `env:"PING_TIMEOUT" envDefault:"60s"`
}

type ChatConfig struct {
	VisitorNameTemplate string        `env:"VISITOR_NAME_TEMPLATE" envDefault:"Visitor {{ suffix 4 .VisitorID }}"`
	TranscriptTemplate  string        `env:"TRANSCRIPT_TEMPLATE"`
	RateLimitMessages   int           `env:"RATE_LIMIT_MESSAGES" envDefault:"60"`
	RateLimitWindow     time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	SeedAgents          bool          `env:"SEED_AGENTS" envDefault:"false"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when kafka is enabled")
	}
	if c.Kafka.NumWorkers < 1 {
		return fmt.Errorf("KAFKA_NUM_WORKERS must be positive, got %d", c.Kafka.NumWorkers)
	}
	if c.Chat.RateLimitMessages < 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT_MESSAGES must not be negative")
	}
	return nil
}
