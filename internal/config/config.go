package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Chat      ChatConfig
	WebSocket WebSocketConfig
	Kafka     KafkaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver string // postgres, mysql or sqlite
	URI    string
}

// RedisConfig is optional: an empty URI disables the presence mirror and rate limiting.
type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

type ChatConfig struct {
	RecentLimit        int
	AllowEmptyMessages bool
	MaxMessageLength   int
	RetentionAge       time.Duration
	RetentionInterval  time.Duration
}

type WebSocketConfig struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	AllowedOrigins  []string
	EventsPerSecond float64
	EventBurst      int
}

// KafkaConfig is optional: no brokers means messages are not published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

var supportedDrivers = map[string]bool{"postgres": true, "mysql": true, "sqlite": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "3001")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=password dbname=chat port=5432 sslmode=disable")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)

	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("JWT_EXPIRES_IN", "24h")

	v.SetDefault("CHAT_RECENT_LIMIT", 50)
	v.SetDefault("CHAT_ALLOW_EMPTY_MESSAGES", true)
	v.SetDefault("CHAT_MAX_MESSAGE_LENGTH", 0)
	v.SetDefault("CHAT_RETENTION_AGE", 7*24*time.Hour)
	v.SetDefault("CHAT_RETENTION_INTERVAL", time.Hour)

	v.SetDefault("WS_WRITE_WAIT", 10*time.Second)
	v.SetDefault("WS_PONG_WAIT", 60*time.Second)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 4096)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_EVENTS_PER_SECOND", 10.0)
	v.SetDefault("WS_EVENT_BURST", 20)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "chat.messages")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
}

// LoadConfig reads an optional .env file, then the environment, on top of the defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	jwtExpire, err := time.ParseDuration(v.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}

	pongWait := v.GetDuration("WS_PONG_WAIT")

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			URI:    v.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URI:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			ExpirationTime: jwtExpire,
		},
		Chat: ChatConfig{
			RecentLimit:        v.GetInt("CHAT_RECENT_LIMIT"),
			AllowEmptyMessages: v.GetBool("CHAT_ALLOW_EMPTY_MESSAGES"),
			MaxMessageLength:   v.GetInt("CHAT_MAX_MESSAGE_LENGTH"),
			RetentionAge:       v.GetDuration("CHAT_RETENTION_AGE"),
			RetentionInterval:  v.GetDuration("CHAT_RETENTION_INTERVAL"),
		},
		WebSocket: WebSocketConfig{
			WriteWait:       v.GetDuration("WS_WRITE_WAIT"),
			PongWait:        pongWait,
			PingPeriod:      (pongWait * 9) / 10,
			MaxMessageSize:  v.GetInt64("WS_MAX_MESSAGE_SIZE"),
			SendBuffer:      v.GetInt("WS_SEND_BUFFER"),
			AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
			EventsPerSecond: v.GetFloat64("WS_EVENTS_PER_SECOND"),
			EventBurst:      v.GetInt("WS_EVENT_BURST"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that would prevent the server from starting.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWT.ExpirationTime <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if !supportedDrivers[c.Database.Driver] {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Chat.RecentLimit <= 0 {
		return errors.New("CHAT_RECENT_LIMIT must be positive")
	}
	if c.Chat.MaxMessageLength < 0 {
		return errors.New("CHAT_MAX_MESSAGE_LENGTH must not be negative")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if c.Chat.RetentionAge <= 0 {
		return errors.New("CHAT_RETENTION_AGE must be positive")
	}
	if c.Chat.RetentionInterval <= 0 {
		return errors.New("CHAT_RETENTION_INTERVAL must be positive")
	}
	if c.WebSocket.WriteWait <= 0 {
		return errors.New("WS_WRITE_WAIT must be positive")
	}
	if c.WebSocket.PongWait <= 0 {
		return errors.New("WS_PONG_WAIT must be positive")
	}
	// Ping period is derived from the pong wait and feeds a ticker.
	if c.WebSocket.PingPeriod <= 0 {
		return errors.New("WS_PONG_WAIT is too short to derive a ping period")
	}
	return nil
}

// Addr is the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
