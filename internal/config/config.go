package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	JWT    JWTConfig
	Broker BrokerConfig
	Kafka  KafkaConfig
	API    APIConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type JWTConfig struct {
	Secret string
}

type BrokerConfig struct {
	MaxConnections  int
	AuthTimeout     time.Duration
	IdleTimeout     time.Duration
	SendBuffer      int
	JoinRateLimit   int
	NotifyRateLimit int
	AllowedOrigins  []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Enabled reports whether the Kafka ingest consumer should run.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type APIConfig struct {
	// Token guards the internal publish and stats endpoints, shared with
	// the application tier.
	Token string
}

// LoadConfig reads configuration from the environment with defaults.
func LoadConfig() (*Config, error) {
	viper.SetDefault("NOTIFY_HOST", "")
	viper.SetDefault("NOTIFY_PORT", "8080")
	viper.SetDefault("NOTIFY_READ_TIMEOUT", 30*time.Second)
	viper.SetDefault("NOTIFY_WRITE_TIMEOUT", 30*time.Second)
	viper.SetDefault("NOTIFY_IDLE_TIMEOUT", 120*time.Second)
	viper.SetDefault("NOTIFY_JWT_SECRET", "secret")
	viper.SetDefault("NOTIFY_MAX_CONNECTIONS", 10000)
	viper.SetDefault("NOTIFY_AUTH_TIMEOUT", 10*time.Second)
	viper.SetDefault("NOTIFY_CONN_IDLE_TIMEOUT", 60*time.Second)
	viper.SetDefault("NOTIFY_SEND_BUFFER", 256)
	viper.SetDefault("NOTIFY_JOIN_RATE_LIMIT", 30)
	viper.SetDefault("NOTIFY_NOTIFY_RATE_LIMIT", 60)
	viper.SetDefault("NOTIFY_API_TOKEN", "")
	viper.SetDefault("ALLOWED_ORIGINS", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "notifications")
	viper.SetDefault("KAFKA_GROUP_ID", "notify-broker")
	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Host:         viper.GetString("NOTIFY_HOST"),
			Port:         viper.GetString("NOTIFY_PORT"),
			ReadTimeout:  viper.GetDuration("NOTIFY_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("NOTIFY_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("NOTIFY_IDLE_TIMEOUT"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("NOTIFY_JWT_SECRET"),
		},
		Broker: BrokerConfig{
			MaxConnections:  viper.GetInt("NOTIFY_MAX_CONNECTIONS"),
			AuthTimeout:     viper.GetDuration("NOTIFY_AUTH_TIMEOUT"),
			IdleTimeout:     viper.GetDuration("NOTIFY_CONN_IDLE_TIMEOUT"),
			SendBuffer:      viper.GetInt("NOTIFY_SEND_BUFFER"),
			JoinRateLimit:   viper.GetInt("NOTIFY_JOIN_RATE_LIMIT"),
			NotifyRateLimit: viper.GetInt("NOTIFY_NOTIFY_RATE_LIMIT"),
			AllowedOrigins:  splitList(viper.GetString("ALLOWED_ORIGINS")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
			GroupID: viper.GetString("KAFKA_GROUP_ID"),
		},
		API: APIConfig{
			Token: viper.GetString("NOTIFY_API_TOKEN"),
		},
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
