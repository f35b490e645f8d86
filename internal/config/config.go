package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

const (
	StorageBackendRedis    = "redis"
	StorageBackendPostgres = "postgres"
)

type Config struct {
	WalletGatewayURL string `env:"WALLET_GATEWAY_URL,required=true"`
	StorageBackend   string `env:"STORAGE_BACKEND,default=redis"`
	RedisURL         string `env:"REDIS_URL,default=redis://localhost:6379/0"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	RabbitMQURL      string `env:"RABBITMQ_URL"`
	EthereumRPCURL   string `env:"ETH_RPC_URL"`
	ConfirmPollSecs  int    `env:"CONFIRM_POLL_SECONDS,default=3"`
	APIPort          int    `env:"API_PORT,default=8080"`
	LogLevel         string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	switch cfg.StorageBackend {
	case StorageBackendRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis storage backend")
		}
	case StorageBackendPostgres:
		if strings.TrimSpace(cfg.DatabaseDSN) == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres storage backend")
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return &cfg, nil
}
