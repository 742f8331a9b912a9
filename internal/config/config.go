package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN            string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL            string `env:"RABBITMQ_URL,required=true"`
	RedisURL               string `env:"REDIS_URL,required=true"`
	CatalogAPIURL          string `env:"CATALOG_API_URL,required=true"`
	CatalogChunkSize       int    `env:"CATALOG_CHUNK_SIZE,default=100"`
	ChunkConcurrency       int    `env:"CHUNK_CONCURRENCY,default=8"`
	CatalogRateLimitPerSec int    `env:"CATALOG_RATE_LIMIT_PER_SEC,default=50"`
	ChunkDispatchEnabled   bool   `env:"CHUNK_DISPATCH_ENABLED,default=false"`
	APIPort                int    `env:"API_PORT,default=8080"`
	LogLevel               string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.CatalogChunkSize < 1 {
		return nil, fmt.Errorf("CATALOG_CHUNK_SIZE must be >= 1, got %d", cfg.CatalogChunkSize)
	}
	return &cfg, nil
}
