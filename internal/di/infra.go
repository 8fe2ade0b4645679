package di

import (
	"time"

	"github.com/prohmpiriya/storefront/pkg/config"
	"github.com/prohmpiriya/storefront/pkg/database"
	pkgredis "github.com/prohmpiriya/storefront/pkg/redis"
)

// PostgresConfig maps application config onto the pool settings
func PostgresConfig(cfg *config.Config, tracing bool) *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   tracing,
	}
}

// RedisConfig maps application config onto the client settings
func RedisConfig(cfg *config.Config) *pkgredis.Config {
	return &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 500 * time.Millisecond,
	}
}
