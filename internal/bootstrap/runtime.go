// Package bootstrap wires up runtime dependencies shared by the server and
// maintenance commands.
package bootstrap

import (
	"fmt"

	"parley/internal/cache"
	"parley/internal/config"
	"parley/internal/database"
	"parley/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedBuiltIns upserts the built-in conversation categories on start.
	SeedBuiltIns bool
}

// InitRuntime connects to DB and Redis and optionally runs built-in seeding.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May leave a nil client if Redis is unreachable; callers degrade.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedBuiltIns {
		if err := seed.Categories(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in categories: %w", err)
		}
	}

	return db, r, nil
}
