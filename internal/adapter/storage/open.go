package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales-inventory/internal/config"
	"github.com/rl1809/sales-inventory/internal/port"
)

// Open connects the storage backend named by cfg.DBDriver, pings it and
// creates the schema.
func Open(ctx context.Context, cfg config.Config) (port.DatabaseRepository, error) {
	var repo port.DatabaseRepository

	switch cfg.DBDriver {
	case config.DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		repo = NewMySQLAdapter(db)

	case config.DriverPostgres:
		pg, err := OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := pg.db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		repo = pg

	case config.DriverMemory:
		repo = NewMemoryAdapter()

	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}

	if err := repo.Ping(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DBDriver, err)
	}
	log.Printf("connected to %s", cfg.DBDriver)

	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.DBDriver, err)
	}
	return repo, nil
}

// OpenRedis connects the idempotency cache. It returns a nil client when
// cfg.RedisAddr is empty.
func OpenRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Println("connected to redis")
	return rdb, nil
}
