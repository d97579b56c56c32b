package main

import (
	"context"
	"fmt"
	"log"
	"time"

	migrations "crateworks/db"
	gormrepo "crateworks/internal/adapter/repo/gorm"
	memrepo "crateworks/internal/adapter/repo/memory"
	sqliterepo "crateworks/internal/adapter/repo/sqlite"
	"crateworks/internal/app/ports"
	"crateworks/internal/config"
)

type storage struct {
	tx         ports.TxManager
	crates     ports.CrateRepository
	keys       ports.KeyRepository
	tags       ports.TagRepository
	bank       ports.KeyBankRepository
	deliveries ports.DeliveryRepository
	close      func() error
}

func buildStorage(ctx context.Context, cfg config.Storage, logger *log.Logger) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return buildPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		return buildSQLite(cfg)
	default:
		return buildMemory(), nil
	}
}

func buildMemory() storage {
	store := memrepo.NewStore()
	return storage{
		tx:         memrepo.NewTxManager(store),
		crates:     memrepo.NewCrateRepo(store),
		keys:       memrepo.NewKeyRepo(store),
		tags:       memrepo.NewTagRepo(store),
		bank:       memrepo.NewKeyBankRepo(store),
		deliveries: memrepo.NewDeliveryRepo(store),
		close:      func() error { return nil },
	}
}

// buildSQLite keeps owed batches and banked keys on disk; the catalog lives
// in memory and is rebuilt from the seed on every start.
func buildSQLite(cfg config.Storage) (storage, error) {
	db, err := sqliterepo.Open(cfg.SQLitePath)
	if err != nil {
		return storage{}, fmt.Errorf("open sqlite: %w", err)
	}
	s := buildMemory()
	s.bank = db
	s.deliveries = db
	s.close = db.Close
	return s, nil
}

func buildPostgres(ctx context.Context, cfg config.Storage, logger *log.Logger) (storage, error) {
	db, err := gormrepo.OpenPostgresWithPool(cfg.DSN, gormrepo.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return storage{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return storage{}, fmt.Errorf("postgres handle: %w", err)
	}
	var applied []string
	if cfg.MigrationsDir != "" {
		applied, err = gormrepo.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	} else {
		applied, err = gormrepo.ApplyMigrationsFS(ctx, db, migrations.Migrations())
	}
	if err != nil {
		_ = sqlDB.Close()
		return storage{}, fmt.Errorf("apply migrations: %w", err)
	}
	for _, v := range applied {
		logger.Printf("applied migration %s", v)
	}
	return storage{
		tx:         gormrepo.NewTxManager(db),
		crates:     gormrepo.NewCrateRepo(db),
		keys:       gormrepo.NewKeyRepo(db),
		tags:       gormrepo.NewTagRepo(db),
		bank:       gormrepo.NewKeyBankRepo(db),
		deliveries: gormrepo.NewDeliveryRepo(db),
		close:      sqlDB.Close,
	}, nil
}
