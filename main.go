package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"

	"qacompare/adapters/postgres"
	"qacompare/internal"
	"qacompare/internal/api"
	"qacompare/internal/config"
	"qacompare/internal/errors"
	"qacompare/internal/migration"
)

// initDatabase opens the run database and brings its schema up to date
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	if !appConfig.Database.Enabled() {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := postgres.Open(ctx, appConfig.Database.Driver, appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(appConfig.LogLevel)

	db, err := initDatabase(context.Background(), appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	logger.Info("run database ready (%s)", appConfig.Database.Driver)

	server := api.NewServer(postgres.NewRunRepository(db), logger)
	if err := server.Start(appConfig.Server.Port); err != nil {
		logger.Error("server stopped: %v", err)
	}
}
