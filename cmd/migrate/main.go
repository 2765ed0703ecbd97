package main

import (
	"github.com/offis-rit/workq/internal/bootstrap"
	"github.com/offis-rit/workq/internal/util"
	"github.com/offis-rit/workq/pkg/logger"
	"github.com/offis-rit/workq/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	dsn := util.GetEnv("DATABASE_URL")
	migrationsDir := util.GetEnvString("MIGRATIONS_DIR", "")

	if err := bootstrap.Migrate(dsn, migrationsDir); err != nil {
		logger.Fatal("migrate: failed", "err", err)
	}
	logger.Info("migrate: schema up to date")
}
