package main

import (
	"github.com/offis-rit/workq/internal/server"
	"github.com/offis-rit/workq/internal/util"
	"github.com/offis-rit/workq/pkg/logger"
	"github.com/offis-rit/workq/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
