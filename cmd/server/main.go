package main

import (
	server "decisioning-engine/internal/app/server"
	"decisioning-engine/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	server.Run(cfg)
}
