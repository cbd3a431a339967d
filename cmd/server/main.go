package main

import (
	"campaign-autopilot/internal/app"
	"campaign-autopilot/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	app.Run(cfg)
}
