package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/engine"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := engine.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if cfg.LogDev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app := NewApp(cfg, logger)

	err = wails.Run(&options.App{
		Title:  "Chisel",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Fatal("wails run failed", zap.Error(err))
	}
}
