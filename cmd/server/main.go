package main

import (
	"flag"
	"os"

	"github.com/leovewc/DS.Chat/internal/app"
	"github.com/leovewc/DS.Chat/internal/config"
)

var configPath = flag.String("config", "config.json", "service configuration file")

func main() {
	flag.Parse()
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		*configPath = envPath
	}

	cfg := config.MustReadConfig(*configPath)

	application, err := app.NewApp(cfg)
	if err != nil {
		panic(err)
	}

	// Block until a shutdown signal arrives
	if err := application.Run(); err != nil {
		panic(err)
	}
}
