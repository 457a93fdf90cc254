package main

import (
	"context"
	"flag"
	"log"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/app"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the YAML configuration file")
	flag.Parse()

	if err := app.Run(context.Background(), app.Config{ConfigPath: configPath}); err != nil {
		log.Fatalf("%v", err)
	}
}
