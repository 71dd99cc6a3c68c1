package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/config"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/daemon"
	"github.com/napoleonmm83/paperless-scanner-sub004/internal/paths"
)

func main() {
	dataDirFlag := flag.String("data-dir", "", "data directory (default ~/.paperless-scanner)")
	configFlag := flag.String("config", "", "config file path (default <data-dir>/config.toml)")
	flag.Parse()

	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = paths.DefaultBaseDir()
	}
	configPath := *configFlag
	if configPath == "" {
		configPath = paths.ConfigPath(dataDir)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config %s: %v\n", configPath, err)
		os.Exit(1)
	}
	if cfg.DataDir != "" && *dataDirFlag == "" {
		dataDir = cfg.DataDir
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg, DataDir: dataDir}),
	)

	app.Run()
}
