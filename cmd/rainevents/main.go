package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/rainevents/internal/app"
	"github.com/chrissnell/rainevents/internal/log"
	"github.com/chrissnell/rainevents/pkg/config"
	"github.com/joho/godotenv"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	envFile := flag.String("env", ".env", "Optional .env file with environment overrides")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	serve := flag.Bool("serve", false, "Serve the results API after the analysis until interrupted")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rainevents %s\n", version)
		os.Exit(0)
	}

	// A missing .env file is not an error
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	provider, err := newProvider(*cfgFile, *cfgBackend)
	if err != nil {
		fmt.Printf("Failed to open configuration: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		fmt.Printf("Error reading config file. Did you pass the -config flag? Run with -h for help: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	if err := log.Init(log.Options{
		Debug:      *debug,
		File:       cfgData.Log.File,
		MaxSizeMB:  cfgData.Log.MaxSizeMB,
		MaxBackups: cfgData.Log.MaxBackups,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Create and run the application
	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(context.Background(), *serve); err != nil {
		log.Errorf("Application error: %v", err)
		log.Sync()
		os.Exit(1)
	}
}

func newProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}
