package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quietroute.dev/quiet"
	"quietroute.dev/quiet/storage"
)

var rootCmd = &cobra.Command{
	Use:          "quiet",
	Short:        "Congestion prediction and quiet-route scoring",
	Long:         "Predicts station tap-ins and scores candidate routes by predicted crowding",
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (*quiet.Config, error) {
	if configPath == "" {
		return quiet.DefaultConfig(), nil
	}
	return quiet.LoadConfig(configPath)
}

func openStore(cfg *quiet.Config) (storage.ObservationStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		return storage.NewSQLiteStore(storage.SQLiteConfig{
			OnDisk:    true,
			Directory: cfg.Storage.Directory,
		})
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend '%s'", cfg.Storage.Backend)
	}
}
