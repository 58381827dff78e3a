package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quietroute.dev/quiet"
	"quietroute.dev/quiet/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score [routes json]",
	Short: "Scores candidate routes by predicted crowding",
	Args:  cobra.ExactArgs(1),
	RunE:  score,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func score(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	routes := []model.Route{}
	if err := json.Unmarshal(data, &routes); err != nil {
		return fmt.Errorf("unmarshaling routes: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	service, err := quiet.NewService(cfg, store)
	if err != nil {
		return err
	}
	defer service.Close()

	for i, quietScore := range service.ScoreRoutes(routes) {
		fmt.Printf("route %d: quiet score %d/10\n", i+1, quietScore)
	}

	return nil
}
