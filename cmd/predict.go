package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"quietroute.dev/quiet"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Prints predicted tap-ins for the busiest stations",
	Args:  cobra.NoArgs,
	RunE:  predict,
}

var topN int

func init() {
	predictCmd.Flags().IntVarP(&topN, "top", "n", 20, "Number of stations to print")
	rootCmd.AddCommand(predictCmd)
}

func predict(cmd *cobra.Command, args []string) error {
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

	predictions := service.CurrentPredictions()

	type ranked struct {
		complexID int64
		tapIns    float64
	}
	rankings := make([]ranked, 0, len(predictions))
	for complexID, tapIns := range predictions {
		rankings = append(rankings, ranked{complexID, tapIns})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].tapIns != rankings[j].tapIns {
			return rankings[i].tapIns > rankings[j].tapIns
		}
		return rankings[i].complexID < rankings[j].complexID
	})

	if topN > 0 && len(rankings) > topN {
		rankings = rankings[:topN]
	}
	for _, r := range rankings {
		fmt.Printf("%d: %.1f\n", r.complexID, r.tapIns)
	}

	return nil
}
