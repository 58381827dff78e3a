package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"quietroute.dev/quiet/model"
	"quietroute.dev/quiet/parse"
	"quietroute.dev/quiet/pipeline"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess [ridership csv...]",
	Short: "Builds prediction artifacts from raw ridership logs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  preprocess,
}

var tripsPath string

func init() {
	preprocessCmd.Flags().StringVarP(&tripsPath, "trips", "t", "", "Trip stop sequences CSV")
	preprocessCmd.MarkFlagRequired("trips")
	rootCmd.AddCommand(preprocessCmd)
}

func preprocess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	records := []model.RidershipRecord{}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		recs, err := parse.ParseRidership(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		records = append(records, recs...)
	}

	f, err := os.Open(tripsPath)
	if err != nil {
		return err
	}
	trips, err := parse.ParseTripStops(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", tripsPath, err)
	}

	result, err := pipeline.Run(records, trips, pipeline.Config{
		Split: cfg.Split.SplitConfig(),
	})
	if err != nil {
		return err
	}

	if err := writeArtifacts(cfg.Artifacts.Mapping, func(w *os.File) error {
		return parse.WriteNodeMapping(w, result.Mapping.Table())
	}); err != nil {
		return err
	}
	if err := writeArtifacts(cfg.Artifacts.Stats, func(w *os.File) error {
		return parse.WriteStats(w, result.Stats)
	}); err != nil {
		return err
	}
	if err := writeArtifacts(cfg.Artifacts.Edges, func(w *os.File) error {
		return parse.WriteEdges(w, result.Edges)
	}); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, part := range []struct {
		name model.Partition
		obs  []model.Observation
	}{
		{model.PartitionTrain, result.Splits.Train},
		{model.PartitionValidation, result.Splits.Validation},
		{model.PartitionTest, result.Splits.Test},
	} {
		if err := store.WriteObservations(part.name, part.obs); err != nil {
			return fmt.Errorf("archiving %s partition: %w", part.name, err)
		}
	}

	hc := color.New(color.FgCyan)
	vc := color.New(color.FgMagenta)

	hc.Print("stations mapped:  ")
	vc.Println(result.Mapping.Len())
	hc.Print("train rows:       ")
	vc.Println(len(result.Splits.Train))
	hc.Print("validation rows:  ")
	vc.Println(len(result.Splits.Validation))
	hc.Print("test rows:        ")
	vc.Println(len(result.Splits.Test))
	hc.Print("edges:            ")
	vc.Printf("%d kept, %d dropped\n", len(result.Edges), result.DroppedEdges)

	return nil
}

func writeArtifacts(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
