package quiet

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"quietroute.dev/quiet/pipeline"
)

type ArtifactConfig struct {
	Mapping      string `yaml:"mapping" validate:"required"`
	Stats        string `yaml:"stats" validate:"required"`
	Edges        string `yaml:"edges" validate:"required"`
	Weights      string `yaml:"weights" validate:"required"`
	StationNames string `yaml:"stationNames" validate:"required"`
}

type ModelConfig struct {
	InDim     int `yaml:"inDim" validate:"gt=0"`
	HiddenDim int `yaml:"hiddenDim" validate:"gt=0"`
	EmbDim    int `yaml:"embDim" validate:"gt=0"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend" validate:"oneof=memory sqlite postgres"`
	Directory string `yaml:"directory"`
	DSN       string `yaml:"dsn"`
}

type SplitSettings struct {
	Policy       string `yaml:"policy" validate:"oneof=calendar stratified"`
	TrainEndYear int    `yaml:"trainEndYear" validate:"gt=0"`
	EarlyEndYear int    `yaml:"earlyEndYear" validate:"gt=0"`
	Seed         int64  `yaml:"seed"`
}

type CacheConfig struct {
	TTLSeconds int `yaml:"ttlSeconds" validate:"gt=0"`
}

type Config struct {
	Artifacts ArtifactConfig `yaml:"artifacts"`
	Model     ModelConfig    `yaml:"model"`
	Storage   StorageConfig  `yaml:"storage"`
	Split     SplitSettings  `yaml:"split"`
	Cache     CacheConfig    `yaml:"cache"`
}

// DefaultConfig matches the architecture the shipped weights were
// trained with and the split the archive was built with.
func DefaultConfig() *Config {
	return &Config{
		Artifacts: ArtifactConfig{
			Mapping:      "data/processed/ComplexNodes.csv",
			Stats:        "data/processed/stats.csv",
			Edges:        "data/processed/ComplexEdges.csv",
			Weights:      "models/weights.json",
			StationNames: "data/processed/stop_to_complex.csv",
		},
		Model: ModelConfig{
			InDim:     5,
			HiddenDim: 64,
			EmbDim:    16,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Split: SplitSettings{
			Policy:       string(pipeline.SplitStratified),
			TrainEndYear: 2022,
			EarlyEndYear: 2022,
			Seed:         42,
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// SplitConfig translates the settings into the pipeline's form.
func (s SplitSettings) SplitConfig() pipeline.SplitConfig {
	return pipeline.SplitConfig{
		Policy:       pipeline.SplitPolicy(s.Policy),
		TrainEndYear: s.TrainEndYear,
		EarlyEndYear: s.EarlyEndYear,
		Seed:         s.Seed,
	}
}
