package pipeline

import (
	"fmt"
	"math/rand"

	"quietroute.dev/quiet/model"
)

type SplitPolicy string

const (
	// SplitCalendar: everything up to TrainEndYear is train, the
	// following year is validation, anything later is test.
	SplitCalendar SplitPolicy = "calendar"

	// SplitStratified: years up to EarlyEndYear are wholly train;
	// later years are shuffled with a fixed seed and cut
	// 37.5/2.5/60, which lands near 75/5/20 overall when the
	// early years carry most of the volume.
	SplitStratified SplitPolicy = "stratified"
)

// Late-year cut fractions for the stratified policy.
const (
	stratifiedTrainFrac      = 0.375
	stratifiedValidationFrac = 0.025
)

type SplitConfig struct {
	Policy SplitPolicy

	// Calendar policy: last year that is wholly train.
	TrainEndYear int

	// Stratified policy: last year that is wholly train.
	EarlyEndYear int

	// Seed for the stratified shuffle. Fixed seed keeps the
	// partition assignment reproducible across runs.
	Seed int64
}

type Splits struct {
	Train      []model.Observation
	Validation []model.Observation
	Test       []model.Observation
}

// Split partitions cleaned observations. Whatever the policy, no
// validation or test record ever reaches the training partition, so
// statistics and the node mapping derived from train stay leakage
// free.
func Split(obs []model.Observation, cfg SplitConfig) (Splits, error) {
	switch cfg.Policy {
	case SplitCalendar:
		return splitCalendar(obs, cfg.TrainEndYear), nil
	case SplitStratified:
		return splitStratified(obs, cfg.EarlyEndYear, cfg.Seed), nil
	default:
		return Splits{}, fmt.Errorf("unknown split policy '%s'", cfg.Policy)
	}
}

func splitCalendar(obs []model.Observation, trainEndYear int) Splits {
	s := Splits{}
	for _, o := range obs {
		switch year := o.Timestamp.Year(); {
		case year <= trainEndYear:
			s.Train = append(s.Train, o)
		case year == trainEndYear+1:
			s.Validation = append(s.Validation, o)
		default:
			s.Test = append(s.Test, o)
		}
	}
	return s
}

func splitStratified(obs []model.Observation, earlyEndYear int, seed int64) Splits {
	s := Splits{}
	late := []model.Observation{}
	for _, o := range obs {
		if o.Timestamp.Year() <= earlyEndYear {
			s.Train = append(s.Train, o)
		} else {
			late = append(late, o)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(late), func(i, j int) {
		late[i], late[j] = late[j], late[i]
	})

	nTrain := int(float64(len(late)) * stratifiedTrainFrac)
	nValidation := int(float64(len(late)) * stratifiedValidationFrac)

	s.Train = append(s.Train, late[:nTrain]...)
	s.Validation = late[nTrain : nTrain+nValidation]
	s.Test = late[nTrain+nValidation:]
	return s
}
