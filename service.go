package quiet

import (
	"fmt"
	"log"
	"time"

	"github.com/bluele/gcache"

	"quietroute.dev/quiet/model"
	"quietroute.dev/quiet/parse"
	"quietroute.dev/quiet/storage"
)

// One cache slot per active time bucket; a handful covers bucket
// rollover under concurrent traffic.
const predictionCacheSize = 16

// Service owns the loaded predictor, the station-name directory, the
// ridership archive and the prediction cache. Construct one at
// startup and hand it to request handlers; construction fails fast on
// any artifact problem, and the built Service is safe for concurrent
// use.
type Service struct {
	predictor *Predictor
	directory *StationDirectory
	store     storage.ObservationStore
	cache     gcache.Cache
	now       func() time.Time
}

func NewService(cfg *Config, store storage.ObservationStore) (*Service, error) {
	predictor, err := NewPredictor(cfg)
	if err != nil {
		return nil, fmt.Errorf("constructing predictor: %w", err)
	}

	names, err := parse.ReadStationNamesFile(cfg.Artifacts.StationNames)
	if err != nil {
		return nil, fmt.Errorf("loading station names: %w", err)
	}

	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	return newService(predictor, NewStationDirectory(names), store, ttl), nil
}

func newService(
	predictor *Predictor,
	directory *StationDirectory,
	store storage.ObservationStore,
	ttl time.Duration,
) *Service {
	return &Service{
		predictor: predictor,
		directory: directory,
		store:     store,
		cache: gcache.New(predictionCacheSize).
			LRU().
			Expiration(ttl).
			Build(),
		now: time.Now,
	}
}

// Predict runs the model on a caller-supplied snapshot, bypassing the
// archive and the cache.
func (s *Service) Predict(snapshot []model.SnapshotEntry, t time.Time) map[int64]float64 {
	return s.predictor.Predict(snapshot, t)
}

// Key for the prediction cache: predictions are idempotent within an
// (hour, weekday) bucket, so concurrent misses recomputing the same
// bucket only waste a little work.
func bucketKey(t time.Time) string {
	return fmt.Sprintf("%d|%d", weekdayIndex(t), t.Hour())
}

func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// CurrentPredictions returns predictions for the current time bucket,
// sampling a ridership snapshot from the archive on a cache miss.
// Entries expire purely by elapsed time. A failed or empty sample
// degrades to an exogenous-only prediction, never an error.
func (s *Service) CurrentPredictions() map[int64]float64 {
	t := s.now()
	key := bucketKey(t)

	if cached, err := s.cache.Get(key); err == nil {
		if predictions, ok := cached.(map[int64]float64); ok {
			return predictions
		}
	}

	snapshot, err := s.store.SampleSnapshot(t.Hour(), weekdayIndex(t))
	if err != nil {
		log.Printf("service: snapshot sampling failed, predicting from time signal only: %v", err)
		snapshot = nil
	}

	predictions := s.predictor.Predict(snapshot, t)
	if err := s.cache.Set(key, predictions); err != nil {
		log.Printf("service: caching predictions for bucket %s failed: %v", key, err)
	}
	return predictions
}

// ScoreRoute computes the quiet score for one candidate route. When
// no predictions are available at all, every route gets the neutral
// default so the caller always receives a usable score.
func (s *Service) ScoreRoute(route model.Route) int {
	predictions := s.CurrentPredictions()
	if len(predictions) == 0 {
		return DefaultQuietScore
	}
	return NewCongestionScorer(predictions, s.directory).RouteScore(route)
}

// ScoreRoutes scores a batch of candidate routes against a single
// prediction cycle.
func (s *Service) ScoreRoutes(routes []model.Route) []int {
	predictions := s.CurrentPredictions()
	if len(predictions) == 0 {
		scores := make([]int, len(routes))
		for i := range scores {
			scores[i] = DefaultQuietScore
		}
		return scores
	}

	scorer := NewCongestionScorer(predictions, s.directory)
	scores := make([]int, len(routes))
	for i, route := range routes {
		scores[i] = scorer.RouteScore(route)
	}
	return scores
}

func (s *Service) Close() error {
	return s.store.Close()
}
