package services

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/guyt101z/ichnaea/internal/domain"
	"github.com/guyt101z/ichnaea/internal/observability"
)

// Lookup sources, also used as metric label values.
const (
	SourceWifi = "wifi"
	SourceCell = "cell"
	SourceMiss = "miss"
)

// Accuracy floors in meters applied to station ranges.
const (
	MinWifiAccuracy = 100
	MinCellAccuracy = 1000
)

var locationLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "location_lookups_total",
		Help: "Location searches by result source (wifi, cell, miss).",
	},
	[]string{"source"},
)

func init() {
	prometheus.MustRegister(locationLookups)
}

// StationRepo is the storage contract LocationService reads stations from.
type StationRepo interface {
	FindCells(ctx context.Context, db *gorm.DB, keys []domain.Key) ([]domain.CellStation, error)
	FindWifis(ctx context.Context, db *gorm.DB, keys []domain.Key) ([]domain.WifiStation, error)
}

// Query is one location search: the cells and access points a device
// observed. Duplicate observations of the same station are allowed.
type Query struct {
	Cells []domain.CellLookup
	Wifis []domain.WifiLookup
}

// Position is a search result.
type Position struct {
	Lat      float64
	Lon      float64
	Accuracy float64 // meters
	Source   string  // SourceWifi or SourceCell
}

// LocationService resolves observations to a position using known stations.
type LocationService struct {
	DB    *gorm.DB
	Repo  StationRepo
	Cache *StationCache // optional

	// MinWifiMatches is the number of known access points required for a
	// wifi-based fix.
	MinWifiMatches int
}

// NewLocationService constructs a LocationService requiring two matching
// access points for a wifi fix.
func NewLocationService(db *gorm.DB, r StationRepo, cache *StationCache) *LocationService {
	return &LocationService{DB: db, Repo: r, Cache: cache, MinWifiMatches: 2}
}

// Search returns the position for q.
//
// A wifi fix (centroid of the matched access points, accuracy from the
// largest range) wins when at least MinWifiMatches distinct access points are
// known. Otherwise the first known cell in query order is used. ErrNotFound
// is returned when neither applies.
func (s *LocationService) Search(ctx context.Context, q Query) (pos *Position, err error) {
	ctx, span := observability.StartSpan(ctx, "LocationService.Search",
		attribute.Int("query.cells", len(q.Cells)),
		attribute.Int("query.wifis", len(q.Wifis)),
	)
	defer func() { observability.EndSpan(span, err) }()

	cellKeys := uniqueKeys(len(q.Cells), func(i int) domain.Key { return q.Cells[i].HashKey() })
	wifiKeys := uniqueKeys(len(q.Wifis), func(i int) domain.Key { return q.Wifis[i].HashKey() })
	if len(cellKeys) == 0 && len(wifiKeys) == 0 {
		return nil, ErrEmptyQuery
	}

	minWifi := max(s.MinWifiMatches, 1)
	if len(wifiKeys) >= minWifi {
		wifis, err := s.wifiStations(ctx, wifiKeys)
		if err != nil {
			return nil, err
		}
		if len(wifis) >= minWifi {
			locationLookups.WithLabelValues(SourceWifi).Inc()
			return wifiPosition(wifis), nil
		}
	}

	if len(cellKeys) > 0 {
		cells, err := s.cellStations(ctx, cellKeys)
		if err != nil {
			return nil, err
		}
		for _, k := range cellKeys {
			if c, ok := cells[k]; ok {
				locationLookups.WithLabelValues(SourceCell).Inc()
				return &Position{
					Lat:      c.Lat,
					Lon:      c.Lon,
					Accuracy: float64(max(c.Range, MinCellAccuracy)),
					Source:   SourceCell,
				}, nil
			}
		}
	}

	locationLookups.WithLabelValues(SourceMiss).Inc()
	log.Ctx(ctx).Debug().
		Int("cells", len(cellKeys)).
		Int("wifis", len(wifiKeys)).
		Msg("location not found")
	return nil, ErrNotFound
}

// uniqueKeys returns the distinct keys of n items in first-seen order.
func uniqueKeys(n int, keyOf func(i int) domain.Key) []domain.Key {
	seen := make(map[domain.Key]struct{}, n)
	out := make([]domain.Key, 0, n)
	for i := 0; i < n; i++ {
		k := keyOf(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func wifiPosition(wifis []*domain.WifiStation) *Position {
	var lat, lon float64
	maxRange := 0
	for _, w := range wifis {
		lat += w.Lat
		lon += w.Lon
		maxRange = max(maxRange, w.Range)
	}
	n := float64(len(wifis))
	return &Position{
		Lat:      lat / n,
		Lon:      lon / n,
		Accuracy: float64(max(maxRange, MinWifiAccuracy)),
		Source:   SourceWifi,
	}
}

// cellStations resolves keys through the cache and then storage.
func (s *LocationService) cellStations(ctx context.Context, keys []domain.Key) (map[domain.Key]*domain.CellStation, error) {
	out := make(map[domain.Key]*domain.CellStation, len(keys))
	var misses []domain.Key
	for _, k := range keys {
		v, found := s.Cache.Get(k)
		switch {
		case !found:
			misses = append(misses, k)
		case v != nil:
			if c, ok := v.(*domain.CellStation); ok {
				out[k] = c
			}
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	rows, err := s.Repo.FindCells(ctx, s.DB, misses)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		c := &rows[i]
		k := c.HashKey()
		out[k] = c
		if err := s.Cache.Put(k, c); err != nil {
			log.Ctx(ctx).Warn().Err(err).Stringer("key", k).Msg("station cache put failed")
		}
	}
	for _, k := range misses {
		if _, ok := out[k]; !ok {
			s.Cache.PutMissing(k)
		}
	}
	return out, nil
}

// wifiStations resolves keys through the cache and then storage, returning
// the known stations in key order.
func (s *LocationService) wifiStations(ctx context.Context, keys []domain.Key) ([]*domain.WifiStation, error) {
	found := make(map[domain.Key]*domain.WifiStation, len(keys))
	var misses []domain.Key
	for _, k := range keys {
		v, hit := s.Cache.Get(k)
		switch {
		case !hit:
			misses = append(misses, k)
		case v != nil:
			if w, ok := v.(*domain.WifiStation); ok {
				found[k] = w
			}
		}
	}
	if len(misses) > 0 {
		rows, err := s.Repo.FindWifis(ctx, s.DB, misses)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			w := &rows[i]
			k := w.HashKey()
			found[k] = w
			if err := s.Cache.Put(k, w); err != nil {
				log.Ctx(ctx).Warn().Err(err).Stringer("key", k).Msg("station cache put failed")
			}
		}
		for _, k := range misses {
			if _, ok := found[k]; !ok {
				s.Cache.PutMissing(k)
			}
		}
	}

	out := make([]*domain.WifiStation, 0, len(found))
	for _, k := range keys {
		if w, ok := found[k]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}
