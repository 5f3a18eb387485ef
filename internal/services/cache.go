package services

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guyt101z/ichnaea/internal/domain"
)

var cacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "station_cache_requests_total",
		Help: "Station cache lookups by result (hit, negative, miss).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheRequests)
}

// StationCache is a size-bounded LRU with per-entry TTL, keyed by station
// identity. Values are stored in the tagged class encoding so that a cached
// station is decoded into a fresh value on every hit. Absent stations are
// cached too, as nil data.
//
// A nil *StationCache is valid and never hits.
type StationCache struct {
	lru *expirable.LRU[domain.Key, []byte]
}

// NewStationCache returns a cache holding at most size keys for ttl each.
// It returns nil when size is not positive.
func NewStationCache(size int, ttl time.Duration) *StationCache {
	if size <= 0 {
		return nil
	}
	return &StationCache{lru: expirable.NewLRU[domain.Key, []byte](size, nil, ttl)}
}

// Get returns the cached station for k. found reports a cache hit; a hit with
// a nil station means the station is known to be absent.
func (c *StationCache) Get(k domain.Key) (station any, found bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.lru.Get(k)
	if !ok {
		cacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	if data == nil {
		cacheRequests.WithLabelValues("negative").Inc()
		return nil, true
	}
	v, err := domain.Classes.Decode(data)
	if err != nil {
		c.lru.Remove(k)
		cacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	cacheRequests.WithLabelValues("hit").Inc()
	return v, true
}

// Put caches station under k.
func (c *StationCache) Put(k domain.Key, station domain.Tagged) error {
	if c == nil {
		return nil
	}
	data, err := domain.Classes.Encode(station)
	if err != nil {
		return err
	}
	c.lru.Add(k, data)
	return nil
}

// PutMissing records that no station exists for k.
func (c *StationCache) PutMissing(k domain.Key) {
	if c == nil {
		return
	}
	c.lru.Add(k, nil)
}

// Delete drops k from the cache.
func (c *StationCache) Delete(k domain.Key) {
	if c == nil {
		return
	}
	c.lru.Remove(k)
}

// Len returns the number of cached keys.
func (c *StationCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
