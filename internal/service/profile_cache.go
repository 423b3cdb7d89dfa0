// profile_cache.go — LRU-кэш снапшотов профилей с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_profile_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш профилей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_profile_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша профилей.",
	})
)

// ProfileCache — LRU-кэш снапшотов профилей с автоматическим TTL.
// Каждый экземпляр Profile Module имеет собственный in-memory кэш
// (per-instance, stateless архитектура).
type ProfileCache struct {
	cache *expirable.LRU[string, *model.Profile]
}

// NewProfileCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewProfileCache(maxSize int, ttl time.Duration) *ProfileCache {
	cache := expirable.NewLRU[string, *model.Profile](maxSize, nil, ttl)
	return &ProfileCache{cache: cache}
}

// Get возвращает профиль из кэша по staffID.
// Возвращает (профиль, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *ProfileCache) Get(staffID string) (*model.Profile, bool) {
	val, ok := c.cache.Get(staffID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет профиль в кэше.
func (c *ProfileCache) Set(staffID string, profile *model.Profile) {
	c.cache.Add(staffID, profile)
}
