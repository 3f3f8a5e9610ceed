package rides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/logger"
	"github.com/taxidata/platform/pkg/pagination"
	redisClient "github.com/taxidata/platform/pkg/redis"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "rides:"
	priceRangeTag  = "price_range"
	rideTag        = "ride"
	cacheTTL       = 10 * time.Minute

	healthCheckKey   = "health:check"
	healthCheckValue = "ok"
	healthCheckTTL   = time.Second
)

// Service serves ride queries with a cache-aside strategy: the cache is
// checked first, the repository is authoritative, and populated entries
// expire after cacheTTL. Cache failures of any kind degrade to the
// repository and are never surfaced to the caller.
type Service struct {
	repo  RepositoryInterface
	cache *redisClient.Client
}

// NewService creates a new ride query service
func NewService(repo RepositoryInterface, cache *redisClient.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

func priceRangeKey(minPrice, maxPrice float64, spec pagination.PageSpec) string {
	return fmt.Sprintf("%s%s:%g_%g:%d_%d", cacheKeyPrefix, priceRangeTag, minPrice, maxPrice, spec.Page, spec.Size)
}

func rideKey(id int64) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, rideTag, id)
}

// FindByPriceRange returns one page of rides priced within [minPrice, maxPrice].
// Empty pages are never cached, so a transient empty window cannot poison the
// cache.
func (s *Service) FindByPriceRange(ctx context.Context, minPrice, maxPrice float64, spec pagination.PageSpec) (*Page, error) {
	key := priceRangeKey(minPrice, maxPrice, spec)

	var cached Page
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	items, total, err := s.repo.FindByPriceRange(ctx, minPrice, maxPrice, spec)
	if err != nil {
		return nil, err
	}

	page := NewPage(items, spec, total)
	if !page.Empty {
		s.writeCache(ctx, key, page)
	}
	return page, nil
}

// FindByID returns a single ride. Non-positive ids and missing rides yield a
// not-found error; negative results are never cached.
func (s *Service) FindByID(ctx context.Context, id int64) (*Ride, error) {
	if id <= 0 {
		return nil, common.NewNotFoundError("ride not found")
	}

	key := rideKey(id)

	var cached Ride
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	ride, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, key, ride)
	return ride, nil
}

// CacheStatus probes the cache with a write-then-read round trip. Any cache
// error means unavailable.
func (s *Service) CacheStatus(ctx context.Context) bool {
	if err := s.cache.SetWithExpiration(ctx, healthCheckKey, healthCheckValue, healthCheckTTL); err != nil {
		logger.Error("cache health check write failed", zap.Error(err))
		return false
	}
	value, err := s.cache.GetString(ctx, healthCheckKey)
	if err != nil {
		logger.Error("cache health check read failed", zap.Error(err))
		return false
	}
	return value == healthCheckValue
}

// readCache reports whether key held a decodable entry. Transport and
// deserialization failures are logged and treated as a miss.
func (s *Service) readCache(ctx context.Context, key string, dest interface{}) bool {
	data, err := s.cache.GetBytes(ctx, key)
	if err != nil {
		if !errors.Is(err, redisClient.ErrCacheMiss) {
			logger.Warn("cache read failed, falling back to store",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("corrupt cache entry, falling back to store",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	return true
}

// writeCache populates key with value for cacheTTL; failures are absorbed
func (s *Service) writeCache(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.SetWithExpiration(ctx, key, data, cacheTTL); err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
