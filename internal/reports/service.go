package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/beacon-sis/beacon/internal/shared"
)

// QuerierPort computes the raw aggregates.
type QuerierPort interface {
	DailyCollections(ctx context.Context, from, to time.Time) ([]DailyCollection, error)
	OutstandingByClass(ctx context.Context, academicYear string) ([]ClassOutstanding, error)
}

// Service caches report results in redis. A nil client disables caching.
type Service struct {
	querier QuerierPort
	cache   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
}

func NewService(querier QuerierPort, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{querier: querier, cache: cache, ttl: ttl}
}

// DailyCollections returns the per-day payment totals in [from, to).
func (s *Service) DailyCollections(ctx context.Context, from, to time.Time) ([]DailyCollection, error) {
	if !from.Before(to) {
		return nil, shared.Validationf("report range is empty")
	}
	key := fmt.Sprintf("beacon:report:collections:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return cached(ctx, s, key, func() ([]DailyCollection, error) {
		return s.querier.DailyCollections(ctx, from, to)
	})
}

// OutstandingByClass returns per-class unpaid balances for the year.
func (s *Service) OutstandingByClass(ctx context.Context, academicYear string) ([]ClassOutstanding, error) {
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return nil, err
	}
	key := "beacon:report:outstanding:" + academicYear
	return cached(ctx, s, key, func() ([]ClassOutstanding, error) {
		return s.querier.OutstandingByClass(ctx, academicYear)
	})
}

// Invalidate drops the cached outstanding report for the year. Called
// after payment mutations so the report catches up on next read.
func (s *Service) Invalidate(ctx context.Context, academicYear string) {
	if s.cache == nil {
		return
	}
	s.cache.Del(ctx, "beacon:report:outstanding:"+academicYear)
}

// cached wraps compute with a redis read-through and singleflight so one
// cold key triggers exactly one computation.
func cached[T any](ctx context.Context, s *Service, key string, compute func() ([]T, error)) ([]T, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var out []T
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		}
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		out, err := compute()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(out); err == nil {
				s.cache.Set(ctx, key, raw, s.ttl)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]T), nil
}
