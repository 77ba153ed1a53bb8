package reports

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/beacon-sis/beacon/internal/shared"
)

type countingQuerier struct {
	calls atomic.Int64
}

func (q *countingQuerier) DailyCollections(context.Context, time.Time, time.Time) ([]DailyCollection, error) {
	q.calls.Add(1)
	return []DailyCollection{{
		Date:        "2026-09-01",
		TotalAmount: 1250,
		Count:       3,
		ByMode:      map[string]float64{"cash": 1000, "upi": 250},
	}}, nil
}

func (q *countingQuerier) OutstandingByClass(context.Context, string) ([]ClassOutstanding, error) {
	q.calls.Add(1)
	return []ClassOutstanding{{
		ClassID: 1, ClassName: "Grade 6 B", Students: 28,
		TotalFee: 42000, TotalPaid: 30000, Outstanding: 12000,
	}}, nil
}

func newCachedService(t *testing.T, querier QuerierPort) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(querier, client, time.Minute), mr
}

func TestDailyCollectionsServedFromCache(t *testing.T) {
	querier := &countingQuerier{}
	svc, _ := newCachedService(t, querier)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	first, err := svc.DailyCollections(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1250.0, first[0].TotalAmount)

	second, err := svc.DailyCollections(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int64(1), querier.calls.Load(), "second read must hit the cache")
}

func TestOutstandingCacheExpiry(t *testing.T) {
	querier := &countingQuerier{}
	svc, mr := newCachedService(t, querier)

	_, err := svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)
	_, err = svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)
	require.Equal(t, int64(1), querier.calls.Load())

	mr.FastForward(2 * time.Minute)

	_, err = svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)
	require.Equal(t, int64(2), querier.calls.Load(), "expired key must recompute")
}

func TestInvalidateDropsOutstanding(t *testing.T) {
	querier := &countingQuerier{}
	svc, _ := newCachedService(t, querier)

	_, err := svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)

	svc.Invalidate(context.Background(), "2026-2027")

	_, err = svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)
	require.Equal(t, int64(2), querier.calls.Load())
}

func TestReportValidation(t *testing.T) {
	querier := &countingQuerier{}
	svc, _ := newCachedService(t, querier)

	now := time.Now()
	_, err := svc.DailyCollections(context.Background(), now, now)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.OutstandingByClass(context.Background(), "26-27")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestNilCacheStillComputes(t *testing.T) {
	querier := &countingQuerier{}
	svc := NewService(querier, nil, 0)

	_, err := svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)
	_, err = svc.OutstandingByClass(context.Background(), "2026-2027")
	require.NoError(t, err)
	require.Equal(t, int64(2), querier.calls.Load())
}
