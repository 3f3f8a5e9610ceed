package rides

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/pagination"
	redisClient "github.com/taxidata/platform/pkg/redis"
)

// MockRepository implements RepositoryInterface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, ride *Ride) (*Ride, error) {
	args := m.Called(ctx, ride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Ride), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int64) (*Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Ride), args.Error(1)
}

func (m *MockRepository) FindByPriceRange(ctx context.Context, minPrice, maxPrice float64, spec pagination.PageSpec) ([]Ride, int64, error) {
	args := m.Called(ctx, minPrice, maxPrice, spec)
	if args.Get(0) == nil {
		return nil, int64(args.Int(1)), args.Error(2)
	}
	return args.Get(0).([]Ride), int64(args.Int(1)), args.Error(2)
}

func newTestService(t *testing.T) (*Service, *MockRepository, redismock.ClientMock) {
	t.Helper()
	db, redisMock := redismock.NewClientMock()
	repo := new(MockRepository)
	return NewService(repo, redisClient.NewWithClient(db)), repo, redisMock
}

func testRides() []Ride {
	ride := *nycRide()
	ride.ID = 1
	return []Ride{ride}
}

// ========================================
// FIND BY PRICE RANGE
// ========================================

func TestFindByPriceRange_CacheMissPopulates(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	spec := pagination.PageSpec{Page: 0, Size: 10}
	items := testRides()
	expectedPage := NewPage(items, spec, 1)
	encoded, err := json.Marshal(expectedPage)
	require.NoError(t, err)

	key := priceRangeKey(10.0, 20.0, spec)
	redisMock.ExpectGet(key).RedisNil()
	repo.On("FindByPriceRange", ctx, 10.0, 20.0, spec).Return(items, 1, nil)
	redisMock.ExpectSet(key, encoded, cacheTTL).SetVal("OK")

	page, err := svc.FindByPriceRange(ctx, 10.0, 20.0, spec)

	require.NoError(t, err)
	assert.Equal(t, expectedPage, page)
	repo.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestFindByPriceRange_CacheHitSkipsStore(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	spec := pagination.PageSpec{Page: 0, Size: 10}
	cachedPage := NewPage(testRides(), spec, 1)
	encoded, err := json.Marshal(cachedPage)
	require.NoError(t, err)

	redisMock.ExpectGet(priceRangeKey(10.0, 20.0, spec)).SetVal(string(encoded))

	page, err := svc.FindByPriceRange(ctx, 10.0, 20.0, spec)

	require.NoError(t, err)
	assert.Equal(t, cachedPage, page)
	repo.AssertNotCalled(t, "FindByPriceRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestFindByPriceRange_EmptyPageNotCached(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	spec := pagination.PageSpec{Page: 0, Size: 10}

	// Two identical calls: no Set is ever expected, and the second call must
	// reach the store again.
	key := priceRangeKey(10.0, 20.0, spec)
	redisMock.ExpectGet(key).RedisNil()
	redisMock.ExpectGet(key).RedisNil()
	repo.On("FindByPriceRange", ctx, 10.0, 20.0, spec).Return([]Ride{}, 0, nil).Twice()

	for i := 0; i < 2; i++ {
		page, err := svc.FindByPriceRange(ctx, 10.0, 20.0, spec)
		require.NoError(t, err)
		assert.True(t, page.Empty)
	}

	repo.AssertNumberOfCalls(t, "FindByPriceRange", 2)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestFindByPriceRange_CacheErrorFallsBack(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	spec := pagination.PageSpec{Page: 0, Size: 10}
	items := testRides()

	key := priceRangeKey(0, math.Inf(1), spec)
	redisMock.ExpectGet(key).SetErr(errors.New("connection refused"))
	repo.On("FindByPriceRange", ctx, 0.0, math.Inf(1), spec).Return(items, 1, nil)
	encoded, err := json.Marshal(NewPage(items, spec, 1))
	require.NoError(t, err)
	redisMock.ExpectSet(key, encoded, cacheTTL).SetErr(errors.New("connection refused"))

	page, err := svc.FindByPriceRange(ctx, 0, math.Inf(1), spec)

	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
	repo.AssertExpectations(t)
}

func TestFindByPriceRange_CorruptEntryFallsBack(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	spec := pagination.PageSpec{Page: 0, Size: 10}
	items := testRides()

	key := priceRangeKey(10.0, 20.0, spec)
	redisMock.ExpectGet(key).SetVal("{not json")
	repo.On("FindByPriceRange", ctx, 10.0, 20.0, spec).Return(items, 1, nil)
	encoded, err := json.Marshal(NewPage(items, spec, 1))
	require.NoError(t, err)
	redisMock.ExpectSet(key, encoded, cacheTTL).SetVal("OK")

	page, err := svc.FindByPriceRange(ctx, 10.0, 20.0, spec)

	require.NoError(t, err)
	assert.False(t, page.Empty)
	repo.AssertExpectations(t)
}

func TestFindByPriceRange_StoreErrorSurfaces(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	spec := pagination.PageSpec{Page: 0, Size: 10}

	redisMock.ExpectGet(priceRangeKey(10.0, 20.0, spec)).RedisNil()
	repo.On("FindByPriceRange", ctx, 10.0, 20.0, spec).Return(nil, 0, errors.New("db down"))

	_, err := svc.FindByPriceRange(ctx, 10.0, 20.0, spec)

	assert.EqualError(t, err, "db down")
}

func TestFindByPriceRange_DistinctPagesDistinctKeys(t *testing.T) {
	a := priceRangeKey(10, 20, pagination.PageSpec{Page: 0, Size: 10})
	b := priceRangeKey(10, 20, pagination.PageSpec{Page: 1, Size: 10})
	c := priceRangeKey(10, 30, pagination.PageSpec{Page: 0, Size: 10})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

// ========================================
// FIND BY ID
// ========================================

func TestFindByID_CacheMissPopulates(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	ride := &testRides()[0]
	encoded, err := json.Marshal(ride)
	require.NoError(t, err)

	redisMock.ExpectGet(rideKey(1)).RedisNil()
	repo.On("FindByID", ctx, int64(1)).Return(ride, nil)
	redisMock.ExpectSet(rideKey(1), encoded, cacheTTL).SetVal("OK")

	got, err := svc.FindByID(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, ride.ID, got.ID)
	repo.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestFindByID_CacheHitSkipsStore(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()
	ride := testRides()[0]
	encoded, err := json.Marshal(ride)
	require.NoError(t, err)

	redisMock.ExpectGet(rideKey(1)).SetVal(string(encoded))

	got, err := svc.FindByID(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, ride.ID, got.ID)
	assert.Equal(t, ride.Price, got.Price)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestFindByID_NotFoundNotCached(t *testing.T) {
	svc, repo, redisMock := newTestService(t)
	ctx := context.Background()

	// Two lookups of a missing id both reach the store; nothing is written.
	redisMock.ExpectGet(rideKey(42)).RedisNil()
	redisMock.ExpectGet(rideKey(42)).RedisNil()
	repo.On("FindByID", ctx, int64(42)).Return(nil, common.NewNotFoundError("ride not found")).Twice()

	for i := 0; i < 2; i++ {
		_, err := svc.FindByID(ctx, 42)
		require.Error(t, err)
		assert.True(t, common.IsNotFound(err))
	}

	repo.AssertNumberOfCalls(t, "FindByID", 2)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestFindByID_NonPositiveID(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []int64{0, -1} {
		_, err := svc.FindByID(ctx, id)
		require.Error(t, err)
		assert.True(t, common.IsNotFound(err))
	}

	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// ========================================
// CACHE STATUS
// ========================================

func TestCacheStatus(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(m redismock.ClientMock)
		expected bool
	}{
		{
			name: "round trip matches",
			setup: func(m redismock.ClientMock) {
				m.ExpectSet(healthCheckKey, healthCheckValue, healthCheckTTL).SetVal("OK")
				m.ExpectGet(healthCheckKey).SetVal(healthCheckValue)
			},
			expected: true,
		},
		{
			name: "read back mismatch",
			setup: func(m redismock.ClientMock) {
				m.ExpectSet(healthCheckKey, healthCheckValue, healthCheckTTL).SetVal("OK")
				m.ExpectGet(healthCheckKey).SetVal("stale")
			},
			expected: false,
		},
		{
			name: "write fails",
			setup: func(m redismock.ClientMock) {
				m.ExpectSet(healthCheckKey, healthCheckValue, healthCheckTTL).SetErr(errors.New("down"))
			},
			expected: false,
		},
		{
			name: "read fails",
			setup: func(m redismock.ClientMock) {
				m.ExpectSet(healthCheckKey, healthCheckValue, healthCheckTTL).SetVal("OK")
				m.ExpectGet(healthCheckKey).SetErr(errors.New("down"))
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, redisMock := newTestService(t)
			tt.setup(redisMock)

			available := svc.CacheStatus(context.Background())

			assert.Equal(t, tt.expected, available)
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

// health probe key must stay stable across deployments
func TestCacheKeysAreStable(t *testing.T) {
	assert.Equal(t, "health:check", healthCheckKey)
	assert.Equal(t, time.Second, healthCheckTTL)
	assert.Equal(t, "rides:price_range:10_20:0_10", priceRangeKey(10, 20, pagination.PageSpec{Page: 0, Size: 10}))
	assert.Equal(t, "rides:ride:7", rideKey(7))
}
