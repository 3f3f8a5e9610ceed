package rides

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/pagination"
)

func nycRide() *Ride {
	end := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	return &Ride{
		Start:      Location{Latitude: 40.7128, Longitude: -74.0060, Place: "NYC"},
		End:        &Location{Latitude: 40.7580, Longitude: -73.9855, Place: "Times Square"},
		StartDate:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndDate:    &end,
		Price:      25.50,
		DistanceKm: 3.4,
	}
}

// ========================================
// VALIDATION
// ========================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Ride)
		wantErr bool
	}{
		{
			name:    "valid completed ride",
			mutate:  func(r *Ride) {},
			wantErr: false,
		},
		{
			name: "in-progress ride without end",
			mutate: func(r *Ride) {
				r.End = nil
				r.EndDate = nil
			},
			wantErr: false,
		},
		{
			name: "end date before start date",
			mutate: func(r *Ride) {
				before := r.StartDate.Add(-time.Hour)
				r.EndDate = &before
			},
			wantErr: true,
		},
		{
			name:    "negative price",
			mutate:  func(r *Ride) { r.Price = -1 },
			wantErr: true,
		},
		{
			name:    "negative distance",
			mutate:  func(r *Ride) { r.DistanceKm = -0.1 },
			wantErr: true,
		},
		{
			name:    "zero price is valid",
			mutate:  func(r *Ride) { r.Price = 0 },
			wantErr: false,
		},
		{
			name:    "missing start date",
			mutate:  func(r *Ride) { r.StartDate = time.Time{}; r.EndDate = nil },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := nycRide()
			tt.mutate(ride)

			err := ride.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ========================================
// DERIVED FIELDS
// ========================================

func TestDurationMinutes(t *testing.T) {
	ride := nycRide()
	assert.Equal(t, int64(30), ride.DurationMinutes())

	ride.EndDate = nil
	assert.Equal(t, int64(0), ride.DurationMinutes())
}

func TestInProgress(t *testing.T) {
	ride := nycRide()
	assert.False(t, ride.InProgress())

	ride.EndDate = nil
	assert.True(t, ride.InProgress())
}

// ========================================
// PAGE CONSTRUCTION
// ========================================

func TestNewPage(t *testing.T) {
	tests := []struct {
		name          string
		contentLen    int
		page          int
		size          int
		total         int64
		expectedPages int
		first         bool
		last          bool
		empty         bool
	}{
		{
			name:       "single full page",
			contentLen: 10, page: 0, size: 10, total: 10,
			expectedPages: 1, first: true, last: true, empty: false,
		},
		{
			name:       "first of several pages",
			contentLen: 10, page: 0, size: 10, total: 25,
			expectedPages: 3, first: true, last: false, empty: false,
		},
		{
			name:       "middle page",
			contentLen: 10, page: 1, size: 10, total: 25,
			expectedPages: 3, first: false, last: false, empty: false,
		},
		{
			name:       "last partial page",
			contentLen: 5, page: 2, size: 10, total: 25,
			expectedPages: 3, first: false, last: true, empty: false,
		},
		{
			name:       "empty result",
			contentLen: 0, page: 0, size: 10, total: 0,
			expectedPages: 0, first: true, last: true, empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := make([]Ride, tt.contentLen)
			page := NewPage(content, pagination.PageSpec{Page: tt.page, Size: tt.size}, tt.total)

			assert.Equal(t, tt.page, page.Number)
			assert.Equal(t, tt.size, page.Size)
			assert.Equal(t, tt.total, page.TotalElements)
			assert.Equal(t, tt.expectedPages, page.TotalPages)
			assert.Equal(t, tt.first, page.First)
			assert.Equal(t, tt.last, page.Last)
			assert.Equal(t, tt.empty, page.Empty)
		})
	}
}

func TestNewPage_NilContent(t *testing.T) {
	page := NewPage(nil, pagination.PageSpec{Page: 0, Size: 10}, 0)

	assert.NotNil(t, page.Content)
	assert.True(t, page.Empty)
}
