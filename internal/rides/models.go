package rides

import (
	"time"

	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/pagination"
)

// Location is a geographic point with a human-readable place name
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Place     string  `json:"place"`
}

// Ride represents one taxi trip. ID is zero until the store assigns an
// identity on first persistence.
type Ride struct {
	ID              int64      `json:"id,omitempty"`
	Start           Location   `json:"start"`
	End             *Location  `json:"end,omitempty"`
	ImportantPlaces []Location `json:"important_places,omitempty"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Price           float64    `json:"price"`
	DistanceKm      float64    `json:"distance_km"`
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}

// Validate checks the ride invariants enforced at persistence time
func (r *Ride) Validate() error {
	if r.StartDate.IsZero() {
		return common.NewValidationError("ride must have a start date", nil)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return common.NewValidationError("end date cannot be before start date", nil)
	}
	if r.Price < 0 {
		return common.NewValidationError("price cannot be negative", nil)
	}
	if r.DistanceKm < 0 {
		return common.NewValidationError("distance cannot be negative", nil)
	}
	return nil
}

// DurationMinutes returns the trip duration, or 0 if either timestamp is missing
func (r *Ride) DurationMinutes() int64 {
	if r.StartDate.IsZero() || r.EndDate == nil {
		return 0
	}
	return int64(r.EndDate.Sub(r.StartDate).Minutes())
}

// InProgress reports whether the trip has started but not yet completed
func (r *Ride) InProgress() bool {
	return !r.StartDate.IsZero() && r.EndDate == nil
}

// Page is one slice of an ordered ride result set. All derived fields are
// computed at construction; a Page is never mutated afterwards.
type Page struct {
	Content       []Ride `json:"content"`
	Number        int    `json:"page_number"`
	Size          int    `json:"page_size"`
	TotalElements int64  `json:"total_elements"`
	TotalPages    int    `json:"total_pages"`
	First         bool   `json:"first"`
	Last          bool   `json:"last"`
	Empty         bool   `json:"empty"`
}

// NewPage derives pagination metadata from the total count and page spec
func NewPage(content []Ride, spec pagination.PageSpec, totalElements int64) *Page {
	if content == nil {
		content = []Ride{}
	}

	totalPages := 0
	if spec.Size > 0 {
		totalPages = int((totalElements + int64(spec.Size) - 1) / int64(spec.Size))
	}

	return &Page{
		Content:       content,
		Number:        spec.Page,
		Size:          spec.Size,
		TotalElements: totalElements,
		TotalPages:    totalPages,
		First:         spec.Page == 0,
		Last:          spec.Page >= totalPages-1,
		Empty:         len(content) == 0,
	}
}
