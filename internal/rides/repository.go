package rides

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/pagination"
)

// Shared column list for ride queries
const rideColumns = `
	r.id,
	r.start_latitude, r.start_longitude, r.start_place,
	r.end_latitude, r.end_longitude, r.end_place,
	r.start_date, r.end_date,
	r.price, r.distance_km,
	r.created_at, r.updated_at`

// Repository handles ride data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new ride repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// scanRide scans a row into a Ride, reassembling the optional end location
func scanRide(scan func(dest ...interface{}) error) (Ride, error) {
	var (
		ride   Ride
		endLat *float64
		endLng *float64
		endPlc *string
	)
	err := scan(
		&ride.ID,
		&ride.Start.Latitude, &ride.Start.Longitude, &ride.Start.Place,
		&endLat, &endLng, &endPlc,
		&ride.StartDate, &ride.EndDate,
		&ride.Price, &ride.DistanceKm,
		&ride.CreatedAt, &ride.UpdatedAt,
	)
	if err != nil {
		return Ride{}, err
	}
	if endLat != nil && endLng != nil {
		end := Location{Latitude: *endLat, Longitude: *endLng}
		if endPlc != nil {
			end.Place = *endPlc
		}
		ride.End = &end
	}
	return ride, nil
}

// Save validates and persists a new ride with its waypoints, returning the
// ride with its store-assigned identity
func (r *Repository) Save(ctx context.Context, ride *Ride) (*Ride, error) {
	if err := ride.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var endLat, endLng *float64
	var endPlc *string
	if ride.End != nil {
		endLat = &ride.End.Latitude
		endLng = &ride.End.Longitude
		endPlc = &ride.End.Place
	}

	saved := *ride
	err = tx.QueryRow(ctx, `
		INSERT INTO taxi_rides (
			start_latitude, start_longitude, start_place,
			end_latitude, end_longitude, end_place,
			start_date, end_date, price, distance_km
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		ride.Start.Latitude, ride.Start.Longitude, ride.Start.Place,
		endLat, endLng, endPlc,
		ride.StartDate, ride.EndDate, ride.Price, ride.DistanceKm,
	).Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ride: %w", err)
	}

	for i, place := range ride.ImportantPlaces {
		_, err = tx.Exec(ctx, `
			INSERT INTO important_places (ride_id, position, latitude, longitude, place)
			VALUES ($1, $2, $3, $4, $5)`,
			saved.ID, i, place.Latitude, place.Longitude, place.Place,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert waypoint: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit ride: %w", err)
	}

	return &saved, nil
}

// FindByID returns a single ride or a not-found error
func (r *Repository) FindByID(ctx context.Context, id int64) (*Ride, error) {
	query := fmt.Sprintf(`SELECT %s FROM taxi_rides r WHERE r.id = $1`, rideColumns)

	ride, err := scanRide(r.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("ride not found")
		}
		return nil, err
	}

	if err := r.loadWaypoints(ctx, []Ride{ride}); err != nil {
		return nil, err
	}
	return &ride, nil
}

// FindByPriceRange returns one page of rides within [minPrice, maxPrice] and
// the total match count. A +Inf maxPrice means no upper bound.
func (r *Repository) FindByPriceRange(ctx context.Context, minPrice, maxPrice float64, spec pagination.PageSpec) ([]Ride, int64, error) {
	where := "r.price >= $1"
	args := []interface{}{minPrice}
	argIdx := 2

	if !math.IsInf(maxPrice, 1) {
		where += fmt.Sprintf(" AND r.price <= $%d", argIdx)
		args = append(args, maxPrice)
		argIdx++
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM taxi_rides r WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM taxi_rides r WHERE %s ORDER BY r.id LIMIT $%d OFFSET $%d`,
		rideColumns, where, argIdx, argIdx+1)
	args = append(args, spec.Size, spec.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Ride
	for rows.Next() {
		ride, err := scanRide(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadWaypoints(ctx, result); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// loadWaypoints attaches ordered waypoints to the given rides in one query
func (r *Repository) loadWaypoints(ctx context.Context, result []Ride) error {
	if len(result) == 0 {
		return nil
	}

	ids := make([]int64, len(result))
	byID := make(map[int64]*Ride, len(result))
	for i := range result {
		ids[i] = result[i].ID
		byID[result[i].ID] = &result[i]
	}

	rows, err := r.db.Query(ctx, `
		SELECT ride_id, latitude, longitude, place
		FROM important_places
		WHERE ride_id = ANY($1)
		ORDER BY ride_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rideID int64
		var loc Location
		if err := rows.Scan(&rideID, &loc.Latitude, &loc.Longitude, &loc.Place); err != nil {
			return err
		}
		if ride, ok := byID[rideID]; ok {
			ride.ImportantPlaces = append(ride.ImportantPlaces, loc)
		}
	}
	return rows.Err()
}
