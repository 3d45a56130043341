package postgres

import (
	"context"
	"fmt"

	"github.com/vegnbio/restobook/internal/domain"
)

// QueryRepo serves the read-only reporting side. It never takes locks.
type QueryRepo struct {
	pool DB
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *QueryRepo) RestaurantStats(ctx context.Context, restaurantID int64) (*domain.RestaurantStats, error) {
	const op = "postgres.QueryRepo.RestaurantStats"

	db := r.handle()

	var stats domain.RestaurantStats
	err := db.QueryRow(ctx,
		`SELECT r.name,
				count(b.id),
				count(b.id) FILTER (WHERE b.status = 'CONFIRMED'),
				count(b.id) FILTER (WHERE b.status = 'PENDING'),
				count(b.id) FILTER (WHERE b.status = 'CANCELLED')
		   FROM restaurants r
		   LEFT JOIN reservations b ON b.restaurant_id = r.id
		  WHERE r.id = $1
		  GROUP BY r.name`,
		restaurantID,
	).Scan(&stats.Restaurant, &stats.Total, &stats.Confirmed, &stats.Pending, &stats.Cancelled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT CASE
					WHEN b.full_restaurant THEN 'full venue'
					ELSE COALESCE(rm.name, 'unassigned')
				END AS room,
				count(*),
				count(*) FILTER (WHERE b.status = 'CONFIRMED'),
				count(*) FILTER (WHERE b.status = 'PENDING'),
				count(*) FILTER (WHERE b.status = 'CANCELLED')
		   FROM reservations b
		   LEFT JOIN rooms rm ON rm.id = b.room_id
		  WHERE b.restaurant_id = $1
		  GROUP BY 1
		  ORDER BY 1`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	for rows.Next() {
		var rs domain.RoomStats
		if err := rows.Scan(&rs.Room, &rs.Total, &rs.Confirmed, &rs.Pending, &rs.Cancelled); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		stats.Rooms = append(stats.Rooms, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}
