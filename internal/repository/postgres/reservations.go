package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/repository"
)

type ReservationRepo struct {
	pool DB
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const reservationColumns = `id, customer_id, restaurant_id, room_id, full_restaurant,
	party_size, date, start_secs, end_secs, status, created_at`

func scanReservation(row pgx.Row, v *domain.Reservation) error {
	return row.Scan(
		&v.ID, &v.CustomerID, &v.RestaurantID, &v.RoomID, &v.FullRestaurant,
		&v.PartySize, &v.Date, &v.Start, &v.End, &v.Status, &v.CreatedAt,
	)
}

func (r *ReservationRepo) Insert(ctx context.Context, v *domain.Reservation) (int64, error) {
	const op = "postgres.ReservationRepo.Insert"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO reservations (customer_id, restaurant_id, room_id, full_restaurant,
			party_size, date, start_secs, end_secs, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		v.CustomerID, v.RestaurantID, v.RoomID, v.FullRestaurant,
		v.PartySize, v.Date, v.Start, v.End, v.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *ReservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Get"

	db := r.handle()

	var v domain.Reservation
	err := scanReservation(db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *ReservationRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.GetForUpdate"

	db := r.handle()

	var v domain.Reservation
	err := scanReservation(db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

// Update rewrites the mutable slot fields. Status transitions go through
// UpdateStatus so moderation stays a separate, narrower write.
func (r *ReservationRepo) Update(ctx context.Context, v *domain.Reservation) error {
	const op = "postgres.ReservationRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE reservations
			SET room_id = $2, full_restaurant = $3, party_size = $4,
				date = $5, start_secs = $6, end_secs = $7
		  WHERE id = $1`,
		v.ID, v.RoomID, v.FullRestaurant, v.PartySize, v.Date, v.Start, v.End,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) error {
	const op = "postgres.ReservationRepo.UpdateStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE reservations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// ListForUpdateByRestaurantDate loads and locks every reservation of the venue
// on one date. Conflict checks run against this set while the locks hold.
func (r *ReservationRepo) ListForUpdateByRestaurantDate(ctx context.Context, restaurantID int64, date time.Time) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListForUpdateByRestaurantDate"

	return r.list(ctx, op,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE restaurant_id = $1 AND date = $2
		  ORDER BY id
		    FOR UPDATE`,
		restaurantID, date,
	)
}

func (r *ReservationRepo) ListByRestaurantDate(ctx context.Context, restaurantID int64, date time.Time) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListByRestaurantDate"

	return r.list(ctx, op,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE restaurant_id = $1 AND date = $2
		  ORDER BY start_secs, id`,
		restaurantID, date,
	)
}

func (r *ReservationRepo) ListByRestaurant(ctx context.Context, restaurantID int64) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListByRestaurant"

	return r.list(ctx, op,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE restaurant_id = $1
		  ORDER BY date DESC, start_secs, id`,
		restaurantID,
	)
}

func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListByCustomer"

	return r.list(ctx, op,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE customer_id = $1
		  ORDER BY date DESC, start_secs, id`,
		customerID,
	)
}

func (r *ReservationRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Reservation, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var v domain.Reservation
		if err := scanReservation(rows, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
