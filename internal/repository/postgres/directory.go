package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/repository"
)

// DirectoryRepo persists restaurants, their rooms and the closure register.
type DirectoryRepo struct {
	pool DB
	db   DB
}

func (r *DirectoryRepo) With(db DB) *DirectoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *DirectoryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const restaurantColumns = `id, name, address, city, postal_code, capacity,
	wifi, printer, member_trays, delivery_trays, animations, animation_day,
	open_mon_thu, close_mon_thu, open_friday, close_friday,
	open_saturday, close_saturday, open_sunday, close_sunday, owner_id`

func scanRestaurant(row pgx.Row, v *domain.Restaurant) error {
	return row.Scan(
		&v.ID, &v.Name, &v.Address, &v.City, &v.PostalCode, &v.Capacity,
		&v.Amenities.Wifi, &v.Amenities.Printer, &v.Amenities.MemberTrays,
		&v.Amenities.DeliveryTrays, &v.Amenities.Animations, &v.Amenities.AnimationDay,
		&v.Hours.MonToThu.Open, &v.Hours.MonToThu.Close,
		&v.Hours.Friday.Open, &v.Hours.Friday.Close,
		&v.Hours.Saturday.Open, &v.Hours.Saturday.Close,
		&v.Hours.Sunday.Open, &v.Hours.Sunday.Close,
		&v.OwnerID,
	)
}

func (r *DirectoryRepo) CreateRestaurant(ctx context.Context, v *domain.Restaurant) (int64, error) {
	const op = "postgres.DirectoryRepo.CreateRestaurant"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO restaurants (name, address, city, postal_code, capacity,
			wifi, printer, member_trays, delivery_trays, animations, animation_day,
			open_mon_thu, close_mon_thu, open_friday, close_friday,
			open_saturday, close_saturday, open_sunday, close_sunday, owner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		 RETURNING id`,
		v.Name, v.Address, v.City, v.PostalCode, v.Capacity,
		v.Amenities.Wifi, v.Amenities.Printer, v.Amenities.MemberTrays,
		v.Amenities.DeliveryTrays, v.Amenities.Animations, v.Amenities.AnimationDay,
		v.Hours.MonToThu.Open, v.Hours.MonToThu.Close,
		v.Hours.Friday.Open, v.Hours.Friday.Close,
		v.Hours.Saturday.Open, v.Hours.Saturday.Close,
		v.Hours.Sunday.Open, v.Hours.Sunday.Close,
		v.OwnerID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *DirectoryRepo) UpdateRestaurant(ctx context.Context, v *domain.Restaurant) error {
	const op = "postgres.DirectoryRepo.UpdateRestaurant"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE restaurants
			SET name = $2, address = $3, city = $4, postal_code = $5, capacity = $6,
				wifi = $7, printer = $8, member_trays = $9, delivery_trays = $10,
				animations = $11, animation_day = $12,
				open_mon_thu = $13, close_mon_thu = $14,
				open_friday = $15, close_friday = $16,
				open_saturday = $17, close_saturday = $18,
				open_sunday = $19, close_sunday = $20
		  WHERE id = $1`,
		v.ID, v.Name, v.Address, v.City, v.PostalCode, v.Capacity,
		v.Amenities.Wifi, v.Amenities.Printer, v.Amenities.MemberTrays,
		v.Amenities.DeliveryTrays, v.Amenities.Animations, v.Amenities.AnimationDay,
		v.Hours.MonToThu.Open, v.Hours.MonToThu.Close,
		v.Hours.Friday.Open, v.Hours.Friday.Close,
		v.Hours.Saturday.Open, v.Hours.Saturday.Close,
		v.Hours.Sunday.Open, v.Hours.Sunday.Close,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *DirectoryRepo) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	const op = "postgres.DirectoryRepo.GetRestaurant"

	db := r.handle()

	var v domain.Restaurant
	err := scanRestaurant(db.QueryRow(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *DirectoryRepo) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	const op = "postgres.DirectoryRepo.ListRestaurants"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Restaurant
	for rows.Next() {
		var v domain.Restaurant
		if err := scanRestaurant(rows, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// LockRestaurant takes a row lock on the restaurant, serializing concurrent
// conflict checks for the same venue within their transactions.
func (r *DirectoryRepo) LockRestaurant(ctx context.Context, id int64) error {
	const op = "postgres.DirectoryRepo.LockRestaurant"

	db := r.handle()

	var got int64
	err := db.QueryRow(ctx,
		`SELECT id FROM restaurants WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

func (r *DirectoryRepo) CreateRoom(ctx context.Context, v *domain.Room) (int64, error) {
	const op = "postgres.DirectoryRepo.CreateRoom"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO rooms (restaurant_id, name, capacity)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		v.RestaurantID, v.Name, v.Capacity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *DirectoryRepo) UpdateRoom(ctx context.Context, v *domain.Room) error {
	const op = "postgres.DirectoryRepo.UpdateRoom"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE rooms SET name = $2, capacity = $3 WHERE id = $1`,
		v.ID, v.Name, v.Capacity,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *DirectoryRepo) DeleteRoom(ctx context.Context, id int64) error {
	const op = "postgres.DirectoryRepo.DeleteRoom"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *DirectoryRepo) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	const op = "postgres.DirectoryRepo.GetRoom"

	db := r.handle()

	var v domain.Room
	err := db.QueryRow(ctx,
		`SELECT id, restaurant_id, name, capacity FROM rooms WHERE id = $1`, id,
	).Scan(&v.ID, &v.RestaurantID, &v.Name, &v.Capacity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *DirectoryRepo) ListRooms(ctx context.Context, restaurantID int64) ([]domain.Room, error) {
	const op = "postgres.DirectoryRepo.ListRooms"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, restaurant_id, name, capacity
		   FROM rooms
		  WHERE restaurant_id = $1
		  ORDER BY name`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		var v domain.Room
		if err := rows.Scan(&v.ID, &v.RestaurantID, &v.Name, &v.Capacity); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *DirectoryRepo) CreateClosure(ctx context.Context, v *domain.RestaurantClosure) (int64, error) {
	const op = "postgres.DirectoryRepo.CreateClosure"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO restaurant_closures (restaurant_id, date, reason)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		v.RestaurantID, v.Date, v.Reason,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *DirectoryRepo) DeleteClosure(ctx context.Context, id int64) error {
	const op = "postgres.DirectoryRepo.DeleteClosure"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM restaurant_closures WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *DirectoryRepo) GetClosure(ctx context.Context, id int64) (*domain.RestaurantClosure, error) {
	const op = "postgres.DirectoryRepo.GetClosure"

	db := r.handle()

	var v domain.RestaurantClosure
	err := db.QueryRow(ctx,
		`SELECT id, restaurant_id, date, reason, created_at
		   FROM restaurant_closures WHERE id = $1`, id,
	).Scan(&v.ID, &v.RestaurantID, &v.Date, &v.Reason, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *DirectoryRepo) ListClosures(ctx context.Context, restaurantID int64) ([]domain.RestaurantClosure, error) {
	const op = "postgres.DirectoryRepo.ListClosures"

	return r.listClosures(ctx, op,
		`SELECT id, restaurant_id, date, reason, created_at
		   FROM restaurant_closures
		  WHERE restaurant_id = $1
		  ORDER BY date`,
		restaurantID,
	)
}

// ListClosuresOn returns the closures matching one exact date, the candidate
// set for the scheduler's closed-date veto.
func (r *DirectoryRepo) ListClosuresOn(ctx context.Context, restaurantID int64, date time.Time) ([]domain.RestaurantClosure, error) {
	const op = "postgres.DirectoryRepo.ListClosuresOn"

	return r.listClosures(ctx, op,
		`SELECT id, restaurant_id, date, reason, created_at
		   FROM restaurant_closures
		  WHERE restaurant_id = $1 AND date = $2`,
		restaurantID, date,
	)
}

func (r *DirectoryRepo) listClosures(ctx context.Context, op, sql string, args ...any) ([]domain.RestaurantClosure, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.RestaurantClosure
	for rows.Next() {
		var v domain.RestaurantClosure
		if err := rows.Scan(&v.ID, &v.RestaurantID, &v.Date, &v.Reason, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
