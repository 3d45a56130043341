package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/repository"
)

type EventRepo struct {
	pool DB
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// EventFilter narrows List. Zero values mean "no constraint".
type EventFilter struct {
	RestaurantID int64
	Status       domain.EventStatus
	Type         domain.EventType
	PublicOnly   bool
	From         *time.Time
	To           *time.Time
}

const eventColumns = `id, restaurant_id, room_id, title, description, type,
	date, start_secs, end_secs, capacity, is_public, is_blocking, status, rrule,
	requires_supplier_confirmation, supplier_deadline_days,
	published_at, full_at, cancelled_at, created_by, created_at, updated_at`

func scanEvent(row pgx.Row, v *domain.Evenement) error {
	return row.Scan(
		&v.ID, &v.RestaurantID, &v.RoomID, &v.Title, &v.Description, &v.Type,
		&v.Date, &v.Start, &v.End, &v.Capacity, &v.IsPublic, &v.IsBlocking, &v.Status, &v.RRule,
		&v.RequiresSupplierConfirmation, &v.SupplierDeadlineDays,
		&v.PublishedAt, &v.FullAt, &v.CancelledAt, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
	)
}

func (r *EventRepo) Insert(ctx context.Context, v *domain.Evenement) (int64, error) {
	const op = "postgres.EventRepo.Insert"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO evenements (restaurant_id, room_id, title, description, type,
			date, start_secs, end_secs, capacity, is_public, is_blocking, status, rrule,
			requires_supplier_confirmation, supplier_deadline_days, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 RETURNING id`,
		v.RestaurantID, v.RoomID, v.Title, v.Description, v.Type,
		v.Date, v.Start, v.End, v.Capacity, v.IsPublic, v.IsBlocking, v.Status, v.RRule,
		v.RequiresSupplierConfirmation, v.SupplierDeadlineDays, v.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *EventRepo) Get(ctx context.Context, id int64) (*domain.Evenement, error) {
	const op = "postgres.EventRepo.Get"

	db := r.handle()

	var v domain.Evenement
	err := scanEvent(db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM evenements WHERE id = $1`, id), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *EventRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Evenement, error) {
	const op = "postgres.EventRepo.GetForUpdate"

	db := r.handle()

	var v domain.Evenement
	err := scanEvent(db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM evenements WHERE id = $1 FOR UPDATE`, id), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *EventRepo) Update(ctx context.Context, v *domain.Evenement) error {
	const op = "postgres.EventRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE evenements
			SET room_id = $2, title = $3, description = $4, type = $5,
				date = $6, start_secs = $7, end_secs = $8, capacity = $9,
				is_public = $10, is_blocking = $11, status = $12, rrule = $13,
				requires_supplier_confirmation = $14, supplier_deadline_days = $15,
				published_at = $16, full_at = $17, cancelled_at = $18,
				updated_at = now()
		  WHERE id = $1`,
		v.ID, v.RoomID, v.Title, v.Description, v.Type,
		v.Date, v.Start, v.End, v.Capacity,
		v.IsPublic, v.IsBlocking, v.Status, v.RRule,
		v.RequiresSupplierConfirmation, v.SupplierDeadlineDays,
		v.PublishedAt, v.FullAt, v.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *EventRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.EventRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM evenements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]domain.Evenement, error) {
	const op = "postgres.EventRepo.List"

	sql := `SELECT ` + eventColumns + ` FROM evenements WHERE 1=1`
	var args []any

	if f.RestaurantID != 0 {
		args = append(args, f.RestaurantID)
		sql += fmt.Sprintf(" AND restaurant_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		sql += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.PublicOnly {
		sql += " AND is_public"
	}
	if f.From != nil {
		args = append(args, *f.From)
		sql += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		sql += fmt.Sprintf(" AND date <= $%d", len(args))
	}

	sql += " ORDER BY date, start_secs, id"

	return r.list(ctx, op, sql, args...)
}

func (r *EventRepo) ListByRestaurantDate(ctx context.Context, restaurantID int64, date time.Time) ([]domain.Evenement, error) {
	const op = "postgres.EventRepo.ListByRestaurantDate"

	return r.list(ctx, op,
		`SELECT `+eventColumns+`
		   FROM evenements
		  WHERE restaurant_id = $1 AND date = $2
		  ORDER BY start_secs, id`,
		restaurantID, date,
	)
}

// ListBlockingForUpdate loads and locks the blocking events of the venue on
// one date so a concurrent publish cannot slip past the availability check.
func (r *EventRepo) ListBlockingForUpdate(ctx context.Context, restaurantID int64, date time.Time) ([]domain.Evenement, error) {
	const op = "postgres.EventRepo.ListBlockingForUpdate"

	return r.list(ctx, op,
		`SELECT `+eventColumns+`
		   FROM evenements
		  WHERE restaurant_id = $1 AND date = $2 AND is_blocking
		  ORDER BY id
		    FOR UPDATE`,
		restaurantID, date,
	)
}

func (r *EventRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Evenement, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Evenement
	for rows.Next() {
		var v domain.Evenement
		if err := scanEvent(rows, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *EventRepo) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	const op = "postgres.EventRepo.CountRegistrations"

	db := r.handle()

	var n int
	err := db.QueryRow(ctx,
		`SELECT count(*) FROM evenement_registrations WHERE event_id = $1`, eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return n, nil
}

func (r *EventRepo) InsertRegistration(ctx context.Context, eventID, userID int64) (int64, error) {
	const op = "postgres.EventRepo.InsertRegistration"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO evenement_registrations (event_id, user_id)
		 VALUES ($1, $2)
		 RETURNING id`,
		eventID, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *EventRepo) DeleteRegistration(ctx context.Context, eventID, userID int64) error {
	const op = "postgres.EventRepo.DeleteRegistration"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`DELETE FROM evenement_registrations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *EventRepo) ListRegistrations(ctx context.Context, eventID int64) ([]domain.EvenementRegistration, error) {
	const op = "postgres.EventRepo.ListRegistrations"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, event_id, user_id, created_at
		   FROM evenement_registrations
		  WHERE event_id = $1
		  ORDER BY created_at, id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.EvenementRegistration
	for rows.Next() {
		var v domain.EvenementRegistration
		if err := rows.Scan(&v.ID, &v.EventID, &v.UserID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *EventRepo) IsRegistered(ctx context.Context, eventID, userID int64) (bool, error) {
	const op = "postgres.EventRepo.IsRegistered"

	db := r.handle()

	var ok bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM evenement_registrations WHERE event_id = $1 AND user_id = $2
		 )`,
		eventID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return ok, nil
}
