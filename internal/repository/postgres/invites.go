package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/repository"
)

type InviteRepo struct {
	pool DB
	db   DB
}

func (r *InviteRepo) With(db DB) *InviteRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *InviteRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const inviteColumns = `id, event_id, invited_user_id, email, phone,
	token, status, expires_at, created_at`

func scanInvite(row pgx.Row, v *domain.EventInvite) error {
	return row.Scan(
		&v.ID, &v.EventID, &v.InvitedUserID, &v.Email, &v.Phone,
		&v.Token, &v.Status, &v.ExpiresAt, &v.CreatedAt,
	)
}

func (r *InviteRepo) Insert(ctx context.Context, v *domain.EventInvite) (int64, error) {
	const op = "postgres.InviteRepo.Insert"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO event_invites (event_id, invited_user_id, email, phone,
			token, status, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		v.EventID, v.InvitedUserID, v.Email, v.Phone,
		v.Token, v.Status, v.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, nil
}

// InsertBatch creates a set of invites in one round trip.
func (r *InviteRepo) InsertBatch(ctx context.Context, vs []domain.EventInvite) error {
	const op = "postgres.InviteRepo.InsertBatch"

	if len(vs) == 0 {
		return nil
	}

	db := r.handle()

	b := &pgx.Batch{}
	for _, v := range vs {
		b.Queue(
			`INSERT INTO event_invites (event_id, invited_user_id, email, phone,
				token, status, expires_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			v.EventID, v.InvitedUserID, v.Email, v.Phone,
			v.Token, v.Status, v.ExpiresAt,
		)
	}

	br := db.SendBatch(ctx, b)
	defer br.Close()

	for range vs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
	}

	return nil
}

func (r *InviteRepo) Get(ctx context.Context, id int64) (*domain.EventInvite, error) {
	const op = "postgres.InviteRepo.Get"

	db := r.handle()

	var v domain.EventInvite
	err := scanInvite(db.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM event_invites WHERE id = $1`, id), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *InviteRepo) GetByToken(ctx context.Context, token string) (*domain.EventInvite, error) {
	const op = "postgres.InviteRepo.GetByToken"

	db := r.handle()

	var v domain.EventInvite
	err := scanInvite(db.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM event_invites WHERE token = $1`, token), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

func (r *InviteRepo) GetByTokenForUpdate(ctx context.Context, token string) (*domain.EventInvite, error) {
	const op = "postgres.InviteRepo.GetByTokenForUpdate"

	db := r.handle()

	var v domain.EventInvite
	err := scanInvite(db.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM event_invites WHERE token = $1 FOR UPDATE`, token), &v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return &v, nil
}

// Update rewrites the mutable fields: status and the late-bound user
// reference resolved at acceptance time.
func (r *InviteRepo) Update(ctx context.Context, v *domain.EventInvite) error {
	const op = "postgres.InviteRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE event_invites SET invited_user_id = $2, status = $3 WHERE id = $1`,
		v.ID, v.InvitedUserID, v.Status,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *InviteRepo) UpdateStatus(ctx context.Context, id int64, status domain.InviteStatus) error {
	const op = "postgres.InviteRepo.UpdateStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE event_invites SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *InviteRepo) ListByEvent(ctx context.Context, eventID int64) ([]domain.EventInvite, error) {
	const op = "postgres.InviteRepo.ListByEvent"

	return r.list(ctx, op,
		`SELECT `+inviteColumns+`
		   FROM event_invites
		  WHERE event_id = $1
		  ORDER BY created_at, id`,
		eventID,
	)
}

// ListForUser matches invites either by resolved user ID or by the
// identity's email address.
func (r *InviteRepo) ListForUser(ctx context.Context, userID int64, email string) ([]domain.EventInvite, error) {
	const op = "postgres.InviteRepo.ListForUser"

	return r.list(ctx, op,
		`SELECT `+inviteColumns+`
		   FROM event_invites
		  WHERE invited_user_id = $1 OR (email IS NOT NULL AND lower(email) = lower($2))
		  ORDER BY created_at DESC, id`,
		userID, email,
	)
}

func (r *InviteRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.EventInvite, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.EventInvite
	for rows.Next() {
		var v domain.EventInvite
		if err := scanInvite(rows, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
