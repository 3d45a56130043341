package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS restaurants (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	capacity INT NOT NULL CHECK (capacity > 0),
	wifi BOOLEAN NOT NULL DEFAULT TRUE,
	printer BOOLEAN NOT NULL DEFAULT TRUE,
	member_trays BOOLEAN NOT NULL DEFAULT FALSE,
	delivery_trays BOOLEAN NOT NULL DEFAULT FALSE,
	animations BOOLEAN NOT NULL DEFAULT FALSE,
	animation_day TEXT,
	open_mon_thu INT NOT NULL,
	close_mon_thu INT NOT NULL,
	open_friday INT NOT NULL,
	close_friday INT NOT NULL,
	open_saturday INT NOT NULL,
	close_saturday INT NOT NULL,
	open_sunday INT NOT NULL,
	close_sunday INT NOT NULL,
	owner_id BIGINT
);

CREATE TABLE IF NOT EXISTS rooms (
	id BIGSERIAL PRIMARY KEY,
	restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	capacity INT NOT NULL CHECK (capacity > 0),
	UNIQUE (restaurant_id, name)
);

CREATE TABLE IF NOT EXISTS reservations (
	id BIGSERIAL PRIMARY KEY,
	customer_id BIGINT NOT NULL,
	restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	room_id BIGINT REFERENCES rooms(id) ON DELETE CASCADE,
	full_restaurant BOOLEAN NOT NULL DEFAULT FALSE,
	party_size INT NOT NULL CHECK (party_size > 0),
	date DATE NOT NULL,
	start_secs INT NOT NULL,
	end_secs INT NOT NULL CHECK (end_secs > start_secs),
	status TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reservations_restaurant_date
	ON reservations(restaurant_id, date);
CREATE INDEX IF NOT EXISTS idx_reservations_customer
	ON reservations(customer_id);

CREATE TABLE IF NOT EXISTS evenements (
	id BIGSERIAL PRIMARY KEY,
	restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	room_id BIGINT REFERENCES rooms(id) ON DELETE SET NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'AUTRE',
	date DATE NOT NULL,
	start_secs INT NOT NULL,
	end_secs INT NOT NULL CHECK (end_secs > start_secs),
	capacity INT,
	is_public BOOLEAN NOT NULL DEFAULT TRUE,
	is_blocking BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL DEFAULT 'DRAFT',
	rrule TEXT,
	requires_supplier_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
	supplier_deadline_days INT NOT NULL DEFAULT 14 CHECK (supplier_deadline_days >= 0),
	published_at TIMESTAMPTZ,
	full_at TIMESTAMPTZ,
	cancelled_at TIMESTAMPTZ,
	created_by BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evenements_restaurant_date
	ON evenements(restaurant_id, date);

CREATE TABLE IF NOT EXISTS evenement_registrations (
	id BIGSERIAL PRIMARY KEY,
	event_id BIGINT NOT NULL REFERENCES evenements(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_invites (
	id BIGSERIAL PRIMARY KEY,
	event_id BIGINT NOT NULL REFERENCES evenements(id) ON DELETE CASCADE,
	invited_user_id BIGINT,
	email TEXT,
	phone TEXT,
	token TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'PENDING',
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_event_invites_event_status
	ON event_invites(event_id, status);

CREATE TABLE IF NOT EXISTS restaurant_closures (
	id BIGSERIAL PRIMARY KEY,
	restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	date DATE NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (restaurant_id, date)
);
`

// Migrate bootstraps the schema. The users table is owned by the accounts
// service and is not created here; this core only reads it through the
// identity provider.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
