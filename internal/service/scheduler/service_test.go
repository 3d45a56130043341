package scheduler

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegnbio/restobook/internal/clock"
	"github.com/vegnbio/restobook/internal/domain"
	redisx "github.com/vegnbio/restobook/internal/redis"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	"github.com/vegnbio/restobook/internal/repository/postgres/postgrestest"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
)

var (
	testNow  = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	slotDate = time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
)

func newTestService(rowSets ...postgrestest.RowSet) (*postgrestest.Pool, *Service) {
	pool := postgrestest.NewPool(rowSets...)

	// The redis client points nowhere; after-commit invalidation errors are
	// ignored by the service.
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})

	svc := New(
		postgresrepo.NewStore(pool),
		redisrepo.New(rdb),
		redisx.NewRestaurantsPubSub(rdb),
		nil,
		clock.Fixed{T: testNow},
		nil,
		nil,
	)

	return pool, svc
}

func reservationRow(status domain.ReservationStatus) []any {
	return []any{
		int64(7), int64(42), int64(3), nil, false,
		4, slotDate, domain.TimeOfDay(12 * 3600), domain.TimeOfDay(14 * 3600),
		status, testNow,
	}
}

func restaurantRow() []any {
	open := domain.TimeOfDay(10 * 3600)
	closeAt := domain.TimeOfDay(22 * 3600)

	return []any{
		int64(3), "Bistro A", "1 rue Verte", "Paris", "75011", 40,
		false, false, false, false, false, nil,
		open, closeAt, open, closeAt, open, closeAt, open, closeAt,
		nil,
	}
}

func operatorOf(restaurantID int64) domain.ActingIdentity {
	return domain.ActingIdentity{
		UserID:             99,
		Role:               domain.RoleRestaurateur,
		OwnedRestaurantIDs: []int64{restaurantID},
	}
}

func TestAssignConfirmsPendingReservation(t *testing.T) {
	pool, svc := newTestService(
		postgrestest.RowSet{Match: "FROM reservations WHERE id", Rows: [][]any{reservationRow(domain.ReservationPending)}},
		postgrestest.RowSet{Match: "SELECT id FROM restaurants", Rows: [][]any{{int64(3)}}},
		postgrestest.RowSet{Match: "wifi, printer", Rows: [][]any{restaurantRow()}},
		postgrestest.RowSet{Match: "FROM restaurant_closures"},
		postgrestest.RowSet{Match: "is_blocking"},
		postgrestest.RowSet{Match: "WHERE restaurant_id = $1 AND date = $2", Rows: [][]any{reservationRow(domain.ReservationPending)}},
	)

	out, err := svc.Assign(context.Background(), operatorOf(3), 7, domain.WholeVenueTarget())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, domain.ReservationConfirmed, out.Status)
	assert.True(t, out.FullRestaurant)

	slotWrites := pool.CommittedMatching("SET room_id")
	require.Len(t, slotWrites, 1)

	statusWrites := pool.CommittedMatching("UPDATE reservations SET status")
	require.Len(t, statusWrites, 1)
	assert.Equal(t, domain.ReservationConfirmed, statusWrites[0].Args[1])
}

func TestAssignRequiresPending(t *testing.T) {
	for _, status := range []domain.ReservationStatus{
		domain.ReservationConfirmed,
		domain.ReservationCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			pool, svc := newTestService(
				postgrestest.RowSet{Match: "FROM reservations WHERE id", Rows: [][]any{reservationRow(status)}},
			)

			_, err := svc.Assign(context.Background(), operatorOf(3), 7, domain.WholeVenueTarget())
			require.Error(t, err)
			assert.True(t, domain.IsState(err))
			assert.Empty(t, pool.Committed())
		})
	}
}

func TestCancelRequiresPending(t *testing.T) {
	pool, svc := newTestService(
		postgrestest.RowSet{Match: "FROM reservations WHERE id", Rows: [][]any{reservationRow(domain.ReservationConfirmed)}},
	)

	customer := domain.ActingIdentity{UserID: 42, Role: domain.RoleClient}

	err := svc.Cancel(context.Background(), customer, 7)
	require.Error(t, err)
	assert.True(t, domain.IsState(err))
	assert.Empty(t, pool.Committed())
}

func TestModerateRequiresPending(t *testing.T) {
	for _, target := range []domain.ReservationStatus{
		domain.ReservationConfirmed,
		domain.ReservationCancelled,
	} {
		t.Run(string(target), func(t *testing.T) {
			pool, svc := newTestService(
				postgrestest.RowSet{Match: "FROM reservations WHERE id", Rows: [][]any{reservationRow(domain.ReservationConfirmed)}},
			)

			_, err := svc.Moderate(context.Background(), operatorOf(3), 7, target)
			require.Error(t, err)
			assert.True(t, domain.IsState(err))
			assert.Empty(t, pool.Committed())
		})
	}
}

func TestUpdateRequiresPending(t *testing.T) {
	// The guard holds for the venue operator too: confirmed slots are
	// settled and only a new reservation can change them.
	pool, svc := newTestService(
		postgrestest.RowSet{Match: "FROM reservations WHERE id", Rows: [][]any{reservationRow(domain.ReservationConfirmed)}},
	)

	_, err := svc.Update(context.Background(), operatorOf(3), 7, UpdateInput{
		Target:    domain.WholeVenueTarget(),
		PartySize: 4,
		Date:      slotDate,
		Start:     domain.TimeOfDay(12 * 3600),
		End:       domain.TimeOfDay(14 * 3600),
	})
	require.Error(t, err)
	assert.True(t, domain.IsState(err))
	assert.Empty(t, pool.Committed())
}
