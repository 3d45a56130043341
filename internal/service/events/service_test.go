package events

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
	testNow   = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	eventDate = time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
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
		clock.Fixed{T: testNow},
		nil,
		nil,
	)

	return pool, svc
}

// Column order matches the events select list.
func eventRow(status domain.EventStatus, isPublic bool, capacity any) []any {
	return []any{
		int64(9), int64(3), nil, "Conférence bio", "", domain.EventConference,
		eventDate, domain.TimeOfDay(18 * 3600), domain.TimeOfDay(20 * 3600), capacity,
		isPublic, false, status, nil,
		false, 0,
		testNow, nil, nil, nil, testNow, testNow,
	}
}

func inviteRow(status domain.InviteStatus, userID int64) []any {
	return []any{
		int64(1), int64(9), userID, nil, nil,
		"tok-1", status, testNow.Add(72 * time.Hour), testNow,
	}
}

func TestVisible(t *testing.T) {
	s := &Service{}

	owner := domain.ActingIdentity{
		UserID:             1,
		Role:               domain.RoleRestaurateur,
		OwnedRestaurantIDs: []int64{3},
	}
	stranger := domain.ActingIdentity{UserID: 2, Role: domain.RoleClient}

	publicPublished := &domain.Evenement{RestaurantID: 3, IsPublic: true, Status: domain.EventPublished}
	publicDraft := &domain.Evenement{RestaurantID: 3, IsPublic: true, Status: domain.EventDraft}
	private := &domain.Evenement{RestaurantID: 3, IsPublic: false, Status: domain.EventPublished}

	assert.True(t, s.visible(publicPublished, stranger))
	assert.True(t, s.visible(publicPublished, owner))

	// Drafts and private events stay hidden from outsiders.
	assert.False(t, s.visible(publicDraft, stranger))
	assert.False(t, s.visible(private, stranger))
	assert.True(t, s.visible(publicDraft, owner))
	assert.True(t, s.visible(private, owner))

	// A cancelled public event remains visible so registrants can see why
	// it disappeared from the schedule.
	cancelled := &domain.Evenement{RestaurantID: 3, IsPublic: true, Status: domain.EventCancelled}
	assert.True(t, s.visible(cancelled, stranger))
}

func TestRegisterClosesFullEvent(t *testing.T) {
	pool, svc := newTestService(
		postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, true, 2)}},
		postgrestest.RowSet{Match: "count(*)", Rows: [][]any{{2}}},
	)

	actor := domain.ActingIdentity{UserID: 5, Role: domain.RoleClient}

	err := svc.Register(context.Background(), actor, 9)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	// The registration is rejected, but the discovery that capacity is gone
	// survives: the FULL flip must be committed.
	writes := pool.CommittedMatching("UPDATE evenements")
	require.Len(t, writes, 1)
	assert.Equal(t, domain.EventFull, writes[0].Args[11])
	assert.NotNil(t, writes[0].Args[16])

	assert.Empty(t, pool.CommittedMatching("evenement_registrations"))
}

func TestRegisterInviteOnly(t *testing.T) {
	actor := domain.ActingIdentity{UserID: 5, Email: "sam@example.org", Role: domain.RoleClient}

	t.Run("settled invite refused", func(t *testing.T) {
		pool, svc := newTestService(
			postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, false, nil)}},
			postgrestest.RowSet{Match: "invited_user_id = $1 OR", Rows: [][]any{inviteRow(domain.InviteAccepted, 5)}},
		)

		err := svc.Register(context.Background(), actor, 9)
		require.Error(t, err)
		assert.True(t, domain.IsPermission(err))
		assert.Empty(t, pool.Committed())
	})

	t.Run("pending invite admits", func(t *testing.T) {
		pool, svc := newTestService(
			postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, false, nil)}},
			postgrestest.RowSet{Match: "invited_user_id = $1 OR", Rows: [][]any{inviteRow(domain.InvitePending, 5)}},
			postgrestest.RowSet{Match: "count(*)", Rows: [][]any{{0}}},
			postgrestest.RowSet{Match: "INSERT INTO evenement_registrations", Rows: [][]any{{int64(11)}}},
		)

		err := svc.Register(context.Background(), actor, 9)
		require.NoError(t, err)
		assert.Len(t, pool.CommittedMatching("INSERT INTO evenement_registrations"), 1)
	})
}
