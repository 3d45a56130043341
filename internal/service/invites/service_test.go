package invites

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegnbio/restobook/internal/clock"
	"github.com/vegnbio/restobook/internal/domain"
	redisx "github.com/vegnbio/restobook/internal/redis"
	"github.com/vegnbio/restobook/internal/repository"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	"github.com/vegnbio/restobook/internal/repository/postgres/postgrestest"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
)

var (
	testNow   = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	eventDate = time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
)

type stubAccounts struct {
	ids map[string]int64
}

func (s stubAccounts) EmailByUserID(ctx context.Context, userID int64) (string, error) {
	return "", repository.ErrNotFound
}

func (s stubAccounts) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	if id, ok := s.ids[email]; ok {
		return id, nil
	}
	return 0, repository.ErrNotFound
}

func (s stubAccounts) EmailsByUserIDs(ctx context.Context, userIDs []int64) ([]string, error) {
	return nil, nil
}

func newTestService(cfg Config, rowSets ...postgrestest.RowSet) (*postgrestest.Pool, *Service) {
	pool := postgrestest.NewPool(rowSets...)

	// The redis client points nowhere; after-commit invalidation errors are
	// ignored by the service.
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})

	svc := New(
		postgresrepo.NewStore(pool),
		redisrepo.New(rdb),
		redisx.NewRestaurantsPubSub(rdb),
		clock.Fixed{T: testNow},
		stubAccounts{ids: map[string]int64{"chef@fournisseur.fr": 8}},
		nil,
		cfg,
	)

	return pool, svc
}

// Column order matches the events select list.
func eventRow(status domain.EventStatus, capacity any) []any {
	return []any{
		int64(9), int64(3), nil, "Conférence bio", "", domain.EventConference,
		eventDate, domain.TimeOfDay(18 * 3600), domain.TimeOfDay(20 * 3600), capacity,
		true, false, status, nil,
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

func TestAcceptToleratesExistingRegistration(t *testing.T) {
	pool, svc := newTestService(Config{},
		postgrestest.RowSet{Match: "FROM event_invites WHERE token", Rows: [][]any{inviteRow(domain.InvitePending, 5)}},
		postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, nil)}},
		postgrestest.RowSet{Match: "count(*)", Rows: [][]any{{1}}},
		postgrestest.RowSet{Match: "INSERT INTO evenement_registrations", Err: &pgconn.PgError{Code: "23505"}},
	)

	actor := domain.ActingIdentity{UserID: 5, Email: "sam@example.org", Role: domain.RoleClient}

	err := svc.Accept(context.Background(), actor, "tok-1")
	require.NoError(t, err)

	// The invite still binds to the account even though the registration
	// already existed.
	writes := pool.CommittedMatching("UPDATE event_invites")
	require.Len(t, writes, 1)
	assert.Equal(t, domain.InviteAccepted, writes[0].Args[2])

	assert.Empty(t, pool.CommittedMatching("evenement_registrations"))
}

func TestAcceptCommitsFullDiscovery(t *testing.T) {
	pool, svc := newTestService(Config{},
		postgrestest.RowSet{Match: "FROM event_invites WHERE token", Rows: [][]any{inviteRow(domain.InvitePending, 5)}},
		postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, 1)}},
		postgrestest.RowSet{Match: "count(*)", Rows: [][]any{{1}}},
	)

	actor := domain.ActingIdentity{UserID: 5, Role: domain.RoleClient}

	err := svc.Accept(context.Background(), actor, "tok-1")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	writes := pool.CommittedMatching("UPDATE evenements")
	require.Len(t, writes, 1)
	assert.Equal(t, domain.EventFull, writes[0].Args[11])

	// The invite stays pending: the seat may reopen.
	assert.Empty(t, pool.CommittedMatching("UPDATE event_invites"))
}

func TestCreateBulkExpiries(t *testing.T) {
	owner := domain.ActingIdentity{
		UserID:             99,
		Role:               domain.RoleRestaurateur,
		OwnedRestaurantIDs: []int64{3},
	}

	email := "chef@fournisseur.fr"
	uid := int64(12)

	t.Run("explicit expiry wins, default fills the rest", func(t *testing.T) {
		pool, svc := newTestService(Config{TTL: 48 * time.Hour},
			postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, nil)}},
		)

		custom := testNow.Add(6 * time.Hour)
		created, err := svc.CreateBulk(context.Background(), owner, 9, []Target{
			{Email: &email, ExpiresAt: &custom},
			{UserID: &uid},
		})
		require.NoError(t, err)
		require.Len(t, created, 2)

		require.NotNil(t, created[0].ExpiresAt)
		assert.True(t, created[0].ExpiresAt.Equal(custom))

		require.NotNil(t, created[1].ExpiresAt)
		assert.True(t, created[1].ExpiresAt.Equal(testNow.Add(48*time.Hour)))

		assert.Len(t, pool.CommittedMatching("INSERT INTO event_invites"), 2)
	})

	t.Run("past expiry refused", func(t *testing.T) {
		pool, svc := newTestService(Config{TTL: 48 * time.Hour},
			postgrestest.RowSet{Match: "FROM evenements WHERE id", Rows: [][]any{eventRow(domain.EventPublished, nil)}},
		)

		past := testNow.Add(-time.Hour)
		_, err := svc.CreateBulk(context.Background(), owner, 9, []Target{
			{Email: &email, ExpiresAt: &past},
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
		assert.Empty(t, pool.Committed())
	})
}
