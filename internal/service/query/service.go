package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vegnbio/restobook/internal/domain"
	redisx "github.com/vegnbio/restobook/internal/redis"
	"github.com/vegnbio/restobook/internal/repository"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
)

type Config struct {
	AvailabilityTTL time.Duration
}

// Service serves the cached read side: the availability dashboard and
// reservation stats.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// Availability assembles the per-room dashboard for one venue and date. The
// result is cached briefly; mutations invalidate it through after-commit
// hooks.
func (s *Service) Availability(ctx context.Context, restaurantID int64, date time.Time) (*domain.AvailabilityDashboard, error) {
	const op = "service.query.Availability"

	key := redisx.KeyAvailability(restaurantID, date)

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.AvailabilityTTL,
		func(ctx context.Context) (*domain.AvailabilityDashboard, error) {
			return s.loadAvailability(ctx, restaurantID, date)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) loadAvailability(ctx context.Context, restaurantID int64, date time.Time) (*domain.AvailabilityDashboard, error) {
	rest, err := s.store.Directory().GetRestaurant(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("restaurant")
		}

		return nil, err
	}

	rooms, err := s.store.Directory().ListRooms(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.store.Reservations().ListByRestaurantDate(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}

	events, err := s.store.Events().ListByRestaurantDate(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}

	dash := &domain.AvailabilityDashboard{
		RestaurantID: restaurantID,
		Restaurant:   rest.Name,
		Date:         date,
		Events:       events,
	}

	byRoom := make(map[int64][]domain.Reservation, len(rooms))
	for _, r := range reservations {
		if r.Status == domain.ReservationCancelled {
			continue
		}
		if r.RoomID != nil {
			byRoom[*r.RoomID] = append(byRoom[*r.RoomID], r)
			continue
		}
		if r.FullRestaurant {
			// A whole-venue booking occupies every room.
			for _, rm := range rooms {
				byRoom[rm.ID] = append(byRoom[rm.ID], r)
			}
		}
	}

	for _, rm := range rooms {
		dash.Rooms = append(dash.Rooms, domain.RoomAvailability{
			Room:         rm,
			Reservations: byRoom[rm.ID],
		})
	}

	return dash, nil
}

// Stats reports the reservation counters of a venue to its operator.
func (s *Service) Stats(ctx context.Context, actor domain.ActingIdentity, restaurantID int64) (*domain.RestaurantStats, error) {
	const op = "service.query.Stats"

	if !actor.Owns(restaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can read stats"))
	}

	key := redisx.KeyRestaurantStats(restaurantID)

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.AvailabilityTTL,
		func(ctx context.Context) (*domain.RestaurantStats, error) {
			stats, err := s.store.Query().RestaurantStats(ctx, restaurantID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, domain.NotFound("restaurant")
				}

				return nil, err
			}

			return stats, nil
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
