package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/repository"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	redisx "github.com/vegnbio/restobook/internal/redis"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
)

// Service manages the venue directory: restaurants, rooms and the closure
// register.
type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisx.RestaurantsPubSub
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.RestaurantsPubSub,
) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
	}
}

func validateRestaurant(v *domain.Restaurant) error {
	if v.Name == "" {
		return domain.Invalid("name is required")
	}

	if v.Capacity <= 0 {
		return domain.Invalid("capacity must be positive")
	}

	for _, w := range []domain.Window{v.Hours.MonToThu, v.Hours.Friday, v.Hours.Saturday, v.Hours.Sunday} {
		if w.Open == w.Close {
			return domain.Invalid("opening and closing time must differ")
		}
	}

	return nil
}

func (s *Service) CreateRestaurant(ctx context.Context, actor domain.ActingIdentity, v *domain.Restaurant) (*domain.Restaurant, error) {
	const op = "service.directory.CreateRestaurant"

	if !actor.IsOperator() && !actor.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only restaurateurs can create restaurants"))
	}

	if err := validateRestaurant(v); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if v.OwnerID == nil {
		uid := actor.UserID
		v.OwnerID = &uid
	}

	id, err := s.store.Directory().CreateRestaurant(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	v.ID = id

	return v, nil
}

func (s *Service) UpdateRestaurant(ctx context.Context, actor domain.ActingIdentity, v *domain.Restaurant) (*domain.Restaurant, error) {
	const op = "service.directory.UpdateRestaurant"

	if !actor.Owns(v.ID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can edit this restaurant"))
	}

	if err := validateRestaurant(v); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Directory().UpdateRestaurant(ctx, v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("restaurant"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	_ = s.cache.InvalidateRestaurant(ctx, v.ID)

	return v, nil
}

func (s *Service) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	const op = "service.directory.GetRestaurant"

	v, err := s.store.Directory().GetRestaurant(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("restaurant"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return v, nil
}

func (s *Service) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	const op = "service.directory.ListRestaurants"

	out, err := s.store.Directory().ListRestaurants(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) CreateRoom(ctx context.Context, actor domain.ActingIdentity, v *domain.Room) (*domain.Room, error) {
	const op = "service.directory.CreateRoom"

	if !actor.Owns(v.RestaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can manage rooms"))
	}

	if v.Name == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("name is required"))
	}

	if v.Capacity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("capacity must be positive"))
	}

	id, err := s.store.Directory().CreateRoom(ctx, v)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalid("a room with this name already exists"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	v.ID = id

	return v, nil
}

func (s *Service) UpdateRoom(ctx context.Context, actor domain.ActingIdentity, v *domain.Room) (*domain.Room, error) {
	const op = "service.directory.UpdateRoom"

	existing, err := s.store.Directory().GetRoom(ctx, v.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("room"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.Owns(existing.RestaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can manage rooms"))
	}

	if v.Name == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("name is required"))
	}

	if v.Capacity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("capacity must be positive"))
	}

	v.RestaurantID = existing.RestaurantID

	if err := s.store.Directory().UpdateRoom(ctx, v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalid("a room with this name already exists"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return v, nil
}

func (s *Service) DeleteRoom(ctx context.Context, actor domain.ActingIdentity, roomID int64) error {
	const op = "service.directory.DeleteRoom"

	existing, err := s.store.Directory().GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, domain.NotFound("room"))
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	if !actor.Owns(existing.RestaurantID) {
		return fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can manage rooms"))
	}

	if err := s.store.Directory().DeleteRoom(ctx, roomID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) ListRooms(ctx context.Context, restaurantID int64) ([]domain.Room, error) {
	const op = "service.directory.ListRooms"

	out, err := s.store.Directory().ListRooms(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) CreateClosure(ctx context.Context, actor domain.ActingIdentity, v *domain.RestaurantClosure) (*domain.RestaurantClosure, error) {
	const op = "service.directory.CreateClosure"

	if !actor.Owns(v.RestaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can declare closures"))
	}

	id, err := s.store.Directory().CreateClosure(ctx, v)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalid("a closure already exists for this date"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	v.ID = id

	s.invalidateDate(ctx, v.RestaurantID, v.Date)

	return v, nil
}

func (s *Service) DeleteClosure(ctx context.Context, actor domain.ActingIdentity, closureID int64) error {
	const op = "service.directory.DeleteClosure"

	existing, err := s.store.Directory().GetClosure(ctx, closureID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, domain.NotFound("closure"))
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	if !actor.Owns(existing.RestaurantID) {
		return fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can declare closures"))
	}

	if err := s.store.Directory().DeleteClosure(ctx, closureID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateDate(ctx, existing.RestaurantID, existing.Date)

	return nil
}

func (s *Service) ListClosures(ctx context.Context, restaurantID int64) ([]domain.RestaurantClosure, error) {
	const op = "service.directory.ListClosures"

	out, err := s.store.Directory().ListClosures(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) invalidateDate(ctx context.Context, restaurantID int64, date time.Time) {
	_ = s.cache.InvalidateSchedule(ctx, restaurantID, date)
	_ = s.pubsub.PublishScheduleChanged(ctx, restaurantID, date)
}
