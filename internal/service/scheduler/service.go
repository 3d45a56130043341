package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vegnbio/restobook/internal/clock"
	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/identity"
	"github.com/vegnbio/restobook/internal/notify"
	"github.com/vegnbio/restobook/internal/repository"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	redisx "github.com/vegnbio/restobook/internal/redis"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
	"github.com/vegnbio/restobook/internal/uow"
)

// Service owns the reservation lifecycle: slot validation, conflict
// detection, assignment and moderation.
type Service struct {
	store    *postgresrepo.Store
	cache    *redisrepo.Cache
	pubsub   *redisx.RestaurantsPubSub
	limiter  *redisrepo.SlidingWindowLimiter
	uow      *uow.UoW
	clk      clock.Clock
	accounts identity.Provider
	notifier notify.Notifier
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.RestaurantsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clk clock.Clock,
	accounts identity.Provider,
	notifier notify.Notifier,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		pubsub:   pubsub,
		limiter:  limiter,
		uow:      uow.NewUoW(store),
		clk:      clk,
		accounts: accounts,
		notifier: notifier,
	}
}

// CreateInput describes a reservation request. CustomerEmail lets an
// operator book on behalf of a walk-in customer with a known account.
type CreateInput struct {
	RestaurantID  int64
	CustomerEmail string
	Target        domain.BookingTarget
	PartySize     int
	Date          time.Time
	Start         domain.TimeOfDay
	End           domain.TimeOfDay
}

func (s *Service) Create(ctx context.Context, actor domain.ActingIdentity, in CreateInput, rlKey string) (*domain.Reservation, error) {
	const op = "service.scheduler.Create"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalidf("rate limited, retry in %s", retry))
		}
	}

	customerID := actor.UserID
	if in.CustomerEmail != "" {
		if !actor.Owns(in.RestaurantID) {
			return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can book on behalf of a customer"))
		}

		uid, err := s.accounts.UserIDByEmail(ctx, in.CustomerEmail)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, domain.Invalid("no account matches this customer email"))
			}

			return nil, fmt.Errorf("%s:%w", op, err)
		}

		customerID = uid
	}

	res := &domain.Reservation{
		CustomerID:     customerID,
		RestaurantID:   in.RestaurantID,
		PartySize:      in.PartySize,
		Date:           in.Date,
		Start:          in.Start,
		End:            in.End,
		Status:         domain.ReservationPending,
		FullRestaurant: in.Target.IsWholeVenue(),
	}
	if in.Target.IsRoom() {
		roomID := in.Target.RoomID
		res.RoomID = &roomID
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.checkSlot(ctx, tx, in.RestaurantID, 0, in.Target, in.PartySize, in.Date, in.Start, in.End); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		id, err := s.store.Reservations().With(tx).Insert(ctx, res)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		res.ID = id
		res.CreatedAt = s.clk.Now()

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, in.RestaurantID, in.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, in.RestaurantID, in.Date)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// UpdateInput rewrites the mutable slot fields of a pending reservation.
type UpdateInput struct {
	Target    domain.BookingTarget
	PartySize int
	Date      time.Time
	Start     domain.TimeOfDay
	End       domain.TimeOfDay
}

func (s *Service) Update(ctx context.Context, actor domain.ActingIdentity, reservationID int64, in UpdateInput) (*domain.Reservation, error) {
	const op = "service.scheduler.Update"

	var updated *domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		res, err := s.store.Reservations().With(tx).GetForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("reservation"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if res.CustomerID != actor.UserID && !actor.Owns(res.RestaurantID) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("not your reservation"))
		}

		if res.Status != domain.ReservationPending {
			return fmt.Errorf("%s:%w", op, domain.BadState("only pending reservations can be edited"))
		}

		if err := s.checkSlot(ctx, tx, res.RestaurantID, res.ID, in.Target, in.PartySize, in.Date, in.Start, in.End); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		oldDate := res.Date

		res.PartySize = in.PartySize
		res.Date = in.Date
		res.Start = in.Start
		res.End = in.End
		applyTarget(res, in.Target)

		if err := s.store.Reservations().With(tx).Update(ctx, res); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		updated = res

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, res.RestaurantID, oldDate)
			_ = s.cache.InvalidateSchedule(ctx, res.RestaurantID, res.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, res.RestaurantID, res.Date)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Assign settles a pending reservation on a room or the whole venue and
// confirms it, re-running the conflict checks against the new target. The
// customer is notified after commit.
func (s *Service) Assign(ctx context.Context, actor domain.ActingIdentity, reservationID int64, target domain.BookingTarget) (*domain.Reservation, error) {
	const op = "service.scheduler.Assign"

	if target.IsUnassigned() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("a room or the whole venue must be chosen"))
	}

	var updated *domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		res, err := s.store.Reservations().With(tx).GetForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("reservation"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if !actor.Owns(res.RestaurantID) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can assign reservations"))
		}

		if res.Status != domain.ReservationPending {
			return fmt.Errorf("%s:%w", op, domain.BadState("only pending reservations can be assigned"))
		}

		if err := s.checkSlot(ctx, tx, res.RestaurantID, res.ID, target, res.PartySize, res.Date, res.Start, res.End); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		applyTarget(res, target)

		if err := s.store.Reservations().With(tx).Update(ctx, res); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Reservations().With(tx).UpdateStatus(ctx, res.ID, domain.ReservationConfirmed); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		res.Status = domain.ReservationConfirmed
		updated = res

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, res.RestaurantID, res.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, res.RestaurantID, res.Date)
			s.notifyStatus(ctx, res)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Moderate lets the venue operator confirm or reject a pending reservation.
// CONFIRMED and CANCELLED are terminal. The customer is notified after
// commit.
func (s *Service) Moderate(ctx context.Context, actor domain.ActingIdentity, reservationID int64, status domain.ReservationStatus) (*domain.Reservation, error) {
	const op = "service.scheduler.Moderate"

	if status != domain.ReservationConfirmed && status != domain.ReservationCancelled {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status must be CONFIRMED or CANCELLED"))
	}

	var updated *domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		res, err := s.store.Reservations().With(tx).GetForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("reservation"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if !actor.Owns(res.RestaurantID) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can moderate reservations"))
		}

		if res.Status != domain.ReservationPending {
			return fmt.Errorf("%s:%w", op, domain.BadState("only pending reservations can be moderated"))
		}

		if err := s.store.Reservations().With(tx).UpdateStatus(ctx, res.ID, status); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		res.Status = status
		updated = res

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, res.RestaurantID, res.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, res.RestaurantID, res.Date)
			s.notifyStatus(ctx, res)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Cancel withdraws a pending reservation, by its customer or by the venue
// operator. Confirmed reservations are settled and no longer cancellable.
func (s *Service) Cancel(ctx context.Context, actor domain.ActingIdentity, reservationID int64) error {
	const op = "service.scheduler.Cancel"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		res, err := s.store.Reservations().With(tx).GetForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("reservation"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if res.CustomerID != actor.UserID && !actor.Owns(res.RestaurantID) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("not your reservation"))
		}

		if res.Status != domain.ReservationPending {
			return fmt.Errorf("%s:%w", op, domain.BadState("only pending reservations can be cancelled"))
		}

		if err := s.store.Reservations().With(tx).UpdateStatus(ctx, res.ID, domain.ReservationCancelled); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, res.RestaurantID, res.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, res.RestaurantID, res.Date)
		})

		return nil
	})
}

func (s *Service) Get(ctx context.Context, actor domain.ActingIdentity, reservationID int64) (*domain.Reservation, error) {
	const op = "service.scheduler.Get"

	res, err := s.store.Reservations().Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("reservation"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if res.CustomerID != actor.UserID && !actor.Owns(res.RestaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("not your reservation"))
	}

	return res, nil
}

func (s *Service) ListMine(ctx context.Context, actor domain.ActingIdentity) ([]domain.Reservation, error) {
	const op = "service.scheduler.ListMine"

	out, err := s.store.Reservations().ListByCustomer(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) ListByRestaurant(ctx context.Context, actor domain.ActingIdentity, restaurantID int64, date *time.Time) ([]domain.Reservation, error) {
	const op = "service.scheduler.ListByRestaurant"

	if !actor.Owns(restaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can list reservations"))
	}

	var (
		out []domain.Reservation
		err error
	)
	if date != nil {
		out, err = s.store.Reservations().ListByRestaurantDate(ctx, restaurantID, *date)
	} else {
		out, err = s.store.Reservations().ListByRestaurant(ctx, restaurantID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// checkSlot runs the availability preconditions in a fixed order: venue
// existence, request validity, closure, opening hours, blocking events,
// then booking conflicts. It must run inside a transaction; the venue row
// and candidate rows stay locked until commit.
func (s *Service) checkSlot(
	ctx context.Context,
	tx postgresrepo.DB,
	restaurantID, excludeReservationID int64,
	target domain.BookingTarget,
	partySize int,
	date time.Time,
	start, end domain.TimeOfDay,
) error {
	dir := s.store.Directory().With(tx)

	if err := dir.LockRestaurant(ctx, restaurantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("restaurant")
		}

		return err
	}

	rest, err := dir.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return err
	}

	if partySize <= 0 {
		return domain.Invalid("party size must be positive")
	}

	now := s.clk.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return domain.Invalid("date is in the past")
	}
	if day.Equal(today) && end <= domain.TimeOfDayOf(now) {
		return domain.Invalid("slot already over for today")
	}

	if end <= start {
		return domain.Invalid("end time must be after start time")
	}

	switch {
	case target.IsRoom():
		room, err := dir.GetRoom(ctx, target.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFound("room")
			}

			return err
		}

		if room.RestaurantID != restaurantID {
			return domain.Invalid("room does not belong to this restaurant")
		}

		if partySize > room.Capacity {
			return domain.Invalidf("party of %d exceeds room capacity %d", partySize, room.Capacity)
		}
	default:
		if partySize > rest.Capacity {
			return domain.Invalidf("party of %d exceeds restaurant capacity %d", partySize, rest.Capacity)
		}
	}

	req := domain.SlotRequest{
		RestaurantID: restaurantID,
		Target:       target,
		Date:         date,
		Start:        start,
		End:          end,
	}

	if !rest.IsWithinOpeningHours(date, start, end) {
		return domain.Invalid("requested slot is outside opening hours")
	}

	closures, err := dir.ListClosuresOn(ctx, restaurantID, date)
	if err != nil {
		return err
	}

	if err := req.CheckClosures(closures); err != nil {
		return err
	}

	events, err := s.store.Events().With(tx).ListBlockingForUpdate(ctx, restaurantID, date)
	if err != nil {
		return err
	}

	if err := req.CheckBlockingEventConflict(events); err != nil {
		return err
	}

	others, err := s.store.Reservations().With(tx).ListForUpdateByRestaurantDate(ctx, restaurantID, date)
	if err != nil {
		return err
	}

	return req.CheckBookingConflict(others, excludeReservationID)
}

func applyTarget(res *domain.Reservation, target domain.BookingTarget) {
	res.FullRestaurant = target.IsWholeVenue()
	res.RoomID = nil
	if target.IsRoom() {
		roomID := target.RoomID
		res.RoomID = &roomID
	}
}

func (s *Service) notifyStatus(ctx context.Context, res *domain.Reservation) {
	if s.notifier == nil || s.accounts == nil {
		return
	}

	email, err := s.accounts.EmailByUserID(ctx, res.CustomerID)
	if err != nil {
		return
	}

	var subject, body string
	switch res.Status {
	case domain.ReservationConfirmed:
		subject = "Votre réservation est confirmée"
		body = fmt.Sprintf("Votre réservation du %s (%s - %s) a été confirmée.",
			res.Date.Format("2006-01-02"), res.Start, res.End)
	case domain.ReservationCancelled:
		subject = "Votre réservation a été annulée"
		body = fmt.Sprintf("Votre réservation du %s (%s - %s) a été annulée par le restaurant.",
			res.Date.Format("2006-01-02"), res.Start, res.End)
	default:
		return
	}

	_ = s.notifier.Send(ctx, notify.Message{
		Subject:    subject,
		Body:       body,
		Recipients: []string{email},
	})
}
