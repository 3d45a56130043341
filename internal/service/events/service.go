package events

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

// Service drives the event lifecycle and its registrations.
type Service struct {
	store    *postgresrepo.Store
	cache    *redisrepo.Cache
	pubsub   *redisx.RestaurantsPubSub
	uow      *uow.UoW
	clk      clock.Clock
	accounts identity.Provider
	notifier notify.Notifier
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.RestaurantsPubSub,
	clk clock.Clock,
	accounts identity.Provider,
	notifier notify.Notifier,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		pubsub:   pubsub,
		uow:      uow.NewUoW(store),
		clk:      clk,
		accounts: accounts,
		notifier: notifier,
	}
}

// Input carries the editable event fields.
type Input struct {
	RestaurantID int64
	RoomID       *int64
	Title        string
	Description  string
	Type         domain.EventType
	Date         time.Time
	Start        domain.TimeOfDay
	End          domain.TimeOfDay
	Capacity     *int
	IsPublic     bool
	IsBlocking   bool
	RRule        *string

	RequiresSupplierConfirmation bool
	SupplierDeadlineDays         int
}

func (s *Service) Create(ctx context.Context, actor domain.ActingIdentity, in Input) (*domain.Evenement, error) {
	const op = "service.events.Create"

	if !actor.Owns(in.RestaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can create events"))
	}

	ev := &domain.Evenement{
		RestaurantID: in.RestaurantID,
		RoomID:       in.RoomID,
		Title:        in.Title,
		Description:  in.Description,
		Type:         in.Type,
		Date:         in.Date,
		Start:        in.Start,
		End:          in.End,
		Capacity:     in.Capacity,
		IsPublic:     in.IsPublic,
		IsBlocking:   in.IsBlocking,
		Status:       domain.EventDraft,
		RRule:        in.RRule,

		RequiresSupplierConfirmation: in.RequiresSupplierConfirmation,
		SupplierDeadlineDays:         in.SupplierDeadlineDays,
	}
	uid := actor.UserID
	ev.CreatedBy = &uid

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.validate(ctx, tx, ev, 0); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		id, err := s.store.Events().With(tx).Insert(ctx, ev)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		ev.ID = id
		ev.CreatedAt = s.clk.Now()
		ev.UpdatedAt = ev.CreatedAt

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ev, nil
}

func (s *Service) Update(ctx context.Context, actor domain.ActingIdentity, eventID int64, in Input) (*domain.Evenement, error) {
	const op = "service.events.Update"

	var updated *domain.Evenement

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ev, err := s.loadOwned(ctx, tx, actor, eventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		count, err := s.store.Events().With(tx).CountRegistrations(ctx, eventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if in.Capacity != nil && *in.Capacity < count {
			return fmt.Errorf("%s:%w", op,
				domain.Invalidf("capacity %d is below the %d existing registrations", *in.Capacity, count))
		}

		oldDate := ev.Date

		ev.RoomID = in.RoomID
		ev.Title = in.Title
		ev.Description = in.Description
		ev.Type = in.Type
		ev.Date = in.Date
		ev.Start = in.Start
		ev.End = in.End
		ev.Capacity = in.Capacity
		ev.IsPublic = in.IsPublic
		ev.IsBlocking = in.IsBlocking
		ev.RRule = in.RRule
		ev.RequiresSupplierConfirmation = in.RequiresSupplierConfirmation
		ev.SupplierDeadlineDays = in.SupplierDeadlineDays

		if err := s.validate(ctx, tx, ev, ev.ID); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Events().With(tx).Update(ctx, ev); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		updated = ev

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, oldDate)
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.ActingIdentity, eventID int64) error {
	const op = "service.events.Delete"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ev, err := s.loadOwned(ctx, tx, actor, eventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if ev.Status != domain.EventDraft && ev.Status != domain.EventCancelled {
			return fmt.Errorf("%s:%w", op, domain.BadState("cancel the event before deleting it"))
		}

		if err := s.store.Events().With(tx).Delete(ctx, eventID); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
		})

		return nil
	})
}

func (s *Service) Get(ctx context.Context, actor domain.ActingIdentity, eventID int64) (*domain.Evenement, error) {
	const op = "service.events.Get"

	ev, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("event"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !s.visible(ev, actor) {
		return nil, fmt.Errorf("%s:%w", op, domain.NotFound("event"))
	}

	return ev, nil
}

// List returns events matching the filter. Callers who do not operate the
// venue only see public published events.
func (s *Service) List(ctx context.Context, actor domain.ActingIdentity, f postgresrepo.EventFilter) ([]domain.Evenement, error) {
	const op = "service.events.List"

	if f.RestaurantID == 0 || !actor.Owns(f.RestaurantID) {
		f.PublicOnly = true
		f.Status = domain.EventPublished
	}

	out, err := s.store.Events().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) Publish(ctx context.Context, actor domain.ActingIdentity, eventID int64) (*domain.Evenement, error) {
	const op = "service.events.Publish"

	return s.transition(ctx, op, actor, eventID, func(ev *domain.Evenement) error {
		return ev.Publish(s.clk.Now())
	}, nil)
}

func (s *Service) Cancel(ctx context.Context, actor domain.ActingIdentity, eventID int64) (*domain.Evenement, error) {
	const op = "service.events.Cancel"

	return s.transition(ctx, op, actor, eventID, func(ev *domain.Evenement) error {
		return ev.CancelEvent(s.clk.Now())
	}, func(ctx context.Context, ev *domain.Evenement, registrants []int64) {
		s.notifyRegistrants(ctx, registrants,
			fmt.Sprintf("Événement annulé : %s", ev.Title),
			fmt.Sprintf("L'événement « %s » du %s a été annulé.", ev.Title, ev.Date.Format("2006-01-02")))
	})
}

func (s *Service) Close(ctx context.Context, actor domain.ActingIdentity, eventID int64) (*domain.Evenement, error) {
	const op = "service.events.Close"

	return s.transition(ctx, op, actor, eventID, func(ev *domain.Evenement) error {
		return ev.Close(s.clk.Now())
	}, func(ctx context.Context, ev *domain.Evenement, registrants []int64) {
		s.notifyRegistrants(ctx, registrants,
			fmt.Sprintf("Événement complet : %s", ev.Title),
			fmt.Sprintf("L'événement « %s » du %s est désormais complet.", ev.Title, ev.Date.Format("2006-01-02")))
	})
}

func (s *Service) Reopen(ctx context.Context, actor domain.ActingIdentity, eventID int64) (*domain.Evenement, error) {
	const op = "service.events.Reopen"

	return s.transition(ctx, op, actor, eventID, func(ev *domain.Evenement) error {
		ev.Reopen()
		return nil
	}, nil)
}

// Register signs the actor up for a published event. Private events require
// a valid invite addressed to the actor. Discovering an exhausted capacity
// closes the event even though the registration itself is rejected.
func (s *Service) Register(ctx context.Context, actor domain.ActingIdentity, eventID int64) error {
	const op = "service.events.Register"

	// A capacity-reached discovery must commit its FULL flip even though the
	// registration itself is rejected, so the rejection is carried out of the
	// transaction instead of aborting it.
	var admitRejection error

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Events().With(tx)

		ev, err := repo.GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("event"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if !ev.IsPublic && !actor.Owns(ev.RestaurantID) {
			ok, err := s.hasValidInvite(ctx, tx, actor, ev)
			if err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
			if !ok {
				return fmt.Errorf("%s:%w", op, domain.Forbidden("this event is invite-only"))
			}
		}

		count, err := repo.CountRegistrations(ctx, eventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		prev := ev.Status
		if admitErr := ev.AdmitRegistration(count, s.clk.Now()); admitErr != nil {
			if ev.Status != prev {
				if err := repo.Update(ctx, ev); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}

				after(func(ctx context.Context) {
					_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
					_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
				})
			}

			admitRejection = admitErr
			return nil
		}

		if _, err := repo.InsertRegistration(ctx, eventID, actor.UserID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, domain.Invalid("already registered"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		prev = ev.Status
		ev.SettleAfterRegistration(count+1, s.clk.Now())
		if ev.Status != prev {
			if err := repo.Update(ctx, ev); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
		})

		return nil
	})
	if err != nil {
		return err
	}

	if admitRejection != nil {
		return fmt.Errorf("%s:%w", op, admitRejection)
	}

	return nil
}

// Unregister removes the actor's registration. A full event always reopens:
// a seat just freed up.
func (s *Service) Unregister(ctx context.Context, actor domain.ActingIdentity, eventID int64) error {
	const op = "service.events.Unregister"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Events().With(tx)

		ev, err := repo.GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("event"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if err := repo.DeleteRegistration(ctx, eventID, actor.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("registration"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if ev.Status == domain.EventFull {
			ev.Reopen()
			if err := repo.Update(ctx, ev); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
		})

		return nil
	})
}

// RegistrationsView is what a caller may learn about an event's sign-ups.
// Only the venue operator sees the full list.
type RegistrationsView struct {
	Count      int                            `json:"count"`
	Registered bool                           `json:"registered"`
	All        []domain.EvenementRegistration `json:"registrations,omitempty"`
}

func (s *Service) Registrations(ctx context.Context, actor domain.ActingIdentity, eventID int64) (*RegistrationsView, error) {
	const op = "service.events.Registrations"

	ev, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("event"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	regs, err := s.store.Events().ListRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	view := &RegistrationsView{Count: len(regs)}
	for _, r := range regs {
		if r.UserID == actor.UserID {
			view.Registered = true
		}
	}
	if actor.Owns(ev.RestaurantID) {
		view.All = regs
	}

	return view, nil
}

func (s *Service) transition(
	ctx context.Context,
	op string,
	actor domain.ActingIdentity,
	eventID int64,
	apply func(*domain.Evenement) error,
	notifyFn func(ctx context.Context, ev *domain.Evenement, registrants []int64),
) (*domain.Evenement, error) {
	var out *domain.Evenement

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ev, err := s.loadOwned(ctx, tx, actor, eventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := apply(ev); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Events().With(tx).Update(ctx, ev); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		var registrants []int64
		if notifyFn != nil {
			regs, err := s.store.Events().With(tx).ListRegistrations(ctx, eventID)
			if err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
			for _, r := range regs {
				registrants = append(registrants, r.UserID)
			}
		}

		out = ev

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, ev.RestaurantID, ev.Date)
			_ = s.pubsub.PublishScheduleChanged(ctx, ev.RestaurantID, ev.Date)
			if notifyFn != nil {
				notifyFn(ctx, ev, registrants)
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// visible reports whether the actor may see the event at all. Hidden events
// are reported as not found rather than forbidden.
func (s *Service) visible(ev *domain.Evenement, actor domain.ActingIdentity) bool {
	if ev.IsPublic && ev.Status != domain.EventDraft {
		return true
	}

	return actor.Owns(ev.RestaurantID)
}

// loadOwned locks the event row and checks venue ownership.
func (s *Service) loadOwned(ctx context.Context, tx postgresrepo.DB, actor domain.ActingIdentity, eventID int64) (*domain.Evenement, error) {
	ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("event")
		}

		return nil, err
	}

	if !actor.Owns(ev.RestaurantID) {
		return nil, domain.Forbidden("only the venue operator can manage this event")
	}

	return ev, nil
}

// validate applies the editable-field rules shared by create and update.
func (s *Service) validate(ctx context.Context, tx postgresrepo.DB, ev *domain.Evenement, excludeID int64) error {
	if ev.Title == "" {
		return domain.Invalid("title is required")
	}

	if ev.End <= ev.Start {
		return domain.Invalid("end time must be after start time")
	}

	if ev.Capacity != nil && *ev.Capacity <= 0 {
		return domain.Invalid("capacity must be positive when set")
	}

	now := s.clk.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(ev.Date.Year(), ev.Date.Month(), ev.Date.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return domain.Invalid("date is in the past")
	}

	dir := s.store.Directory().With(tx)

	rest, err := dir.GetRestaurant(ctx, ev.RestaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("restaurant")
		}

		return err
	}

	if ev.RoomID != nil {
		room, err := dir.GetRoom(ctx, *ev.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFound("room")
			}

			return err
		}

		if room.RestaurantID != ev.RestaurantID {
			return domain.Invalid("room does not belong to this restaurant")
		}
	}

	if !rest.IsWithinOpeningHours(ev.Date, ev.Start, ev.End) {
		return domain.Invalid("event is outside opening hours")
	}

	if ev.IsBlocking {
		target := domain.WholeVenueTarget()
		if ev.RoomID != nil {
			target = domain.RoomTarget(*ev.RoomID)
		}

		req := domain.SlotRequest{
			RestaurantID: ev.RestaurantID,
			Target:       target,
			Date:         ev.Date,
			Start:        ev.Start,
			End:          ev.End,
		}

		others, err := s.store.Events().With(tx).ListBlockingForUpdate(ctx, ev.RestaurantID, ev.Date)
		if err != nil {
			return err
		}

		kept := others[:0]
		for i := range others {
			if others[i].ID != excludeID {
				kept = append(kept, others[i])
			}
		}

		if err := req.CheckBlockingEventConflict(kept); err != nil {
			return err
		}
	}

	return nil
}

// hasValidInvite reports whether a still-valid pending invite to this event
// addresses the actor. Settled invites do not grant entry again.
func (s *Service) hasValidInvite(ctx context.Context, tx postgresrepo.DB, actor domain.ActingIdentity, ev *domain.Evenement) (bool, error) {
	invites, err := s.store.Invites().With(tx).ListForUser(ctx, actor.UserID, actor.Email)
	if err != nil {
		return false, err
	}

	now := s.clk.Now()
	for i := range invites {
		inv := &invites[i]
		if inv.EventID != ev.ID {
			continue
		}
		if inv.IsValid(ev, now) {
			return true, nil
		}
	}

	return false, nil
}

func (s *Service) notifyRegistrants(ctx context.Context, userIDs []int64, subject, body string) {
	if s.notifier == nil || s.accounts == nil || len(userIDs) == 0 {
		return
	}

	emails, err := s.accounts.EmailsByUserIDs(ctx, userIDs)
	if err != nil || len(emails) == 0 {
		return
	}

	_ = s.notifier.Send(ctx, notify.Message{
		Subject:    subject,
		Body:       body,
		Recipients: emails,
	})
}
