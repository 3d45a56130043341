package invites

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

type Config struct {
	// BaseURL prefixes the accept link embedded in invite emails.
	BaseURL string
	TTL     time.Duration
}

// Service manages event invitations: issuing, acceptance, decline, revoke.
type Service struct {
	store    *postgresrepo.Store
	cache    *redisrepo.Cache
	pubsub   *redisx.RestaurantsPubSub
	uow      *uow.UoW
	clk      clock.Clock
	accounts identity.Provider
	notifier notify.Notifier
	cfg      Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.RestaurantsPubSub,
	clk clock.Clock,
	accounts identity.Provider,
	notifier notify.Notifier,
	cfg Config,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultInviteTTL
	}

	return &Service{
		store:    store,
		cache:    cache,
		pubsub:   pubsub,
		uow:      uow.NewUoW(store),
		clk:      clk,
		accounts: accounts,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Target addresses one invitee: exactly one of user ID, email or phone. A
// nil ExpiresAt falls back to the configured invite TTL.
type Target struct {
	UserID    *int64
	Email     *string
	Phone     *string
	ExpiresAt *time.Time
}

func (t Target) validate() error {
	n := 0
	if t.UserID != nil {
		n++
	}
	if t.Email != nil && *t.Email != "" {
		n++
	}
	if t.Phone != nil && *t.Phone != "" {
		n++
	}

	if n != 1 {
		return domain.Invalid("exactly one of user, email or phone must be given")
	}

	return nil
}

func (s *Service) Create(ctx context.Context, actor domain.ActingIdentity, eventID int64, target Target) (*domain.EventInvite, error) {
	const op = "service.invites.Create"

	out, err := s.CreateBulk(ctx, actor, eventID, []Target{target})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out[0], nil
}

// CreateBulk issues a batch of invites in one transaction. Invite emails go
// out after commit, best-effort.
func (s *Service) CreateBulk(ctx context.Context, actor domain.ActingIdentity, eventID int64, targets []Target) ([]domain.EventInvite, error) {
	const op = "service.invites.CreateBulk"

	if len(targets) == 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("no invitees given"))
	}

	for _, t := range targets {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	var created []domain.EventInvite

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ev, err := s.store.Events().With(tx).GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("event"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if !actor.Owns(ev.RestaurantID) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can invite"))
		}

		if ev.Status == domain.EventCancelled {
			return fmt.Errorf("%s:%w", op, domain.BadState("event is cancelled"))
		}

		now := s.clk.Now()
		if dl := ev.SupplierDeadline(); dl != nil && now.After(*dl) {
			return fmt.Errorf("%s:%w", op, domain.BadState("supplier confirmation deadline has passed"))
		}

		batch := make([]domain.EventInvite, 0, len(targets))
		for _, t := range targets {
			expires := now.Add(s.cfg.TTL)
			if t.ExpiresAt != nil {
				if !t.ExpiresAt.After(now) {
					return fmt.Errorf("%s:%w", op, domain.Invalid("expires_at is in the past"))
				}
				expires = *t.ExpiresAt
			}

			inv := domain.EventInvite{
				EventID:       eventID,
				InvitedUserID: t.UserID,
				Email:         t.Email,
				Phone:         t.Phone,
				Token:         domain.NewInviteToken(),
				Status:        domain.InvitePending,
				ExpiresAt:     &expires,
			}

			// An email invite to a known account gets the user reference
			// resolved up front.
			if inv.InvitedUserID == nil && inv.Email != nil {
				if uid, err := s.accounts.UserIDByEmail(ctx, *inv.Email); err == nil {
					inv.InvitedUserID = &uid
				}
			}

			batch = append(batch, inv)
		}

		if err := s.store.Invites().With(tx).InsertBatch(ctx, batch); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, domain.Invalid("duplicate invite"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		created = batch

		after(func(ctx context.Context) {
			for i := range batch {
				s.sendInviteEmail(ctx, ev, &batch[i])
			}
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Accept registers the invitee. The status guard of public registration is
// skipped: an invite admits even when sign-up is otherwise closed, as long
// as capacity allows. Acceptance binds the invite to the acting account and
// is idempotent with respect to an existing registration.
func (s *Service) Accept(ctx context.Context, actor domain.ActingIdentity, token string) error {
	const op = "service.invites.Accept"

	// As in public registration, a capacity-reached discovery commits its
	// FULL flip; the rejection is surfaced after the transaction.
	var admitRejection error

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		inv, err := s.store.Invites().With(tx).GetByTokenForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("invite"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if !inv.AddressedTo(actor) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("this invite is addressed to someone else"))
		}

		repo := s.store.Events().With(tx)

		ev, err := repo.GetForUpdate(ctx, inv.EventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		now := s.clk.Now()
		if !inv.IsValid(ev, now) {
			return fmt.Errorf("%s:%w", op, domain.BadState("invite is no longer valid"))
		}

		if ev.Status == domain.EventCancelled {
			return fmt.Errorf("%s:%w", op, domain.BadState("event is cancelled"))
		}

		count, err := repo.CountRegistrations(ctx, inv.EventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		prev := ev.Status
		if admitErr := ev.AdmitCapacity(count, now); admitErr != nil {
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

		registered := false
		if _, err := repo.InsertRegistration(ctx, inv.EventID, actor.UserID); err != nil {
			if !errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, err)
			}
		} else {
			registered = true
		}

		uid := actor.UserID
		inv.InvitedUserID = &uid
		inv.Status = domain.InviteAccepted
		if err := s.store.Invites().With(tx).Update(ctx, inv); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if registered {
			prev = ev.Status
			ev.SettleAfterRegistration(count+1, now)
			if ev.Status != prev {
				if err := repo.Update(ctx, ev); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}
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

func (s *Service) Decline(ctx context.Context, actor domain.ActingIdentity, token string) error {
	const op = "service.invites.Decline"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		inv, err := s.store.Invites().With(tx).GetByTokenForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("invite"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if !inv.AddressedTo(actor) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("this invite is addressed to someone else"))
		}

		if inv.Status != domain.InvitePending {
			return fmt.Errorf("%s:%w", op, domain.BadState("invite already settled"))
		}

		if err := s.store.Invites().With(tx).UpdateStatus(ctx, inv.ID, domain.InviteDeclined); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		return nil
	})
}

// Revoke withdraws a pending invite. Only the venue operator may revoke.
func (s *Service) Revoke(ctx context.Context, actor domain.ActingIdentity, inviteID int64) error {
	const op = "service.invites.Revoke"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		inv, err := s.store.Invites().With(tx).Get(ctx, inviteID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, domain.NotFound("invite"))
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		ev, err := s.store.Events().With(tx).Get(ctx, inv.EventID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if !actor.Owns(ev.RestaurantID) {
			return fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can revoke invites"))
		}

		if inv.Status != domain.InvitePending {
			return fmt.Errorf("%s:%w", op, domain.BadState("invite already settled"))
		}

		if err := s.store.Invites().With(tx).UpdateStatus(ctx, inv.ID, domain.InviteRevoked); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		return nil
	})
}

func (s *Service) ListByEvent(ctx context.Context, actor domain.ActingIdentity, eventID int64) ([]domain.EventInvite, error) {
	const op = "service.invites.ListByEvent"

	ev, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, domain.NotFound("event"))
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.Owns(ev.RestaurantID) {
		return nil, fmt.Errorf("%s:%w", op, domain.Forbidden("only the venue operator can list invites"))
	}

	out, err := s.store.Invites().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) ListMine(ctx context.Context, actor domain.ActingIdentity) ([]domain.EventInvite, error) {
	const op = "service.invites.ListMine"

	out, err := s.store.Invites().ListForUser(ctx, actor.UserID, actor.Email)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) sendInviteEmail(ctx context.Context, ev *domain.Evenement, inv *domain.EventInvite) {
	if s.notifier == nil {
		return
	}

	email := ""
	switch {
	case inv.Email != nil:
		email = *inv.Email
	case inv.InvitedUserID != nil && s.accounts != nil:
		if e, err := s.accounts.EmailByUserID(ctx, *inv.InvitedUserID); err == nil {
			email = e
		}
	}
	if email == "" {
		return
	}

	body := fmt.Sprintf(
		"Vous êtes invité à « %s » le %s (%s - %s).\n\nPour accepter : %s/api/v1/invites/%s/accept",
		ev.Title, ev.Date.Format("2006-01-02"), ev.Start, ev.End, s.cfg.BaseURL, inv.Token,
	)
	if dl := ev.SupplierDeadline(); dl != nil {
		body += fmt.Sprintf("\n\nRéponse attendue avant le %s.", dl.Format("2006-01-02 15:04"))
	}
	if inv.ExpiresAt != nil {
		body += fmt.Sprintf("\nInvitation valable jusqu'au %s.", inv.ExpiresAt.Format("2006-01-02"))
	}

	_ = s.notifier.Send(ctx, notify.Message{
		Subject:    fmt.Sprintf("Invitation : %s", ev.Title),
		Body:       body,
		Recipients: []string{email},
	})
}
