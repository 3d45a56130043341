package httpgin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vegnbio/restobook/internal/domain"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	"github.com/vegnbio/restobook/internal/service"
	"github.com/vegnbio/restobook/internal/service/events"
	"github.com/vegnbio/restobook/internal/service/invites"
)

// @Summary  List events
// @Param    restaurant_id  query  int     false  "Restaurant ID"
// @Param    status         query  string  false  "DRAFT|PUBLISHED|FULL|CANCELLED"
// @Param    type           query  string  false  "ANNIVERSAIRE|CONFERENCE|SEMINAIRE|ANIMATION|AUTRE"
// @Param    from           query  string  false  "Date (YYYY-MM-DD)"
// @Param    to             query  string  false  "Date (YYYY-MM-DD)"
// @Success  200  {array}  domain.Evenement
// @Router   /api/v1/events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := actorFrom(c)

		var f postgresrepo.EventFilter
		if s := c.Query("restaurant_id"); s != "" {
			id, err := parseQueryInt64(s)
			if err != nil {
				badRequest(c, "invalid restaurant_id")
				return
			}
			f.RestaurantID = id
		}
		f.Status = domain.EventStatus(c.Query("status"))
		f.Type = domain.EventType(c.Query("type"))
		if s := c.Query("from"); s != "" {
			d, err := parseDate(s)
			if err != nil {
				badRequest(c, "invalid from (YYYY-MM-DD)")
				return
			}
			f.From = &d
		}
		if s := c.Query("to"); s != "" {
			d, err := parseDate(s)
			if err != nil {
				badRequest(c, "invalid to (YYYY-MM-DD)")
				return
			}
			f.To = &d
		}

		out, err := svcs.Events.List(c.Request.Context(), actor, f)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.Evenement
// @Failure  404  {object}  ErrorResponse
// @Router   /api/v1/events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := actorFrom(c)
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Events.Get(c.Request.Context(), actor, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Create event
// @Param    req body  EventRequest true "payload"
// @Success  201 {object} domain.Evenement
// @Router   /api/v1/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		in, ok := bindEventInput(c)
		if !ok {
			return
		}
		out, err := svcs.Events.Create(c.Request.Context(), actor, in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Update event
// @Param    id  path  int  true  "Event ID"
// @Param    req body  EventRequest true "payload"
// @Success  200 {object} domain.Evenement
// @Router   /api/v1/events/{id} [put]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		in, ok := bindEventInput(c)
		if !ok {
			return
		}
		out, err := svcs.Events.Update(c.Request.Context(), actor, id, in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Delete event
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Router   /api/v1/events/{id} [delete]
func handleDeleteEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Events.Delete(c.Request.Context(), actor, id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Event lifecycle transition
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.Evenement
// @Failure  409 {object} ErrorResponse
// @Router   /api/v1/events/{id}/publish [post]
func handleEventTransition(svcs *service.Services, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var (
			out *domain.Evenement
			err error
		)
		switch action {
		case "publish":
			out, err = svcs.Events.Publish(c.Request.Context(), actor, id)
		case "cancel":
			out, err = svcs.Events.Cancel(c.Request.Context(), actor, id)
		case "close":
			out, err = svcs.Events.Close(c.Request.Context(), actor, id)
		case "reopen":
			out, err = svcs.Events.Reopen(c.Request.Context(), actor, id)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Register for event
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  409 {object} ErrorResponse "event full or closed"
// @Router   /api/v1/events/{id}/register [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Events.Register(c.Request.Context(), actor, id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Unregister from event
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Router   /api/v1/events/{id}/unregister [post]
func handleUnregister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Events.Unregister(c.Request.Context(), actor, id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Event registrations
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} events.RegistrationsView
// @Router   /api/v1/events/{id}/registrations [get]
func handleRegistrations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Events.Registrations(c.Request.Context(), actor, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Invite to event
// @Param    id  path  int  true  "Event ID"
// @Param    req body  BulkInviteRequest true "payload"
// @Success  201 {array} domain.EventInvite
// @Router   /api/v1/events/{id}/invites [post]
func handleCreateInvites(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req BulkInviteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		targets := make([]invites.Target, 0, len(req.Invitees))
		for _, t := range req.Invitees {
			targets = append(targets, invites.Target{
				UserID:    t.UserID,
				Email:     t.Email,
				Phone:     t.Phone,
				ExpiresAt: t.ExpiresAt,
			})
		}
		out, err := svcs.Invites.CreateBulk(c.Request.Context(), actor, id, targets)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  List event invites
// @Param    id  path  int  true  "Event ID"
// @Success  200 {array} domain.EventInvite
// @Router   /api/v1/events/{id}/invites [get]
func handleListEventInvites(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Invites.ListByEvent(c.Request.Context(), actor, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Revoke invite
// @Param    id        path  int  true  "Event ID"
// @Param    inviteID  path  int  true  "Invite ID"
// @Success  204
// @Router   /api/v1/events/{id}/invites/{inviteID} [delete]
func handleRevokeInvite(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		inviteID, ok := parseInt64Param(c, "inviteID")
		if !ok {
			return
		}
		if err := svcs.Invites.Revoke(c.Request.Context(), actor, inviteID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  My invites
// @Success  200 {array} domain.EventInvite
// @Router   /api/v1/me/invites [get]
func handleMyInvites(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		out, err := svcs.Invites.ListMine(c.Request.Context(), actor)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Accept invite
// @Param    token  path  string  true  "Invite token"
// @Success  204
// @Failure  409 {object} ErrorResponse "invite expired or event full"
// @Router   /api/v1/invites/{token}/accept [post]
func handleAcceptInvite(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		if err := svcs.Invites.Accept(c.Request.Context(), actor, c.Param("token")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Decline invite
// @Param    token  path  string  true  "Invite token"
// @Success  204
// @Router   /api/v1/invites/{token}/decline [post]
func handleDeclineInvite(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		if err := svcs.Invites.Decline(c.Request.Context(), actor, c.Param("token")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func bindEventInput(c *gin.Context) (events.Input, bool) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return events.Input{}, false
	}

	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(c, "invalid date (YYYY-MM-DD)")
		return events.Input{}, false
	}

	typ := domain.EventType(req.Type)
	if typ == "" {
		typ = domain.EventAutre
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	return events.Input{
		RestaurantID: req.RestaurantID,
		RoomID:       req.RoomID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         typ,
		Date:         date,
		Start:        *req.StartTime,
		End:          *req.EndTime,
		Capacity:     req.Capacity,
		IsPublic:     isPublic,
		IsBlocking:   req.IsBlocking,
		RRule:        req.RRule,

		RequiresSupplierConfirmation: req.RequiresSupplierConfirmation,
		SupplierDeadlineDays:         req.SupplierDeadlineDays,
	}, true
}

func parseQueryInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
