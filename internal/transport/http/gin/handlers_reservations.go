package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vegnbio/restobook/internal/domain"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
	"github.com/vegnbio/restobook/internal/service"
	"github.com/vegnbio/restobook/internal/service/scheduler"
)

// @Summary  Create reservation (idempotent)
// @Param    id  path  int  true  "Restaurant ID"
// @Param    req body  CreateReservationRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Reservation
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /api/v1/restaurants/{id}/reservations [post]
func handleCreateReservation(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		restaurantID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		target, err := req.target()
		if err != nil {
			respondErr(c, err)
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "invalid date (YYYY-MM-DD)")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(restaurantID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		res, err := svcs.Scheduler.Create(c.Request.Context(), actor, scheduler.CreateInput{
			RestaurantID:  restaurantID,
			CustomerEmail: req.CustomerEmail,
			Target:        target,
			PartySize:     req.PartySize,
			Date:          date,
			Start:         *req.StartTime,
			End:           *req.EndTime,
		}, rlKey)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(res)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, res)
	}
}

// @Summary  List a restaurant's reservations
// @Param    id      path   int     true   "Restaurant ID"
// @Param    date    query  string  false  "Date (YYYY-MM-DD)"
// @Param    status  query  string  false  "PENDING|CONFIRMED|CANCELLED"
// @Success  200  {array}  domain.Reservation
// @Router   /api/v1/restaurants/{id}/reservations [get]
func handleListRestaurantReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		restaurantID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var date *time.Time
		if s := c.Query("date"); s != "" {
			d, err := parseDate(s)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			date = &d
		}

		out, err := svcs.Scheduler.ListByRestaurant(c.Request.Context(), actor, restaurantID, date)
		if err != nil {
			respondErr(c, err)
			return
		}

		if status := c.Query("status"); status != "" {
			filtered := out[:0]
			for _, r := range out {
				if string(r.Status) == status {
					filtered = append(filtered, r)
				}
			}
			out = filtered
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  My reservations
// @Success  200  {array}  domain.Reservation
// @Router   /api/v1/me/reservations [get]
func handleMyReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		out, err := svcs.Scheduler.ListMine(c.Request.Context(), actor)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Router   /api/v1/reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Scheduler.Get(c.Request.Context(), actor, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Update reservation slot
// @Param    id  path  int  true  "Reservation ID"
// @Param    req body  UpdateReservationRequest true "payload"
// @Success  200 {object} domain.Reservation
// @Router   /api/v1/reservations/{id} [put]
func handleUpdateReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		target, err := req.target()
		if err != nil {
			respondErr(c, err)
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "invalid date (YYYY-MM-DD)")
			return
		}
		out, err := svcs.Scheduler.Update(c.Request.Context(), actor, id, scheduler.UpdateInput{
			Target:    target,
			PartySize: req.PartySize,
			Date:      date,
			Start:     *req.StartTime,
			End:       *req.EndTime,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Assign reservation target
// @Param    id  path  int  true  "Reservation ID"
// @Param    req body  AssignRequest true "payload"
// @Success  200 {object} domain.Reservation
// @Router   /api/v1/reservations/{id}/assign [post]
func handleAssignReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		target, err := req.target()
		if err != nil {
			respondErr(c, err)
			return
		}
		out, err := svcs.Scheduler.Assign(c.Request.Context(), actor, id, target)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Moderate reservation
// @Param    id  path  int  true  "Reservation ID"
// @Param    req body  ModerateRequest true "payload"
// @Success  200 {object} domain.Reservation
// @Router   /api/v1/reservations/{id}/moderate [post]
func handleModerateReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ModerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Scheduler.Moderate(c.Request.Context(), actor, id, domain.ReservationStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Cancel reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  204
// @Router   /api/v1/reservations/{id}/cancel [post]
func handleCancelReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Scheduler.Cancel(c.Request.Context(), actor, id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
