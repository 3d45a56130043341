package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vegnbio/restobook/internal/domain"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
	"github.com/vegnbio/restobook/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	// Venue directory
	v1.GET("/restaurants", handleListRestaurants(svcs))
	v1.GET("/restaurants/:id", handleGetRestaurant(svcs))
	v1.POST("/restaurants", handleCreateRestaurant(svcs))
	v1.PUT("/restaurants/:id", handleUpdateRestaurant(svcs))

	v1.GET("/restaurants/:id/rooms", handleListRooms(svcs))
	v1.POST("/restaurants/:id/rooms", handleCreateRoom(svcs))
	v1.PUT("/rooms/:id", handleUpdateRoom(svcs))
	v1.DELETE("/rooms/:id", handleDeleteRoom(svcs))

	v1.GET("/restaurants/:id/closures", handleListClosures(svcs))
	v1.POST("/restaurants/:id/closures", handleCreateClosure(svcs))
	v1.DELETE("/closures/:id", handleDeleteClosure(svcs))

	// Read side
	v1.GET("/restaurants/:id/availability", handleAvailability(svcs))
	v1.GET("/restaurants/:id/stats", handleStats(svcs))

	// Reservations
	v1.POST("/restaurants/:id/reservations", handleCreateReservation(svcs, idem))
	v1.GET("/restaurants/:id/reservations", handleListRestaurantReservations(svcs))
	v1.GET("/me/reservations", handleMyReservations(svcs))
	v1.GET("/reservations/:id", handleGetReservation(svcs))
	v1.PUT("/reservations/:id", handleUpdateReservation(svcs))
	v1.POST("/reservations/:id/assign", handleAssignReservation(svcs))
	v1.POST("/reservations/:id/moderate", handleModerateReservation(svcs))
	v1.POST("/reservations/:id/cancel", handleCancelReservation(svcs))

	// Events
	v1.GET("/events", handleListEvents(svcs))
	v1.GET("/events/:id", handleGetEvent(svcs))
	v1.POST("/events", handleCreateEvent(svcs))
	v1.PUT("/events/:id", handleUpdateEvent(svcs))
	v1.DELETE("/events/:id", handleDeleteEvent(svcs))
	v1.POST("/events/:id/publish", handleEventTransition(svcs, "publish"))
	v1.POST("/events/:id/cancel", handleEventTransition(svcs, "cancel"))
	v1.POST("/events/:id/close", handleEventTransition(svcs, "close"))
	v1.POST("/events/:id/reopen", handleEventTransition(svcs, "reopen"))
	v1.POST("/events/:id/register", handleRegister(svcs))
	v1.POST("/events/:id/unregister", handleUnregister(svcs))
	v1.GET("/events/:id/registrations", handleRegistrations(svcs))

	// Invitations
	v1.POST("/events/:id/invites", handleCreateInvites(svcs))
	v1.GET("/events/:id/invites", handleListEventInvites(svcs))
	v1.DELETE("/events/:id/invites/:inviteID", handleRevokeInvite(svcs))
	v1.GET("/me/invites", handleMyInvites(svcs))
	v1.POST("/invites/:token/accept", handleAcceptInvite(svcs))
	v1.POST("/invites/:token/decline", handleDeclineInvite(svcs))

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		ve *domain.ValidationError
		pe *domain.PermissionError
		ne *domain.NotFoundError
		se *domain.StateError
	)

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Reason})
	case errors.As(err, &pe):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: pe.Reason})
	case errors.As(err, &ne):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ne.Error()})
	case errors.As(err, &se):
		c.JSON(http.StatusConflict, ErrorResponse{Error: se.Reason})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
