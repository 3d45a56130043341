package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vegnbio/restobook/internal/domain"
	"github.com/vegnbio/restobook/internal/service"
)

// @Summary  List restaurants
// @Success  200  {array}  domain.Restaurant
// @Router   /api/v1/restaurants [get]
func handleListRestaurants(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Directory.ListRestaurants(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get restaurant
// @Param    id  path  int  true  "Restaurant ID"
// @Success  200  {object}  domain.Restaurant
// @Failure  404  {object}  ErrorResponse
// @Router   /api/v1/restaurants/{id} [get]
func handleGetRestaurant(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Directory.GetRestaurant(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Create restaurant
// @Param    req body  RestaurantRequest true "payload"
// @Success  201 {object} domain.Restaurant
// @Failure  400 {object} ErrorResponse
// @Router   /api/v1/restaurants [post]
func handleCreateRestaurant(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		var req RestaurantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Directory.CreateRestaurant(c.Request.Context(), actor, restaurantFromRequest(0, req))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Update restaurant
// @Param    id  path  int  true  "Restaurant ID"
// @Param    req body  RestaurantRequest true "payload"
// @Success  200 {object} domain.Restaurant
// @Router   /api/v1/restaurants/{id} [put]
func handleUpdateRestaurant(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req RestaurantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Directory.UpdateRestaurant(c.Request.Context(), actor, restaurantFromRequest(id, req))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List rooms
// @Param    id  path  int  true  "Restaurant ID"
// @Success  200  {array}  domain.Room
// @Router   /api/v1/restaurants/{id}/rooms [get]
func handleListRooms(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Directory.ListRooms(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Create room
// @Param    id  path  int  true  "Restaurant ID"
// @Param    req body  RoomRequest true "payload"
// @Success  201 {object} domain.Room
// @Router   /api/v1/restaurants/{id}/rooms [post]
func handleCreateRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req RoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Directory.CreateRoom(c.Request.Context(), actor, &domain.Room{
			RestaurantID: id,
			Name:         req.Name,
			Capacity:     req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Update room
// @Param    id  path  int  true  "Room ID"
// @Param    req body  RoomRequest true "payload"
// @Success  200 {object} domain.Room
// @Router   /api/v1/rooms/{id} [put]
func handleUpdateRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req RoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Directory.UpdateRoom(c.Request.Context(), actor, &domain.Room{
			ID:       id,
			Name:     req.Name,
			Capacity: req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Delete room
// @Param    id  path  int  true  "Room ID"
// @Success  204
// @Router   /api/v1/rooms/{id} [delete]
func handleDeleteRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Directory.DeleteRoom(c.Request.Context(), actor, id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List closures
// @Param    id  path  int  true  "Restaurant ID"
// @Success  200  {array}  domain.RestaurantClosure
// @Router   /api/v1/restaurants/{id}/closures [get]
func handleListClosures(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Directory.ListClosures(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Declare closure
// @Param    id  path  int  true  "Restaurant ID"
// @Param    req body  ClosureRequest true "payload"
// @Success  201 {object} domain.RestaurantClosure
// @Router   /api/v1/restaurants/{id}/closures [post]
func handleCreateClosure(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ClosureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "invalid date (YYYY-MM-DD)")
			return
		}
		out, err := svcs.Directory.CreateClosure(c.Request.Context(), actor, &domain.RestaurantClosure{
			RestaurantID: id,
			Date:         date,
			Reason:       req.Reason,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Delete closure
// @Param    id  path  int  true  "Closure ID"
// @Success  204
// @Router   /api/v1/closures/{id} [delete]
func handleDeleteClosure(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Directory.DeleteClosure(c.Request.Context(), actor, id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Availability dashboard
// @Param    id    path   int     true  "Restaurant ID"
// @Param    date  query  string  true  "Date (YYYY-MM-DD)"
// @Success  200  {object}  domain.AvailabilityDashboard
// @Router   /api/v1/restaurants/{id}/availability [get]
func handleAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		date, err := parseDate(c.Query("date"))
		if err != nil {
			badRequest(c, "invalid date (YYYY-MM-DD)")
			return
		}
		out, err := svcs.Query.Availability(c.Request.Context(), id, date)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Reservation stats
// @Param    id  path  int  true  "Restaurant ID"
// @Success  200  {object}  domain.RestaurantStats
// @Router   /api/v1/restaurants/{id}/stats [get]
func handleStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustIdentity(c)
		if !ok {
			return
		}
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Query.Stats(c.Request.Context(), actor, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func restaurantFromRequest(id int64, req RestaurantRequest) *domain.Restaurant {
	return &domain.Restaurant{
		ID:         id,
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Capacity:   req.Capacity,
		Amenities:  req.Amenities,
		Hours:      req.Hours,
	}
}
