package redisx

import (
	"fmt"
	"time"
)

const ns = "restobook:v1"

func KeyRestaurantSummary(restaurantID int64) string {
	return fmt.Sprintf("%s:restaurant:%d:summary", ns, restaurantID)
}

func KeyAvailability(restaurantID int64, date time.Time) string {
	return fmt.Sprintf("%s:restaurant:%d:availability:%s", ns, restaurantID, date.Format("2006-01-02"))
}

func KeyRestaurantStats(restaurantID int64) string {
	return fmt.Sprintf("%s:restaurant:%d:stats", ns, restaurantID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelRestaurantsChanged() string {
	return ns + ":restaurants:changed"
}
