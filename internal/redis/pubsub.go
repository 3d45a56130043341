package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RestaurantsPubSub fans out schedule changes so every instance can drop its
// cached availability for the affected venue.
type RestaurantsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewRestaurantsPubSub(rdb *redis.Client) *RestaurantsPubSub {
	return &RestaurantsPubSub{
		rdb:     rdb,
		channel: ChannelRestaurantsChanged(),
	}
}

type restaurantChangedMsg struct {
	Type         string `json:"type"`
	RestaurantID int64  `json:"restaurant_id"`
	Date         string `json:"date,omitempty"`
	TsUnix       int64  `json:"ts_unix"`
}

func (p *RestaurantsPubSub) PublishScheduleChanged(ctx context.Context, restaurantID int64, date time.Time) error {
	msg := restaurantChangedMsg{
		Type:         "schedule_changed",
		RestaurantID: restaurantID,
		Date:         date.Format("2006-01-02"),
		TsUnix:       time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *RestaurantsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, restaurantID int64, date time.Time)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev restaurantChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil || ev.RestaurantID == 0 {
				continue
			}
			date, err := time.Parse("2006-01-02", ev.Date)
			if err != nil {
				continue
			}
			handler(ctx, ev.RestaurantID, date)
		}
	}
}
