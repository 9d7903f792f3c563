package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/picsync/picsync"
)

const ChannelAll = "picsync:all"

// ChannelImage is the pub/sub channel carrying events for one image.
func ChannelImage(imageID string) string {
	return "picsync:image:" + imageID
}

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

// Publish fans the event out to the global channel and the channel of
// the affected image.
func (s *SignalService) Publish(ctx context.Context, event picsync.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channels := []string{ChannelAll, ChannelImage(event.Item.ImageID)}
	for _, channel := range channels {
		err = s.rdb.Publish(ctx, channel, jsonstr).Err()
		if err != nil {
			return err
		}
	}

	return nil
}

// Realtime bridges one websocket session to redis pub/sub. Channel
// lists arriving on input replace the current subscription set; decoded
// events are forwarded to output. Returns when ctx is done or input is
// closed.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- picsync.Event) {

	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var current []string

	for {
		select {
		case <-ctx.Done():
			return
		case channels, ok := <-input:
			if !ok {
				return
			}
			if len(current) > 0 {
				err := pubsub.Unsubscribe(ctx, current...)
				if err != nil {
					slog.ErrorContext(
						ctx, "Error unsubscribing channels",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
			if len(channels) > 0 {
				err := pubsub.Subscribe(ctx, channels...)
				if err != nil {
					slog.ErrorContext(
						ctx, "Error subscribing channels",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
					continue
				}
			}
			current = channels
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event picsync.Event
			err := json.Unmarshal([]byte(msg.Payload), &event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error decoding event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
