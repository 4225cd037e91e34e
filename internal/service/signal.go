package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

const DefaultScoreChannel = "scorer:scores"

// SignalService broadcasts score updates over redis pub/sub.
type SignalService struct {
	rdb     *redis.Client
	channel string
}

func NewSignalService(redisClient *redis.Client, channel string) *SignalService {
	if channel == "" {
		channel = DefaultScoreChannel
	}
	return &SignalService{
		rdb:     redisClient,
		channel: channel,
	}
}

func (s *SignalService) PublishScore(ctx context.Context, event domain.ScoreEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.rdb.Publish(ctx, s.channel, jsonstr).Err()
}

var _ usecase.EventPublisher = (*SignalService)(nil)

// Realtime relays published score events for the addresses most recently sent
// on input. It returns when ctx is done or input is closed.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.ScoreEvent) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	watching := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return
		case addresses, ok := <-input:
			if !ok {
				return
			}
			watching = make(map[string]bool, len(addresses))
			for _, address := range addresses {
				watching[scorer.NormalizeAddress(address)] = true
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.ScoreEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(ctx, "undecodable score event", slog.String("error", err.Error()), slog.String("module", "signal"))
				continue
			}
			if !watching[event.Address] {
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
