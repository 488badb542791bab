package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/livesale/livesale-api/internal/domain/wallet"
)

// eventsChannel carries committed wallet transactions to every API instance.
const eventsChannel = "wallet:events"

// Publisher pushes wallet transaction events to Redis Pub/Sub. Delivery is
// best-effort: a publish failure is logged, never surfaced to the operation
// that already committed.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{redis: client}
}

func (p *Publisher) PublishTransaction(ctx context.Context, event wallet.TransactionEvent) {
	if p == nil || p.redis == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal wallet event")
		return
	}

	if err := p.redis.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		log.Error().Err(err).Str("transaction_code", event.TransactionCode).Msg("Failed to publish wallet event")
	}
}
