// Package publish announces newly stored offers to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

const (
	DefaultStream    = "faw:offers"
	defaultMaxLength = 10000
	offerField       = "offer"
)

// Publisher receives offers that were saved for the first time.
type Publisher interface {
	Publish(ctx context.Context, offers []models.StoredOffer) (int, error)
	Close() error
}

// RedisPublisher appends each offer as JSON to a Redis stream.
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
	log       zerolog.Logger
}

// NewRedisPublisher connects to rawURL (redis://...) and verifies it.
func NewRedisPublisher(ctx context.Context, rawURL, stream string, log zerolog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{
		client:    client,
		stream:    stream,
		maxLength: defaultMaxLength,
		log:       log.With().Str("component", "publisher").Str("stream", stream).Logger(),
	}, nil
}

// Publish adds one stream entry per offer, stopping at the first failure.
// It returns how many entries were written.
func (p *RedisPublisher) Publish(ctx context.Context, offers []models.StoredOffer) (int, error) {
	published := 0
	for _, offer := range offers {
		payload, err := json.Marshal(offer)
		if err != nil {
			return published, fmt.Errorf("encode %s: %w", offer.OfferID, err)
		}
		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLength,
			Approx: true,
			Values: map[string]interface{}{
				"offer_id":  offer.OfferID,
				offerField: string(payload),
			},
		}).Err()
		if err != nil {
			return published, fmt.Errorf("xadd %s: %w", offer.OfferID, err)
		}
		published++
	}
	p.log.Debug().Int("published", published).Msg("offers announced")
	return published, nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Nop discards everything. It stands in when no Redis is configured.
type Nop struct{}

func (Nop) Publish(_ context.Context, offers []models.StoredOffer) (int, error) {
	return 0, nil
}

func (Nop) Close() error { return nil }
