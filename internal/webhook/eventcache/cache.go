package eventcache

import (
	"context"
	"strings"
	"time"

	"github.com/annpale/payments/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyProcessedEvent = "webhook:processed:"
	processedTTL      = 24 * time.Hour
)

// Cache keeps a short-lived record of processed provider event ids so
// redeliveries can be acknowledged without touching the reconcilers. It is
// best effort; the database unique constraints remain the backstop, so every
// cache failure degrades to "not seen".
type Cache struct {
	client *redis.Client
	log    *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Cache {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return &Cache{
		client: client,
		log:    log.Named("webhook.eventcache"),
	}
}

// Seen reports whether the event id was already marked processed.
func (c *Cache) Seen(ctx context.Context, eventID string) bool {
	if c == nil || c.client == nil || eventID == "" {
		return false
	}
	exists, err := c.client.Exists(ctx, keyProcessedEvent+eventID).Result()
	if err != nil {
		c.log.Warn("processed event lookup failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return false
	}
	return exists > 0
}

// MarkProcessed records the event id after its reconciler ran.
func (c *Cache) MarkProcessed(ctx context.Context, eventID string) {
	if c == nil || c.client == nil || eventID == "" {
		return
	}
	if err := c.client.SetNX(ctx, keyProcessedEvent+eventID, 1, processedTTL).Err(); err != nil {
		c.log.Warn("processed event mark failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}
