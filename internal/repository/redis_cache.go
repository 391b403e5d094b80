package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const receiptByPaymentKeyPrefix = "receipt:payment:"

var ErrCacheMiss = errors.New("cache miss")

// RedisCacheRepository is a JSON cache over Redis with OTel tracing
type RedisCacheRepository struct {
	client *redis.Client
}

// NewRedisCacheRepository creates a new Redis cache repository
func NewRedisCacheRepository(client *redis.Client) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
	}
}

// Get retrieves a value from cache by key with OTel tracing
func (r *RedisCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	tracer := otel.Tracer("redis")
	ctx, span := tracer.Start(ctx, "redis.Get",
		trace.WithAttributes(attribute.String("cache.key", key)),
	)
	defer span.End()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			span.SetAttributes(attribute.String("cache.result", "miss"))
			return ErrCacheMiss
		}
		span.RecordError(err)
		return fmt.Errorf("redis get error: %w", err)
	}

	span.SetAttributes(attribute.String("cache.result", "hit"))
	if err := json.Unmarshal(data, dest); err != nil {
		span.RecordError(err)
		return fmt.Errorf("unmarshal error: %w", err)
	}

	return nil
}

// Set stores a value in cache with TTL and OTel tracing
func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	tracer := otel.Tracer("redis")
	ctx, span := tracer.Start(ctx, "redis.Set",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_seconds", int64(ttl.Seconds())),
		),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// GetDisplayReceipt returns ErrCacheMiss when the projection is not cached.
func (r *RedisCacheRepository) GetDisplayReceipt(ctx context.Context, paymentID int64) (*domain.DisplayReceipt, error) {
	var receipt domain.DisplayReceipt
	if err := r.Get(ctx, receiptKey(paymentID), &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// SetDisplayReceipt caches a receipt projection. Receipts never change, so the TTL only
// bounds memory use.
func (r *RedisCacheRepository) SetDisplayReceipt(ctx context.Context, receipt *domain.DisplayReceipt, ttl time.Duration) error {
	return r.Set(ctx, receiptKey(receipt.PaymentID), receipt, ttl)
}

func receiptKey(paymentID int64) string {
	return fmt.Sprintf("%s%d", receiptByPaymentKeyPrefix, paymentID)
}
