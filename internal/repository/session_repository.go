package repository

import (
	"context"
	"errors"
	"time"

	"referral-purchase-service/internal/model"

	"github.com/redis/go-redis/v9"
)

var ErrSessionExpired = errors.New("la sesión ya está vencida")

const (
	sessionKeyPrefix = "sesion:"
	revokedChannel   = "sesiones:cerradas"
)

// RedisSessionRepository guarda las sesiones activas y avisa de los cierres a
// todas las conexiones por pub/sub.
type RedisSessionRepository struct {
	rdb *redis.Client
}

func NewRedisSessionRepository(rdb *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb}
}

func (r *RedisSessionRepository) Save(ctx context.Context, s *model.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}
	return r.rdb.Set(ctx, sessionKeyPrefix+s.ID, s.UserID, ttl).Err()
}

func (r *RedisSessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return err
	}
	return r.rdb.Publish(ctx, revokedChannel, id).Err()
}

// Revocations entrega los ids de sesión cerrados hasta que se llame a stop.
func (r *RedisSessionRepository) Revocations(ctx context.Context) (<-chan string, func()) {
	sub := r.rdb.Subscribe(ctx, revokedChannel)
	out := make(chan string, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			out <- msg.Payload
		}
	}()
	return out, func() { _ = sub.Close() }
}
