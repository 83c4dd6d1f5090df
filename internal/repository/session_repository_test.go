package repository

import (
	"context"
	"testing"
	"time"

	"referral-purchase-service/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisSessionRepository_SaveExpired(t *testing.T) {
	// el cliente nunca llega a conectarse
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	repo := NewRedisSessionRepository(rdb)

	err := repo.Save(context.Background(), &model.Session{ID: "s1", ExpiresAt: time.Now().Add(-time.Second)})

	assert.ErrorIs(t, err, ErrSessionExpired)
}
