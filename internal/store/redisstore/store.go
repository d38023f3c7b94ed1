package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const captchaTTL = 10 * time.Minute

type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func captchaKey(email string) string { return "captcha:" + email }

func (s *Store) SetCaptcha(ctx context.Context, email, code string) error {
	return s.client.Set(ctx, captchaKey(email), code, captchaTTL).Err()
}

// GetCaptcha returns redis.Nil when the captcha expired or was never sent.
func (s *Store) GetCaptcha(ctx context.Context, email string) (string, error) {
	return s.client.Get(ctx, captchaKey(email)).Result()
}

func (s *Store) DeleteCaptcha(ctx context.Context, email string) error {
	return s.client.Del(ctx, captchaKey(email)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
