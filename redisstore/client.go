package redisstore

import (
	"context"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
)

// NewClient connects to redis and pings it.
func NewClient(ctx context.Context, cnf Config, logger logging.Logger) (*redis.Client, error) {
	timeout := time.Duration(cnf.DialTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cnf.Addr(),
		Password:    cnf.Password,
		DB:          cnf.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeExternal, "redis connection failed").
			WithDetail("addr", cnf.Addr()).
			WithDetail("db", cnf.DB)
	}
	logger.Info(fmt.Sprintf("redis connected: %s (%s)", pong, redisConfigLogFields(cnf)))
	return client, nil
}

func redisConfigLogFields(cnf Config) string {
	return fmt.Sprintf("addr=%s db=%d password=%s", cnf.Addr(), cnf.DB, redactedPassword(cnf.Password))
}

func redactedPassword(password string) string {
	if password == "" {
		return "<empty>"
	}
	return "[REDACTED]"
}
