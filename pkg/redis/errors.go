package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("redis.invalid_url")
	ErrEmptyConnectionURL           = errors.New("redis.empty_url")
	ErrRedisNotReady                = errors.New("redis.not_ready")
	ErrHealthcheckFailed            = errors.New("redis.healthcheck_failed")
	ErrClosed                       = errors.New("redis.closed")
)
