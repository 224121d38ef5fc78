package redisstore

import "errors"

var (
	ErrFailedToParseConnString = errors.New("redisstore: failed to parse redis connection string")
	ErrNotReady                = errors.New("redisstore: redis did not become ready within the given time period")
	ErrEmptyConnectionURL      = errors.New("redisstore: empty redis connection URL")
	ErrHealthcheckFailed       = errors.New("redisstore: redis healthcheck failed")
)
