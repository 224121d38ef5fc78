package redisstore

import "time"

// Config describes how to reach Redis. It can be filled from the environment
// with caarlos0/env.
type Config struct {
	// ConnectionURL has the form "redis://:password@localhost:6379/0".
	ConnectionURL string `env:"USERSTACK_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Prefix        string `env:"USERSTACK_REDIS_PREFIX" envDefault:"userstack:"`
	// TTL expires stored tokens; zero keeps them until deleted.
	TTL            time.Duration `env:"USERSTACK_REDIS_TTL"`
	RetryAttempts  int           `env:"USERSTACK_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"USERSTACK_REDIS_RETRY_INTERVAL" envDefault:"1s"`
	ConnectTimeout time.Duration `env:"USERSTACK_REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}
