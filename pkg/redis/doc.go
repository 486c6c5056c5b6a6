// Package redis connects to Redis with retries and exposes a readiness
// probe. Redis is optional: the OAuth state store and the rate limiter use
// it when REDIS_URL is set and fall back to in-process stores otherwise.
//
//	cfg := config.MustLoad[redis.Config]()
//	if cfg.Enabled() {
//	    client, err := redis.Connect(ctx, cfg)
//	    ...
//	}
package redis
