// Package ratelimiter implements a token bucket limiter with pluggable
// storage and an HTTP middleware.
//
// A bucket holds up to Capacity tokens and gains RefillRate tokens every
// RefillInterval. Each request takes one token; a request that finds too
// few tokens is denied without consuming any. MemoryStore keeps buckets in
// process; RedisStore keeps them in Redis so that several replicas share
// one limit.
//
//	store := ratelimiter.NewRedisStore(client, "authsvc:rl:")
//	limiter, err := ratelimiter.NewBucket(store, cfg)
//	r.With(ratelimiter.Middleware(limiter, keyByIP)).Post("/auth/login", login)
package ratelimiter
