// Package redisstore provides a userstack.Storage backed by Redis, for
// services that keep one session per tenant or need the session token shared
// between processes.
//
//	rdb, err := redisstore.Connect(ctx, redisstore.Config{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	storage := redisstore.New(rdb, redisstore.WithPrefix("tenant-42:"))
//	client, _ := userstack.New(projectKey, userstack.WithStorage(storage))
//
// Keys are namespaced with a prefix ("userstack:" by default), so the token
// for a client lives under "userstack:us-jwt".
package redisstore
