// invalidate_cache deletes cached entries matching a glob pattern, for use
// after vendor data corrections when waiting out the TTL is not acceptable.
//
//	go run ./cmd/tools/invalidate_cache -pattern 'product:SKU0*'
//
// Redis connection settings come from the same environment variables the
// service reads (REDIS_HOST, REDIS_PORT, REDIS_DB, REDIS_PASSWORD).
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"skuscan/internal/config"
)

func main() {
	var (
		pattern string
		dryRun  bool
	)
	flag.StringVar(&pattern, "pattern", "", "glob pattern of keys to delete, e.g. 'product:*'")
	flag.BoolVar(&dryRun, "dry-run", false, "list matching keys without deleting them")
	flag.Parse()

	if pattern == "" {
		log.Fatal("[invalidate_cache] -pattern is required")
	}

	cfg := config.FromEnv()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("[invalidate_cache] redis unreachable at %s: %v", cfg.RedisAddr(), err)
	}

	started := time.Now()
	deleted := 0
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if dryRun {
			log.Printf("[invalidate_cache] would delete %s", iter.Val())
			deleted++
			continue
		}
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Fatalf("[invalidate_cache] delete %s failed: %v", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		log.Fatalf("[invalidate_cache] scan failed: %v", err)
	}

	verb := "deleted"
	if dryRun {
		verb = "matched"
	}
	log.Printf("[invalidate_cache] %s %d key(s) for pattern %q in %s",
		verb, deleted, pattern, time.Since(started).Truncate(time.Millisecond))
}
