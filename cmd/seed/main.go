// Command seed fills the fleet with random sample cars.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/service"
	"carrental/internal/storage"
)

func main() {
	count := flag.Int("count", 100, "number of cars to insert")
	flag.Parse()

	godotenv.Load()
	cfg, err := config.LoadConfig("config")
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("seed: %v", err)
	}
	appLog := logger.New("seed", cfg.Log.Level)
	defer appLog.Sync()

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database.URL, appLog)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	defer conn.Close()

	// Sharing the server's Redis lets running servers drop their cached fleet lists.
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.URL != "" {
		if rs, err := cache.NewRedisStore(ctx, cfg.Redis.URL); err == nil {
			defer rs.Close()
			store = rs
		}
	}

	cars := service.NewCarService(
		repository.NewCarRepository(conn),
		storage.Disabled{},
		storage.NewProber(),
		cache.NewQueryCache(store, cfg.Cache.TTL, appLog),
		appLog,
	)
	inserted, err := cars.Seed(ctx, *count)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("inserted %d cars", len(inserted))
}
