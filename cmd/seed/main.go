// Command seed fills the local cache with demo data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"bookdot/internal/config"
	"bookdot/internal/dao"
	"bookdot/internal/database"
	"bookdot/internal/observability"
	"bookdot/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 0, "Number of random users to add after the demo set")
	numPosts := flag.Int("posts", 0, "Number of random posts to spread across those users")
	comments := flag.Int("comments", 3, "Maximum random comments per generated post")
	fakeSeed := flag.Int64("fake-seed", time.Now().UnixNano(), "Seed for generated content")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	store, err := database.OpenLocal(cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	daos := dao.New(store)

	wrote, err := seed.NewPopulator(daos).Populate(ctx)
	if err != nil {
		log.Fatalf("Demo data seeding failed: %v", err)
	}
	log.Printf("Demo data written: %v (%s)", wrote, cfg.LocalDBPath)

	if *numUsers > 0 {
		res, err := seed.NewFactory(daos, seed.Options{
			NumUsers:        *numUsers,
			NumPosts:        *numPosts,
			CommentsPerPost: *comments,
		}, *fakeSeed).Generate(ctx)
		if err != nil {
			log.Fatalf("Random data seeding failed: %v", err)
		}
		log.Printf("Generated %d users, %d posts, %d comments", len(res.Users), len(res.Posts), len(res.Comments))
	}
}
