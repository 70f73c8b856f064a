// Command main runs the database seeder for Scribio.
package main

import (
	"flag"
	"log"

	"scribio/internal/config"
	"scribio/internal/database"
	"scribio/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if err := s.Seed(seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
