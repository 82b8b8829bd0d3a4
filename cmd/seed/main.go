// Command main runs the database seeder for Tradepost.
package main

import (
	"flag"
	"log"

	"tradepost/internal/config"
	"tradepost/internal/database"
	"tradepost/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db)
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	if err := s.Run(seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. All seeded accounts use the password:", seed.DefaultPassword)
	log.Println("Admin login: admin@tradepost.local")
}
