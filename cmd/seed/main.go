// Command main runs the database seeder for Parley.
package main

import (
	"flag"
	"log"

	"parley/internal/config"
	"parley/internal/database"
	"parley/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "Number of users to create")
	flag.IntVar(&opts.NumGroups, "groups", opts.NumGroups, "Number of group conversations to create")
	flag.IntVar(&opts.NumDirectChats, "directs", opts.NumDirectChats, "Number of direct conversations to create")
	flag.IntVar(&opts.MessagesPerConv, "messages", opts.MessagesPerConv, "Messages per conversation")
	flag.BoolVar(&opts.ShouldClean, "clean", opts.ShouldClean, "Clean chat tables before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d groups, %d direct chats, %d messages each, clean=%v\n",
		opts.NumUsers, opts.NumGroups, opts.NumDirectChats, opts.MessagesPerConv, opts.ShouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Seeding complete")
}
