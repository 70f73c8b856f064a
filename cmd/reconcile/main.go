// Command main recounts the denormalized engagement and follower counters
// from their source tables. Counter writes are fire-and-forget, so the stored
// values can drift; running this periodically (or after an incident) repairs
// them.
package main

import (
	"context"
	"flag"
	"log"

	"scribio/internal/config"
	"scribio/internal/database"
	"scribio/internal/repository"
	"scribio/internal/service"
)

func main() {
	postID := flag.Uint("post", 0, "Reconcile a single post's counters")
	userID := flag.Uint("user", 0, "Reconcile a single user's follower counter")
	all := flag.Bool("all", false, "Reconcile every post and user")
	flag.Parse()

	if *postID == 0 && *userID == 0 && !*all {
		log.Fatal("Nothing to do: pass -post <id>, -user <id> or -all")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	appreciationRepo := repository.NewAppreciationRepository(db)
	saveRepo := repository.NewSaveRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	followRepo := repository.NewFollowRepository(db)

	engagement := service.NewEngagementService(appreciationRepo, saveRepo, postRepo, userRepo, historyRepo)
	follows := service.NewFollowService(followRepo, userRepo)

	ctx := context.Background()

	if *postID != 0 {
		if err := engagement.ReconcilePost(ctx, *postID); err != nil {
			log.Fatalf("Failed to reconcile post %d: %v", *postID, err)
		}
		log.Printf("Reconciled post %d", *postID)
	}

	if *userID != 0 {
		if err := follows.ReconcileFollowers(ctx, *userID); err != nil {
			log.Fatalf("Failed to reconcile user %d: %v", *userID, err)
		}
		log.Printf("Reconciled user %d", *userID)
	}

	if *all {
		postIDs, err := postRepo.IDs(ctx)
		if err != nil {
			log.Fatalf("Failed to list posts: %v", err)
		}
		for _, id := range postIDs {
			if err := engagement.ReconcilePost(ctx, id); err != nil {
				log.Printf("Failed to reconcile post %d: %v", id, err)
			}
		}

		userIDs, err := userRepo.IDs(ctx)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		for _, id := range userIDs {
			if err := follows.ReconcileFollowers(ctx, id); err != nil {
				log.Printf("Failed to reconcile user %d: %v", id, err)
			}
		}
		log.Printf("Reconciled %d posts and %d users", len(postIDs), len(userIDs))
	}
}
