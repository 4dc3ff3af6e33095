// One-off maintenance tool that deletes expired rows from the lookup cache.
// The running service prunes on a schedule; use this after shrinking TTLs or
// against a database the service is not currently holding open.
//
// Usage: prune_expired_cache <settings.json>
package main

import (
	"log"
	"os"
	"time"

	"focuswatch/config"
	"focuswatch/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: prune_expired_cache <settings.json>")
	}

	settings, err := config.NewManager(os.Args[1]).Load()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	db, err := database.NewDB(database.Config{
		DatabasePath: settings.Cache.DatabasePath,
		TTLs: map[database.Namespace]time.Duration{
			database.NamespaceIDResolution: settings.Cache.IDResolution.D(),
			database.NamespaceTrailerURL:   settings.Cache.TrailerURL.D(),
			database.NamespaceRatings:      settings.Cache.Ratings.D(),
			database.NamespaceReviews:      settings.Cache.Reviews.D(),
		},
	})
	if err != nil {
		log.Fatalf("Failed to open cache database: %v", err)
	}
	defer db.Close()

	pruned, err := db.Cache.Prune()
	if err != nil {
		log.Fatalf("Failed to prune: %v", err)
	}

	log.Printf("Done: pruned %d expired rows", pruned)
}
