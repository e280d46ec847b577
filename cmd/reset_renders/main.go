// Command reset_renders zeroes every profile's monthly render count at the
// identity provider. Intended to run from cron at the start of each month.
package main

import (
	"context"
	"log"
	"time"

	"stemforge/internal/config"
	"stemforge/internal/identity"
)

func main() {
	cfg := config.LoadConfig()
	client := identity.NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Resetting monthly render counts...")
	count, err := client.ResetAllRenderCounts(ctx)
	if err != nil {
		log.Fatalf("Failed to reset render counts: %v", err)
	}

	log.Printf("Reset %d profile(s)", count)
	log.Println("DONE!")
}
