// Command apikey creates a new operator API key for the admin HTTP
// API (cmd/server). THIS is not a production-grade tool, just a
// simple utility for development/testing purposes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/session-mesh/jobengine/internal/application/auth"
	"github.com/session-mesh/jobengine/internal/config"
	"github.com/session-mesh/jobengine/store/postgres"
)

func main() {
	name := flag.String("name", "", "Name/description for the API key (required)")
	days := flag.Int("days", 0, "Number of days until expiration (0 = never expires)")
	flag.Parse()

	if *name == "" {
		fmt.Println("Error: -name is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadAPIKeyGenConfig(*name, *days)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	store, err := postgres.NewStore(ctx, postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	repo := postgres.NewAPIKeyRepository(store)

	var expiresAt *time.Time
	if cfg.DaysValid > 0 {
		expiry := time.Now().AddDate(0, 0, cfg.DaysValid)
		expiresAt = &expiry
	}

	apiKey, err := auth.CreateAPIKey(ctx, repo, cfg.APIKey.KeyType, cfg.APIKey.ServiceName, cfg.APIKey.Version, cfg.Name, expiresAt)
	if err != nil {
		log.Fatalf("failed to create API key: %v", err)
	}

	fmt.Println("\nAPI key created successfully!")
	fmt.Println("----------------------------------------")
	fmt.Printf("Name: %s\n", cfg.Name)
	if expiresAt != nil {
		fmt.Printf("Expires: %s (%d days)\n", expiresAt.Format(time.RFC3339), cfg.DaysValid)
	} else {
		fmt.Println("Expires: Never")
	}
	fmt.Println("----------------------------------------")
	fmt.Printf("\nAPI Key: %s\n\n", apiKey)
	fmt.Println("IMPORTANT: save this key now. It will not be shown again.")
	fmt.Println("----------------------------------------")
	fmt.Println("Usage example:")
	fmt.Printf("  curl -H \"Authorization: Bearer %s\" http://localhost:8090/api/dead-letter\n", apiKey)
}
