// seed_manufacturers.go loads a manufacturer YAML file into Postgres.
//
// Usage:
//
//	go run scripts/seed_manufacturers.go -file config/manufacturers.example.yaml -db postgres://localhost/matchmaker
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store/memstore"
)

func main() {
	seedPath := flag.String("file", "config/manufacturers.example.yaml", "path to manufacturer seed file")
	dbURL := flag.String("db", os.Getenv("MATCHMAKER_DATABASE_URL"), "Postgres connection URL")
	dryRun := flag.Bool("dry-run", false, "print manufacturers without writing")
	flag.Parse()

	seed, err := memstore.LoadFile(*seedPath)
	if err != nil {
		log.Fatalf("load seed: %v", err)
	}
	manufacturers := seed.All()

	if *dryRun {
		for _, m := range manufacturers {
			fmt.Printf("%s  %-30s %s, %s  active=%v verified=%v\n",
				m.ID, m.BusinessName, m.City, m.Country, m.IsActive, m.IsVerified)
		}
		fmt.Printf("\n%d manufacturers\n", len(manufacturers))
		return
	}

	if *dbURL == "" {
		log.Fatal("no database URL: pass -db or set MATCHMAKER_DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.NewPostgresStore(ctx, *dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	var ok, failed int
	for _, m := range manufacturers {
		if err := db.UpsertManufacturer(ctx, m); err != nil {
			log.Printf("FAIL %s: %v", m.BusinessName, err)
			failed++
			continue
		}
		ok++
	}
	fmt.Printf("seeded %d manufacturers (%d failed)\n", ok, failed)
}
