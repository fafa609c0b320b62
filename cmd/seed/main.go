// Command seed populates a local sqlite ledger with demo rows so the
// board renders something before any real submissions arrive.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"flowerboard.live/fbd/internal/ledger/sqlite"
	"flowerboard.live/fbd/internal/types"
)

var demoEntries = []types.Entry{
	{Name: "Mali", Country: "TH", Flowers: 42},
	{Name: "Somchai", Country: "TH", Flowers: 31},
	{Name: "Yuki", Country: "JP", Flowers: 27},
	{Name: "Minji", Country: "KR", Flowers: 27},
	{Name: "Alex", Country: "US", Flowers: 12},
	{Name: "Linh", Country: "VN", Flowers: 8},
}

func main() {
	dbFile := flag.String("db", "flowerboard.db", "path to the sqlite ledger database")
	announcement := flag.String("announcement", "", "optional announcement to store")
	flag.Parse()

	store, err := sqlite.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open ledger store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := store.Rows(ctx)
	if err != nil {
		log.Fatalf("Failed to read ledger: %v", err)
	}
	if len(rows) > 0 {
		log.Fatalf("Refusing to seed: ledger already holds %d rows", len(rows))
	}

	for _, e := range demoEntries {
		if err := store.AppendRow(ctx, e); err != nil {
			log.Fatalf("Failed to append %s (%s): %v", e.Name, e.Country, err)
		}
	}
	log.Printf("Seeded %d demo entries into %s", len(demoEntries), *dbFile)

	if *announcement != "" {
		if err := store.SetAnnouncement(ctx, *announcement); err != nil {
			log.Fatalf("Failed to store announcement: %v", err)
		}
		log.Println("Stored announcement")
	}
}
