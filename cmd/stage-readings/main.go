// Command stage-readings fills the staging collection with synthetic station
// documents so a local data processor has something to drain.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/shared"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/staging"
)

// sensor describes the value range generated for one reading key.
type sensor struct {
	key      string
	min, max float64
}

var sensors = []sensor{
	{key: "temp", min: 12, max: 38},
	{key: "umi", min: 25, max: 98},
	{key: "chuva", min: 0, max: 25},
	{key: "vento", min: 0, max: 60},
}

func main() {
	var (
		mongoURI   string
		database   string
		collection string
		stations   string
		count      int
		step       time.Duration
		clean      bool
	)
	flag.StringVar(&mongoURI, "mongo-uri", shared.GetEnvOrDefault("MONGO_URL", "mongodb://localhost:27017"), "MongoDB connection URI")
	flag.StringVar(&database, "mongo-db", shared.GetEnvOrDefault("MONGO_DB_NAME", "nimbus"), "MongoDB database")
	flag.StringVar(&collection, "mongo-collection", shared.GetEnvOrDefault("MONGO_COLLECTION_NAME", "readings"), "MongoDB staging collection")
	flag.StringVar(&stations, "stations", "estacao-01,estacao-02", "Comma-separated station uids")
	flag.IntVar(&count, "count", 10, "Documents to stage per station")
	flag.DurationVar(&step, "step", time.Minute, "Time between consecutive captures of one station")
	flag.BoolVar(&clean, "clean", false, "Remove all pending documents before staging")
	flag.Parse()

	ctx := context.Background()

	log.Printf("Connecting to MongoDB %s...", shared.MaskDSN(mongoURI))
	store, err := staging.Connect(ctx, mongoURI, database, collection, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer store.Close(ctx)

	if clean {
		n, err := store.Purge(ctx)
		if err != nil {
			log.Fatalf("Failed to clean staging collection: %v", err)
		}
		log.Printf("Removed %d pending documents", n)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now().Add(-time.Duration(count) * step)
	staged := 0

	for _, station := range strings.Split(stations, ",") {
		station = strings.TrimSpace(station)
		if station == "" {
			continue
		}
		for i := 0; i < count; i++ {
			capturedAt := start.Add(time.Duration(i) * step).UnixMilli()
			if _, err := store.Stage(ctx, station, capturedAt, randomReadings(rng)); err != nil {
				log.Printf("Warning: %v", err)
				continue
			}
			staged++
		}
		log.Printf("Progress: %d documents staged (station %s done)", staged, station)
	}

	log.Printf("=== Staging Complete ===")
	log.Printf("Documents staged: %d", staged)
}

// randomReadings returns a random subset of sensors in a shuffled order.
func randomReadings(rng *rand.Rand) []staging.Reading {
	readings := make([]staging.Reading, 0, len(sensors))
	for _, i := range rng.Perm(len(sensors)) {
		s := sensors[i]
		if rng.Intn(4) == 0 {
			continue
		}
		value := s.min + rng.Float64()*(s.max-s.min)
		readings = append(readings, staging.Reading{Key: s.key, Value: math.Round(value*10) / 10})
	}
	return readings
}
