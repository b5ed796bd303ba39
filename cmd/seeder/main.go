// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Seeder populates a database with sample entities for local
// experimentation: people with hobby and occupation metadata, plus a
// few job postings, some fields privacy-restricted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/poiesic/semblance"
	"github.com/poiesic/semblance/ai"
	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/indexing"
)

var (
	dbPath    = flag.String("db", "", "path to BadgerDB database directory")
	srcFile   = flag.String("src", "", "optional JSON file of seed entities")
	host      = flag.String("embedding-host", "http://localhost:11434/v1", "embedding service host URL")
	model     = flag.String("embedding-model", "embeddinggemma", "embedding model name")
	batchSize = flag.Int("batch-size", 25, "entities per ingestion batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func seedEntities() []*core.Entity {
	person := func(name string, age float64, location, occupation string, hobbies ...any) *core.Entity {
		return &core.Entity{
			Kind:        "person",
			DisplayName: name,
			Searchable:  true,
			Metadata: map[string]any{
				"age":        age,
				"location":   location,
				"occupation": occupation,
				"hobbies":    hobbies,
			},
		}
	}

	entities := []*core.Entity{
		person("Alice Navarro", 29, "Lisbon", "software engineer", "hiking", "photography"),
		person("Ben Okafor", 34, "Berlin", "data scientist", "cycling", "chess"),
		person("Carla Mendes", 41, "Porto", "architect", "hiking", "painting"),
		person("Derek Stone", 26, "Austin", "barista", "climbing", "vinyl collecting"),
		person("Elena Petrova", 31, "Sofia", "product manager", "yoga", "hiking"),
		person("Farid Aziz", 38, "Marrakesh", "chef", "gardening", "football"),
		person("Greta Lindqvist", 24, "Stockholm", "illustrator", "skiing", "board games"),
		person("Hiro Tanaka", 45, "Osaka", "carpenter", "fishing", "calligraphy"),
		person("Imogen Clarke", 33, "Bristol", "veterinarian", "trail running", "birdwatching"),
		person("Jonas Weber", 28, "Hamburg", "mechanical engineer", "sailing", "photography"),
	}

	// A few fields restricted for privacy-path exercises.
	entities[0].Privacy = map[string]core.PrivacyLevel{
		"age": core.PrivacyPrivate,
	}
	entities[4].Privacy = map[string]core.PrivacyLevel{
		"location": core.PrivacyMembers,
	}
	entities[8].Privacy = map[string]core.PrivacyLevel{
		"occupation": core.PrivacyMembers,
		"age":        core.PrivacyPrivate,
	}

	entities = append(entities,
		&core.Entity{
			Kind:        "job",
			DisplayName: "Senior Go Engineer",
			Searchable:  true,
			Metadata: map[string]any{
				"location": "Berlin",
				"remote":   true,
				"salary":   95000,
				"skills":   []any{"go", "postgres", "kubernetes"},
			},
		},
		&core.Entity{
			Kind:        "job",
			DisplayName: "Wildlife Photographer",
			Searchable:  true,
			Metadata: map[string]any{
				"location": "Nairobi",
				"remote":   false,
				"salary":   52000,
				"skills":   []any{"photography", "field work"},
			},
		},
		&core.Entity{
			Kind:        "job",
			DisplayName: "Archived Posting",
			Searchable:  false,
			Metadata: map[string]any{
				"location": "Remote",
			},
		},
	)

	return entities
}

func entitiesFromFile(filename string) ([]*core.Entity, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entities []*core.Entity
	if err := json.NewDecoder(f).Decode(&entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func ingestBatched(ctx context.Context, pipeline *indexing.Pipeline, entities []*core.Entity, batchSize int) (int, error) {
	total := 0
	for start := 0; start < len(entities); start += batchSize {
		end := start + batchSize
		if end > len(entities) {
			end = len(entities)
		}
		added, err := pipeline.Ingest(ctx, entities[start:end]...)
		if err != nil {
			return total, err
		}
		total += len(added)
	}
	return total, nil
}

func main() {
	logger := slog.Default()

	if *dbPath == "" {
		logger.Error("db path is required")
		os.Exit(1)
	}

	entities := seedEntities()
	if *srcFile != "" {
		loaded, err := entitiesFromFile(*srcFile)
		if err != nil {
			logger.Error("error loading seed file", "src", *srcFile, "err", err)
			os.Exit(1)
		}
		entities = loaded
	}

	db, err := semblance.NewDatabase(*dbPath,
		semblance.WithAIConfig(ai.DefaultConfig(
			ai.WithEmbeddingHost(*host),
			ai.WithEmbeddingModel(*model),
		)),
	)
	if err != nil {
		logger.Error("error opening database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	pipeline, err := db.NewIndexingPipeline(
		indexing.WithModel(*model),
		indexing.WithSynchronous(),
	)
	if err != nil {
		logger.Error("error creating pipeline", "err", err)
		os.Exit(1)
	}
	defer pipeline.Release()

	total, err := ingestBatched(context.Background(), pipeline, entities, *batchSize)
	if err != nil {
		logger.Error("error ingesting entities", "ingested", total, "err", err)
		os.Exit(1)
	}

	logger.Info("seeding complete", "entities", total)
}
