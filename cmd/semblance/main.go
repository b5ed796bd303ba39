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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/semblance"
	"github.com/poiesic/semblance/ai"
	"github.com/poiesic/semblance/core"
	"github.com/poiesic/semblance/indexing"
	"github.com/poiesic/semblance/search"
)

func main() {
	app := &cli.App{
		Name:  "semblance",
		Usage: "Hybrid similarity search over structured entities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest entities from a JSON file and generate embeddings",
				ArgsUsage: "<entities.json>",
				Action:    ingestCommand,
				Flags:     append(storeFlags(), aiFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Search entities by free text",
				ArgsUsage: "<query text>",
				Action:    searchCommand,
				Flags:     append(append(storeFlags(), aiFlags()...), queryFlags()...),
			},
			{
				Name:   "similar",
				Usage:  "Find entities similar to an existing entity",
				Action: similarCommand,
				Flags: append(append(append(storeFlags(), aiFlags()...), queryFlags()...),
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Reference entity id",
						Required: true,
					},
				),
			},
			{
				Name:   "mutual",
				Usage:  "Find mutual matches for an entity",
				Action: mutualCommand,
				Flags: append(append(storeFlags(), aiFlags()...),
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Origin entity id",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Similarity threshold both directions must clear",
						Value: search.DefaultMutualMinSimilarity,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Restrict candidates to this entity kind",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of pairs",
						Value: search.DefaultMutualLimit,
					},
					&cli.Uint64Flag{
						Name:  "requester",
						Usage: "Requester entity id for privacy enforcement (0 = anonymous)",
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Regenerate pending and failed embeddings",
				Action: reindexCommand,
				Flags:  append(storeFlags(), aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of results",
			Value: search.DefaultLimit,
		},
		&cli.Float64Flag{
			Name:  "min-similarity",
			Usage: "Minimum similarity score",
			Value: 0.6,
		},
		&cli.StringFlag{
			Name:  "kind",
			Usage: "Restrict results to this entity kind",
		},
		&cli.StringSliceFlag{
			Name:  "meta",
			Usage: "Metadata equality constraint as key=value (repeatable)",
		},
		&cli.Uint64Flag{
			Name:  "requester",
			Usage: "Requester entity id for privacy enforcement (0 = anonymous)",
		},
		&cli.BoolFlag{
			Name:  "full",
			Usage: "Include full entity payloads in results",
		},
	}
}

func openDatabase(c *cli.Context) (*semblance.Database, error) {
	return semblance.NewDatabase(c.String("db"),
		semblance.WithAIConfig(ai.DefaultConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)),
	)
}

// entityInput is the JSON shape accepted by the ingest command.
type entityInput struct {
	Kind        string            `json:"kind"`
	DisplayName string            `json:"displayName"`
	Searchable  *bool             `json:"searchable,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	Privacy     map[string]string `json:"privacy,omitempty"`
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one entities file argument")
	}

	var reader io.Reader
	if path := c.Args().First(); path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open entities file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var inputs []entityInput
	if err := json.NewDecoder(reader).Decode(&inputs); err != nil {
		return fmt.Errorf("failed to parse entities file: %w", err)
	}

	entities := make([]*core.Entity, 0, len(inputs))
	for i, input := range inputs {
		entity, err := input.toEntity()
		if err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
		entities = append(entities, entity)
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIndexingPipeline(
		indexing.WithModel(c.String("embedding-model")),
		indexing.WithSynchronous(),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	added, err := pipeline.Ingest(context.Background(), entities...)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Ingested %d entities\n", len(added))
	return nil
}

func (in entityInput) toEntity() (*core.Entity, error) {
	searchable := true
	if in.Searchable != nil {
		searchable = *in.Searchable
	}

	var privacy map[string]core.PrivacyLevel
	if len(in.Privacy) > 0 {
		privacy = make(map[string]core.PrivacyLevel, len(in.Privacy))
		for field, name := range in.Privacy {
			level, err := parsePrivacyLevel(name)
			if err != nil {
				return nil, err
			}
			privacy[field] = level
		}
	}

	return &core.Entity{
		Kind:        in.Kind,
		DisplayName: in.DisplayName,
		Searchable:  searchable,
		Metadata:    in.Metadata,
		Privacy:     privacy,
	}, nil
}

func parsePrivacyLevel(name string) (core.PrivacyLevel, error) {
	switch strings.ToLower(name) {
	case "public":
		return core.PrivacyPublic, nil
	case "members":
		return core.PrivacyMembers, nil
	case "private":
		return core.PrivacyPrivate, nil
	default:
		return 0, fmt.Errorf("invalid privacy level %q: must be one of public, members, private", name)
	}
}

func buildQuery(c *cli.Context) (search.Query, error) {
	query := search.Query{
		Limit:          c.Int("limit"),
		MinSimilarity:  float32(c.Float64("min-similarity")),
		IncludeFull:    c.Bool("full"),
		RequesterId:    core.ID(c.Uint64("requester")),
		EnforcePrivacy: true,
	}

	if kind := c.String("kind"); kind != "" {
		query.Filters = &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{{
				Field:    "kind",
				Operator: core.OpEquals,
				Value:    core.StringValue(kind),
			}},
		}
	}

	for _, pair := range c.StringSlice("meta") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return query, fmt.Errorf("invalid meta constraint %q: expected key=value", pair)
		}
		if query.Metadata == nil {
			query.Metadata = make(map[string]any)
		}
		query.Metadata[key] = value
	}

	return query, nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected query text argument")
	}
	text := strings.Join(c.Args().Slice(), " ")

	query, err := buildQuery(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	result, err := searcher.SearchByText(context.Background(), text, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printJSON(result)
}

func similarCommand(c *cli.Context) error {
	query, err := buildQuery(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	result, err := searcher.FindSimilarToEntity(context.Background(), core.ID(c.Uint64("id")), query)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}
	return printJSON(result)
}

func mutualCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	matcher, err := db.NewMatcher()
	if err != nil {
		return fmt.Errorf("failed to create matcher: %w", err)
	}
	defer matcher.Release()

	result, err := matcher.FindMutualMatches(context.Background(), core.ID(c.Uint64("id")), search.MutualQuery{
		MinSimilarity:  float32(c.Float64("min-similarity")),
		TargetKind:     c.String("kind"),
		Limit:          c.Int("limit"),
		RequesterId:    core.ID(c.Uint64("requester")),
		EnforcePrivacy: true,
	})
	if err != nil {
		return fmt.Errorf("mutual match resolution failed: %w", err)
	}
	return printJSON(result)
}

func reindexCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIndexingPipeline(
		indexing.WithModel(c.String("embedding-model")),
		indexing.WithSynchronous(),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	count, err := pipeline.Reindex(context.Background())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reindexed %d embeddings\n", count)
	return nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
