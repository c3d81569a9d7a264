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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/coursefinder/ai"
	"github.com/poiesic/coursefinder/ai/llm"
	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/enrich"
	"github.com/poiesic/coursefinder/search"
	"github.com/poiesic/coursefinder/storage"
	"github.com/poiesic/coursefinder/storage/badger"
)

// searchDeadline bounds one search end to end, covering every oracle fan-out.
const searchDeadline = 5 * time.Minute

func main() {
	app := &cli.App{
		Name:  "coursefinder",
		Usage: "Oracle-orchestrated course catalog search",
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
				Name:      "import",
				Usage:     "Import a course-catalog JSON snapshot into the database",
				ArgsUsage: "<snapshot.json>",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the course catalog",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(oracleFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (loose, precise)",
						Value: "loose",
					},
					&cli.StringFlag{
						Name:  "occupied",
						Usage: "Personal timetable occupancy as a compact time code, e.g. \"M12,T34\"",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results to print",
						Value: 20,
					},
				),
			},
			{
				Name:   "enrich",
				Usage:  "Extract and cache search keywords for every course",
				Action: enrichCommand,
				Flags: append(oracleFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of courses to process in each batch",
						Value: 20,
					},
					&cli.DurationFlag{
						Name:  "batch-delay",
						Usage: "Delay between batches",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func oracleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Oracle provider (local, openai, gemini, custom)",
			Value: "local",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Oracle service host URL",
			Value: "http://localhost:11434",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for hosted providers",
			EnvVars: []string{"COURSEFINDER_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Oracle model name",
			Value: "qwen2.5:3b",
		},
	}
}

func newOracle(c *cli.Context) (ai.Oracle, error) {
	config := ai.NewConfig(
		ai.WithProvider(ai.Provider(c.String("provider"))),
		ai.WithHost(c.String("host")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithModel(c.String("model")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oracle configuration: %w", err)
	}
	return llm.NewClient(config)
}

func openRepositories(c *cli.Context) (storage.CatalogRepository, storage.AnnotationRepository, *badger.Backend, error) {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	catalog, err := badger.NewCatalogRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, fmt.Errorf("failed to create catalog repository: %w", err)
	}
	return catalog, badger.NewAnnotationRepository(backend), backend, nil
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one snapshot file argument")
	}

	courses, err := loadSnapshot(c.Args().First())
	if err != nil {
		return err
	}

	catalog, _, backend, err := openRepositories(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer catalog.Close()

	if err := catalog.PutCourses(context.Background(), courses); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	count, err := catalog.Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Imported %d courses (%d total in catalog)\n", len(courses), count)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a search query is required")
	}

	var mode core.SearchMode
	switch c.String("mode") {
	case "loose":
		mode = core.SearchModeLoose
	case "precise":
		mode = core.SearchModePrecise
	default:
		return fmt.Errorf("invalid mode %q: must be loose or precise", c.String("mode"))
	}

	oracle, err := newOracle(c)
	if err != nil {
		return err
	}

	catalog, annotations, backend, err := openRepositories(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer catalog.Close()

	searcher, err := search.NewSearcher(catalog, oracle, search.WithAnnotations(annotations))
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	defer searcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), searchDeadline)
	defer cancel()

	occupied := search.TimeSlots(c.String("occupied"))
	session := core.NewSession(mode)
	result, err := searcher.Search(ctx, session, query, occupied)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResult(c, catalog, result)
	return nil
}

func printResult(c *cli.Context, catalog storage.CatalogRepository, result *core.SearchResult) {
	byID := make(map[string]*core.CourseRecord)
	if courses, err := catalog.AllCourses(context.Background()); err == nil {
		for _, course := range courses {
			byID[course.Identifier()] = course
		}
	}

	fmt.Printf("%d results (%s, %s)\n", len(result.CourseIDs), result.Stage, result.Elapsed.Round(time.Millisecond))
	limit := c.Int("limit")
	for i, id := range result.CourseIDs {
		if limit > 0 && i >= limit {
			fmt.Printf("... and %d more\n", len(result.CourseIDs)-limit)
			break
		}
		line := id
		if course, ok := byID[id]; ok {
			line = fmt.Sprintf("%s %s（%s）%s", id, course.Name, course.Teacher, course.Time)
		}
		if score, ok := result.Scores[id]; ok {
			line += fmt.Sprintf("  [%d分]", score.Total)
		}
		fmt.Println(line)
	}
}

func enrichCommand(c *cli.Context) error {
	oracle, err := newOracle(c)
	if err != nil {
		return err
	}

	catalog, annotations, backend, err := openRepositories(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer catalog.Close()

	enricher, err := enrich.NewEnricher(catalog, annotations, oracle,
		enrich.WithBatchPolicy(c.Int("batch-size"), c.Duration("batch-delay")))
	if err != nil {
		return fmt.Errorf("failed to create enricher: %w", err)
	}
	defer enricher.Close()

	stats, err := enricher.Run(context.Background())
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Annotated %d courses (%d fallback, %d skipped, %d failed)\n",
		stats.Annotated, stats.Fallback, stats.Skipped, stats.Failed)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
