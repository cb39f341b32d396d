// Copyright 2025 Storyowl Labs
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
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/storyowl/storyowl"
	"github.com/storyowl/storyowl/ai"
	"github.com/storyowl/storyowl/catalog"
	"github.com/storyowl/storyowl/chat"
	"github.com/storyowl/storyowl/core"
	"github.com/storyowl/storyowl/ingest"
	"github.com/storyowl/storyowl/personalize"
	"github.com/storyowl/storyowl/profile"
	"github.com/storyowl/storyowl/server"
)

func main() {
	app := &cli.App{
		Name:  "storyowl",
		Usage: "Recommendation retrieval engine for kids' books and videos",
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
				Name:   "serve",
				Usage:  "Run the HTTP recommendation service",
				Action: serveCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "HTTP listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:  "app-catalog-url",
						Usage: "Base URL of the first-party catalog service",
					},
					&cli.StringFlag{
						Name:  "google-books-key",
						Usage: "Google Books API key",
					},
					&cli.StringFlag{
						Name:  "youtube-key",
						Usage: "YouTube Data API key",
					},
					&cli.StringFlag{
						Name:  "personalizer-url",
						Usage: "Base URL of the external personalizer service",
					},
					&cli.StringFlag{
						Name:  "vector-search-url",
						Usage: "Base URL of the remote vector search service",
					},
				),
			},
			{
				Name:   "chat",
				Usage:  "Run a single conversational turn against the local catalog",
				Action: chatCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session key (a fresh one is generated if omitted)",
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "User utterance",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Explicit category or topic",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Desired media type (book, video)",
					},
					&cli.BoolFlag{
						Name:  "personalize",
						Usage: "Ask for taste-forward results",
					},
				),
			},
			{
				Name:   "ingest",
				Usage:  "Embed and store catalog items from a JSON file",
				Action: ingestCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a JSON array of catalog items",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of items to embed in each batch",
						Value: 32,
					},
				),
			},
			{
				Name:   "rebuild-profile",
				Usage:  "Recompute a user's taste vector from their signals",
				Action: rebuildProfileCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User identifier",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "interest",
						Usage: "Declared interest (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "favourite",
						Usage: "Favourite item text (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "activity",
						Usage: "Recent activity text (repeatable)",
					},
				),
			},
			{
				Name:   "search",
				Usage:  "Run a raw nearest-neighbor query against the catalog",
				Action: searchCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Desired media type (book, video)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 6,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "API key for hosted embedding services",
		},
	}
}

func openEngine(c *cli.Context) (*storyowl.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if key := c.String("api-key"); key != "" {
		aiConfig.APIKey = key
	}
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return storyowl.NewEngine(c.String("db"), storyowl.WithAIConfig(aiConfig))
}

func serveCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	retriever, err := engine.NewRetriever()
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}
	defer retriever.Release()

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var chatOpts []chat.Option
	var sources []catalog.Source
	if url := c.String("app-catalog-url"); url != "" {
		sources = append(sources, catalog.NewAppCatalog(url, httpClient))
	}
	if key := c.String("google-books-key"); key != "" {
		sources = append(sources, catalog.NewGoogleBooks(key, httpClient))
	}
	if key := c.String("youtube-key"); key != "" {
		sources = append(sources, catalog.NewYouTube(key, httpClient))
	}
	if len(sources) > 0 {
		chatOpts = append(chatOpts, chat.WithSources(catalog.NewFallbackSource(sources...)))
	}
	if url := c.String("personalizer-url"); url != "" {
		chatOpts = append(chatOpts, chat.WithPersonalizer(personalize.NewClient(url, httpClient)))
	}
	if url := c.String("vector-search-url"); url != "" {
		chatOpts = append(chatOpts, chat.WithVectorFallback(catalog.NewVectorSearchClient(url, httpClient)))
	}

	orchestrator, err := engine.NewOrchestrator(retriever, chatOpts...)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	pipeline, err := engine.NewIngestPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}
	defer pipeline.Release()

	rebuilder, err := engine.NewProfileRebuilder()
	if err != nil {
		return fmt.Errorf("failed to create profile rebuilder: %w", err)
	}

	srv := &http.Server{
		Addr:    c.String("addr"),
		Handler: server.New(orchestrator, pipeline, rebuilder, retriever, engine.Embedder()).Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func chatCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	retriever, err := engine.NewRetriever()
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}
	defer retriever.Release()

	orchestrator, err := engine.NewOrchestrator(retriever)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	sessionKey := c.String("session")
	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	reply, err := orchestrator.Respond(context.Background(), &chat.Request{
		UserId:      c.String("user"),
		SessionKey:  sessionKey,
		Text:        c.String("text"),
		Category:    c.String("category"),
		Kind:        core.ParseKind(c.String("type")),
		Personalize: c.Bool("personalize"),
	})
	if err != nil {
		return fmt.Errorf("chat turn failed: %w", err)
	}

	fmt.Printf("session: %s\n", sessionKey)
	fmt.Println(reply.Text)
	for i, card := range reply.Cards {
		fmt.Printf("%d. [%s] %s %s\n", i+1, card.Kind, card.Title, card.Link)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var records []struct {
		Id          string   `json:"id"`
		Kind        string   `json:"kind"`
		Title       string   `json:"title"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		AgeMin      int      `json:"ageMin"`
		AgeMax      int      `json:"ageMax"`
		Thumb       string   `json:"thumb"`
		Link        string   `json:"link"`
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("failed to parse input file: %w", err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestPipeline(ingest.WithBatchSize(c.Int("batch-size")))
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}
	defer pipeline.Release()

	items := make([]*core.Item, len(records))
	for i, rec := range records {
		items[i] = &core.Item{
			SourceId:    rec.Id,
			Kind:        core.ParseKind(rec.Kind),
			Title:       rec.Title,
			Authors:     rec.Authors,
			Description: rec.Description,
			Tags:        rec.Tags,
			AgeMin:      rec.AgeMin,
			AgeMax:      rec.AgeMax,
			Thumb:       rec.Thumb,
			Link:        rec.Link,
		}
	}

	stored, err := pipeline.Ingest(context.Background(), items...)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "ingested %d items\n", len(stored))
	return nil
}

func rebuildProfileCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	rebuilder, err := engine.NewProfileRebuilder()
	if err != nil {
		return fmt.Errorf("failed to create profile rebuilder: %w", err)
	}

	rebuilt, err := rebuilder.Rebuild(context.Background(), profile.RebuildInput{
		UserId:         c.String("user"),
		Interests:      c.StringSlice("interest"),
		FavouriteTexts: c.StringSlice("favourite"),
		ActivityTexts:  c.StringSlice("activity"),
	})
	if err != nil {
		return fmt.Errorf("profile rebuild failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "rebuilt profile for %s: %d dimensions from %d favourites, %d activities\n",
		rebuilt.UserId, len(rebuilt.Vector), rebuilt.FavouriteCount, rebuilt.ActivityCount)
	return nil
}

func searchCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	retriever, err := engine.NewRetriever()
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}
	defer retriever.Release()

	vector, err := engine.Embedder().EmbedText(context.Background(), c.String("query"))
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	limit := c.Int("limit")
	scored, err := retriever.FetchNearest(context.Background(), vector, limit, nil)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if kind := core.ParseKind(c.String("type")); kind != 0 {
		filtered := scored[:0]
		for _, s := range scored {
			if s.Item.Kind == kind {
				filtered = append(filtered, s)
			}
		}
		scored = filtered
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	for i, s := range scored {
		fmt.Printf("%d. %.3f [%s] %s\n", i+1, s.Similarity, s.Item.Kind, s.Item.Title)
	}
	return nil
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
