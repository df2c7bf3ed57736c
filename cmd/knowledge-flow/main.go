// Copyright 2025 Fred Agent Contributors
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
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	knowledgeflow "github.com/fred-agent/knowledge-flow"
	"github.com/fred-agent/knowledge-flow/config"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/ingestion"
	"github.com/fred-agent/knowledge-flow/storage"
)

func main() {
	app := &cli.App{
		Name:  "knowledge-flow",
		Usage: "Document ingestion pipeline with semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.yaml",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files or directories into the knowledge base",
				ArgsUsage: "PATH [PATH...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker count for bulk ingestion (0 = auto)",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Search the knowledge base",
				ArgsUsage: "QUERY",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Show a document record by UID",
				ArgsUsage: "UID",
				Action:    getCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "content",
						Usage: "Write the raw content bytes to stdout instead",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List documents",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "extension",
						Usage: "Filter by extension (e.g. .pdf)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include failed and in-flight documents",
					},
				},
			},
			{
				Name:      "retrievable",
				Usage:     "Administratively override a document's visibility",
				ArgsUsage: "UID true|false",
				Action:    retrievableCommand,
			},
			{
				Name:      "delete",
				Usage:     "Remove a document and all its derived artifacts",
				ArgsUsage: "UID",
				Action:    deleteCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every retrievable document's chunks",
				Action: reindexCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
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

func openKnowledgeBase(c *cli.Context) (*knowledgeflow.KnowledgeBase, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	kb, err := knowledgeflow.OpenFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return kb, nil
}

func parseUID(raw string) (core.UID, error) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid uid %q", raw)
	}
	return core.UID(value), nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one path is required")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	ctx := context.Background()
	ingester, err := kb.NewBulkIngester(c.Int("pool-size"))
	if err != nil {
		return err
	}
	defer ingester.Release()

	var files []string
	for _, path := range c.Args().Slice() {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			results, err := ingester.IngestDirectory(ctx, path)
			if err != nil {
				return err
			}
			printBulkResults(results)
			continue
		}
		files = append(files, path)
	}
	if len(files) > 0 {
		printBulkResults(ingester.IngestFiles(ctx, files))
	}
	return nil
}

func printBulkResults(results []ingestion.BulkResult) {
	for _, result := range results {
		switch {
		case result.Err != nil:
			fmt.Printf("FAIL  %s: %v\n", result.Path, result.Err)
		case result.AlreadyIngested:
			fmt.Printf("SKIP  %s (uid %d, already ingested)\n", result.Path, result.Uid)
		default:
			fmt.Printf("OK    %s (uid %d, %d chunks, %d rows)\n",
				result.Path, result.Uid, result.Chunks, result.Rows)
		}
	}
}

func queryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	results, err := kb.Search(context.Background(), c.Args().First(), c.Int("max-hits"))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. [%.3f] %s (uid %d, chunk %d)\n",
			i+1, result.Score, result.Document.Filename,
			result.Chunk.DocumentUid, result.Chunk.ChunkId)
		fmt.Printf("   %s\n", firstLine(result.Chunk.Text))
	}
	return nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	return text
}

func getCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one uid argument is required")
	}
	uid, err := parseUID(c.Args().First())
	if err != nil {
		return err
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	ctx := context.Background()
	if c.Bool("content") {
		raw, err := kb.GetContent(ctx, uid)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(raw)
		return err
	}

	doc, err := kb.GetDocument(ctx, uid)
	if err != nil {
		return err
	}
	printDocument(doc)
	return nil
}

func printDocument(doc *core.Document) {
	fmt.Printf("uid:          %d\n", doc.Uid)
	fmt.Printf("filename:     %s\n", doc.Filename)
	fmt.Printf("size:         %d\n", doc.Size)
	fmt.Printf("content hash: %s\n", doc.ContentHash)
	fmt.Printf("retrievable:  %t\n", doc.Retrievable)
	fmt.Printf("created:      %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("updated:      %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	if doc.LastError != "" {
		fmt.Printf("last error:   %s\n", doc.LastError)
	}
	for key, value := range doc.Metadata {
		fmt.Printf("meta %-8s %s\n", key+":", value)
	}
}

func listCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	filter := storage.ListFilter{Extension: c.String("extension")}
	ctx := context.Background()

	var docs []*core.Document
	if c.Bool("all") {
		docs, err = kb.ListAllDocuments(ctx, filter)
	} else {
		docs, err = kb.ListDocuments(ctx, filter)
	}
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents.")
		return nil
	}
	for _, doc := range docs {
		marker := " "
		if !doc.Retrievable {
			marker = "!"
		}
		fmt.Printf("%s %20d  %-10s %8d  %s\n",
			marker, doc.Uid, doc.Extension, doc.Size, doc.Filename)
	}
	return nil
}

func retrievableCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: retrievable UID true|false")
	}
	uid, err := parseUID(c.Args().Get(0))
	if err != nil {
		return err
	}
	value, err := strconv.ParseBool(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid flag %q", c.Args().Get(1))
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	if err := kb.SetRetrievable(context.Background(), uid, value); err != nil {
		return err
	}
	fmt.Printf("Document %d retrievable=%t\n", uid, value)
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one uid argument is required")
	}
	uid, err := parseUID(c.Args().First())
	if err != nil {
		return err
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	if err := kb.Delete(context.Background(), uid); err != nil {
		return err
	}
	fmt.Printf("Document %d deleted\n", uid)
	return nil
}

func reindexCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	return kb.Reindex(context.Background(), os.Stderr)
}
