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
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docvec"
	"github.com/poiesic/docvec/config"
	"github.com/urfave/cli/v2"
)

// openService is replaced by tests to avoid network-backed providers.
var openService = func(ctx context.Context, cfg *config.AppConfig) (*docvec.Service, error) {
	return docvec.Open(ctx, cfg)
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "docvec",
		Usage:     "Document vectorization and semantic search",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "docvec.yaml",
				EnvVars: []string{"DOCVEC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before reading the config",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnv(c.String("env-file")); err != nil {
				return err
			}
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload files and process them",
				ArgsUsage: "<file>...",
				Action:    uploadCommand,
				Flags: []cli.Flag{
					namespaceFlag(),
					&cli.StringFlag{
						Name:    "uploaded-by",
						Aliases: []string{"u"},
						Usage:   "Uploader recorded on the document",
						Value:   os.Getenv("USER"),
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Content type (guessed from the file extension when empty)",
					},
					&cli.StringFlag{
						Name:  "visibility",
						Usage: "Document visibility (private, public, link)",
						Value: "private",
					},
					&cli.BoolFlag{
						Name:  "no-process",
						Usage: "Store the files without processing them",
					},
				},
			},
			{
				Name:      "process",
				Usage:     "Process an uploaded document",
				ArgsUsage: "<doc-id>",
				Action:    processCommand,
			},
			{
				Name:      "search",
				Usage:     "Search passages by semantic similarity",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					namespaceFlag(),
					&cli.StringFlag{
						Name:    "document",
						Aliases: []string{"d"},
						Usage:   "Restrict results to one document in the namespace",
					},
					&cli.StringSliceFlag{
						Name:  "documents",
						Usage: "Search these documents across namespaces",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 5,
					},
				},
			},
			{
				Name:      "summaries",
				Usage:     "Rank documents by summary similarity",
				ArgsUsage: "<query>",
				Action:    summariesCommand,
				Flags: []cli.Flag{
					namespaceFlag(),
					&cli.StringFlag{
						Name:    "uploaded-by",
						Aliases: []string{"u"},
						Usage:   "Include this user's private documents",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 5,
					},
				},
			},
			{
				Name:      "vectors",
				Usage:     "List the stored passages of a document",
				ArgsUsage: "<doc-id>",
				Action:    vectorsCommand,
				Flags:     []cli.Flag{namespaceFlag()},
			},
			{
				Name:   "reprocess",
				Usage:  "Run documents through ingestion again",
				Action: reprocessCommand,
				Flags: []cli.Flag{
					namespaceFlag(),
					&cli.StringSliceFlag{
						Name:  "status",
						Usage: "Select documents by status (upload, processing, processed, error)",
						Value: cli.NewStringSlice("error"),
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Continue from the last checkpoint",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents between checkpoints",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and deactivate its passages",
				ArgsUsage: "<doc-id>",
				Action:    deleteCommand,
			},
			{
				Name:   "purge",
				Usage:  "Remove inactive passages from the index",
				Action: purgeCommand,
				Flags:  []cli.Flag{namespaceFlag()},
			},
		},
	}
}

func namespaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "namespace",
		Aliases: []string{"n"},
		Usage:   "Namespace (defaults to the configured namespace)",
	}
}

// loadEnv reads a dotenv file. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
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
