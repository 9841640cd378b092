package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docvec"
	"github.com/poiesic/docvec/config"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/ingestion"
	"github.com/poiesic/docvec/reprocess"
	"github.com/poiesic/docvec/search"
	"github.com/urfave/cli/v2"
)

// withService opens the configured service for the duration of fn.
func withService(c *cli.Context, fn func(ctx context.Context, svc *docvec.Service) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := openService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func namespace(c *cli.Context, svc *docvec.Service) string {
	if ns := c.String("namespace"); ns != "" {
		return ns
	}
	return svc.Config().Namespace
}

func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if arg == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return arg, nil
}

func contentType(path, override string) string {
	if override != "" {
		return override
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", "":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func uploadCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	visibility, err := core.ParseVisibility(c.String("visibility"))
	if err != nil {
		return err
	}

	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		pipeline := svc.Pipeline()
		var failed int
		for _, path := range c.Args().Slice() {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := pipeline.Upload(ctx, ingestion.UploadRequest{
				Namespace:   namespace(c, svc),
				Filename:    filepath.Base(path),
				ContentType: contentType(path, c.String("content-type")),
				UploadedBy:  c.String("uploaded-by"),
				Visibility:  visibility,
				Data:        data,
			})
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", path, err)
			}
			if c.Bool("no-process") || doc.Status == core.ProcessStatusProcessed {
				fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", doc.ID, doc.Status, doc.Filename)
				continue
			}
			doc, err = pipeline.Process(ctx, doc.ID)
			if err != nil {
				return err
			}
			printDocument(c, doc)
			if doc.Status == core.ProcessStatusError {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d document(s) failed to process", failed)
		}
		return nil
	})
}

func printDocument(c *cli.Context, doc *core.Document) {
	fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", doc.ID, doc.Status, doc.Filename)
	if doc.LastError != "" {
		fmt.Fprintf(c.App.Writer, "  error: %s\n", doc.LastError)
	}
	if doc.Summary != "" {
		fmt.Fprintf(c.App.Writer, "  summary: %s\n", doc.Summary)
	}
}

func processCommand(c *cli.Context) error {
	docID, err := requireArg(c, "document id")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		doc, err := svc.Pipeline().Process(ctx, docID)
		if err != nil {
			return err
		}
		printDocument(c, doc)
		if doc.Status == core.ProcessStatusError {
			return errors.New("processing failed")
		}
		return nil
	})
}

func searchCommand(c *cli.Context) error {
	query, err := requireArg(c, "query")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		searcher := svc.Searcher()
		limit := c.Int("limit")

		var hits []*search.Hit
		var err error
		if documents := c.StringSlice("documents"); len(documents) > 0 {
			hits, err = searcher.SearchDocuments(ctx, query, documents, limit)
		} else {
			hits, err = searcher.SearchPassages(ctx, query, namespace(c, svc), c.String("document"), limit)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(hits))
		for i, hit := range hits {
			source := hit.Document
			if hit.Source != nil {
				source = hit.Source.Filename
			}
			if hit.PageNumber > 0 {
				source = fmt.Sprintf("%s p.%d", source, hit.PageNumber)
			}
			fmt.Fprintf(c.App.Writer, "%d: [%0.3f] %s\n    %s\n", i, hit.Similarity, source, preview(hit.Content, 200))
		}
		return nil
	})
}

func summariesCommand(c *cli.Context) error {
	query, err := requireArg(c, "query")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		matches, err := svc.Searcher().SearchSummaries(ctx, query, namespace(c, svc), c.String("uploaded-by"), c.Int("limit"))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Found %d documents\n", len(matches))
		for i, m := range matches {
			fmt.Fprintf(c.App.Writer, "%d: [%0.3f] %s %s\n    %s\n", i, m.Similarity, m.Document.ID, m.Document.Filename, m.Document.Summary)
		}
		return nil
	})
}

func vectorsCommand(c *cli.Context) error {
	docID, err := requireArg(c, "document id")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		records, err := svc.Index().GetDocumentVectors(ctx, namespace(c, svc), docID)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%d passages\n", len(records))
		for _, r := range records {
			result := core.QueryResult{Metadata: r.Metadata}
			md, err := result.DecodeMetadata()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\tpage %d\t%s\n", r.VectorID, md.PageNumber, preview(md.Content, 80))
		}
		return nil
	})
}

func reprocessCommand(c *cli.Context) error {
	var statuses []core.ProcessStatus
	for _, s := range c.StringSlice("status") {
		if s == "all" {
			statuses = nil
			break
		}
		status, err := core.ParseProcessStatus(s)
		if err != nil {
			return err
		}
		statuses = append(statuses, status)
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		cfg := &reprocess.Config{
			Namespace:      namespace(c, svc),
			Statuses:       statuses,
			BatchSize:      c.Int("batch-size"),
			ReportInterval: c.Int("report-interval"),
			MaxRetries:     c.Int("max-retries"),
			RetryDelay:     c.Duration("retry-delay"),
			Resume:         c.Bool("resume"),
		}
		r, err := svc.NewReprocessor(cfg, c.App.ErrWriter)
		if err != nil {
			return err
		}
		summary, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("reprocessing failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "visited %d, processed %d, failed %d in %v\n",
			summary.Visited, summary.Processed, summary.Failed, summary.Elapsed.Round(time.Millisecond))
		return nil
	})
}

func deleteCommand(c *cli.Context) error {
	docID, err := requireArg(c, "document id")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		if err := svc.Pipeline().Delete(ctx, docID); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "deleted %s\n", docID)
		return nil
	})
}

func purgeCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docvec.Service) error {
		ns := namespace(c, svc)
		n, err := svc.Index().PurgeInactive(ctx, ns)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "purged %d inactive passages from %s\n", n, ns)
		return nil
	})
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
