// Command dispatch sends the daily newsletter digest to every opted-in
// subscriber using an articles bundle (local file or s3:// URL).
//
// Usage:
//
//	dispatch -articles articles.json [-dry-run] [-only email] [-from sender] [-dsn postgres://...]
//
// The database DSN and mailer credentials can also come from the
// DATABASE_URL, MAILER_API_KEY, and MAILER_FROM environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/personewsap/personews/internal/client/gateway"
	"github.com/personewsap/personews/internal/dispatch"
	"github.com/personewsap/personews/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		articlesPath = flag.String("articles", "", "articles bundle: local path or s3://bucket/key")
		dryRun       = flag.Bool("dry-run", false, "write HTML previews instead of sending")
		previewDir   = flag.String("previews", "previews", "preview directory for dry runs")
		onlyEmail    = flag.String("only", "", "restrict the run to a single subscriber email")
		from         = flag.String("from", os.Getenv("MAILER_FROM"), "sender address")
		apiKey       = flag.String("api-key", os.Getenv("MAILER_API_KEY"), "mailer API key")
		dsn          = flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
		concurrency  = flag.Int("concurrency", 4, "parallel sends")
		logPath      = flag.String("log", "dispatch.log", "log file path")
	)
	flag.Parse()

	if *articlesPath == "" {
		return fmt.Errorf("missing -articles")
	}
	if *dsn == "" {
		return fmt.Errorf("missing database DSN: set -dsn or DATABASE_URL")
	}
	if !*dryRun {
		if *apiKey == "" {
			return fmt.Errorf("missing mailer API key: set -api-key or MAILER_API_KEY")
		}
		if *from == "" {
			return fmt.Errorf("missing sender address: set -from or MAILER_FROM")
		}
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   *logPath,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}, nil)))

	ctx := context.Background()

	db, err := gateway.OpenPostgres(*dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	bundle, err := dispatch.ReadBundle(ctx, *articlesPath)
	if err != nil {
		return err
	}

	d := dispatch.NewDispatcher(gateway.NewPostgres(db), dispatch.NewHTTPSender(*apiKey, logger), logger)
	summary, err := d.Run(ctx, bundle, dispatch.Options{
		From:        *from,
		DryRun:      *dryRun,
		PreviewDir:  *previewDir,
		OnlyEmail:   *onlyEmail,
		Concurrency: *concurrency,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Sent %d emails (%d skipped, %d failed) out of %d subscribers.\n",
		summary.Sent, summary.Skipped, summary.Failed, summary.Subscribers)
	return nil
}
