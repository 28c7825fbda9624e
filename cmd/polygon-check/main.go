// Command polygon-check loads the configured settlement source, reports
// which records would be dropped and why, and can seed the SQLite source
// from a JSON file. With -enrich it also reverse geocodes the first n
// settlements in load order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/mr1hm/go-settlements/internal/config"
	"github.com/mr1hm/go-settlements/internal/enrichment"
	"github.com/mr1hm/go-settlements/internal/geocode"
	"github.com/mr1hm/go-settlements/internal/geometry"
	"github.com/mr1hm/go-settlements/internal/logging"
	"github.com/mr1hm/go-settlements/internal/models"
	"github.com/mr1hm/go-settlements/internal/repository"
)

func main() {
	importPath := flag.String("import", "", "JSON file to copy into the SQLite source before checking")
	enrichN := flag.Int("enrich", 0, "reverse geocode the first n loaded settlements")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	if *importPath != "" {
		if err := importFile(ctx, cfg.Source.DBPath, *importPath); err != nil {
			logging.Fatalf("Import failed: %v", err)
		}
		cfg.Source.Kind = config.SourceSQLite
	}

	src, closeSource, err := repository.Open(cfg.Source)
	if err != nil {
		logging.Fatalf("Failed to open source: %v", err)
	}

	repo := repository.New(geometry.NewColorAssigner())
	report, err := repo.Load(ctx, src)
	closeSource()
	if err != nil {
		logging.Fatalf("Load failed: %v", err)
	}

	for _, o := range report.Skipped {
		fmt.Printf("skipped\t%s\t%s\n", o.ID, o.Reason)
	}
	fmt.Printf("%s: %d records, %d loaded, %d skipped\n", report.Source, report.Total, report.Loaded, len(report.Skipped))

	if *enrichN > 0 {
		if err := enrich(ctx, cfg, repo, *enrichN); err != nil {
			logging.Fatalf("Enrichment failed: %v", err)
		}
	}

	if len(report.Skipped) > 0 {
		os.Exit(2)
	}
}

func enrich(ctx context.Context, cfg *config.Config, repo *repository.Repository, n int) error {
	cache, err := geocode.NewCache(cfg.Geocode.CacheSize)
	if err != nil {
		return err
	}
	client := geocode.NewClient(cache,
		geocode.WithBaseURL(cfg.Geocode.URL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithLanguages(cfg.Geocode.Languages),
		geocode.WithMinInterval(cfg.Geocode.MinInterval),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
	)
	sched := enrichment.New(repo, client, enrichment.WithInterval(cfg.Enrich.Interval))

	all := repo.All()
	ids := make([]string, 0, min(n, len(all)))
	for _, s := range all[:min(n, len(all))] {
		ids = append(ids, s.ID)
	}

	rep := sched.Run(ctx, ids)
	for _, o := range rep.Outcomes {
		name := ""
		if st, ok := repo.Get(o.ID); ok {
			name = st.DisplayName
		}
		fmt.Printf("%s\t%s\t%s%s\n", o.Kind, o.ID, name, o.Reason)
	}
	fmt.Printf("enriched %d of %d, %d skipped\n",
		rep.Count(models.OutcomeOK), len(ids), rep.Count(models.OutcomeSkipped))
	return nil
}

func importFile(ctx context.Context, dbPath, path string) error {
	records, err := repository.FileSource{Path: path}.Records(ctx)
	if err != nil {
		return err
	}

	db, err := repository.NewSQLiteSource(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Import(ctx, records); err != nil {
		return err
	}
	slog.Info("imported records", "path", path, "db", dbPath, "count", len(records))
	return nil
}
