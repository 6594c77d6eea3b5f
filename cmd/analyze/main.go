package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dmmydply/bpizink-forecast-2025/internal/cache"
	"github.com/dmmydply/bpizink-forecast-2025/internal/config"
	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
	"github.com/dmmydply/bpizink-forecast-2025/internal/forecast"
	"github.com/dmmydply/bpizink-forecast-2025/internal/ingest"
	"github.com/dmmydply/bpizink-forecast-2025/internal/service"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "analyze",
		Usage: "Run the consumption analysis pipeline over ledger CSV files",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Analyze one or more mutation ledgers and write JSON reports",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "mutations",
						Usage:    "Mutation ledger CSV file (repeatable)",
						Required: true,
						EnvVars:  []string{"MUTATION_LEDGER"},
					},
					&cli.StringFlag{
						Name:    "production",
						Usage:   "Production ledger CSV file (optional, joined to every mutation ledger)",
						EnvVars: []string{"PRODUCTION_LEDGER"},
					},
					&cli.StringFlag{
						Name:    "out",
						Usage:   "Output directory for report JSON files",
						Value:   "./data/reports",
						EnvVars: []string{"REPORT_DIR"},
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum analyses running in parallel",
						Value: 4,
					},
				},
				Action: runAnalyses,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAnalyses(c *cli.Context) error {
	cfg := config.Load()

	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var production []domain.ProductionRecord
	if path := c.String("production"); path != "" {
		var err error
		production, err = ingest.LoadProductionLedger(path)
		if err != nil {
			return fmt.Errorf("failed to load production ledger: %w", err)
		}
	}

	svc := service.NewAnalysisService(forecast.NewEngine(), cache.NewNoopForecastCache(), cfg.Analysis)

	// Each ledger is an independent analysis; the pipeline is re-entrant, so
	// fan the files out across a bounded group.
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(c.Int("concurrency"))

	for _, path := range c.StringSlice("mutations") {
		path := path
		g.Go(func() error {
			return analyzeOne(ctx, svc, path, production, outDir)
		})
	}

	return g.Wait()
}

func analyzeOne(ctx context.Context, svc *service.AnalysisService, path string, production []domain.ProductionRecord, outDir string) error {
	ledger, err := ingest.LoadMutationLedger(path)
	if err != nil {
		return fmt.Errorf("failed to load mutation ledger %s: %w", path, err)
	}

	req := service.AnalysisRequest{Ledger: ledger, Production: production}

	report, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis of %s failed: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, base+"_report.json")

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", path, err)
	}
	if err := os.WriteFile(outPath, payload, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", outPath, err)
	}

	log.Printf("wrote %s (%d monthly points, %d forecast points)",
		outPath, len(report.MonthlyPoints), len(report.Forecast))
	return nil
}
