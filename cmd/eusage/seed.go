package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/julianladisch/eusage-reports/internal/config"
	"github.com/julianladisch/eusage-reports/internal/usage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo titles, an agreement and COUNTER data",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// demoAgreementID is fixed so the sample curl below works verbatim.
var demoAgreementID = uuid.MustParse("10000000-0000-4000-8000-000000000001")

type demoTitle struct {
	title      string
	printISSN  string
	onlineISSN string
	pubYear    int
	openAccess bool
	cost       float64
}

var demoTitles = []demoTitle{
	{title: "Journal of Library Metadata", printISSN: "1938-6389", onlineISSN: "1938-6397", pubYear: 2019, cost: 1200},
	{title: "Serials Review", printISSN: "0098-7913", onlineISSN: "1879-095X", pubYear: 2020, cost: 950},
	{title: "Code4Lib Journal", onlineISSN: "1940-5758", pubYear: 2021, openAccess: true, cost: 0},
	{title: "The Electronic Library", printISSN: "0264-0473", pubYear: 2018, cost: 780},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Check if seed has already run.
	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM title_data`).Scan(&existing); err != nil {
		return fmt.Errorf("checking existing titles: %w", err)
	}
	if existing > 0 {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	store := usage.NewStore(pool)

	var records []usage.CounterRecord
	for _, d := range demoTitles {
		titleID := uuid.New()
		pubDate := time.Date(d.pubYear, time.January, 1, 0, 0, 0, 0, time.UTC)

		if err := store.UpsertTitle(ctx, usage.Title{
			KBTitleID:       titleID,
			Title:           d.title,
			PrintISSN:       d.printISSN,
			OnlineISSN:      d.onlineISSN,
			PublicationDate: &pubDate,
			OpenAccess:      d.openAccess,
		}); err != nil {
			return err
		}

		entry := usage.AgreementEntry{
			ID:              uuid.New(),
			AgreementID:     demoAgreementID,
			KBTitleID:       titleID,
			PoLineNumber:    fmt.Sprintf("PO-2024-%04d", existing+len(records)+1),
			OrderType:       "Ongoing",
			FiscalYearRange: "[2024-01-01,2025-01-01)",
		}
		if d.cost > 0 {
			cost := d.cost
			entry.InvoiceNumber = fmt.Sprintf("INV-%s", titleID.String()[:8])
			entry.InvoicedCost = &cost
		}
		if err := store.InsertAgreementEntry(ctx, entry); err != nil {
			return err
		}

		// One year of monthly usage with a simple seasonal shape.
		for month := 0; month < 12; month++ {
			start := time.Date(2024, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
			total := int64(40 + 13*month%50)
			records = append(records, usage.CounterRecord{
				KBTitleID:         titleID,
				UsageDateRange:    fmt.Sprintf("[%s,%s)", start.Format("2006-01-02"), start.AddDate(0, 1, 0).Format("2006-01-02")),
				TotalAccessCount:  total,
				UniqueAccessCount: total * 2 / 3,
			})
		}

		slog.Info("created title", "title", d.title, "id", titleID)
	}

	if err := store.BatchInsert(ctx, records); err != nil {
		return err
	}
	slog.Info("inserted counter data", "records", len(records))

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Titles:    %d with one year of monthly COUNTER data\n", len(demoTitles))
	fmt.Printf("Agreement: %s\n", demoAgreementID)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl 'http://localhost:8081/eusage/reports/use-over-time?agreementId=%s&startDate=2024-01-01&endDate=2024-12-31&period=1M'\n", demoAgreementID)
	fmt.Printf("  curl 'http://localhost:8081/eusage/reports/cost-per-use?agreementId=%s&startDate=2024&endDate=2024'\n", demoAgreementID)

	return nil
}
