package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/nivelado/funnel-sync/internal/infra/database"
	"github.com/nivelado/funnel-sync/internal/usecase"
)

func main() {
	fromFlag := flag.String("from-date", "", "Start date in format YYYY-MM-DD (inclusive)")
	toFlag := flag.String("to-date", "", "End date in format YYYY-MM-DD (exclusive)")
	flag.Parse()

	godotenv.Load()

	from, err := parseDate(*fromFlag)
	if err != nil {
		log.Fatalf("❌ --from-date inválida: %v", err)
	}

	to, err := parseDate(*toFlag)
	if err != nil {
		log.Fatalf("❌ --to-date inválida: %v", err)
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	reporter := usecase.NewConversionReporter(database.NewFunnelEntryRepository(db))

	report, err := reporter.Generate(context.Background(), from, to)
	if err != nil {
		log.Fatalf("❌ Falha ao gerar relatório: %v", err)
	}

	if len(report) == 0 {
		fmt.Println("No funnel entries found for the selected period.")
		return
	}

	fmt.Println("Funnel conversion report")
	fmt.Println("------------------------")

	for _, item := range report {
		fmt.Println(usecase.FormatConversion(item))
	}
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
