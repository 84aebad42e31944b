// report-cleanup sweeps cached analysis reports older than the retention
// window. Intended to run as a Cloud Scheduler / cron job.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/report-cleanup
//
// REPORT_RETENTION_DAYS overrides the default 90-day window.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/models"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	retention := models.DefaultReportRetention
	if v := os.Getenv("REPORT_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			fmt.Fprintf(os.Stderr, "invalid REPORT_RETENTION_DAYS %q\n", v)
			os.Exit(1)
		}
		retention = time.Duration(days) * 24 * time.Hour
	}

	removed, err := models.CleanupReports(ctx, retention)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("removed %d reports older than %s\n", removed, retention)
}
