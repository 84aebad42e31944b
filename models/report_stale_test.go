package models_test

import (
	"testing"
	"time"

	"github.com/nossocofre/cofre_backend/models"
)

func TestIsReportStale(t *testing.T) {
	generated := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	before := generated.Add(-time.Hour)
	after := generated.Add(time.Hour)

	if models.IsReportStale(generated, nil) {
		t.Fatalf("a month with no transactions cannot make a report stale")
	}
	if models.IsReportStale(generated, &before) {
		t.Fatalf("older transactions do not stale the report")
	}
	if models.IsReportStale(generated, &generated) {
		t.Fatalf("a transaction at the exact generation instant is covered")
	}
	if !models.IsReportStale(generated, &after) {
		t.Fatalf("a newer transaction must stale the report")
	}
}
