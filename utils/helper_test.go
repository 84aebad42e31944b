package utils_test

import (
	"testing"
	"time"

	"github.com/nossocofre/cofre_backend/utils"
)

func TestMonthBounds(t *testing.T) {
	start, end, err := utils.MonthBounds("2026-01")
	if err != nil {
		t.Fatalf("MonthBounds: %v", err)
	}
	if !start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", start)
	}
	if !end.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %s", end)
	}

	// December rolls into the next year.
	_, end, err = utils.MonthBounds("2025-12")
	if err != nil {
		t.Fatalf("MonthBounds: %v", err)
	}
	if !end.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("december end = %s", end)
	}

	for _, bad := range []string{"", "2026", "2026-13", "01-2026", "2026-1"} {
		if _, _, err := utils.MonthBounds(bad); err == nil {
			t.Fatalf("MonthBounds(%q) should fail", bad)
		}
	}

	if utils.FormatMonthYear(time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC)) != "2026-07" {
		t.Fatalf("FormatMonthYear mismatch")
	}
}
