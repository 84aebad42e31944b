package models_test

import (
	"testing"

	"github.com/nossocofre/cofre_backend/models"
	"github.com/shopspring/decimal"
)

func TestInstallmentSet_AddIsIdempotentAndSorted(t *testing.T) {
	var s models.InstallmentSet
	s = s.Add(3).Add(1).Add(3).Add(2)
	want := []int{1, 2, 3}
	if len(s) != len(want) {
		t.Fatalf("got %v, want %v", s, want)
	}
	for i, n := range want {
		if s[i] != n {
			t.Fatalf("got %v, want %v", s, want)
		}
	}
}

func TestInstallmentSet_RemoveNonMemberIsNoop(t *testing.T) {
	s := models.InstallmentSet{1, 2}
	s = s.Remove(5).Remove(2).Remove(2)
	if len(s) != 1 || s[0] != 1 {
		t.Fatalf("got %v, want [1]", s)
	}
}

func TestInstallmentSet_AddDoesNotMutateReceiver(t *testing.T) {
	orig := models.InstallmentSet{1}
	_ = orig.Add(2)
	if len(orig) != 1 {
		t.Fatalf("Add mutated receiver: %v", orig)
	}
}

func TestInstallmentSet_ScanRoundTrip(t *testing.T) {
	s := models.InstallmentSet{2, 5, 9}
	raw, err := s.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var back models.InstallmentSet
	if err := back.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(back) != 3 || back[0] != 2 || back[1] != 5 || back[2] != 9 {
		t.Fatalf("round trip got %v", back)
	}

	var empty models.InstallmentSet
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("Scan(nil) should yield empty set, got %v", empty)
	}
}

// The per-installment amount times the paid set is the derived paid total;
// nothing about installments is ever posted to an account balance.
func TestInstallmentDerivedAmounts(t *testing.T) {
	total := 10
	txn := models.Transaction{
		Amount:            decimal.NewFromInt(150),
		TotalInstallments: &total,
		PaidInstallments:  models.InstallmentSet{1, 2, 4},
	}
	if !txn.PaidAmount().Equal(decimal.NewFromInt(450)) {
		t.Fatalf("PaidAmount = %s, want 450", txn.PaidAmount())
	}
	if !txn.TotalAmount().Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("TotalAmount = %s, want 1500", txn.TotalAmount())
	}
	if !txn.InstallmentProgress().Equal(decimal.NewFromInt(30)) {
		t.Fatalf("InstallmentProgress = %s, want 30", txn.InstallmentProgress())
	}
}

func TestInstallmentProgress_NoInstallments(t *testing.T) {
	txn := models.Transaction{Amount: decimal.NewFromInt(99)}
	if !txn.InstallmentProgress().IsZero() {
		t.Fatalf("progress without installments should be 0")
	}
	if !txn.TotalAmount().Equal(decimal.NewFromInt(99)) {
		t.Fatalf("TotalAmount without installments should equal Amount")
	}
}
