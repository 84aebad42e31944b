package models_test

import (
	"testing"

	"github.com/nossocofre/cofre_backend/models"
	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func TestBalanceEffects_Expense(t *testing.T) {
	effects, err := models.BalanceEffects(models.TransactionTypeExpense, intPtr(1), nil, decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("BalanceEffects: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("want 1 effect, got %d", len(effects))
	}
	if effects[0].AccountId != 1 || !effects[0].Delta.Equal(decimal.NewFromInt(-250)) {
		t.Fatalf("unexpected effect %+v", effects[0])
	}
}

func TestBalanceEffects_Income(t *testing.T) {
	effects, err := models.BalanceEffects(models.TransactionTypeIncome, nil, intPtr(7), decimal.NewFromInt(900))
	if err != nil {
		t.Fatalf("BalanceEffects: %v", err)
	}
	if len(effects) != 1 || effects[0].AccountId != 7 || !effects[0].Delta.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("unexpected effects %+v", effects)
	}
}

// A transfer conserves money: deltas must cancel out exactly.
func TestBalanceEffects_TransferConserves(t *testing.T) {
	effects, err := models.BalanceEffects(models.TransactionTypeTransfer, intPtr(1), intPtr(2), decimal.NewFromFloat(123.45))
	if err != nil {
		t.Fatalf("BalanceEffects: %v", err)
	}
	if len(effects) != 2 {
		t.Fatalf("want 2 effects, got %d", len(effects))
	}
	sum := decimal.Zero
	for _, e := range effects {
		sum = sum.Add(e.Delta)
	}
	if !sum.IsZero() {
		t.Fatalf("transfer deltas sum to %s, want 0", sum)
	}
}

func TestBalanceEffects_RequiredAccounts(t *testing.T) {
	cases := []struct {
		name    string
		txType  models.TransactionType
		source  *int
		dest    *int
		wantErr error
	}{
		{"expense without source", models.TransactionTypeExpense, nil, intPtr(2), models.ErrMissingSource},
		{"income without destination", models.TransactionTypeIncome, intPtr(1), nil, models.ErrMissingDestination},
		{"transfer without source", models.TransactionTypeTransfer, nil, intPtr(2), models.ErrMissingSource},
		{"transfer without destination", models.TransactionTypeTransfer, intPtr(1), nil, models.ErrMissingDestination},
		{"transfer to itself", models.TransactionTypeTransfer, intPtr(3), intPtr(3), models.ErrSameAccount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.BalanceEffects(tc.txType, tc.source, tc.dest, decimal.NewFromInt(10))
			if err != tc.wantErr {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// Applying effects and their reversal must be a net no-op, which is what the
// update and delete paths rely on.
func TestReverseEffects_RoundTrip(t *testing.T) {
	effects, err := models.BalanceEffects(models.TransactionTypeTransfer, intPtr(1), intPtr(2), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("BalanceEffects: %v", err)
	}
	reversed := models.ReverseEffects(effects)
	if len(reversed) != len(effects) {
		t.Fatalf("reversal changed effect count")
	}
	for i := range effects {
		if reversed[i].AccountId != effects[i].AccountId {
			t.Fatalf("reversal changed account at %d", i)
		}
		if !effects[i].Delta.Add(reversed[i].Delta).IsZero() {
			t.Fatalf("effect %d does not cancel: %s + %s", i, effects[i].Delta, reversed[i].Delta)
		}
	}
	// reversal must not mutate its input
	if !effects[0].Delta.Equal(decimal.NewFromInt(-500)) {
		t.Fatalf("ReverseEffects mutated the original slice")
	}
}
