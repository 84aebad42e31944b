package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"github.com/shopspring/decimal"
)

// InstallmentSet holds which installment numbers of a purchase are paid.
// It is a set, not a count: installments can be reconciled out of order
// (paying number 3 before number 2 is fine). Stored as a sorted JSON array.
type InstallmentSet []int

func (s InstallmentSet) Contains(n int) bool {
	for _, v := range s {
		if v == n {
			return true
		}
	}
	return false
}

// Add returns a new set including n. Adding an existing member is a no-op.
func (s InstallmentSet) Add(n int) InstallmentSet {
	if s.Contains(n) {
		return s
	}
	out := make(InstallmentSet, len(s), len(s)+1)
	copy(out, s)
	out = append(out, n)
	sort.Ints(out)
	return out
}

// Remove returns a new set excluding n. Removing a non-member is a no-op.
func (s InstallmentSet) Remove(n int) InstallmentSet {
	out := make(InstallmentSet, 0, len(s))
	for _, v := range s {
		if v != n {
			out = append(out, v)
		}
	}
	return out
}

func (s InstallmentSet) Value() (driver.Value, error) {
	if s == nil {
		s = InstallmentSet{}
	}
	return json.Marshal(s)
}

func (s *InstallmentSet) Scan(value interface{}) error {
	if value == nil {
		*s = InstallmentSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported installment set column type")
	}
	if len(data) == 0 {
		*s = InstallmentSet{}
		return nil
	}
	return json.Unmarshal(data, s)
}

/* derived values, never stored */

func (t *Transaction) PaidAmount() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(int64(len(t.PaidInstallments))))
}

func (t *Transaction) TotalAmount() decimal.Decimal {
	if t.TotalInstallments == nil {
		return t.Amount
	}
	return t.Amount.Mul(decimal.NewFromInt(int64(*t.TotalInstallments)))
}

func (t *Transaction) InstallmentProgress() decimal.Decimal {
	if t.TotalInstallments == nil || *t.TotalInstallments == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(len(t.PaidInstallments))).
		Div(decimal.NewFromInt(int64(*t.TotalInstallments))).
		Mul(decimal.NewFromInt(100))
}

// MarkInstallment toggles one installment of a purchase paid or unpaid.
// This is a checklist annotation over money already accounted for when the
// purchase posted: it touches no account balance. Marking an already-paid
// installment paid again is a no-op.
func MarkInstallment(ctx context.Context, transactionId int, number int, paid bool) (*Transaction, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	txn, err := utils.FetchOwned[Transaction](ctx, owner.Id, string(owner.Type), transactionId)
	if err != nil {
		return nil, err
	}
	if txn.TotalInstallments == nil {
		return nil, errors.New("transaction has no installments")
	}
	if number < 1 || number > *txn.TotalInstallments {
		return nil, errors.New("installment number out of range")
	}

	updated := txn.PaidInstallments
	if paid {
		updated = updated.Add(number)
	} else {
		updated = updated.Remove(number)
	}

	// the updated_at guard keeps two concurrent marks from overwriting each
	// other's set; the loser retries with a fresh read
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND updated_at = ?", txn.ID, txn.UpdatedAt).
		Updates(map[string]interface{}{"paid_installments": updated})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("transaction was changed concurrently, retry the mark")
	}
	txn.PaidInstallments = updated
	return txn, nil
}
