package models

import (
	"context"
	"errors"
	"time"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction records a single ledger event. For installment purchases the
// amount is the per-installment amount, not the total.
type Transaction struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	OwnerId              string          `gorm:"size:36;index:idx_txn_owner;not null" json:"owner_id"`
	OwnerType            OwnerType       `gorm:"type:enum('user','vault');size:8;index:idx_txn_owner;not null" json:"owner_type"`
	Description          string          `gorm:"size:255;not null" json:"description"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type                 TransactionType `gorm:"type:enum('income','expense','transfer');size:12;not null" json:"type"`
	Category             string          `gorm:"size:100" json:"category"`
	PaymentMethod        string          `gorm:"size:50" json:"payment_method"`
	Date                 time.Time       `gorm:"index;not null" json:"date"`
	SourceAccountId      *int            `gorm:"index" json:"source_account_id"`
	DestinationAccountId *int            `gorm:"index" json:"destination_account_id"`
	GoalId               *int            `gorm:"index" json:"goal_id"`
	ActorId              string          `gorm:"size:36;not null" json:"actor_id"`
	IsRecurring          bool            `gorm:"default:false" json:"is_recurring"`
	TotalInstallments    *int            `json:"total_installments"`
	PaidInstallments     InstallmentSet  `gorm:"type:json" json:"paid_installments"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"index;autoUpdateTime" json:"updated_at"`
}

type NewTransaction struct {
	Description          string          `json:"description" binding:"required" validate:"required"`
	Amount               decimal.Decimal `json:"amount" binding:"required"`
	Type                 TransactionType `json:"type" binding:"required" validate:"required"`
	Category             string          `json:"category"`
	PaymentMethod        string          `json:"payment_method"`
	Date                 time.Time       `json:"date"`
	SourceAccountId      *int            `json:"source_account_id"`
	DestinationAccountId *int            `json:"destination_account_id"`
	GoalId               *int            `json:"goal_id"`
	IsRecurring          bool            `json:"is_recurring"`
	TotalInstallments    *int            `json:"total_installments"`
	FirstInstallmentPaid bool            `json:"first_installment_paid"`
}

// BalanceEffect is one signed balance mutation against one account.
type BalanceEffect struct {
	AccountId int
	Delta     decimal.Decimal
}

// BalanceEffects derives the account mutations a transaction implies:
//
//	income:   destination += amount
//	expense:  source -= amount
//	transfer: source -= amount; destination += amount
//
// Credit-card limits are informational only and never block an expense here.
func BalanceEffects(txType TransactionType, sourceId *int, destinationId *int, amount decimal.Decimal) ([]BalanceEffect, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	switch txType {
	case TransactionTypeIncome:
		if destinationId == nil {
			return nil, ErrMissingDestination
		}
		return []BalanceEffect{{AccountId: *destinationId, Delta: amount}}, nil
	case TransactionTypeExpense:
		if sourceId == nil {
			return nil, ErrMissingSource
		}
		return []BalanceEffect{{AccountId: *sourceId, Delta: amount.Neg()}}, nil
	case TransactionTypeTransfer:
		if sourceId == nil {
			return nil, ErrMissingSource
		}
		if destinationId == nil {
			return nil, ErrMissingDestination
		}
		if *sourceId == *destinationId {
			return nil, ErrSameAccount
		}
		return []BalanceEffect{
			{AccountId: *sourceId, Delta: amount.Neg()},
			{AccountId: *destinationId, Delta: amount},
		}, nil
	}
	return nil, errors.New("invalid transaction type")
}

// ReverseEffects negates a set of balance effects. Applying a transaction's
// effects followed by its reversed effects is a no-op on every balance.
func ReverseEffects(effects []BalanceEffect) []BalanceEffect {
	reversed := make([]BalanceEffect, len(effects))
	for i, e := range effects {
		reversed[i] = BalanceEffect{AccountId: e.AccountId, Delta: e.Delta.Neg()}
	}
	return reversed
}

// applyEffects pushes each read-modify-write into the database
// (balance = balance + ?) so concurrent postings cannot lose updates.
// An account outside the owner scope is reported as cross-scope, never
// silently skipped.
func applyEffects(tx *gorm.DB, ctx context.Context, owner OwnerRef, effects []BalanceEffect) error {
	for _, effect := range effects {
		res := tx.WithContext(ctx).Model(&Account{}).
			Where("id = ? AND owner_id = ? AND owner_type = ?", effect.AccountId, owner.Id, owner.Type).
			UpdateColumn("balance", gorm.Expr("balance + ?", effect.Delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.WithContext(ctx).Model(&Account{}).
				Where("id = ?", effect.AccountId).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrCrossScopeAccount
			}
			return ErrAccountNotFound
		}
	}
	return nil
}

func (input *NewTransaction) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Type.Valid() {
		return errors.New("invalid transaction type")
	}
	if !input.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if input.TotalInstallments != nil && *input.TotalInstallments < 1 {
		return errors.New("total installments must be at least 1")
	}
	return nil
}

// createTransactionTx posts a transaction and its balance effects as one
// atomic unit inside the caller's database transaction. Goal funding reuses
// it so a deposit and its account movement commit together.
func createTransactionTx(tx *gorm.DB, ctx context.Context, owner OwnerRef, actorId string, input *NewTransaction) (*Transaction, error) {
	effects, err := BalanceEffects(input.Type, input.SourceAccountId, input.DestinationAccountId, input.Amount)
	if err != nil {
		return nil, err
	}
	if input.GoalId != nil {
		if err := validateGoalReference(tx, ctx, owner, actorId, *input.GoalId); err != nil {
			return nil, err
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	paid := InstallmentSet{}
	if input.TotalInstallments != nil && input.FirstInstallmentPaid {
		paid = paid.Add(1)
	}

	txn := Transaction{
		OwnerId:              owner.Id,
		OwnerType:            owner.Type,
		Description:          input.Description,
		Amount:               input.Amount,
		Type:                 input.Type,
		Category:             input.Category,
		PaymentMethod:        input.PaymentMethod,
		Date:                 date,
		SourceAccountId:      input.SourceAccountId,
		DestinationAccountId: input.DestinationAccountId,
		GoalId:               input.GoalId,
		ActorId:              actorId,
		IsRecurring:          input.IsRecurring,
		TotalInstallments:    input.TotalInstallments,
		PaidInstallments:     paid,
	}
	if err := tx.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, err
	}
	if err := applyEffects(tx, ctx, owner, effects); err != nil {
		return nil, err
	}
	return &txn, nil
}

// validateGoalReference checks that a posted transaction only links goals the
// actor can fund from this workspace: the workspace's own visible goals, a
// personal goal the actor joined as a participant, or a shared goal of a
// vault the actor is a member of (a cross-workspace contribution from the
// personal workspace).
func validateGoalReference(tx *gorm.DB, ctx context.Context, owner OwnerRef, actorId string, goalId int) error {
	var goal Goal
	if err := tx.WithContext(ctx).Preload("Participants").First(&goal, "id = ?", goalId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	if goal.OwnerId == owner.Id && goal.OwnerType == owner.Type {
		return ensureGoalVisible(ctx, &goal)
	}
	if !owner.IsPersonal() {
		return utils.ErrorRecordNotFound
	}
	if goal.OwnerType == OwnerTypeUser {
		for _, p := range goal.Participants {
			if p.UserId == actorId {
				return nil
			}
		}
		return utils.ErrorRecordNotFound
	}
	if goal.Visibility != GoalVisibilityShared {
		return utils.ErrorRecordNotFound
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&VaultMember{}).
		Where("vault_id = ? AND user_id = ?", goal.OwnerId, actorId).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// CreateTransaction posts a transaction: the row and the balance update(s)
// commit or fail as one unit.
func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureFullAccess(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	actorId, _ := utils.GetUserIdFromContext(ctx)

	var txn *Transaction
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		txn, txErr = createTransactionTx(tx, ctx, owner, actorId, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// UpdateTransaction reverses the original balance effect before applying the
// new one. Skipping the reversal would silently corrupt account balances.
func UpdateTransaction(ctx context.Context, id int, input *NewTransaction) (*Transaction, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	txn, err := utils.FetchOwned[Transaction](ctx, owner.Id, string(owner.Type), id)
	if err != nil {
		return nil, err
	}

	oldEffects, err := BalanceEffects(txn.Type, txn.SourceAccountId, txn.DestinationAccountId, txn.Amount)
	if err != nil {
		return nil, err
	}
	newEffects, err := BalanceEffects(input.Type, input.SourceAccountId, input.DestinationAccountId, input.Amount)
	if err != nil {
		return nil, err
	}

	// a correction that omits the date keeps the original posting date, so
	// the row stays in its month
	date := input.Date
	if date.IsZero() {
		date = txn.Date
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyEffects(tx, ctx, owner, ReverseEffects(oldEffects)); err != nil {
			return err
		}
		if err := applyEffects(tx, ctx, owner, newEffects); err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(txn).Updates(map[string]interface{}{
			"Description":          input.Description,
			"Amount":               input.Amount,
			"Type":                 input.Type,
			"Category":             input.Category,
			"PaymentMethod":        input.PaymentMethod,
			"Date":                 date,
			"SourceAccountId":      input.SourceAccountId,
			"DestinationAccountId": input.DestinationAccountId,
			"IsRecurring":          input.IsRecurring,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DeleteTransaction reverses the balance effect and removes the row, both in
// one database transaction.
func DeleteTransaction(ctx context.Context, id int) (*Transaction, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	txn, err := utils.FetchOwned[Transaction](ctx, owner.Id, string(owner.Type), id)
	if err != nil {
		return nil, err
	}

	effects, err := BalanceEffects(txn.Type, txn.SourceAccountId, txn.DestinationAccountId, txn.Amount)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyEffects(tx, ctx, owner, ReverseEffects(effects)); err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(txn).Error
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchOwned[Transaction](ctx, owner.Id, string(owner.Type), id)
}

// GetTransactions lists a calendar month of transactions for the resolved
// workspace. A vault workspace also sees contributions participants made to
// the vault's shared goals from their personal workspaces.
func GetTransactions(ctx context.Context, monthYear string) ([]*Transaction, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := utils.MonthBounds(monthYear)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Transaction
	dbCtx := owner.Scope(db.WithContext(ctx)).
		Where("date >= ? AND date < ?", start, end)
	if err := dbCtx.Order("date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	if owner.Type == OwnerTypeVault {
		// contributions only count when the contributor is a vault member
		var contributions []*Transaction
		err := db.WithContext(ctx).
			Where("goal_id IN (?)", db.Model(&Goal{}).Select("id").
				Where("owner_id = ? AND owner_type = ? AND visibility = ?", owner.Id, owner.Type, GoalVisibilityShared)).
			Where("owner_type = ? AND owner_id IN (?)", OwnerTypeUser,
				db.Model(&VaultMember{}).Select("user_id").Where("vault_id = ?", owner.Id)).
			Where("date >= ? AND date < ?", start, end).
			Order("date DESC, id DESC").
			Find(&contributions).Error
		if err != nil {
			return nil, err
		}
		results = append(results, contributions...)
	}
	return results, nil
}

// RecurringGroup bundles same-description recurring rows for display. Each
// occurrence is its own independent transaction posted by the external
// scheduler; grouping is presentation only.
type RecurringGroup struct {
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	Occurrences  []*Transaction  `json:"occurrences"`
	LastPostedAt time.Time       `json:"last_posted_at"`
}

func GroupRecurring(ctx context.Context) ([]*RecurringGroup, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var rows []*Transaction
	err = owner.Scope(db.WithContext(ctx)).
		Where("is_recurring = ?", true).
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byDescription := make(map[string]*RecurringGroup)
	var groups []*RecurringGroup
	for _, row := range rows {
		group, ok := byDescription[row.Description]
		if !ok {
			group = &RecurringGroup{
				Description:  row.Description,
				Amount:       row.Amount,
				Category:     row.Category,
				LastPostedAt: row.Date,
			}
			byDescription[row.Description] = group
			groups = append(groups, group)
		}
		group.Occurrences = append(group.Occurrences, row)
		if row.Date.After(group.LastPostedAt) {
			group.LastPostedAt = row.Date
		}
	}
	return groups, nil
}
