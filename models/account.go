package models

import (
	"context"
	"errors"
	"time"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"github.com/shopspring/decimal"
)

// Account balance is authoritative: it is mutated only by ledger operations
// and never recomputed from transaction history at read time.
type Account struct {
	ID          int              `gorm:"primary_key" json:"id"`
	OwnerId     string           `gorm:"size:36;index:idx_account_owner;not null" json:"owner_id"`
	OwnerType   OwnerType        `gorm:"type:enum('user','vault');size:8;index:idx_account_owner;not null" json:"owner_type"`
	Name        string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Bank        string           `gorm:"size:100" json:"bank"`
	Type        AccountType      `gorm:"type:enum('checking','savings','investment','credit_card','other');default:'checking';size:16;not null" json:"type" binding:"required"`
	Balance     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CreditLimit *decimal.Decimal `gorm:"type:decimal(20,4)" json:"credit_limit"`
	LogoUrl     string           `json:"logo_url"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Name           string           `json:"name" binding:"required" validate:"required"`
	Bank           string           `json:"bank"`
	Type           AccountType      `json:"type" binding:"required" validate:"required"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
	CreditLimit    *decimal.Decimal `json:"credit_limit"`
	LogoUrl        string           `json:"logo_url"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewAccount) validate(ctx context.Context, owner OwnerRef, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Type.Valid() {
		return errors.New("invalid account type")
	}
	if input.CreditLimit != nil && input.Type != AccountTypeCreditCard {
		return errors.New("credit limit is only meaningful for credit card accounts")
	}
	if id > 0 {
		if err := utils.ValidateOwnedId[Account](ctx, owner.Id, string(owner.Type), id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Account](ctx, owner.Id, string(owner.Type), "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureFullAccess(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, owner, 0); err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if input.InitialBalance != nil {
		balance = *input.InitialBalance
	}
	account := Account{
		OwnerId:     owner.Id,
		OwnerType:   owner.Type,
		Name:        input.Name,
		Bank:        input.Bank,
		Type:        input.Type,
		Balance:     balance,
		CreditLimit: input.CreditLimit,
		LogoUrl:     input.LogoUrl,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount edits metadata only. The balance is off limits here; it only
// moves through ledger operations.
func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, owner, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchOwned[Account](ctx, owner.Id, string(owner.Type), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(account).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Bank":        input.Bank,
		"Type":        input.Type,
		"CreditLimit": input.CreditLimit,
		"LogoUrl":     input.LogoUrl,
	}).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount refuses while transactions still reference the account, so
// deletion can never orphan ledger history.
func DeleteAccount(ctx context.Context, id int) (*Account, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	account, err := utils.FetchOwned[Account](ctx, owner.Id, string(owner.Type), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Transaction{}).
		Where("source_account_id = ? OR destination_account_id = ?", id, id).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("account still has transactions; delete or move them first")
	}

	if err := db.WithContext(ctx).Delete(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchOwned[Account](ctx, owner.Id, string(owner.Type), id)
}

// GetAccounts is scope-filtered: a personal workspace sees only its own
// accounts, a vault workspace only the vault's.
func GetAccounts(ctx context.Context, accountType *string, name *string) ([]*Account, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Account
	dbCtx := owner.Scope(db.WithContext(ctx))
	if accountType != nil && len(*accountType) > 0 {
		dbCtx = dbCtx.Where("type = ?", accountType)
	}
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
