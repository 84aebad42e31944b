package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/nossocofre/cofre_backend/config"
)

var validate = validator.New()

// ValidateStruct runs the `validate` tags of an input struct. Used by model
// input validate() methods so the rules also apply outside the HTTP layer.
func ValidateStruct(input interface{}) error {
	return validate.Struct(input)
}

// amount must be strictly positive for every ledger/goal operation
func ValidatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

// check if id exists within the owner scope, return RecordNotFound error
func ValidateOwnedId[T any](ctx context.Context, ownerId string, ownerType string, id interface{}) error {

	count, err := OwnedCountWhere[T](ctx, ownerId, ownerType, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, ownerId string, ownerType string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = OwnedCountWhere[T](ctx, ownerId, ownerType, column+" = ?", value)
	} else {
		count, err = OwnedCountWhere[T](ctx, ownerId, ownerType, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE owner_id = ? AND owner_type = ? AND $condition
func OwnedCountWhere[T any](ctx context.Context, ownerId string, ownerType string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if ownerId != "" {
		dbCtx.Where("owner_id = ? AND owner_type = ?", ownerId, ownerType)
	}
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
