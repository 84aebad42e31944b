package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"gorm.io/gorm"
)

// Vault is a shared multi-member workspace. Exactly one member carries the
// owner role (the creator).
type Vault struct {
	ID        string         `gorm:"primary_key;size:36" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name" binding:"required"`
	IsPrivate *bool          `gorm:"not null;default:false" json:"is_private"`
	LogoUrl   string         `json:"logo_url"`
	CreatedBy string         `gorm:"size:36;index;not null" json:"created_by"`
	Members   []*VaultMember `gorm:"foreignKey:VaultId" json:"members,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type VaultMember struct {
	ID        int       `gorm:"primary_key" json:"id"`
	VaultId   string    `gorm:"size:36;uniqueIndex:idx_vault_user;not null" json:"vault_id"`
	UserId    string    `gorm:"size:36;uniqueIndex:idx_vault_user;not null" json:"user_id"`
	Role      VaultRole `gorm:"type:enum('owner','member');default:'member';size:12;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewVault struct {
	Name      string `json:"name" binding:"required" validate:"required"`
	IsPrivate *bool  `json:"is_private"`
	LogoUrl   string `json:"logo_url"`
}

// CreateVault is gated: only users with full access may open new vaults.
func CreateVault(ctx context.Context, input *NewVault) (*Vault, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := EnsureFullAccess(ctx); err != nil {
		return nil, err
	}

	isPrivate := input.IsPrivate
	if isPrivate == nil {
		isPrivate = utils.NewFalse()
	}
	vault := Vault{
		ID:        uuid.NewString(),
		Name:      input.Name,
		IsPrivate: isPrivate,
		LogoUrl:   input.LogoUrl,
		CreatedBy: userId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&vault).Error; err != nil {
			return err
		}
		member := VaultMember{
			VaultId: vault.ID,
			UserId:  userId,
			Role:    VaultRoleOwner,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &vault, nil
}

func GetVault(ctx context.Context, vaultId string) (*Vault, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if _, err := ResolveScopeFor(ctx, userId, vaultId); err != nil {
		return nil, err
	}
	return utils.FetchSingleModel[Vault](ctx, vaultId, "Members")
}

// GetVaults lists vaults the acting user currently belongs to.
func GetVaults(ctx context.Context) ([]*Vault, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	db := config.GetDB()
	var results []*Vault
	err := db.WithContext(ctx).
		Joins("JOIN vault_members ON vault_members.vault_id = vaults.id").
		Where("vault_members.user_id = ?", userId).
		Preload("Members").
		Order("vaults.created_at").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

type UpdateVaultInput struct {
	Name      string `json:"name" binding:"required" validate:"required"`
	IsPrivate *bool  `json:"is_private"`
	LogoUrl   string `json:"logo_url"`
}

func UpdateVault(ctx context.Context, vaultId string, input *UpdateVaultInput) (*Vault, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := requireVaultRole(ctx, vaultId, VaultRoleOwner); err != nil {
		return nil, err
	}

	vault, err := utils.FetchSingleModel[Vault](ctx, vaultId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":    input.Name,
		"LogoUrl": input.LogoUrl,
	}
	if input.IsPrivate != nil {
		updates["IsPrivate"] = input.IsPrivate
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(vault).Updates(updates).Error; err != nil {
		return nil, err
	}
	return vault, nil
}

// addVaultMember is only reachable through invitation acceptance.
func addVaultMember(tx *gorm.DB, ctx context.Context, vaultId string, userId string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&VaultMember{}).
		Where("vault_id = ? AND user_id = ?", vaultId, userId).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // already a member, accepting twice is harmless
	}
	member := VaultMember{
		VaultId: vaultId,
		UserId:  userId,
		Role:    VaultRoleMember,
	}
	return tx.WithContext(ctx).Create(&member).Error
}

// RemoveVaultMember: only the owner can remove members, and the owner role
// itself cannot be removed.
func RemoveVaultMember(ctx context.Context, vaultId string, memberUserId string) error {
	if err := requireVaultRole(ctx, vaultId, VaultRoleOwner); err != nil {
		return err
	}

	db := config.GetDB()
	var member VaultMember
	if err := db.WithContext(ctx).
		Where("vault_id = ? AND user_id = ?", vaultId, memberUserId).
		First(&member).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	if member.Role == VaultRoleOwner {
		return errors.New("the vault owner cannot be removed")
	}
	return db.WithContext(ctx).Delete(&member).Error
}

// LeaveVault lets a non-owner member exit on their own.
func LeaveVault(ctx context.Context, vaultId string) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}

	db := config.GetDB()
	var member VaultMember
	if err := db.WithContext(ctx).
		Where("vault_id = ? AND user_id = ?", vaultId, userId).
		First(&member).Error; err != nil {
		return ErrNotAMember
	}
	if member.Role == VaultRoleOwner {
		return errors.New("the vault owner cannot leave; transfer or delete the vault instead")
	}
	return db.WithContext(ctx).Delete(&member).Error
}

func requireVaultRole(ctx context.Context, vaultId string, role VaultRole) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}

	db := config.GetDB()
	var member VaultMember
	if err := db.WithContext(ctx).
		Where("vault_id = ? AND user_id = ?", vaultId, userId).
		First(&member).Error; err != nil {
		return ErrNotAMember
	}
	if member.Role != role {
		return errors.New("vault owner role required")
	}
	return nil
}
