package models

import (
	"context"
	"errors"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"gorm.io/gorm"
)

// OwnerRef is the discriminated personal-vs-vault ownership tag carried by
// every financial entity. It is always fully populated: there is no legal
// state with a missing type or id.
type OwnerRef struct {
	Type OwnerType
	Id   string
}

func PersonalOwner(userId string) OwnerRef {
	return OwnerRef{Type: OwnerTypeUser, Id: userId}
}

func VaultOwner(vaultId string) OwnerRef {
	return OwnerRef{Type: OwnerTypeVault, Id: vaultId}
}

func (o OwnerRef) IsPersonal() bool {
	return o.Type == OwnerTypeUser
}

// Scope narrows a query to rows owned by this owner reference.
func (o OwnerRef) Scope(dbCtx *gorm.DB) *gorm.DB {
	return dbCtx.Where("owner_id = ? AND owner_type = ?", o.Id, o.Type)
}

// ResolveScopeFor maps (acting user, requested workspace) to the owner
// reference used for all subsequent reads/writes:
//   - workspaceId == userId resolves to the personal workspace
//   - otherwise the user must be a current member of the vault
//
// Membership is re-checked on every request; never cache the result across
// requests, membership can change between them. A non-member never falls
// back to personal scope.
func ResolveScopeFor(ctx context.Context, userId string, workspaceId string) (OwnerRef, error) {
	if userId == "" {
		return OwnerRef{}, errors.New("user id is required")
	}
	if workspaceId == "" || workspaceId == userId {
		return PersonalOwner(userId), nil
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&VaultMember{}).
		Where("vault_id = ? AND user_id = ?", workspaceId, userId).
		Count(&count).Error; err != nil {
		return OwnerRef{}, err
	}
	if count <= 0 {
		return OwnerRef{}, ErrNotAMember
	}
	return VaultOwner(workspaceId), nil
}

// ResolveScope resolves using the acting user and workspace carried in ctx.
func ResolveScope(ctx context.Context) (OwnerRef, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return OwnerRef{}, errors.New("user id is required")
	}
	workspaceId, _ := utils.GetWorkspaceIdFromContext(ctx)
	return ResolveScopeFor(ctx, userId, workspaceId)
}
