package models

import (
	"context"
	"errors"
	"time"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"gorm.io/gorm"
)

// Invitation invites a user into a vault or a single goal. The receiver is
// matched by id when they already have an account, by email otherwise; the
// email match is resolved on registration. Accepted/declined are terminal.
type Invitation struct {
	ID            int              `gorm:"primary_key" json:"id"`
	Type          InvitationType   `gorm:"type:enum('vault','goal');size:8;not null" json:"type"`
	SenderId      string           `gorm:"size:36;index;not null" json:"sender_id"`
	ReceiverId    string           `gorm:"size:36;index" json:"receiver_id"`
	ReceiverEmail string           `gorm:"size:100;index;not null" json:"receiver_email"`
	VaultId       *string          `gorm:"size:36;index" json:"vault_id"`
	GoalId        *int             `gorm:"index" json:"goal_id"`
	Status        InvitationStatus `gorm:"type:enum('pending','accepted','declined');default:'pending';size:12;not null" json:"status"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvitation struct {
	ReceiverEmail string  `json:"receiver_email" binding:"required,email" validate:"required,email"`
	VaultId       *string `json:"vault_id"`
	GoalId        *int    `json:"goal_id"`
}

// SendInvitation creates a vault or goal invitation. Exactly one of VaultId
// and GoalId must be set. Sending requires standing: vault invites come from
// current members, goal invites from users who can see the goal.
func SendInvitation(ctx context.Context, input *NewInvitation) (*Invitation, error) {
	senderId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || senderId == "" {
		return nil, errors.New("user id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if (input.VaultId == nil) == (input.GoalId == nil) {
		return nil, errors.New("exactly one of vault_id and goal_id is required")
	}

	db := config.GetDB()

	invitation := Invitation{
		SenderId:      senderId,
		ReceiverEmail: input.ReceiverEmail,
		Status:        InvitationStatusPending,
	}

	if input.VaultId != nil {
		if _, err := ResolveScopeFor(ctx, senderId, *input.VaultId); err != nil {
			return nil, err
		}
		invitation.Type = InvitationTypeVault
		invitation.VaultId = input.VaultId
	} else {
		goal, err := GetGoal(ctx, *input.GoalId)
		if err != nil {
			return nil, err
		}
		if goal.OwnerType == OwnerTypeVault && goal.Visibility == GoalVisibilityShared {
			return nil, errors.New("shared vault goals take participants from vault membership")
		}
		invitation.Type = InvitationTypeGoal
		invitation.GoalId = input.GoalId
	}

	// match the receiver now if they already registered
	var receiver User
	err := db.WithContext(ctx).Where("email = ?", input.ReceiverEmail).First(&receiver).Error
	if err == nil {
		invitation.ReceiverId = receiver.ID
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := db.WithContext(ctx).Create(&invitation).Error; err != nil {
		return nil, err
	}

	notifyInvitationSent(ctx, &invitation)
	return &invitation, nil
}

// GetInvitations lists pending invitations addressed to the acting user.
func GetInvitations(ctx context.Context) ([]*Invitation, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	db := config.GetDB()
	var results []*Invitation
	err := db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userId, InvitationStatusPending).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// AcceptInvitation is never gated by subscription status: an inactive user
// must still be able to join someone else's active vault or goal.
func AcceptInvitation(ctx context.Context, id int) (*Invitation, error) {
	invitation, err := fetchRespondable(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(invitation).UpdateColumn("status", InvitationStatusAccepted).Error; err != nil {
			return err
		}
		switch invitation.Type {
		case InvitationTypeVault:
			return addVaultMember(tx, ctx, *invitation.VaultId, invitation.ReceiverId)
		case InvitationTypeGoal:
			var goal Goal
			if err := tx.WithContext(ctx).First(&goal, "id = ?", *invitation.GoalId).Error; err != nil {
				return utils.ErrorRecordNotFound
			}
			return addGoalParticipant(tx, ctx, &goal, invitation.ReceiverId)
		}
		return errors.New("invalid invitation type")
	})
	if err != nil {
		return nil, err
	}

	invitation.Status = InvitationStatusAccepted
	notifyInvitationAccepted(ctx, invitation)
	return invitation, nil
}

// DeclineInvitation is terminal and, like accepting, never gated.
func DeclineInvitation(ctx context.Context, id int) (*Invitation, error) {
	invitation, err := fetchRespondable(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invitation).
		UpdateColumn("status", InvitationStatusDeclined).Error; err != nil {
		return nil, err
	}
	invitation.Status = InvitationStatusDeclined
	return invitation, nil
}

func fetchRespondable(ctx context.Context, id int) (*Invitation, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	db := config.GetDB()
	var invitation Invitation
	if err := db.WithContext(ctx).First(&invitation, "id = ?", id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if invitation.ReceiverId != userId {
		return nil, utils.ErrorRecordNotFound
	}
	if invitation.Status != InvitationStatusPending {
		return nil, errors.New("invitation has already been responded to")
	}
	return &invitation, nil
}

// MatchInvitationsByEmail attaches pre-registration invitations to a freshly
// created user id. Called once on registration.
func MatchInvitationsByEmail(ctx context.Context, email string, userId string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Invitation{}).
		Where("receiver_email = ? AND receiver_id = '' AND status = ?", email, InvitationStatusPending).
		UpdateColumn("receiver_id", userId).Error
}
