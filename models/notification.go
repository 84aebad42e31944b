package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
)

// Event emission is best effort: delivery belongs to the external
// notification dispatcher, and a failed publish never rolls back a
// committed write.

func emitNotification(ctx context.Context, event string, owner OwnerRef, actorId string, receiverId string, receiverEmail string, payload any) {
	var payloadJSON []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			config.LogError(config.GetLogger(), "notification.go", "emitNotification", "marshal payload", event, err)
			return
		}
		payloadJSON = b
	}

	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}

	msg := config.NotificationMessage{
		Event:         event,
		OwnerId:       owner.Id,
		OwnerType:     string(owner.Type),
		ActorId:       actorId,
		ReceiverId:    receiverId,
		ReceiverEmail: receiverEmail,
		OccurredAt:    time.Now().UTC(),
		Payload:       payloadJSON,
		CorrelationId: correlationId,
	}
	if err := config.PublishNotification(msg); err != nil {
		config.LogError(config.GetLogger(), "notification.go", "emitNotification", "publish", event, err)
	}
}

func notifyGoalCompleted(ctx context.Context, goal *Goal, actorId string) {
	emitNotification(ctx, "goal.completed", OwnerRef{Type: goal.OwnerType, Id: goal.OwnerId}, actorId, "", "", map[string]any{
		"goal_id":        goal.ID,
		"goal_name":      goal.Name,
		"target_amount":  goal.TargetAmount,
		"current_amount": goal.CurrentAmount,
	})
}

func notifyInvitationSent(ctx context.Context, invitation *Invitation) {
	owner := OwnerRef{Type: OwnerTypeUser, Id: invitation.SenderId}
	if invitation.VaultId != nil {
		owner = VaultOwner(*invitation.VaultId)
	}
	emitNotification(ctx, "invitation.sent", owner, invitation.SenderId, invitation.ReceiverId, invitation.ReceiverEmail, map[string]any{
		"invitation_id": invitation.ID,
		"type":          invitation.Type,
	})
}

func notifyInvitationAccepted(ctx context.Context, invitation *Invitation) {
	owner := OwnerRef{Type: OwnerTypeUser, Id: invitation.SenderId}
	if invitation.VaultId != nil {
		owner = VaultOwner(*invitation.VaultId)
	}
	emitNotification(ctx, "invitation.accepted", owner, invitation.ReceiverId, invitation.SenderId, "", map[string]any{
		"invitation_id": invitation.ID,
		"type":          invitation.Type,
	})
}
