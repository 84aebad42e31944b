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

// Goal is a "caixinha": a named savings target. CurrentAmount is not clamped
// to [0, target]. Over-funding is celebrated as completion, and
// over-withdrawal is recorded as-is (a data-entry anomaly, not prevented at
// this layer).
type Goal struct {
	ID            int                `gorm:"primary_key" json:"id"`
	OwnerId       string             `gorm:"size:36;index:idx_goal_owner;not null" json:"owner_id"`
	OwnerType     OwnerType          `gorm:"type:enum('user','vault');size:8;index:idx_goal_owner;not null" json:"owner_type"`
	Name          string             `gorm:"size:100;not null" json:"name" binding:"required"`
	Emoji         string             `gorm:"size:16" json:"emoji"`
	TargetAmount  decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"current_amount"`
	Visibility    GoalVisibility     `gorm:"type:enum('private','shared');default:'private';size:8;not null" json:"visibility"`
	IsFeatured    bool               `gorm:"default:false" json:"is_featured"`
	Participants  []*GoalParticipant `gorm:"foreignKey:GoalId" json:"participants,omitempty"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type GoalParticipant struct {
	ID        int       `gorm:"primary_key" json:"id"`
	GoalId    int       `gorm:"uniqueIndex:idx_goal_participant;not null" json:"goal_id"`
	UserId    string    `gorm:"size:36;uniqueIndex:idx_goal_participant;not null" json:"user_id"`
	Role      VaultRole `gorm:"type:enum('owner','member');default:'member';size:12;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GoalVisibilityEvent is the audit trail for visibility transitions. A
// future reader can explain "why is this goal now visible to everyone"
// instead of finding a silently overwritten field.
type GoalVisibilityEvent struct {
	ID             int            `gorm:"primary_key" json:"id"`
	GoalId         int            `gorm:"index;not null" json:"goal_id"`
	FromVisibility GoalVisibility `gorm:"size:8;not null" json:"from_visibility"`
	ToVisibility   GoalVisibility `gorm:"size:8;not null" json:"to_visibility"`
	ActorId        string         `gorm:"size:36;not null" json:"actor_id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type NewGoal struct {
	Name         string          `json:"name" binding:"required" validate:"required"`
	Emoji        string          `json:"emoji"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
	Visibility   GoalVisibility  `json:"visibility"`
}

func CreateGoal(ctx context.Context, input *NewGoal) (*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureFullAccess(ctx); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.TargetAmount.IsPositive() {
		return nil, errors.New("target amount must be greater than zero")
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = GoalVisibilityPrivate
	}
	if !visibility.Valid() {
		return nil, errors.New("invalid goal visibility")
	}
	if err := utils.ValidateUnique[Goal](ctx, owner.Id, string(owner.Type), "name", input.Name, 0); err != nil {
		return nil, err
	}

	actorId, _ := utils.GetUserIdFromContext(ctx)
	goal := Goal{
		OwnerId:      owner.Id,
		OwnerType:    owner.Type,
		Name:         input.Name,
		Emoji:        input.Emoji,
		TargetAmount: input.TargetAmount,
		Visibility:   visibility,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&goal).Error; err != nil {
			return err
		}
		participant := GoalParticipant{
			GoalId: goal.ID,
			UserId: actorId,
			Role:   VaultRoleOwner,
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func GetGoal(ctx context.Context, id int) (*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	return fetchReachableGoal(ctx, owner, id)
}

// fetchReachableGoal loads a goal the acting user can work with from the
// resolved workspace: the workspace's own goals, plus (from the personal
// workspace) other users' personal goals the acting user joined as a
// participant through an invitation.
func fetchReachableGoal(ctx context.Context, owner OwnerRef, id int) (*Goal, error) {
	goal, err := utils.FetchSingleModel[Goal](ctx, id, "Participants")
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	if !goalReachable(goal, owner, userId) {
		return nil, utils.ErrorRecordNotFound
	}
	if err := ensureGoalVisible(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func goalReachable(goal *Goal, owner OwnerRef, userId string) bool {
	if goal.OwnerId == owner.Id && goal.OwnerType == owner.Type {
		return true
	}
	if !owner.IsPersonal() || goal.OwnerType != OwnerTypeUser {
		return false
	}
	for _, p := range goal.Participants {
		if p.UserId == userId {
			return true
		}
	}
	return false
}

// GetGoals lists the goals the acting user may see in this workspace. In a
// vault, private goals are restricted to their explicit participants; shared
// goals are visible to every member.
func GetGoals(ctx context.Context) ([]*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	var results []*Goal
	participantGoals := db.Model(&GoalParticipant{}).Select("goal_id").Where("user_id = ?", userId)
	dbCtx := db.WithContext(ctx).Preload("Participants").Order("name")
	if owner.Type == OwnerTypeVault {
		dbCtx = owner.Scope(dbCtx).Where(
			"visibility = ? OR id IN (?)", GoalVisibilityShared, participantGoals,
		)
	} else {
		// the personal workspace also lists other users' personal goals the
		// acting user joined as a participant
		dbCtx = dbCtx.Where(
			"(owner_id = ? AND owner_type = ?) OR (owner_type = ? AND id IN (?))",
			owner.Id, OwnerTypeUser, OwnerTypeUser, participantGoals,
		)
	}
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ensureGoalVisible enforces the private-goal participant restriction. The
// owner scope has already been resolved, so vault membership is a given.
func ensureGoalVisible(ctx context.Context, goal *Goal) error {
	if goal.Visibility == GoalVisibilityShared {
		return nil
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	if goal.OwnerType == OwnerTypeUser && goal.OwnerId == userId {
		return nil
	}
	for _, p := range goal.Participants {
		if p.UserId == userId {
			return nil
		}
	}
	return utils.ErrorRecordNotFound
}

type GoalFundingInput struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	AccountId     *int            `json:"account_id"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
}

// DepositToGoal moves the goal's current amount up by the given amount.
// When a funding account is specified, an expense transaction posts against
// it in the same database transaction, so the goal increment and the balance
// decrement commit together.
func DepositToGoal(ctx context.Context, goalId int, input *GoalFundingInput) (*Goal, error) {
	return fundGoal(ctx, goalId, input, true)
}

// WithdrawFromGoal is the inverse: the current amount goes down, optionally
// crediting an account via an income transaction. No floor at zero.
func WithdrawFromGoal(ctx context.Context, goalId int, input *GoalFundingInput) (*Goal, error) {
	return fundGoal(ctx, goalId, input, false)
}

func fundGoal(ctx context.Context, goalId int, input *GoalFundingInput, deposit bool) (*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureFullAccess(ctx); err != nil {
		return nil, err
	}
	if err := utils.ValidatePositiveAmount(input.Amount); err != nil {
		return nil, ErrInvalidAmount
	}

	goal, err := fetchReachableGoal(ctx, owner, goalId)
	if err != nil {
		return nil, err
	}

	actorId, _ := utils.GetUserIdFromContext(ctx)
	wasComplete := goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount)

	delta := input.Amount
	if !deposit {
		delta = delta.Neg()
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&Goal{}).
			Where("id = ?", goal.ID).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrorRecordNotFound
		}

		if input.AccountId != nil {
			description := input.Description
			if description == "" {
				if deposit {
					description = "Deposit: " + goal.Name
				} else {
					description = "Withdrawal: " + goal.Name
				}
			}
			txnInput := &NewTransaction{
				Description:   description,
				Amount:        input.Amount,
				Category:      "goal",
				PaymentMethod: input.PaymentMethod,
				GoalId:        &goal.ID,
			}
			if deposit {
				txnInput.Type = TransactionTypeExpense
				txnInput.SourceAccountId = input.AccountId
			} else {
				txnInput.Type = TransactionTypeIncome
				txnInput.DestinationAccountId = input.AccountId
			}
			if _, err := createTransactionTx(tx, ctx, owner, actorId, txnInput); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	goal.CurrentAmount = goal.CurrentAmount.Add(delta)

	// completion event fires once, when the deposit crosses the target
	if deposit && !wasComplete && goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
		notifyGoalCompleted(ctx, goal, actorId)
	}
	return goal, nil
}

// ChangeGoalVisibility is an explicit, user-confirmed action. The transition
// is recorded as a discrete event, never a silent field overwrite.
func ChangeGoalVisibility(ctx context.Context, goalId int, to GoalVisibility) (*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, errors.New("invalid goal visibility")
	}

	goal, err := utils.FetchOwned[Goal](ctx, owner.Id, string(owner.Type), goalId, "Participants")
	if err != nil {
		return nil, err
	}
	if err := ensureGoalVisible(ctx, goal); err != nil {
		return nil, err
	}
	if goal.Visibility == to {
		return goal, nil
	}

	actorId, _ := utils.GetUserIdFromContext(ctx)
	event := GoalVisibilityEvent{
		GoalId:         goal.ID,
		FromVisibility: goal.Visibility,
		ToVisibility:   to,
		ActorId:        actorId,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(goal).UpdateColumn("visibility", to).Error; err != nil {
			return err
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	goal.Visibility = to
	return goal, nil
}

func GetGoalVisibilityHistory(ctx context.Context, goalId int) ([]*GoalVisibilityEvent, error) {
	if _, err := GetGoal(ctx, goalId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var events []*GoalVisibilityEvent
	err := db.WithContext(ctx).
		Where("goal_id = ?", goalId).
		Order("created_at").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// addGoalParticipant is only reachable through invitation acceptance.
// For vault-owned goals participation is implied by vault membership unless
// the goal is private; direct invites are for personal goals shared 1:1
// and for private vault goals.
func addGoalParticipant(tx *gorm.DB, ctx context.Context, goal *Goal, userId string) error {
	if goal.OwnerType == OwnerTypeVault && goal.Visibility == GoalVisibilityShared {
		return errors.New("shared vault goals take participants from vault membership")
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&GoalParticipant{}).
		Where("goal_id = ? AND user_id = ?", goal.ID, userId).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	participant := GoalParticipant{
		GoalId: goal.ID,
		UserId: userId,
		Role:   VaultRoleMember,
	}
	return tx.WithContext(ctx).Create(&participant).Error
}

func RemoveGoalParticipant(ctx context.Context, goalId int, userId string) error {
	goal, err := GetGoal(ctx, goalId)
	if err != nil {
		return err
	}

	db := config.GetDB()
	var participant GoalParticipant
	if err := db.WithContext(ctx).
		Where("goal_id = ? AND user_id = ?", goal.ID, userId).
		First(&participant).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	if participant.Role == VaultRoleOwner {
		return errors.New("the goal owner cannot be removed")
	}
	return db.WithContext(ctx).Delete(&participant).Error
}

// ToggleFeaturedGoal flips the featured flag. Idempotent; several goals may
// be featured at once.
func ToggleFeaturedGoal(ctx context.Context, goalId int, featured bool) (*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	goal, err := utils.FetchOwned[Goal](ctx, owner.Id, string(owner.Type), goalId, "Participants")
	if err != nil {
		return nil, err
	}
	if err := ensureGoalVisible(ctx, goal); err != nil {
		return nil, err
	}
	if goal.IsFeatured == featured {
		return goal, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(goal).UpdateColumn("is_featured", featured).Error; err != nil {
		return nil, err
	}
	goal.IsFeatured = featured
	return goal, nil
}

func DeleteGoal(ctx context.Context, goalId int) (*Goal, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	goal, err := utils.FetchOwned[Goal](ctx, owner.Id, string(owner.Type), goalId, "Participants")
	if err != nil {
		return nil, err
	}
	if err := ensureGoalVisible(ctx, goal); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&GoalParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&GoalVisibilityEvent{}).Error; err != nil {
			return err
		}
		// funding history keeps its rows; they simply stop pointing anywhere
		if err := tx.Model(&Transaction{}).Where("goal_id = ?", goal.ID).
			UpdateColumn("goal_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(goal).Error
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}
