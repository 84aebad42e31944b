package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/models"
	"github.com/nossocofre/cofre_backend/utils"
)

// replyError maps the model error taxonomy onto HTTP statuses. Access-gate
// denials carry a code so the client can render an upgrade prompt instead
// of a generic failure.
func replyError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, models.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotAMember),
		errors.Is(err, models.ErrCrossScopeAccount):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrTrialExpired):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "code": "trial_expired"})
	case errors.Is(err, models.ErrAccessDenied):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "code": "subscription_required"})
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSameAccount),
		errors.Is(err, models.ErrMissingSource),
		errors.Is(err, models.ErrMissingDestination),
		errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "handlers.go", "replyError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok || userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userId, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

/* auth & profile */

func registerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.Register(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusCreated, user)
	}
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		info, err := models.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": ok})
	}
}

func updateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.UpdateProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.UpdateProfile(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

/* billing webhook */

func webhookSecret() string {
	return os.Getenv("BILLING_WEBHOOK_SECRET")
}

func billingWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-Webhook-Secret")
		if secret == "" || secret != webhookSecret() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var input struct {
			UserId         string                    `json:"user_id" binding:"required"`
			Status         models.SubscriptionStatus `json:"status" binding:"required"`
			TrialExpiresAt *time.Time                `json:"trial_expires_at"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.SetSubscriptionStatus(c.Request.Context(), input.UserId, input.Status, input.TrialExpiresAt)
		if err != nil {
			replyError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

/* vaults */

func createVaultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.NewVault
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vault, err := models.CreateVault(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusCreated, vault)
	}
}

func listVaultsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		vaults, err := models.GetVaults(c.Request.Context())
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, vaults)
	}
}

func getVaultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		vault, err := models.GetVault(c.Request.Context(), c.Param("id"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, vault)
	}
}

func updateVaultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.UpdateVaultInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vault, err := models.UpdateVault(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, vault)
	}
}

func removeVaultMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		err := models.RemoveVaultMember(c.Request.Context(), c.Param("id"), c.Param("userId"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func leaveVaultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		if err := models.LeaveVault(c.Request.Context(), c.Param("id")); err != nil {
			replyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

/* invitations */

func sendInvitationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.NewInvitation
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invitation, err := models.SendInvitation(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invitation)
	}
}

func listInvitationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		invitations, err := models.GetInvitations(c.Request.Context())
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, invitations)
	}
}

func acceptInvitationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invitation, err := models.AcceptInvitation(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, invitation)
	}
}

func declineInvitationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		invitation, err := models.DeclineInvitation(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, invitation)
	}
}

/* accounts */

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var accountType, name *string
		if v := c.Query("type"); v != "" {
			accountType = &v
		}
		if v := c.Query("name"); v != "" {
			name = &v
		}
		accounts, err := models.GetAccounts(c.Request.Context(), accountType, name)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func updateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.UpdateAccount(c.Request.Context(), id, &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func deleteAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		account, err := models.DeleteAccount(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

/* transactions */

func createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusCreated, txn)
	}
}

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		month := c.Query("month")
		if month == "" {
			month = time.Now().UTC().Format("2006-01")
		}
		txns, err := models.GetTransactions(c.Request.Context(), month)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, txns)
	}
}

func listRecurringHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		groups, err := models.GroupRecurring(c.Request.Context())
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

func getTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		txn, err := models.GetTransaction(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func updateTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := models.UpdateTransaction(c.Request.Context(), id, &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func deleteTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		txn, err := models.DeleteTransaction(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func markInstallmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		number, ok := intParam(c, "number")
		if !ok {
			return
		}
		var input struct {
			Paid *bool `json:"paid" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := models.MarkInstallment(c.Request.Context(), id, number, *input.Paid)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

/* goals */

func createGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		var input models.NewGoal
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		goal, err := models.CreateGoal(c.Request.Context(), &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusCreated, goal)
	}
}

func listGoalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		goals, err := models.GetGoals(c.Request.Context())
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, goals)
	}
}

func getGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		goal, err := models.GetGoal(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

func deleteGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		goal, err := models.DeleteGoal(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

func goalDepositHandler() gin.HandlerFunc {
	return goalFundingHandler(models.DepositToGoal)
}

func goalWithdrawHandler() gin.HandlerFunc {
	return goalFundingHandler(models.WithdrawFromGoal)
}

func goalFundingHandler(op func(ctx context.Context, goalId int, input *models.GoalFundingInput) (*models.Goal, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.GoalFundingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		goal, err := op(c.Request.Context(), id, &input)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

func goalVisibilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			Visibility models.GoalVisibility `json:"visibility" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		goal, err := models.ChangeGoalVisibility(c.Request.Context(), id, input.Visibility)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

func goalVisibilityHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		events, err := models.GetGoalVisibilityHistory(c.Request.Context(), id)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

func removeGoalParticipantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		err := models.RemoveGoalParticipant(c.Request.Context(), id, c.Param("userId"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func goalFeaturedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input struct {
			Featured *bool `json:"featured" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		goal, err := models.ToggleFeaturedGoal(c.Request.Context(), id, *input.Featured)
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

/* reports */

func reportStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		status, err := models.GetReportStatus(c.Request.Context(), c.Param("month"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func getReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		report, status, err := models.GetReport(c.Request.Context(), c.Param("month"))
		if err != nil {
			replyError(c, err)
			return
		}
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not generated yet", "status": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report, "status": status})
	}
}

func generateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUser(c); !ok {
			return
		}
		report, err := models.GenerateReport(c.Request.Context(), c.Param("month"))
		if err != nil {
			replyError(c, err)
			return
		}
		c.JSON(http.StatusCreated, report)
	}
}
