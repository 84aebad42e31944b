package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
)

type User struct {
	ID                 string             `gorm:"primary_key;size:36" json:"id"`
	Name               string             `gorm:"size:100;not null" json:"name" binding:"required"`
	Email              string             `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Password           string             `gorm:"size:255;not null" json:"-"`
	AvatarUrl          string             `json:"avatar_url"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:enum('active','trial','inactive');default:'trial';size:12;not null" json:"subscription_status"`
	TrialExpiresAt     *time.Time         `json:"trial_expires_at"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required" validate:"required"`
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required,min=8" validate:"required,min=8"`
}

type LoginInfo struct {
	Token              string             `json:"token"`
	UserId             string             `json:"user_id"`
	Name               string             `json:"name"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	TrialExpiresAt     *time.Time         `json:"trial_expires_at"`
}

/*
caches:
	Token:$token => userId
	Tokens:$userId => set of live tokens
*/

func (result *User) PrepareGive() {
	result.Password = ""
}

func trialDays() int {
	days, err := strconv.Atoi(os.Getenv("TRIAL_DAYS"))
	if err != nil || days <= 0 {
		return 14
	}
	return days
}

// Register creates a user on first sign-up (or first OAuth sign-in, where
// the password is a random throwaway). New users start on a trial.
func Register(ctx context.Context, input *NewUser) (*User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("email already registered")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	expires := time.Now().UTC().AddDate(0, 0, trialDays())
	user := User{
		ID:                 uuid.NewString(),
		Name:               input.Name,
		Email:              input.Email,
		Password:           string(hashed),
		SubscriptionStatus: SubscriptionStatusTrial,
		TrialExpiresAt:     &expires,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	// pre-registration invitations addressed to this email become addressable
	if err := MatchInvitationsByEmail(ctx, user.Email, user.ID); err != nil {
		config.LogError(config.GetLogger(), "user.go", "Register", "MatchInvitationsByEmail", user.Email, err)
	}

	return &user, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, errors.New("invalid email or password")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid email or password")
	}

	token, err := utils.JwtGenerate(user.ID)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, user.ID, 0); err != nil {
		return nil, err
	}
	if err := config.AddRedisSet("Tokens:"+user.ID, token); err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:              token,
		UserId:             user.ID,
		Name:               user.Name,
		SubscriptionStatus: user.SubscriptionStatus,
		TrialExpiresAt:     user.TrialExpiresAt,
	}, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + fmt.Sprint(token)); err != nil {
		return false, nil
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+userId, token); err != nil {
		return false, err
	}
	return true, nil
}

func GetUser(ctx context.Context, id string) (*User, error) {
	return utils.FetchSingleModel[User](ctx, id)
}

type UpdateProfileInput struct {
	Name      string `json:"name" binding:"required" validate:"required"`
	AvatarUrl string `json:"avatar_url"`
}

func UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"Name":      input.Name,
		"AvatarUrl": input.AvatarUrl,
	}).Error
	if err != nil {
		return nil, err
	}
	invalidateUserCache(userId)
	return user, nil
}

// SetSubscriptionStatus is invoked by the billing webhook. "active" clears
// the trial expiry, "trial" requires one.
func SetSubscriptionStatus(ctx context.Context, userId string, status SubscriptionStatus, trialExpiresAt *time.Time) (*User, error) {
	if !status.Valid() {
		return nil, errors.New("invalid subscription status")
	}
	if status == SubscriptionStatusTrial && trialExpiresAt == nil {
		return nil, errors.New("trial requires an expiry timestamp")
	}

	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"SubscriptionStatus": status,
		"TrialExpiresAt":     trialExpiresAt,
	}).Error
	if err != nil {
		return nil, err
	}
	invalidateUserCache(userId)
	return user, nil
}

/* Access gate */

const userCacheTTL = 5 * time.Minute

func userCacheKey(userId string) string {
	return "User:" + userId
}

// fetchUserCached serves the per-request access-gate lookup from a short-lived
// redis entry. Profile and billing updates invalidate it; the TTL bounds
// staleness when an invalidation is missed.
func fetchUserCached(ctx context.Context, userId string) (*User, error) {
	var cached User
	if found, err := config.GetRedisObject(userCacheKey(userId), &cached); err == nil && found {
		return &cached, nil
	}
	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(userCacheKey(userId), user, userCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "user.go", "fetchUserCached", "cache user", userId, err)
	}
	return user, nil
}

func invalidateUserCache(userId string) {
	if err := config.RemoveRedisKey(userCacheKey(userId)); err != nil {
		config.LogError(config.GetLogger(), "user.go", "invalidateUserCache", "drop cached user", userId, err)
	}
}

// HasFullAccess reports whether the user may create resources as a primary
// owner. Trial expiry is evaluated lazily against the stored timestamp; no
// background job flips the state.
func (user *User) HasFullAccess(now time.Time) bool {
	switch user.SubscriptionStatus {
	case SubscriptionStatusActive:
		return true
	case SubscriptionStatusTrial:
		return user.TrialExpiresAt != nil && !now.After(*user.TrialExpiresAt)
	}
	return false
}

// EnsureFullAccess gates resource-creation operations (new vaults, accounts,
// goals, transactions). Reads, invitation responses and joining someone
// else's vault are never gated. The two error values let callers distinguish
// "trial ran out" from "never had access".
func EnsureFullAccess(ctx context.Context) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}
	user, err := fetchUserCached(ctx, userId)
	if err != nil {
		return err
	}
	if user.HasFullAccess(time.Now().UTC()) {
		return nil
	}
	if user.SubscriptionStatus == SubscriptionStatusTrial {
		return ErrTrialExpired
	}
	return ErrAccessDenied
}
