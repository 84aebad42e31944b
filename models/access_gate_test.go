package models_test

import (
	"testing"
	"time"

	"github.com/nossocofre/cofre_backend/models"
)

func TestHasFullAccess(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{"active subscriber", models.User{SubscriptionStatus: models.SubscriptionStatusActive}, true},
		{"active ignores trial date", models.User{SubscriptionStatus: models.SubscriptionStatusActive, TrialExpiresAt: &past}, true},
		{"trial still running", models.User{SubscriptionStatus: models.SubscriptionStatusTrial, TrialExpiresAt: &future}, true},
		{"trial expires exactly now", models.User{SubscriptionStatus: models.SubscriptionStatusTrial, TrialExpiresAt: &now}, true},
		{"trial ran out", models.User{SubscriptionStatus: models.SubscriptionStatusTrial, TrialExpiresAt: &past}, false},
		{"trial without expiry", models.User{SubscriptionStatus: models.SubscriptionStatusTrial}, false},
		{"inactive", models.User{SubscriptionStatus: models.SubscriptionStatusInactive}, false},
		{"inactive ignores future trial date", models.User{SubscriptionStatus: models.SubscriptionStatusInactive, TrialExpiresAt: &future}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.HasFullAccess(now); got != tc.want {
				t.Fatalf("HasFullAccess = %v, want %v", got, tc.want)
			}
		})
	}
}
