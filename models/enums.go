package models

type OwnerType string

const (
	OwnerTypeUser  OwnerType = "user"
	OwnerTypeVault OwnerType = "vault"
)

type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeOther      AccountType = "other"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeInvestment, AccountTypeCreditCard, AccountTypeOther:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

type GoalVisibility string

const (
	GoalVisibilityPrivate GoalVisibility = "private"
	GoalVisibilityShared  GoalVisibility = "shared"
)

func (v GoalVisibility) Valid() bool {
	return v == GoalVisibilityPrivate || v == GoalVisibilityShared
}

type VaultRole string

const (
	VaultRoleOwner  VaultRole = "owner"
	VaultRoleMember VaultRole = "member"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrial, SubscriptionStatusInactive:
		return true
	}
	return false
}

type InvitationType string

const (
	InvitationTypeVault InvitationType = "vault"
	InvitationTypeGoal  InvitationType = "goal"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)
