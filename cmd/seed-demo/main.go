// seed-demo creates a demo couple (Ana + Bruno), a shared vault, and a few
// accounts, goals and transactions so a fresh environment has something to
// look at. Safe to rerun: it exits if the demo users already exist.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/models"
	"github.com/nossocofre/cofre_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const demoPassword = "demo-password-123"

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", "ana@example.com").First(&existing).Error
	if err == nil {
		fmt.Println("demo data already present, nothing to do")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		fmt.Fprintf(os.Stderr, "failed to check demo users: %v\n", err)
		os.Exit(1)
	}

	ana, err := models.Register(ctx, &models.NewUser{Name: "Ana", Email: "ana@example.com", Password: demoPassword})
	if err != nil {
		fatal("register ana", err)
	}
	bruno, err := models.Register(ctx, &models.NewUser{Name: "Bruno", Email: "bruno@example.com", Password: demoPassword})
	if err != nil {
		fatal("register bruno", err)
	}

	anaCtx := utils.SetUserIdInContext(ctx, ana.ID)
	vault, err := models.CreateVault(anaCtx, &models.NewVault{Name: "Casa", IsPrivate: utils.NewTrue()})
	if err != nil {
		fatal("create vault", err)
	}

	invitation, err := models.SendInvitation(anaCtx, &models.NewInvitation{
		ReceiverEmail: bruno.Email,
		VaultId:       &vault.ID,
	})
	if err != nil {
		fatal("invite bruno", err)
	}
	brunoCtx := utils.SetUserIdInContext(ctx, bruno.ID)
	if _, err := models.AcceptInvitation(brunoCtx, invitation.ID); err != nil {
		fatal("accept invitation", err)
	}

	initial := decimal.NewFromInt(2500)
	personal, err := models.CreateAccount(anaCtx, &models.NewAccount{
		Name:           "Nubank",
		Bank:           "Nubank",
		Type:           models.AccountTypeChecking,
		InitialBalance: &initial,
	})
	if err != nil {
		fatal("create personal account", err)
	}

	vaultCtx := utils.SetWorkspaceIdInContext(anaCtx, vault.ID)
	sharedInitial := decimal.NewFromInt(4000)
	shared, err := models.CreateAccount(vaultCtx, &models.NewAccount{
		Name:           "Conta Conjunta",
		Bank:           "Itau",
		Type:           models.AccountTypeChecking,
		InitialBalance: &sharedInitial,
	})
	if err != nil {
		fatal("create shared account", err)
	}

	if _, err := models.CreateGoal(vaultCtx, &models.NewGoal{
		Name:         "Viagem",
		Emoji:        "✈️",
		TargetAmount: decimal.NewFromInt(8000),
		Visibility:   models.GoalVisibilityShared,
	}); err != nil {
		fatal("create goal", err)
	}

	seedTxn := func(c context.Context, accountId int, desc string, amount int64, txnType models.TransactionType) {
		_, err := models.CreateTransaction(c, &models.NewTransaction{
			Description:     desc,
			Amount:          decimal.NewFromInt(amount),
			Type:            txnType,
			Category:        "demo",
			Date:            time.Now().UTC(),
			SourceAccountId: &accountId,
		})
		if err != nil {
			fatal("seed transaction "+desc, err)
		}
	}
	seedTxn(anaCtx, personal.ID, "Mercado", 320, models.TransactionTypeExpense)
	seedTxn(vaultCtx, shared.ID, "Aluguel", 1800, models.TransactionTypeExpense)

	fmt.Printf("seeded demo users ana/bruno (password %q) and vault %s\n", demoPassword, vault.ID)
}

func fatal(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
