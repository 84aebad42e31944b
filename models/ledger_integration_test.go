package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/models"
	"github.com/nossocofre/cofre_backend/utils"
	"github.com/shopspring/decimal"
)

// End-to-end ledger flow across personal and vault scopes: registration,
// vault membership through an invitation, balance movement, cross-scope
// isolation, and goal funding.
func TestLedgerScopes_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "cofre_test")
	t.Setenv("TRIAL_DAYS", "14")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ana, err := models.Register(ctx, &models.NewUser{Name: "Ana", Email: "ana@scope.test", Password: "password-123"})
	if err != nil {
		t.Fatalf("Register ana: %v", err)
	}
	bruno, err := models.Register(ctx, &models.NewUser{Name: "Bruno", Email: "bruno@scope.test", Password: "password-123"})
	if err != nil {
		t.Fatalf("Register bruno: %v", err)
	}
	carol, err := models.Register(ctx, &models.NewUser{Name: "Carol", Email: "carol@scope.test", Password: "password-123"})
	if err != nil {
		t.Fatalf("Register carol: %v", err)
	}

	anaCtx := utils.SetUserIdInContext(ctx, ana.ID)
	brunoCtx := utils.SetUserIdInContext(ctx, bruno.ID)

	// Personal scope: initial balance moves only through ledger operations.
	initial := decimal.NewFromInt(1000)
	personal, err := models.CreateAccount(anaCtx, &models.NewAccount{
		Name:           "Conta Pessoal",
		Type:           models.AccountTypeChecking,
		InitialBalance: &initial,
	})
	if err != nil {
		t.Fatalf("CreateAccount personal: %v", err)
	}
	expense, err := models.CreateTransaction(anaCtx, &models.NewTransaction{
		Description:     "Mercado",
		Amount:          decimal.NewFromInt(200),
		Type:            models.TransactionTypeExpense,
		Date:            time.Now().UTC(),
		SourceAccountId: &personal.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction expense: %v", err)
	}
	got, err := models.GetAccount(anaCtx, personal.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("personal balance = %s, want 800", got.Balance)
	}

	// Deleting the posting reverses its balance effect.
	if _, err := models.DeleteTransaction(anaCtx, expense.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	got, err = models.GetAccount(anaCtx, personal.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance after delete = %s, want 1000", got.Balance)
	}

	// Transfers conserve value across the two accounts.
	savingsInitial := decimal.NewFromInt(500)
	savings, err := models.CreateAccount(anaCtx, &models.NewAccount{
		Name:           "Poupanca",
		Type:           models.AccountTypeSavings,
		InitialBalance: &savingsInitial,
	})
	if err != nil {
		t.Fatalf("CreateAccount savings: %v", err)
	}
	if _, err := models.CreateTransaction(anaCtx, &models.NewTransaction{
		Description:          "Guardar",
		Amount:               decimal.NewFromInt(200),
		Type:                 models.TransactionTypeTransfer,
		Date:                 time.Now().UTC(),
		SourceAccountId:      &personal.ID,
		DestinationAccountId: &savings.ID,
	}); err != nil {
		t.Fatalf("CreateTransaction transfer: %v", err)
	}
	got, _ = models.GetAccount(anaCtx, personal.ID)
	savingsAfter, _ := models.GetAccount(anaCtx, savings.ID)
	if !got.Balance.Equal(decimal.NewFromInt(800)) || !savingsAfter.Balance.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("transfer balances = %s / %s, want 800 / 700", got.Balance, savingsAfter.Balance)
	}

	// Vault membership comes only from accepted invitations.
	vault, err := models.CreateVault(anaCtx, &models.NewVault{Name: "Casa"})
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	invitation, err := models.SendInvitation(anaCtx, &models.NewInvitation{
		ReceiverEmail: bruno.Email,
		VaultId:       &vault.ID,
	})
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}

	brunoVaultCtx := utils.SetWorkspaceIdInContext(brunoCtx, vault.ID)
	if _, err := models.ResolveScope(brunoVaultCtx); !errors.Is(err, models.ErrNotAMember) {
		t.Fatalf("pre-accept vault scope: got %v, want ErrNotAMember", err)
	}
	if _, err := models.AcceptInvitation(brunoCtx, invitation.ID); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if _, err := models.ResolveScope(brunoVaultCtx); err != nil {
		t.Fatalf("post-accept vault scope: %v", err)
	}
	vaultLoaded, err := models.GetVault(brunoVaultCtx, vault.ID)
	if err != nil {
		t.Fatalf("GetVault: %v", err)
	}
	if len(vaultLoaded.Members) != 2 {
		t.Fatalf("vault members = %d, want 2", len(vaultLoaded.Members))
	}

	carolVaultCtx := utils.SetWorkspaceIdInContext(utils.SetUserIdInContext(ctx, carol.ID), vault.ID)
	if _, err := models.GetAccounts(carolVaultCtx, nil, nil); !errors.Is(err, models.ErrNotAMember) {
		t.Fatalf("non-member read: got %v, want ErrNotAMember", err)
	}

	// Vault ledger is isolated from personal accounts.
	anaVaultCtx := utils.SetWorkspaceIdInContext(anaCtx, vault.ID)
	sharedInitial := decimal.NewFromInt(3000)
	shared, err := models.CreateAccount(anaVaultCtx, &models.NewAccount{
		Name:           "Conta Conjunta",
		Type:           models.AccountTypeChecking,
		InitialBalance: &sharedInitial,
	})
	if err != nil {
		t.Fatalf("CreateAccount shared: %v", err)
	}
	if _, err := models.CreateTransaction(anaVaultCtx, &models.NewTransaction{
		Description:     "Aluguel pago da conta errada",
		Amount:          decimal.NewFromInt(100),
		Type:            models.TransactionTypeExpense,
		Date:            time.Now().UTC(),
		SourceAccountId: &personal.ID,
	}); !errors.Is(err, models.ErrCrossScopeAccount) {
		t.Fatalf("cross-scope spend: got %v, want ErrCrossScopeAccount", err)
	}

	// Members operate on the shared ledger as peers.
	aluguel, err := models.CreateTransaction(brunoVaultCtx, &models.NewTransaction{
		Description:     "Aluguel",
		Amount:          decimal.NewFromInt(1800),
		Type:            models.TransactionTypeExpense,
		Date:            time.Now().UTC(),
		SourceAccountId: &shared.ID,
	})
	if err != nil {
		t.Fatalf("member expense: %v", err)
	}
	sharedAfter, err := models.GetAccount(anaVaultCtx, shared.ID)
	if err != nil {
		t.Fatalf("GetAccount shared: %v", err)
	}
	if !sharedAfter.Balance.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("shared balance = %s, want 1200", sharedAfter.Balance)
	}

	// Goal funding decrements the account and increments the goal atomically.
	goal, err := models.CreateGoal(anaVaultCtx, &models.NewGoal{
		Name:         "Viagem",
		TargetAmount: decimal.NewFromInt(5000),
		Visibility:   models.GoalVisibilityShared,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	funded, err := models.DepositToGoal(anaVaultCtx, goal.ID, &models.GoalFundingInput{
		Amount:    decimal.NewFromInt(500),
		AccountId: &shared.ID,
	})
	if err != nil {
		t.Fatalf("DepositToGoal: %v", err)
	}
	if !funded.CurrentAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("goal current = %s, want 500", funded.CurrentAmount)
	}
	sharedAfter, err = models.GetAccount(anaVaultCtx, shared.ID)
	if err != nil {
		t.Fatalf("GetAccount shared: %v", err)
	}
	if !sharedAfter.Balance.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("shared balance after funding = %s, want 700", sharedAfter.Balance)
	}

	// A posted transaction may only link goals the actor can actually fund:
	// members contribute to the vault's shared goals from their personal
	// workspaces, outsiders cannot.
	carolCtx := utils.SetUserIdInContext(ctx, carol.ID)
	carolInitial := decimal.NewFromInt(400)
	carolAccount, err := models.CreateAccount(carolCtx, &models.NewAccount{
		Name:           "Conta da Carol",
		Type:           models.AccountTypeChecking,
		InitialBalance: &carolInitial,
	})
	if err != nil {
		t.Fatalf("CreateAccount carol: %v", err)
	}
	if _, err := models.CreateTransaction(carolCtx, &models.NewTransaction{
		Description:     "Contribuicao indevida",
		Amount:          decimal.NewFromInt(50),
		Type:            models.TransactionTypeExpense,
		Date:            time.Now().UTC(),
		SourceAccountId: &carolAccount.ID,
		GoalId:          &goal.ID,
	}); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("outsider goal link: got %v, want record not found", err)
	}

	brunoInitial := decimal.NewFromInt(600)
	brunoAccount, err := models.CreateAccount(brunoCtx, &models.NewAccount{
		Name:           "Conta do Bruno",
		Type:           models.AccountTypeChecking,
		InitialBalance: &brunoInitial,
	})
	if err != nil {
		t.Fatalf("CreateAccount bruno: %v", err)
	}
	if _, err := models.CreateTransaction(brunoCtx, &models.NewTransaction{
		Description:     "Contribuicao Viagem",
		Amount:          decimal.NewFromInt(150),
		Type:            models.TransactionTypeExpense,
		Date:            time.Now().UTC(),
		SourceAccountId: &brunoAccount.ID,
		GoalId:          &goal.ID,
	}); err != nil {
		t.Fatalf("member contribution: %v", err)
	}
	month := utils.FormatMonthYear(time.Now().UTC())
	vaultTxns, err := models.GetTransactions(anaVaultCtx, month)
	if err != nil {
		t.Fatalf("GetTransactions vault: %v", err)
	}
	foundContribution := false
	for _, txn := range vaultTxns {
		if txn.Description == "Contribuicao Viagem" {
			foundContribution = true
		}
		if txn.Description == "Contribuicao indevida" {
			t.Fatalf("outsider transaction leaked into the vault listing")
		}
	}
	if !foundContribution {
		t.Fatalf("member contribution missing from the vault listing")
	}

	// A correction that omits the date keeps the row in its month.
	updated, err := models.UpdateTransaction(brunoVaultCtx, aluguel.ID, &models.NewTransaction{
		Description:     "Aluguel",
		Amount:          decimal.NewFromInt(1500),
		Type:            models.TransactionTypeExpense,
		SourceAccountId: &shared.ID,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction without date: %v", err)
	}
	reloaded, err := models.GetTransaction(brunoVaultCtx, updated.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if reloaded.Date.IsZero() || utils.FormatMonthYear(reloaded.Date) != month {
		t.Fatalf("date-less edit moved the posting date to %v", reloaded.Date)
	}
	sharedAfter, err = models.GetAccount(anaVaultCtx, shared.ID)
	if err != nil {
		t.Fatalf("GetAccount shared: %v", err)
	}
	if !sharedAfter.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("shared balance after correction = %s, want 1000", sharedAfter.Balance)
	}

	// A personal goal shared 1:1 through an invitation is visible and
	// fundable from the participant's own workspace.
	reserva, err := models.CreateGoal(anaCtx, &models.NewGoal{
		Name:         "Reserva",
		TargetAmount: decimal.NewFromInt(2000),
	})
	if err != nil {
		t.Fatalf("CreateGoal personal: %v", err)
	}
	goalInvite, err := models.SendInvitation(anaCtx, &models.NewInvitation{
		ReceiverEmail: bruno.Email,
		GoalId:        &reserva.ID,
	})
	if err != nil {
		t.Fatalf("SendInvitation goal: %v", err)
	}
	if _, err := models.AcceptInvitation(brunoCtx, goalInvite.ID); err != nil {
		t.Fatalf("AcceptInvitation goal: %v", err)
	}
	if _, err := models.GetGoal(brunoCtx, reserva.ID); err != nil {
		t.Fatalf("participant GetGoal: %v", err)
	}
	brunoGoals, err := models.GetGoals(brunoCtx)
	if err != nil {
		t.Fatalf("GetGoals: %v", err)
	}
	foundReserva := false
	for _, g := range brunoGoals {
		if g.ID == reserva.ID {
			foundReserva = true
		}
	}
	if !foundReserva {
		t.Fatalf("shared personal goal missing from participant listing")
	}
	reservaFunded, err := models.DepositToGoal(brunoCtx, reserva.ID, &models.GoalFundingInput{
		Amount: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("participant DepositToGoal: %v", err)
	}
	if !reservaFunded.CurrentAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("goal current = %s, want 100", reservaFunded.CurrentAmount)
	}

	// Installment marks toggle set membership without touching balances.
	totalInstallments := 4
	purchase, err := models.CreateTransaction(anaCtx, &models.NewTransaction{
		Description:          "Sofa parcelado",
		Amount:               decimal.NewFromInt(50),
		Type:                 models.TransactionTypeExpense,
		Date:                 time.Now().UTC(),
		SourceAccountId:      &personal.ID,
		TotalInstallments:    &totalInstallments,
		FirstInstallmentPaid: true,
	})
	if err != nil {
		t.Fatalf("CreateTransaction installments: %v", err)
	}
	if _, err := models.MarkInstallment(anaCtx, purchase.ID, 3, true); err != nil {
		t.Fatalf("MarkInstallment: %v", err)
	}
	marked, err := models.MarkInstallment(anaCtx, purchase.ID, 3, true)
	if err != nil {
		t.Fatalf("MarkInstallment repeat: %v", err)
	}
	if len(marked.PaidInstallments) != 2 || !marked.PaidInstallments.Contains(1) || !marked.PaidInstallments.Contains(3) {
		t.Fatalf("paid installments = %v, want [1 3]", marked.PaidInstallments)
	}

	// An expired trial blocks resource creation but never invitation
	// responses or reads.
	expired := time.Now().UTC().Add(-24 * time.Hour)
	if _, err := models.SetSubscriptionStatus(ctx, carol.ID, models.SubscriptionStatusTrial, &expired); err != nil {
		t.Fatalf("SetSubscriptionStatus: %v", err)
	}
	if _, err := models.CreateVault(carolCtx, &models.NewVault{Name: "Sozinha"}); !errors.Is(err, models.ErrTrialExpired) {
		t.Fatalf("expired trial vault creation: got %v, want ErrTrialExpired", err)
	}
	carolInvite, err := models.SendInvitation(anaCtx, &models.NewInvitation{
		ReceiverEmail: carol.Email,
		VaultId:       &vault.ID,
	})
	if err != nil {
		t.Fatalf("SendInvitation to carol: %v", err)
	}
	if _, err := models.AcceptInvitation(carolCtx, carolInvite.ID); err != nil {
		t.Fatalf("expired trial must still accept invitations: %v", err)
	}

	// Report status reflects transaction activity without a generation run.
	status, err := models.GetReportStatus(anaVaultCtx, month)
	if err != nil {
		t.Fatalf("GetReportStatus: %v", err)
	}
	if status.Exists {
		t.Fatalf("no report generated yet, status.Exists should be false")
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("cofre-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=cofre_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
