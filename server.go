package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/middlewares"
	"github.com/nossocofre/cofre_backend/models"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Workspace-Id", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.WorkspaceMiddleware())

	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			config.LogError(logger, "server.go", "main", "ListenAndServe", nil, err)
			os.Exit(1)
		}
	}()

	// Connect dependencies after the listener is up.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.LogError(logger, "server.go", "main", "Shutdown", nil, err)
	}
}

func registerRoutes(r *gin.Engine) {
	// auth & profile
	r.POST("/auth/register", registerHandler())
	r.POST("/auth/login", loginHandler())
	r.POST("/auth/logout", logoutHandler())
	r.PUT("/profile", updateProfileHandler())

	// billing webhook (called by the payment provider, not the app)
	r.POST("/billing/webhook", billingWebhookHandler())

	// vaults & membership
	r.POST("/vaults", createVaultHandler())
	r.GET("/vaults", listVaultsHandler())
	r.GET("/vaults/:id", getVaultHandler())
	r.PUT("/vaults/:id", updateVaultHandler())
	r.DELETE("/vaults/:id/members/:userId", removeVaultMemberHandler())
	r.POST("/vaults/:id/leave", leaveVaultHandler())

	// invitations
	r.POST("/invitations", sendInvitationHandler())
	r.GET("/invitations", listInvitationsHandler())
	r.POST("/invitations/:id/accept", acceptInvitationHandler())
	r.POST("/invitations/:id/decline", declineInvitationHandler())

	// accounts (workspace-scoped via X-Workspace-Id)
	r.POST("/accounts", createAccountHandler())
	r.GET("/accounts", listAccountsHandler())
	r.GET("/accounts/:id", getAccountHandler())
	r.PUT("/accounts/:id", updateAccountHandler())
	r.DELETE("/accounts/:id", deleteAccountHandler())

	// transactions
	r.POST("/transactions", createTransactionHandler())
	r.GET("/transactions", listTransactionsHandler())
	r.GET("/transactions/recurring", listRecurringHandler())
	r.GET("/transactions/:id", getTransactionHandler())
	r.PUT("/transactions/:id", updateTransactionHandler())
	r.DELETE("/transactions/:id", deleteTransactionHandler())
	r.PUT("/transactions/:id/installments/:number", markInstallmentHandler())

	// goals
	r.POST("/goals", createGoalHandler())
	r.GET("/goals", listGoalsHandler())
	r.GET("/goals/:id", getGoalHandler())
	r.DELETE("/goals/:id", deleteGoalHandler())
	r.POST("/goals/:id/deposit", goalDepositHandler())
	r.POST("/goals/:id/withdraw", goalWithdrawHandler())
	r.PUT("/goals/:id/visibility", goalVisibilityHandler())
	r.GET("/goals/:id/visibility-history", goalVisibilityHistoryHandler())
	r.DELETE("/goals/:id/participants/:userId", removeGoalParticipantHandler())
	r.PUT("/goals/:id/featured", goalFeaturedHandler())

	// reports
	r.GET("/reports/:month/status", reportStatusHandler())
	r.GET("/reports/:month", getReportHandler())
	r.POST("/reports/:month", generateReportHandler())

	// object storage
	r.POST("/uploads/logo", uploadLogoHandler())
	r.DELETE("/uploads/logo", deleteLogoHandler())
}
