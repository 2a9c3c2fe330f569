// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"cardledger/internal/handlers"
	"cardledger/internal/middleware"
	"cardledger/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Cards       *handlers.CardHandler
	Transaction *handlers.TransactionHandler
	Transfer    *handlers.TransferHandler
	Admin       *handlers.AdminHandler
	Health      *handlers.HealthHandler
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware) {
	app.Get("/health", h.Health.HealthCheck)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/auth/register", h.Auth.RegisterUser)
	api.Post("/auth/login", h.Auth.LoginUser)

	authenticated := api.Group("", auth.Handler)
	authenticated.Post("/auth/logout", h.Auth.LogoutUser)
	authenticated.Post("/auth/change-password", h.Auth.ChangePassword)

	cards := authenticated.Group("/cards", middleware.HasPermission(models.PermissionCardRead))
	cards.Get("/", h.Cards.ListCards)
	cards.Get("/:id", h.Cards.GetCard)
	cards.Get("/:id/balance", h.Cards.GetBalance)
	cards.Get("/:id/transactions", middleware.HasPermission(models.PermissionTransactionRead), h.Cards.GetCardTransactions)

	txs := authenticated.Group("/transactions")
	txs.Get("/", middleware.HasPermission(models.PermissionTransactionRead), h.Transaction.ListTransactions)
	txs.Get("/:id", middleware.HasPermission(models.PermissionTransactionRead), h.Transaction.GetTransaction)
	txs.Post("/withdrawal", middleware.HasPermission(models.PermissionTransactionWrite), h.Transaction.Withdraw)
	txs.Post("/deposit", middleware.HasPermission(models.PermissionTransactionWrite), h.Transaction.Deposit)
	txs.Post("/transfer", middleware.HasPermission(models.PermissionTransactionWrite), h.Transfer.Transfer)

	admin := authenticated.Group("/admin", middleware.AdminOnly)
	admin.Get("/users", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListUsers)
	admin.Delete("/users/:userId", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.DeleteUser)
	admin.Get("/users/:userId/cards", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListUserCards)
	admin.Post("/users/:userId/cards", middleware.HasPermission(models.PermissionWriteAdmin), h.Cards.IssueCard)
	admin.Patch("/cards/:id/status", middleware.HasPermission(models.PermissionWriteAdmin), h.Cards.UpdateStatus)
	admin.Delete("/cards/:id", middleware.HasPermission(models.PermissionWriteAdmin), h.Cards.DeleteCard)
	admin.Put("/cards/:id/limits", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.SetCardLimits)
	admin.Post("/limits/reset/:window", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.ResetLimits)
}
