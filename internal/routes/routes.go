package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/velora/internal/config"
	"github.com/example/velora/internal/handlers"
	"github.com/example/velora/internal/middleware"
	"github.com/example/velora/internal/repository"
	"github.com/example/velora/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	refundExecutor := services.NewStripeRefundExecutor(cfg.StripeSecretKey)
	bundleCache := services.NewBundleCache(db, rdb)

	store := repository.NewGormCancellationStore(db)
	cancellationService := services.NewCancellationService(store, refundExecutor, emailService, telegramService, cfg.RefundPolicy)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db, bundleCache)
	orderHandler := handlers.NewOrderHandler(db, bundleCache)
	cancellationHandler := handlers.NewCancellationHandler(cancellationService)
	adminHandler := handlers.NewAdminHandler(db, cancellationService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Public catalog
	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/bundles", productHandler.ListBundles)
	api.Get("/bundles/:id", productHandler.GetBundle)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/me", authHandler.Me)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Get("/orders/:id/refund-preview", cancellationHandler.Preview)
	protected.Post("/orders/:id/cancellations", cancellationHandler.Submit)
	protected.Get("/cancellations", cancellationHandler.ListMine)
	protected.Get("/cancellations/:id", cancellationHandler.GetMine)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.RequireAdmin(db))
	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/cancellations", adminHandler.ListCancellations)
	admin.Get("/cancellations/:id", adminHandler.GetCancellation)
	admin.Post("/cancellations/:id/decision", adminHandler.Decide)
}
