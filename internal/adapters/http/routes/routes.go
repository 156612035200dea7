package routes

import (
	"libfraga/internal/adapters/http/handlers"
	"libfraga/internal/adapters/http/middleware"
	"libfraga/internal/adapters/persistence/repositories"
	"libfraga/internal/config"
	"libfraga/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	loanStore := repositories.NewLoanStore(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	bookService := services.NewBookService(bookRepo)
	loanService := services.NewLoanService(loanStore, cfg.Loan)
	reportService := services.NewReportService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService)
	loanHandler := handlers.NewLoanHandler(loanService, loanRepo)
	reportHandler := handlers.NewReportHandler(reportService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, userHandler,
		bookHandler, loanHandler, reportHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	bookHandler *handlers.BookHandler,
	loanHandler *handlers.LoanHandler,
	reportHandler *handlers.ReportHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes (Admin only)
	userRoutes := router.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler)

	// Catalog routes (reads public, writes Librarian/Admin)
	bookRoutes := router.Group("/books")
	setupBookRoutes(bookRoutes, bookHandler, cfg)

	// Loan routes (Authenticated users)
	loanRoutes := router.Group("/loans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg))
	setupLoanRoutes(loanRoutes, loanHandler)

	// Fine routes (Librarian/Admin)
	fineRoutes := router.Group("/fines")
	fineRoutes.Use(middleware.AuthMiddleware(cfg))
	fineRoutes.Use(middleware.LibrarianOrAdmin())
	setupFineRoutes(fineRoutes, loanHandler)

	// Report routes (Librarian/Admin)
	reportRoutes := router.Group("/reports")
	reportRoutes.Use(middleware.AuthMiddleware(cfg))
	reportRoutes.Use(middleware.LibrarianOrAdmin())
	setupReportRoutes(reportRoutes, reportHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, rate limited against brute force.
	// Register runs optional auth so an admin token can assign roles.
	router.Post("/register", middleware.AuthRateLimiter(), middleware.OptionalAuth(cfg), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	// Self-service (any authenticated user)
	router.Put("/me", handler.UpdateProfile)
	router.Put("/me/password", middleware.StrictRateLimiter(), handler.ChangePassword)

	// Admin only
	router.Get("/", middleware.AdminOnly(), handler.List)
	router.Get("/:id", middleware.AdminOnly(), handler.Get)
	router.Put("/:id", middleware.AdminOnly(), handler.Update)
	router.Delete("/:id", middleware.AdminOnly(), handler.Delete)
}

// setupBookRoutes configures catalog routes
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler, cfg *config.Config) {
	// Public reads
	router.Get("/", middleware.CatalogCache(), handler.List)
	router.Get("/:id", handler.Get)

	// Librarian/Admin writes
	router.Post("/", middleware.AuthMiddleware(cfg), middleware.LibrarianOrAdmin(), handler.Create)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.LibrarianOrAdmin(), handler.Update)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.LibrarianOrAdmin(), handler.Delete)
}

// setupLoanRoutes configures loan routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	// Any authenticated user sees their own history
	router.Get("/my", middleware.NoCacheHeaders(), handler.MyLoans)

	// Librarian/Admin run the desk
	router.Get("/", middleware.LibrarianOrAdmin(), handler.List)
	router.Post("/", middleware.LibrarianOrAdmin(), handler.Checkout)
	router.Get("/:id", middleware.LibrarianOrAdmin(), handler.Get)
	router.Post("/:id/return", middleware.LibrarianOrAdmin(), handler.Return)
}

// setupFineRoutes configures fine routes
func setupFineRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Get("/", handler.ListFines)
	router.Post("/:id/pay", handler.PayFine)
}

// setupReportRoutes configures report routes
func setupReportRoutes(router fiber.Router, handler *handlers.ReportHandler) {
	router.Get("/dashboard", handler.Dashboard)
	router.Get("/overdue", handler.OverdueLoans)
	router.Get("/popular", handler.PopularBooks)
	router.Get("/students/:id", handler.StudentStats)
}
