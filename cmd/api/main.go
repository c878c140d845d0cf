package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/config"
	"github.com/tazrim/tazrim-backend/internal/handler"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/repository/postgres"
	"github.com/tazrim/tazrim-backend/internal/repository/redisstore"
	"github.com/tazrim/tazrim-backend/internal/repository/storage"
	"github.com/tazrim/tazrim-backend/internal/service"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Connect to Redis for the token revocation list
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Redis URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping Redis")
	}
	log.Info().Msg("Connected to Redis")

	// Object storage for report exports
	reportStore, err := storage.NewS3ReportStore(context.Background(), cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize report store")
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	orgRepo := postgres.NewOrganizationRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	fixedRepo := postgres.NewFixedScheduleRepository(pool)
	installmentRepo := postgres.NewInstallmentRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	balanceRepo := postgres.NewBankBalanceRepository(pool)
	incomeRepo := postgres.NewExpectedIncomeRepository(pool)
	alertRepo := postgres.NewAlertRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	creditCardRepo := postgres.NewCreditCardRepository(pool)
	approvalRepo := postgres.NewApprovalRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)
	tokenStore := redisstore.NewTokenStore(redisClient)

	// Initialize services
	currencyService := service.NewCurrencyService(cfg.BaseCurrency, nil)
	authService := service.NewAuthService(userRepo, tokenStore, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	orgService := service.NewOrganizationService(orgRepo, userRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	transactionService := service.NewTransactionService(transactionRepo, categoryRepo, currencyService)
	fixedService := service.NewFixedScheduleService(fixedRepo, categoryRepo)
	installmentService := service.NewInstallmentService(installmentRepo, transactionRepo, categoryRepo, currencyService)
	loanService := service.NewLoanService(loanRepo, transactionRepo, categoryRepo, currencyService)
	balanceService := service.NewBalanceService(balanceRepo, currencyService)
	incomeService := service.NewExpectedIncomeService(incomeRepo)
	projectionService := service.NewProjectionService(transactionRepo, fixedRepo, installmentRepo, loanRepo)
	forecastService := service.NewForecastService(projectionService, incomeRepo, balanceRepo)
	dashboardService := service.NewDashboardService(transactionRepo, balanceRepo, categoryRepo, fixedRepo, installmentRepo, loanRepo)
	automationService := service.NewAutomationService(transactionRepo, fixedRepo, installmentRepo, loanRepo)
	alertService := service.NewAlertService(alertRepo, transactionRepo, installmentRepo, loanRepo, forecastService)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, creditCardRepo, categoryRepo)
	creditCardService := service.NewCreditCardService(creditCardRepo)
	approvalService := service.NewApprovalService(approvalRepo, categoryRepo, currencyService)
	auditService := service.NewAuditService(auditRepo)
	reportService := service.NewReportService(reportRepo, reportStore, transactionRepo, categoryRepo, forecastService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, orgRepo)
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	handlers := &handler.Handlers{
		Auth:           handler.NewAuthHandler(authService),
		Organization:   handler.NewOrganizationHandler(orgService),
		Category:       handler.NewCategoryHandler(categoryService),
		Transaction:    handler.NewTransactionHandler(transactionService),
		FixedSchedule:  handler.NewFixedScheduleHandler(fixedService),
		Installment:    handler.NewInstallmentHandler(installmentService),
		Loan:           handler.NewLoanHandler(loanService),
		Balance:        handler.NewBalanceHandler(balanceService),
		ExpectedIncome: handler.NewExpectedIncomeHandler(incomeService),
		Subscription:   handler.NewSubscriptionHandler(subscriptionService),
		CreditCard:     handler.NewCreditCardHandler(creditCardService),
		Forecast:       handler.NewForecastHandler(forecastService),
		Dashboard:      handler.NewDashboardHandler(dashboardService),
		Automation:     handler.NewAutomationHandler(automationService),
		Alert:          handler.NewAlertHandler(alertService),
		Approval:       handler.NewApprovalHandler(approvalService),
		Audit:          handler.NewAuditHandler(auditService),
		Report:         handler.NewReportHandler(reportService),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	handler.RegisterRoutes(e, handlers, authMiddleware, rateLimiter)

	// Daily recurring-charge sweep. Each scope runs independently so one
	// failure cannot block the rest.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.AutomationCron, func() {
		runAutomationSweep(pool, automationService, alertService)
	}); err != nil {
		log.Fatal().Err(err).Msg("Invalid automation cron expression")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// runAutomationSweep charges every scope with outstanding obligations and
// refreshes its alerts afterwards.
func runAutomationSweep(pool *pgxpool.Pool, automation *service.AutomationService, alerts *service.AlertService) {
	start := time.Now()
	scopes, err := postgres.ActiveAutomationScopes(context.Background(), pool)
	if err != nil {
		log.Error().Err(err).Msg("Automation sweep: failed to list scopes")
		return
	}

	refDate := time.Now().UTC()
	var charged, failed int
	for _, scope := range scopes {
		result, err := automation.ProcessRecurring(scope, refDate, false)
		if err != nil {
			failed++
			log.Error().Err(err).Str("user_id", scope.UserID.String()).Msg("Automation sweep: scope failed")
			continue
		}
		charged += result.LoansCharged + result.FixedCharged + result.InstallmentsCharged

		if _, err := alerts.Generate(scope, 6); err != nil {
			log.Error().Err(err).Str("user_id", scope.UserID.String()).Msg("Automation sweep: alert refresh failed")
		}
	}

	log.Info().
		Int("scopes", len(scopes)).
		Int("charged", charged).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("Automation sweep finished")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
