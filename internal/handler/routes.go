package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tazrim/tazrim-backend/internal/middleware"
)

// Handlers bundles every HTTP handler for route registration
type Handlers struct {
	Auth           *AuthHandler
	Organization   *OrganizationHandler
	Category       *CategoryHandler
	Transaction    *TransactionHandler
	FixedSchedule  *FixedScheduleHandler
	Installment    *InstallmentHandler
	Loan           *LoanHandler
	Balance        *BalanceHandler
	ExpectedIncome *ExpectedIncomeHandler
	Subscription   *SubscriptionHandler
	CreditCard     *CreditCardHandler
	Forecast       *ForecastHandler
	Dashboard      *DashboardHandler
	Automation     *AutomationHandler
	Alert          *AlertHandler
	Approval       *ApprovalHandler
	Audit          *AuditHandler
	Report         *ReportHandler
}

// RegisterRoutes mounts all routes under /api/v1. Auth endpoints are public;
// everything else requires a bearer token and is rate limited per user.
func RegisterRoutes(e *echo.Echo, h *Handlers, authMW *middleware.AuthMiddleware, limiter *middleware.RateLimiter) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	api := v1.Group("", authMW.Authenticate(), middleware.RateLimitMiddleware(limiter))
	api.GET("/auth/me", h.Auth.Me)

	orgs := api.Group("/organizations")
	orgs.POST("", h.Organization.Create)
	orgs.GET("", h.Organization.List)
	orgs.POST("/switch", h.Organization.Switch)
	orgs.GET("/:id", h.Organization.Get)
	orgs.PUT("/:id", h.Organization.Update)
	orgs.DELETE("/:id", h.Organization.Delete)
	orgs.GET("/:id/members", h.Organization.ListMembers)
	orgs.POST("/:id/members", h.Organization.AddMember)
	orgs.PUT("/:id/members/:userId", h.Organization.UpdateMemberRole)
	orgs.DELETE("/:id/members/:userId", h.Organization.RemoveMember)

	categories := api.Group("/categories")
	categories.POST("", h.Category.Create)
	categories.GET("", h.Category.List)
	categories.GET("/:id", h.Category.Get)
	categories.PUT("/:id", h.Category.Update)
	categories.DELETE("/:id", h.Category.Delete)

	transactions := api.Group("/transactions")
	transactions.POST("", h.Transaction.Create)
	transactions.GET("", h.Transaction.List)
	transactions.POST("/bulk", h.Transaction.BulkCreate)
	transactions.PUT("/bulk-update", h.Transaction.BulkUpdate)
	transactions.POST("/bulk-delete", h.Transaction.BulkDelete)
	transactions.GET("/:id", h.Transaction.Get)
	transactions.PUT("/:id", h.Transaction.Update)
	transactions.DELETE("/:id", h.Transaction.Delete)

	schedules := api.Group("/fixed-schedules")
	schedules.POST("", h.FixedSchedule.Create)
	schedules.GET("", h.FixedSchedule.List)
	schedules.GET("/:id", h.FixedSchedule.Get)
	schedules.PUT("/:id", h.FixedSchedule.Update)
	schedules.DELETE("/:id", h.FixedSchedule.Delete)
	schedules.POST("/:id/pause", h.FixedSchedule.Pause)
	schedules.POST("/:id/resume", h.FixedSchedule.Resume)

	installments := api.Group("/installments")
	installments.POST("", h.Installment.Create)
	installments.GET("", h.Installment.List)
	installments.GET("/:id", h.Installment.Get)
	installments.PUT("/:id", h.Installment.Update)
	installments.DELETE("/:id", h.Installment.Delete)
	installments.POST("/:id/pay", h.Installment.Pay)
	installments.POST("/:id/reverse", h.Installment.Reverse)

	loans := api.Group("/loans")
	loans.POST("", h.Loan.Create)
	loans.GET("", h.Loan.List)
	loans.GET("/:id", h.Loan.Get)
	loans.PUT("/:id", h.Loan.Update)
	loans.DELETE("/:id", h.Loan.Delete)
	loans.GET("/:id/schedule", h.Loan.Schedule)
	loans.POST("/:id/pay", h.Loan.Pay)
	loans.POST("/:id/reverse", h.Loan.Reverse)

	balances := api.Group("/balances")
	balances.POST("", h.Balance.Record)
	balances.GET("", h.Balance.List)
	balances.GET("/current", h.Balance.Current)
	balances.PUT("/:id", h.Balance.Update)
	balances.DELETE("/:id", h.Balance.Delete)

	income := api.Group("/expected-income")
	income.PUT("", h.ExpectedIncome.Set)
	income.GET("", h.ExpectedIncome.List)
	income.GET("/:month", h.ExpectedIncome.Get)
	income.DELETE("/:id", h.ExpectedIncome.Delete)

	subscriptions := api.Group("/subscriptions")
	subscriptions.POST("", h.Subscription.Create)
	subscriptions.GET("", h.Subscription.List)
	subscriptions.GET("/commitment", h.Subscription.Commitment)
	subscriptions.GET("/:id", h.Subscription.Get)
	subscriptions.PUT("/:id", h.Subscription.Update)
	subscriptions.DELETE("/:id", h.Subscription.Cancel)
	subscriptions.POST("/:id/pause", h.Subscription.Pause)
	subscriptions.POST("/:id/resume", h.Subscription.Resume)

	cards := api.Group("/credit-cards")
	cards.POST("", h.CreditCard.Create)
	cards.GET("", h.CreditCard.List)
	cards.GET("/:id", h.CreditCard.Get)
	cards.PUT("/:id", h.CreditCard.Update)
	cards.DELETE("/:id", h.CreditCard.Delete)

	forecast := api.Group("/forecast")
	forecast.GET("/monthly", h.Forecast.Monthly)
	forecast.GET("/weekly", h.Forecast.Weekly)

	dashboard := api.Group("/dashboard")
	dashboard.GET("/summary", h.Dashboard.Summary)
	dashboard.GET("/series", h.Dashboard.Series)
	dashboard.GET("/breakdown", h.Dashboard.Breakdown)
	dashboard.GET("/upcoming", h.Dashboard.Upcoming)
	dashboard.GET("/health", h.Dashboard.Health)

	automation := api.Group("/automation")
	automation.POST("/run", h.Automation.Run)
	automation.POST("/preview", h.Automation.Preview)

	alerts := api.Group("/alerts")
	alerts.GET("", h.Alert.List)
	alerts.POST("/generate", h.Alert.Generate)
	alerts.POST("/read-all", h.Alert.MarkAllRead)
	alerts.POST("/:id/read", h.Alert.MarkRead)
	alerts.DELETE("/:id", h.Alert.Dismiss)

	approvals := api.Group("/approvals")
	approvals.POST("", h.Approval.Submit)
	approvals.GET("", h.Approval.List)
	approvals.GET("/:id", h.Approval.Get)
	approvals.POST("/:id/approve", h.Approval.Approve)
	approvals.POST("/:id/reject", h.Approval.Reject)

	api.GET("/audit", h.Audit.List)

	reports := api.Group("/reports")
	reports.POST("", h.Report.Generate)
	reports.GET("", h.Report.List)
	reports.GET("/:id/download", h.Report.Download)
	reports.DELETE("/:id", h.Report.Delete)
}
