package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mohwit/github-app-issue-commenter/internal/dedupe"
	"github.com/Mohwit/github-app-issue-commenter/internal/http/handler"
	"github.com/Mohwit/github-app-issue-commenter/internal/http/handler/webhook"
	"github.com/Mohwit/github-app-issue-commenter/internal/mapper"
	"github.com/Mohwit/github-app-issue-commenter/internal/service"
	"github.com/Mohwit/github-app-issue-commenter/internal/store"
)

type RouterConfig struct {
	AppName          string
	WebhookSecret    string
	DashboardRefresh time.Duration
}

// Dependencies are the long-lived components shared by every request.
type Dependencies struct {
	Issues     store.IssueStore
	Dispatcher service.Dispatcher
	Mapper     mapper.EventMapper
	Deliveries dedupe.DeliveryTracker
}

func SetupRoutes(router *gin.Engine, deps Dependencies, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	dashboardHandler := handler.NewDashboardHandler(cfg.AppName, cfg.DashboardRefresh, deps.Issues)
	router.GET("/", dashboardHandler.Index)

	webhookHandler := webhook.NewGitHubWebhookHandler(cfg.WebhookSecret, deps.Mapper, deps.Dispatcher, deps.Deliveries)
	WebhookRouter(router.Group("/webhook"), webhookHandler)

	api := router.Group("/api")
	{
		issueHandler := handler.NewIssueHandler(deps.Issues)
		IssueRouter(api.Group("/issues"), issueHandler)
	}
}
