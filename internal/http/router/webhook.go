package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Mohwit/github-app-issue-commenter/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, handler *webhook.GitHubWebhookHandler) {
	router.POST("", handler.HandleEvent)
}
