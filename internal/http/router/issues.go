package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Mohwit/github-app-issue-commenter/internal/http/handler"
)

func IssueRouter(router *gin.RouterGroup, handler *handler.IssueHandler) {
	router.GET("", handler.List)
	router.GET("/schema", handler.Schema)
}
