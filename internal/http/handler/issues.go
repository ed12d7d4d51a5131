package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"github.com/Mohwit/github-app-issue-commenter/internal/http/dto"
	"github.com/Mohwit/github-app-issue-commenter/internal/store"
)

type IssueHandler struct {
	issues store.IssueStore
	schema *jsonschema.Schema
}

func NewIssueHandler(issues store.IssueStore) *IssueHandler {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return &IssueHandler{
		issues: issues,
		schema: reflector.Reflect(&dto.IssueListResponse{}),
	}
}

func (h *IssueHandler) List(c *gin.Context) {
	var req dto.ListIssuesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	records, total := store.Query(h.issues, store.IssueFilter{
		Repository: req.Repository,
		Label:      req.Label,
		User:       req.User,
		Limit:      req.Limit,
	})

	c.JSON(http.StatusOK, dto.IssueListResponse{
		Total:  total,
		Issues: records,
	})
}

func (h *IssueHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, h.schema)
}
