package dto

import "github.com/Mohwit/github-app-issue-commenter/internal/model"

type ListIssuesRequest struct {
	Repository string `form:"repository"`
	Label      string `form:"label"`
	User       string `form:"user"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

type IssueListResponse struct {
	Total  int                 `json:"total" jsonschema:"description=Number of stored issues matching the query"`
	Issues []model.IssueRecord `json:"issues" jsonschema:"description=Matching issues, most recent first"`
}
