package handler

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/Mohwit/github-app-issue-commenter/internal/store"
)

//go:embed templates/dashboard.html
var templates embed.FS

const DefaultRefreshInterval = 30 * time.Second

type DashboardHandler struct {
	appName string
	refresh time.Duration
	issues  store.IssueStore
	tmpl    *template.Template
}

func NewDashboardHandler(appName string, refresh time.Duration, issues store.IssueStore) *DashboardHandler {
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	return &DashboardHandler{
		appName: appName,
		refresh: refresh,
		issues:  issues,
		tmpl:    template.Must(template.ParseFS(templates, "templates/dashboard.html")),
	}
}

type dashboardData struct {
	AppName     string
	Total       int
	Capacity    int
	RefreshMS   int64
	GeneratedAt time.Time
}

func (h *DashboardHandler) Index(c *gin.Context) {
	c.Render(http.StatusOK, render.HTML{
		Template: h.tmpl,
		Name:     "dashboard.html",
		Data: dashboardData{
			AppName:     h.appName,
			Total:       h.issues.Len(),
			Capacity:    h.issues.Capacity(),
			RefreshMS:   h.refresh.Milliseconds(),
			GeneratedAt: time.Now().UTC(),
		},
	})
}
