package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mohwit/github-app-issue-commenter/common/logger"
	"github.com/Mohwit/github-app-issue-commenter/internal/dedupe"
	"github.com/Mohwit/github-app-issue-commenter/internal/githubapp"
	"github.com/Mohwit/github-app-issue-commenter/internal/http/dto"
	"github.com/Mohwit/github-app-issue-commenter/internal/mapper"
	"github.com/Mohwit/github-app-issue-commenter/internal/service"
	signature "github.com/Mohwit/github-app-issue-commenter/internal/webhook"
)

const (
	EventHeader    = "X-GitHub-Event"
	DeliveryHeader = "X-GitHub-Delivery"

	// GitHub caps payloads at 25 MB.
	maxPayloadBytes = 32 << 20
)

type GitHubWebhookHandler struct {
	secret     string
	mapper     mapper.EventMapper
	dispatcher service.Dispatcher
	deliveries dedupe.DeliveryTracker
}

func NewGitHubWebhookHandler(secret string, eventMapper mapper.EventMapper, dispatcher service.Dispatcher, deliveries dedupe.DeliveryTracker) *GitHubWebhookHandler {
	if deliveries == nil {
		deliveries = dedupe.NewNoopTracker()
	}
	return &GitHubWebhookHandler{
		secret:     secret,
		mapper:     eventMapper,
		dispatcher: dispatcher,
		deliveries: deliveries,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	// Nothing from the body is trusted, or logged, before this check.
	if err := signature.Check(body, c.GetHeader(signature.SignatureHeader), h.secret); err != nil {
		slog.WarnContext(ctx, "rejected github webhook", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	deliveryID := c.GetHeader(DeliveryHeader)
	eventType := h.mapper.EventType(c.GetHeader(EventHeader), body)

	fields := logger.LogFields{
		EventType: logger.Ptr(eventType),
		Component: "issue-commenter.webhook",
	}
	if deliveryID != "" {
		fields.DeliveryID = logger.Ptr(deliveryID)
	}
	ctx = logger.WithLogFields(ctx, fields)
	c.Request = c.Request.WithContext(ctx)

	if eventType != mapper.EventIssues {
		slog.DebugContext(ctx, "acknowledged github event without processing")
		c.JSON(http.StatusOK, dto.WebhookResponse{Status: dto.WebhookStatusOK, Event: eventType})
		return
	}

	ev, err := h.mapper.Map(ctx, eventType, body)
	if err != nil {
		if errors.Is(err, mapper.ErrUnsupportedEvent) {
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: dto.WebhookStatusOK, Event: eventType})
			return
		}
		slog.WarnContext(ctx, "invalid github issues payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ev.DeliveryID = deliveryID

	seen, err := h.deliveries.Seen(ctx, deliveryID)
	if err != nil {
		// Dedupe is best effort; a tracker outage must not drop deliveries.
		slog.WarnContext(ctx, "delivery tracking unavailable", "error", err)
	}
	if seen {
		slog.InfoContext(ctx, "duplicate github delivery, ignoring")
		c.JSON(http.StatusOK, dto.WebhookResponse{Status: dto.WebhookStatusDuplicate, DeliveryID: deliveryID})
		return
	}

	outcome, err := h.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		if ferr := h.deliveries.Forget(ctx, deliveryID); ferr != nil {
			slog.WarnContext(ctx, "failed to forget delivery", "error", ferr)
		}
		status, msg := errorStatus(err)
		slog.ErrorContext(ctx, "failed to process github issues event",
			"error", err,
			"action", ev.Action,
			"status", status,
		)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	slog.InfoContext(ctx, "github webhook processed",
		"action", ev.Action,
		"outcome", outcome.Status,
		"reason", outcome.Reason,
	)

	switch outcome.Status {
	case service.StatusCommented:
		c.JSON(http.StatusOK, dto.WebhookResponse{
			Status:     dto.WebhookStatusSuccess,
			Message:    fmt.Sprintf("Comment posted on issue #%d", ev.Issue.Number),
			Repository: ev.Repository,
		})
	default:
		c.JSON(http.StatusOK, dto.WebhookResponse{
			Status: dto.WebhookStatusSkipped,
			Reason: outcome.Reason,
		})
	}
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, githubapp.ErrCredential):
		return http.StatusInternalServerError, "failed to obtain installation token"
	case errors.Is(err, githubapp.ErrUpstreamAPI):
		return http.StatusBadGateway, "github api request failed"
	default:
		return http.StatusInternalServerError, "failed to process event"
	}
}
