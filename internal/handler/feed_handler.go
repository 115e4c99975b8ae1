package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coopvalles/asamblea-api/internal/dto"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
	"github.com/coopvalles/asamblea-api/pkg/response"
)

type feedQuerier interface {
	ListForRecipient(ctx context.Context, recipientID string) ([]dto.FeedItem, error)
	UnreadCount(ctx context.Context, recipientID string) (*dto.UnreadCountResponse, error)
}

// FeedHandler serves the two recipient polling endpoints. Both are read-only;
// clients hit them together on a fixed interval.
type FeedHandler struct {
	service feedQuerier
}

// NewFeedHandler creates the handler.
func NewFeedHandler(service feedQuerier) *FeedHandler {
	return &FeedHandler{service: service}
}

// MisAvisos returns the authenticated recipient's announcement feed.
func (h *FeedHandler) MisAvisos(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.ListForRecipient(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// UnreadCount returns the recipient's unread tally.
func (h *FeedHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, count, nil)
}
