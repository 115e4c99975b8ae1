package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/middleware"
	"github.com/coopvalles/asamblea-api/internal/models"
)

type feedServiceMock struct {
	items  []dto.FeedItem
	unread *dto.UnreadCountResponse
	gotID  string
}

func (m *feedServiceMock) ListForRecipient(ctx context.Context, recipientID string) ([]dto.FeedItem, error) {
	m.gotID = recipientID
	return m.items, nil
}

func (m *feedServiceMock) UnreadCount(ctx context.Context, recipientID string) (*dto.UnreadCountResponse, error) {
	m.gotID = recipientID
	return m.unread, nil
}

func TestFeedHandlerMisAvisos(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &feedServiceMock{items: []dto.FeedItem{{AvisoID: "av-1", Body: "Asamblea", Kind: models.AnnouncementKindMass, Priority: models.AnnouncementPriorityCritical}}}
	handler := NewFeedHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/avisos/mis-avisos", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleOperator})

	handler.MisAvisos(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", svc.gotID)
	assert.Contains(t, w.Body.String(), `"avisoId":"av-1"`)
}

func TestFeedHandlerMisAvisosWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeedHandler(&feedServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/avisos/mis-avisos", nil)
	c.Request = req

	handler.MisAvisos(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedHandlerUnreadCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &feedServiceMock{unread: &dto.UnreadCountResponse{UnreadCount: 3}}
	handler := NewFeedHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/avisos/unread-count", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleOperator})

	handler.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unreadCount":3`)
}
