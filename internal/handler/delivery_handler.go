package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coopvalles/asamblea-api/internal/dto"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
	"github.com/coopvalles/asamblea-api/pkg/response"
)

type deliveryMutator interface {
	MarkRead(ctx context.Context, avisoID, recipientID string) (*dto.AckResponse, error)
	Confirm(ctx context.Context, avisoID, recipientID string) (*dto.AckResponse, error)
	Respond(ctx context.Context, avisoID, recipientID string, req dto.RespondRequest) (*dto.AckResponse, error)
}

// DeliveryHandler mutates the caller's own delivery rows. The recipient is
// always taken from the bearer token, never from the request body.
type DeliveryHandler struct {
	service deliveryMutator
}

// NewDeliveryHandler creates the handler.
func NewDeliveryHandler(service deliveryMutator) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// Leido marks the aviso read for the caller.
func (h *DeliveryHandler) Leido(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Confirmar acknowledges a confirmation-required aviso for the caller.
func (h *DeliveryHandler) Confirmar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Responder records the caller's answer to a response-required aviso.
func (h *DeliveryHandler) Responder(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.Respond(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
