package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/models"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
	"github.com/coopvalles/asamblea-api/pkg/response"
)

type avisoSender interface {
	Create(ctx context.Context, req dto.CreateAvisoRequest, senderID string) (*dto.CreateAvisoResponse, error)
	ListSent(ctx context.Context, page, pageSize int) ([]dto.SentAviso, *models.Pagination, error)
	DeliveryRoll(ctx context.Context, avisoID string) ([]dto.DeliveryRollEntry, error)
	ExportDeliveryRoll(ctx context.Context, avisoID, format string) ([]byte, string, error)
}

type avisoUploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (*dto.UploadImageResponse, error)
}

// AvisoHandler handles the sender-side announcement endpoints.
type AvisoHandler struct {
	service   avisoSender
	uploads   avisoUploader
	maxUpload int64
}

// NewAvisoHandler creates the handler.
func NewAvisoHandler(service avisoSender, uploads avisoUploader, maxUpload int64) *AvisoHandler {
	return &AvisoHandler{service: service, uploads: uploads, maxUpload: maxUpload}
}

// Create sends a new aviso and fans deliveries out to its recipients.
func (h *AvisoHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateAvisoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UploadImage stores an attachment image ahead of aviso creation.
func (h *AvisoHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("imagen")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing imagen file"))
		return
	}
	defer file.Close() //nolint:errcheck

	limit := h.maxUpload
	if limit <= 0 {
		limit = 5 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	if int64(len(data)) > limit {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "upload exceeds size limit"))
		return
	}

	result, err := h.uploads.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ListSent returns sent avisos with acknowledgment tallies.
func (h *AvisoHandler) ListSent(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, pagination, err := h.service.ListSent(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination)
}

// DeliveryRoll returns the per-recipient roll for one aviso, or a CSV/PDF
// download when a format query is supplied.
func (h *AvisoHandler) DeliveryRoll(c *gin.Context) {
	avisoID := c.Param("id")
	format := c.Query("format")

	if format == "" {
		entries, err := h.service.DeliveryRoll(c.Request.Context(), avisoID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, entries, nil)
		return
	}

	payload, contentType, err := h.service.ExportDeliveryRoll(c.Request.Context(), avisoID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := "aviso-" + avisoID + "-entregas." + format
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
