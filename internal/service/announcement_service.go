package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/models"
	"github.com/coopvalles/asamblea-api/internal/repository"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
	"github.com/coopvalles/asamblea-api/pkg/export"
)

type announcementStore interface {
	CreateWithDeliveries(ctx context.Context, announcement *models.Announcement, recipientIDs []string) error
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	ListSent(ctx context.Context, page, pageSize int) ([]repository.SentAnnouncementRow, int, error)
	DeliveryRoll(ctx context.Context, announcementID string) ([]repository.DeliveryRollRow, error)
}

type recipientResolver interface {
	Resolve(ctx context.Context, kind models.AnnouncementKind, roleFilter *models.UserRole, targetUserID *string) ([]string, error)
}

type attachmentChecker interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

type unreadInvalidator interface {
	Invalidate(recipientIDs []string)
}

type announcementMetrics interface {
	ObserveAvisoCreated(kind models.AnnouncementKind, priority models.AnnouncementPriority, deliveries int)
}

// AnnouncementService owns the aviso lifecycle: validation, recipient
// resolution and transactional fan-out. Announcements are immutable once
// created; there is no edit or retract path.
type AnnouncementService struct {
	repo        announcementStore
	resolver    recipientResolver
	attachments attachmentChecker
	invalidator unreadInvalidator
	metrics     announcementMetrics
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAnnouncementService builds the service with sane defaults.
func NewAnnouncementService(
	repo announcementStore,
	resolver recipientResolver,
	attachments attachmentChecker,
	invalidator unreadInvalidator,
	metrics announcementMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:        repo,
		resolver:    resolver,
		attachments: attachments,
		invalidator: invalidator,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Create validates the request, resolves recipients and persists the aviso
// together with its delivery rows in one transaction. Nothing persists when
// resolution or fan-out fails.
func (s *AnnouncementService) Create(ctx context.Context, req dto.CreateAvisoRequest, senderID string) (*dto.CreateAvisoResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid aviso payload")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "aviso body must not be empty")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown aviso kind")
	}
	if !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown aviso priority")
	}
	if req.RoleFilter != nil && !req.RoleFilter.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	if req.Kind == models.AnnouncementKindIndividual && (req.TargetUserID == nil || *req.TargetUserID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "individual aviso requires targetUserId")
	}

	if req.AttachmentRef != nil && *req.AttachmentRef != "" {
		exists, err := s.attachments.Exists(ctx, *req.AttachmentRef)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify attachment")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attachment reference does not exist")
		}
	}

	// MASS ignores any filter input rather than rejecting it.
	roleFilter := req.RoleFilter
	targetUserID := req.TargetUserID
	if req.Kind == models.AnnouncementKindMass {
		roleFilter = nil
		targetUserID = nil
	}
	if req.Kind == models.AnnouncementKindFiltered {
		targetUserID = nil
	}

	recipients, err := s.resolver.Resolve(ctx, req.Kind, roleFilter, targetUserID)
	if err != nil {
		return nil, err
	}

	announcement := &models.Announcement{
		Title:                req.Title,
		Body:                 req.Body,
		Kind:                 req.Kind,
		Priority:             req.Priority,
		RoleFilter:           roleFilter,
		TargetUserID:         targetUserID,
		AttachmentRef:        req.AttachmentRef,
		ShowModal:            req.ShowModal,
		RequiresConfirmation: req.RequiresConfirmation,
		RequiresResponse:     req.RequiresResponse,
		SenderID:             senderID,
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.repo.CreateWithDeliveries(ctx, announcement, recipients); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create aviso")
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(recipients)
	}
	if s.metrics != nil {
		s.metrics.ObserveAvisoCreated(announcement.Kind, announcement.Priority, len(recipients))
	}
	s.logger.Info("aviso created",
		zap.String("aviso_id", announcement.ID),
		zap.String("kind", string(announcement.Kind)),
		zap.String("priority", string(announcement.Priority)),
		zap.Int("delivered", len(recipients)),
	)

	return &dto.CreateAvisoResponse{
		Success:        true,
		AvisoID:        announcement.ID,
		DeliveredCount: len(recipients),
	}, nil
}

// ListSent returns the sender-side announcement list with acknowledgment tallies.
func (s *AnnouncementService) ListSent(ctx context.Context, page, pageSize int) ([]dto.SentAviso, *models.Pagination, error) {
	rows, total, err := s.repo.ListSent(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list avisos")
	}

	items := make([]dto.SentAviso, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.SentAviso{
			AvisoID:              row.ID,
			Title:                row.Title,
			Body:                 row.Body,
			Kind:                 row.Kind,
			Priority:             row.Priority,
			RequiresConfirmation: row.RequiresConfirmation,
			RequiresResponse:     row.RequiresResponse,
			DeliveredCount:       row.DeliveredCount,
			ReadCount:            row.ReadCount,
			ConfirmedCount:       row.ConfirmedCount,
			RespondedCount:       row.RespondedCount,
			CreatedAt:            row.CreatedAt,
		})
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// DeliveryRoll returns the per-recipient acknowledgment roll for one aviso.
func (s *AnnouncementService) DeliveryRoll(ctx context.Context, avisoID string) ([]dto.DeliveryRollEntry, error) {
	if _, err := s.repo.GetByID(ctx, avisoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aviso")
	}

	rows, err := s.repo.DeliveryRoll(ctx, avisoID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delivery roll")
	}

	entries := make([]dto.DeliveryRollEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.DeliveryRollEntry{
			RecipientID:  row.RecipientID,
			FullName:     row.FullName,
			Role:         row.Role,
			SentAt:       row.SentAt,
			ReadAt:       row.ReadAt,
			ConfirmedAt:  row.ConfirmedAt,
			RespondedAt:  row.RespondedAt,
			ResponseKind: row.ResponseKind,
			ResponseText: row.ResponseText,
		})
	}
	return entries, nil
}

// ExportDeliveryRoll renders the roll as CSV or PDF for download.
func (s *AnnouncementService) ExportDeliveryRoll(ctx context.Context, avisoID, format string) ([]byte, string, error) {
	entries, err := s.DeliveryRoll(ctx, avisoID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Recipient", "Role", "Sent", "Read", "Confirmed", "Responded", "Response"},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, entry := range entries {
		response := ""
		if entry.ResponseKind != nil {
			response = string(*entry.ResponseKind)
			if entry.ResponseText != nil {
				response = fmt.Sprintf("%s: %s", response, *entry.ResponseText)
			}
		}
		dataset.Rows = append(dataset.Rows, []string{
			entry.FullName,
			string(entry.Role),
			formatTime(&entry.SentAt),
			formatTime(entry.ReadAt),
			formatTime(entry.ConfirmedAt),
			formatTime(entry.RespondedAt),
			response,
		})
	}

	switch format {
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, "Aviso delivery roll")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
