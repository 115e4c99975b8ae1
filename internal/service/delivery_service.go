package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/models"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
)

type announcementReader interface {
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
}

type deliveryLedger interface {
	Get(ctx context.Context, announcementID, recipientID string) (*models.Delivery, error)
	Exists(ctx context.Context, announcementID, recipientID string) (bool, error)
	MarkRead(ctx context.Context, announcementID, recipientID string, now time.Time) (bool, error)
	Confirm(ctx context.Context, announcementID, recipientID string, now time.Time) (bool, error)
	Respond(ctx context.Context, announcementID, recipientID string, kind models.ResponseKind, text *string, now time.Time) (bool, error)
}

type deliveryMetrics interface {
	ObserveDeliveryAck(action string, firstWriter bool)
}

// DeliveryService mutates per-recipient acknowledgment state. Every mutation
// is conditional at the database level, so concurrent calls from several
// devices of the same recipient converge on a single winner.
type DeliveryService struct {
	announcements announcementReader
	deliveries    deliveryLedger
	invalidator   unreadInvalidator
	metrics       deliveryMetrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewDeliveryService builds the service.
func NewDeliveryService(
	announcements announcementReader,
	deliveries deliveryLedger,
	invalidator unreadInvalidator,
	metrics deliveryMetrics,
	logger *zap.Logger,
) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{
		announcements: announcements,
		deliveries:    deliveries,
		invalidator:   invalidator,
		metrics:       metrics,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// MarkRead records first-open of an aviso. Repeats are successes: polling and
// multi-tab usage make retries routine.
func (s *DeliveryService) MarkRead(ctx context.Context, avisoID, recipientID string) (*dto.AckResponse, error) {
	updated, err := s.deliveries.MarkRead(ctx, avisoID, recipientID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark read")
	}
	if !updated {
		if err := s.ensureDelivery(ctx, avisoID, recipientID); err != nil {
			return nil, err
		}
	}

	s.afterMutation("read", recipientID, updated)
	return &dto.AckResponse{Success: true, Updated: updated}, nil
}

// Confirm acknowledges a confirmation-required aviso, marking it read in the
// same operation when needed. Confirming twice is a silent no-op.
func (s *DeliveryService) Confirm(ctx context.Context, avisoID, recipientID string) (*dto.AckResponse, error) {
	announcement, err := s.loadAnnouncement(ctx, avisoID)
	if err != nil {
		return nil, err
	}
	if !announcement.RequiresConfirmation {
		return nil, appErrors.ErrConfirmationNotApplicable
	}

	updated, err := s.deliveries.Confirm(ctx, avisoID, recipientID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm")
	}
	if !updated {
		if err := s.ensureDelivery(ctx, avisoID, recipientID); err != nil {
			return nil, err
		}
	}

	s.afterMutation("confirm", recipientID, updated)
	return &dto.AckResponse{Success: true, Updated: updated}, nil
}

// Respond records the recipient's answer. Unlike confirm, a second distinct
// response is rejected: the first answer carries user-authored content that
// must not be silently discarded.
func (s *DeliveryService) Respond(ctx context.Context, avisoID, recipientID string, req dto.RespondRequest) (*dto.AckResponse, error) {
	announcement, err := s.loadAnnouncement(ctx, avisoID)
	if err != nil {
		return nil, err
	}
	if !announcement.RequiresResponse {
		return nil, appErrors.ErrResponseNotApplicable
	}
	if !req.Tipo.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown response kind")
	}
	if req.Tipo == models.ResponseKindFreeText && (req.Texto == nil || *req.Texto == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "free-text response requires texto")
	}

	updated, err := s.deliveries.Respond(ctx, avisoID, recipientID, req.Tipo, req.Texto, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to respond")
	}
	if !updated {
		delivery, err := s.deliveries.Get(ctx, avisoID, recipientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delivery")
		}
		if delivery.Responded() {
			return nil, appErrors.ErrAlreadyResponded
		}
		return nil, appErrors.ErrNotFound
	}

	s.afterMutation("respond", recipientID, updated)
	return &dto.AckResponse{Success: true, Updated: true}, nil
}

func (s *DeliveryService) loadAnnouncement(ctx context.Context, avisoID string) (*models.Announcement, error) {
	announcement, err := s.announcements.GetByID(ctx, avisoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aviso")
	}
	return announcement, nil
}

func (s *DeliveryService) ensureDelivery(ctx context.Context, avisoID, recipientID string) error {
	exists, err := s.deliveries.Exists(ctx, avisoID, recipientID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check delivery")
	}
	if !exists {
		return appErrors.ErrNotFound
	}
	return nil
}

func (s *DeliveryService) afterMutation(action, recipientID string, firstWriter bool) {
	if s.invalidator != nil && firstWriter {
		s.invalidator.Invalidate([]string{recipientID})
	}
	if s.metrics != nil {
		s.metrics.ObserveDeliveryAck(action, firstWriter)
	}
}
