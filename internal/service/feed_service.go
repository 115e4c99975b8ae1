package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/repository"
	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
)

type feedReader interface {
	ListFeed(ctx context.Context, recipientID string) ([]repository.FeedRow, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}

type unreadCache interface {
	GetUnreadCount(ctx context.Context, recipientID string) (int, error)
	SetUnreadCount(ctx context.Context, recipientID string, count int, ttl time.Duration) error
}

type attachmentURLResolver interface {
	URL(name string) string
}

// FeedService answers the two polling queries every client repeats on a fixed
// interval: "my announcements" and "my unread count". Both are read-only and
// cheap under duplicate polls; the unread count is cached with a short TTL
// that bounds staleness against the list.
type FeedService struct {
	deliveries feedReader
	cache      unreadCache
	urls       attachmentURLResolver
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewFeedService builds the service.
func NewFeedService(deliveries feedReader, cache unreadCache, urls attachmentURLResolver, cacheTTL time.Duration, logger *zap.Logger) *FeedService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedService{deliveries: deliveries, cache: cache, urls: urls, cacheTTL: cacheTTL, logger: logger}
}

// ListForRecipient returns the recipient's feed, most recent announcement
// first with announcement id as the deterministic tie-break.
func (s *FeedService) ListForRecipient(ctx context.Context, recipientID string) ([]dto.FeedItem, error) {
	rows, err := s.deliveries.ListFeed(ctx, recipientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feed")
	}

	items := make([]dto.FeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.toFeedItem(row))
	}
	return items, nil
}

// UnreadCount returns the recipient's unread tally, served from cache within
// the staleness window and recomputed from the ledger otherwise.
func (s *FeedService) UnreadCount(ctx context.Context, recipientID string) (*dto.UnreadCountResponse, error) {
	if s.cache != nil {
		count, err := s.cache.GetUnreadCount(ctx, recipientID)
		if err == nil {
			return &dto.UnreadCountResponse{UnreadCount: count}, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("unread cache read failed", zap.String("recipient_id", recipientID), zap.Error(err))
		}
	}

	count, err := s.deliveries.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread")
	}

	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, recipientID, count, s.cacheTTL); err != nil {
			s.logger.Warn("unread cache write failed", zap.String("recipient_id", recipientID), zap.Error(err))
		}
	}
	return &dto.UnreadCountResponse{UnreadCount: count}, nil
}

func (s *FeedService) toFeedItem(row repository.FeedRow) dto.FeedItem {
	var attachmentURL *string
	if row.AttachmentRef != nil && s.urls != nil {
		url := s.urls.URL(*row.AttachmentRef)
		attachmentURL = &url
	}
	return dto.FeedItem{
		AvisoID:              row.AnnouncementID,
		Title:                row.Title,
		Body:                 row.Body,
		Kind:                 row.Kind,
		Priority:             row.Priority,
		AttachmentURL:        attachmentURL,
		ShowModal:            row.ShowModal,
		RequiresConfirmation: row.RequiresConfirmation,
		RequiresResponse:     row.RequiresResponse,
		SenderID:             row.SenderID,
		CreatedAt:            row.CreatedAt,
		SentAt:               row.SentAt,
		ReadAt:               row.ReadAt,
		ConfirmedAt:          row.ConfirmedAt,
		RespondedAt:          row.RespondedAt,
		ResponseKind:         row.ResponseKind,
		ResponseText:         row.ResponseText,
	}
}
