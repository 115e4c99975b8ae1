package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/coopvalles/asamblea-api/internal/models"
)

// DeliveryRepository owns the per-recipient acknowledgment state machine.
// Every mutation is a single conditional UPDATE so that concurrent calls for
// the same (announcement, recipient) pair converge without lost updates.
type DeliveryRepository struct {
	db *sqlx.DB
}

// NewDeliveryRepository creates the repository.
func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Get returns the delivery row for one announcement and recipient.
func (r *DeliveryRepository) Get(ctx context.Context, announcementID, recipientID string) (*models.Delivery, error) {
	const query = `SELECT announcement_id, recipient_id, sent_at, read_at, confirmed_at, responded_at, response_kind, response_text
FROM deliveries WHERE announcement_id = $1 AND recipient_id = $2`
	var delivery models.Delivery
	if err := r.db.GetContext(ctx, &delivery, query, announcementID, recipientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return &delivery, nil
}

// Exists reports whether a delivery row is present.
func (r *DeliveryRepository) Exists(ctx context.Context, announcementID, recipientID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM deliveries WHERE announcement_id = $1 AND recipient_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, announcementID, recipientID); err != nil {
		return false, fmt.Errorf("delivery exists: %w", err)
	}
	return exists, nil
}

// MarkRead sets read_at only when it is still null. Returns true when this
// call was the writer; false means the row was already read (or absent —
// callers distinguish via Exists).
func (r *DeliveryRepository) MarkRead(ctx context.Context, announcementID, recipientID string, now time.Time) (bool, error) {
	const query = `UPDATE deliveries SET read_at = $3
WHERE announcement_id = $1 AND recipient_id = $2 AND read_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, announcementID, recipientID, now)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark read rows affected: %w", err)
	}
	return affected > 0, nil
}

// Confirm sets confirmed_at, marking the row read in the same statement when
// it was still unread. Only the first call writes.
func (r *DeliveryRepository) Confirm(ctx context.Context, announcementID, recipientID string, now time.Time) (bool, error) {
	const query = `UPDATE deliveries SET confirmed_at = $3, read_at = COALESCE(read_at, $3)
WHERE announcement_id = $1 AND recipient_id = $2 AND confirmed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, announcementID, recipientID, now)
	if err != nil {
		return false, fmt.Errorf("confirm delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm rows affected: %w", err)
	}
	return affected > 0, nil
}

// Respond records the recipient's answer. Only the first call writes; a later
// attempt leaves the stored response untouched and returns false.
func (r *DeliveryRepository) Respond(ctx context.Context, announcementID, recipientID string, kind models.ResponseKind, text *string, now time.Time) (bool, error) {
	const query = `UPDATE deliveries SET responded_at = $3, response_kind = $4, response_text = $5, read_at = COALESCE(read_at, $3)
WHERE announcement_id = $1 AND recipient_id = $2 AND responded_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, announcementID, recipientID, now, kind, text)
	if err != nil {
		return false, fmt.Errorf("respond delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("respond rows affected: %w", err)
	}
	return affected > 0, nil
}

// FeedRow joins a delivery with its announcement for the recipient feed.
type FeedRow struct {
	models.Delivery
	Title                *string                     `db:"title"`
	Body                 string                      `db:"body"`
	Kind                 models.AnnouncementKind     `db:"kind"`
	Priority             models.AnnouncementPriority `db:"priority"`
	AttachmentRef        *string                     `db:"attachment_ref"`
	ShowModal            bool                        `db:"show_modal"`
	RequiresConfirmation bool                        `db:"requires_confirmation"`
	RequiresResponse     bool                        `db:"requires_response"`
	SenderID             string                      `db:"sender_id"`
	CreatedAt            time.Time                   `db:"created_at"`
}

// ListFeed returns the recipient's deliveries joined with their announcements,
// most recent announcement first, announcement id descending as tie-break.
// This ordering is the total order the client's escalation scan relies on.
func (r *DeliveryRepository) ListFeed(ctx context.Context, recipientID string) ([]FeedRow, error) {
	const query = `SELECT d.announcement_id, d.recipient_id, d.sent_at, d.read_at, d.confirmed_at, d.responded_at,
d.response_kind, d.response_text,
a.title, a.body, a.kind, a.priority, a.attachment_ref, a.show_modal, a.requires_confirmation, a.requires_response,
a.sender_id, a.created_at
FROM deliveries d
JOIN announcements a ON a.id = d.announcement_id
WHERE d.recipient_id = $1
ORDER BY a.created_at DESC, a.id DESC`
	var rows []FeedRow
	if err := r.db.SelectContext(ctx, &rows, query, recipientID); err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return rows, nil
}

// UnreadCount counts the recipient's deliveries with read_at still null.
func (r *DeliveryRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM deliveries WHERE recipient_id = $1 AND read_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}
