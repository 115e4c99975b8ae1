package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/coopvalles/asamblea-api/internal/models"
)

// AnnouncementRepository persists avisos and their delivery fan-out.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	const query = `SELECT id, title, body, kind, priority, role_filter, target_user_id, attachment_ref,
show_modal, requires_confirmation, requires_response, sender_id, delivered_count, created_at
FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// CreateWithDeliveries inserts the announcement and one pending delivery row
// per recipient inside a single transaction. A failure anywhere rolls the
// whole creation back so no announcement without deliveries can persist.
// The delivery insert ignores conflicts, making a retried fan-out idempotent.
func (r *AnnouncementRepository) CreateWithDeliveries(ctx context.Context, announcement *models.Announcement, recipientIDs []string) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = time.Now().UTC()
	}
	announcement.DeliveredCount = len(recipientIDs)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin announcement tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertAnnouncement = `INSERT INTO announcements (id, title, body, kind, priority, role_filter, target_user_id,
attachment_ref, show_modal, requires_confirmation, requires_response, sender_id, delivered_count, created_at)
VALUES (:id, :title, :body, :kind, :priority, :role_filter, :target_user_id,
:attachment_ref, :show_modal, :requires_confirmation, :requires_response, :sender_id, :delivered_count, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertAnnouncement, announcement); err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}

	if err := insertDeliveries(ctx, tx, announcement.ID, announcement.CreatedAt, recipientIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit announcement tx: %w", err)
	}
	return nil
}

// ResumeFanOut re-runs the delivery insert for an existing announcement.
// Rows already present are skipped, so a crash mid fan-out is recoverable by
// calling this with the same recipient set.
func (r *AnnouncementRepository) ResumeFanOut(ctx context.Context, announcementID string, sentAt time.Time, recipientIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fan-out tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertDeliveries(ctx, tx, announcementID, sentAt, recipientIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fan-out tx: %w", err)
	}
	return nil
}

func insertDeliveries(ctx context.Context, tx *sqlx.Tx, announcementID string, sentAt time.Time, recipientIDs []string) error {
	const insertDelivery = `INSERT INTO deliveries (announcement_id, recipient_id, sent_at)
SELECT $1, unnest($2::text[]), $3
ON CONFLICT (announcement_id, recipient_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertDelivery, announcementID, pq.Array(recipientIDs), sentAt); err != nil {
		return fmt.Errorf("insert deliveries: %w", err)
	}
	return nil
}

// SentAnnouncementRow is an announcement with acknowledgment tallies, as shown
// on the sender's side of the console.
type SentAnnouncementRow struct {
	models.Announcement
	ReadCount      int `db:"read_count"`
	ConfirmedCount int `db:"confirmed_count"`
	RespondedCount int `db:"responded_count"`
}

// ListSent returns announcements most recent first with delivery tallies.
func (r *AnnouncementRepository) ListSent(ctx context.Context, page, pageSize int) ([]SentAnnouncementRow, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT a.id, a.title, a.body, a.kind, a.priority, a.role_filter, a.target_user_id, a.attachment_ref,
a.show_modal, a.requires_confirmation, a.requires_response, a.sender_id, a.delivered_count, a.created_at,
COUNT(d.read_at) AS read_count,
COUNT(d.confirmed_at) AS confirmed_count,
COUNT(d.responded_at) AS responded_count
FROM announcements a
LEFT JOIN deliveries d ON d.announcement_id = a.id
GROUP BY a.id
ORDER BY a.created_at DESC, a.id DESC
LIMIT %d OFFSET %d`, pageSize, offset)

	var rows []SentAnnouncementRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, 0, fmt.Errorf("list sent announcements: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM announcements"); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return rows, total, nil
}

// DeliveryRollRow is one recipient's acknowledgment state for an announcement.
type DeliveryRollRow struct {
	models.Delivery
	FullName string          `db:"full_name"`
	Role     models.UserRole `db:"role"`
}

// DeliveryRoll returns every delivery row for one announcement with the
// recipient's name and role, ordered by name.
func (r *AnnouncementRepository) DeliveryRoll(ctx context.Context, announcementID string) ([]DeliveryRollRow, error) {
	const query = `SELECT d.announcement_id, d.recipient_id, d.sent_at, d.read_at, d.confirmed_at, d.responded_at,
d.response_kind, d.response_text, u.full_name, u.role
FROM deliveries d
JOIN users u ON u.id = d.recipient_id
WHERE d.announcement_id = $1
ORDER BY u.full_name, d.recipient_id`
	var rows []DeliveryRollRow
	if err := r.db.SelectContext(ctx, &rows, query, announcementID); err != nil {
		return nil, fmt.Errorf("delivery roll: %w", err)
	}
	return rows, nil
}
