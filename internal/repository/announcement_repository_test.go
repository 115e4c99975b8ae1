package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopvalles/asamblea-api/internal/models"
)

func newAnnouncementMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAnnouncementRepositoryCreateWithDeliveries(t *testing.T) {
	db, mock, cleanup := newAnnouncementMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO announcements").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO deliveries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	announcement := &models.Announcement{
		Body:     "Asamblea general el sabado",
		Kind:     models.AnnouncementKindMass,
		Priority: models.AnnouncementPriorityNormal,
		SenderID: "admin-1",
	}
	err := repo.CreateWithDeliveries(context.Background(), announcement, []string{"u-1", "u-2", "u-3"})
	require.NoError(t, err)
	assert.NotEmpty(t, announcement.ID)
	assert.False(t, announcement.CreatedAt.IsZero())
	assert.Equal(t, 3, announcement.DeliveredCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreateRollsBackOnDeliveryFailure(t *testing.T) {
	db, mock, cleanup := newAnnouncementMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO announcements").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO deliveries").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	announcement := &models.Announcement{
		Body:     "Asamblea general",
		Kind:     models.AnnouncementKindMass,
		Priority: models.AnnouncementPriorityNormal,
		SenderID: "admin-1",
	}
	err := repo.CreateWithDeliveries(context.Background(), announcement, []string{"u-1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryResumeFanOutIsIdempotent(t *testing.T) {
	db, mock, cleanup := newAnnouncementMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)
	sentAt := time.Now()

	// ON CONFLICT DO NOTHING means re-running over existing rows inserts none.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO deliveries").
		WithArgs("av-1", sqlmock.AnyArg(), sentAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.ResumeFanOut(context.Background(), "av-1", sentAt, []string{"u-1", "u-2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListSent(t *testing.T) {
	db, mock, cleanup := newAnnouncementMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "title", "body", "kind", "priority", "role_filter", "target_user_id", "attachment_ref",
		"show_modal", "requires_confirmation", "requires_response", "sender_id", "delivered_count", "created_at",
		"read_count", "confirmed_count", "responded_count",
	}).AddRow("av-1", nil, "Cuerpo", "MASS", "HIGH", nil, nil, nil, true, true, false, "admin-1", 40, now, 25, 10, 0)
	mock.ExpectQuery("FROM announcements a\\s+LEFT JOIN deliveries d").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sent, total, err := repo.ListSent(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 40, sent[0].DeliveredCount)
	assert.Equal(t, 25, sent[0].ReadCount)
	assert.Equal(t, 10, sent[0].ConfirmedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryDeliveryRoll(t *testing.T) {
	db, mock, cleanup := newAnnouncementMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"announcement_id", "recipient_id", "sent_at", "read_at", "confirmed_at", "responded_at",
		"response_kind", "response_text", "full_name", "role",
	}).
		AddRow("av-1", "u-1", now, now, now, nil, nil, nil, "Ana Beltran", "OPERATOR").
		AddRow("av-1", "u-2", now, nil, nil, nil, nil, nil, "Bruno Casas", "OPERATOR")
	mock.ExpectQuery("FROM deliveries d\\s+JOIN users u ON u.id = d.recipient_id").
		WithArgs("av-1").
		WillReturnRows(rows)

	roll, err := repo.DeliveryRoll(context.Background(), "av-1")
	require.NoError(t, err)
	require.Len(t, roll, 2)
	assert.Equal(t, "Ana Beltran", roll[0].FullName)
	assert.True(t, roll[0].Confirmed())
	assert.False(t, roll[1].Read())
	assert.NoError(t, mock.ExpectationsWereMet())
}
