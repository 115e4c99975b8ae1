package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/models"
)

func item(id string, priority models.AnnouncementPriority, showModal, read bool) dto.FeedItem {
	it := dto.FeedItem{
		AvisoID:   id,
		Body:      "cuerpo",
		Kind:      models.AnnouncementKindMass,
		Priority:  priority,
		ShowModal: showModal,
	}
	if read {
		now := time.Now()
		it.ReadAt = &now
	}
	return it
}

func TestQualifies(t *testing.T) {
	assert.True(t, Qualifies(item("a", models.AnnouncementPriorityCritical, false, false)))
	assert.True(t, Qualifies(item("a", models.AnnouncementPriorityHigh, false, false)))
	assert.True(t, Qualifies(item("a", models.AnnouncementPriorityNormal, true, false)))
	assert.False(t, Qualifies(item("a", models.AnnouncementPriorityNormal, false, false)))
}

func TestDecidePicksFirstUnreadQualifierInListOrder(t *testing.T) {
	items := []dto.FeedItem{
		item("a", models.AnnouncementPriorityNormal, false, false),
		item("b", models.AnnouncementPriorityCritical, false, false),
		item("c", models.AnnouncementPriorityHigh, false, false),
	}

	got := Decide(items)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.AvisoID)
}

func TestDecideSkipsReadItems(t *testing.T) {
	items := []dto.FeedItem{
		item("a", models.AnnouncementPriorityCritical, false, true),
		item("b", models.AnnouncementPriorityHigh, false, false),
	}

	got := Decide(items)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.AvisoID)

	assert.Nil(t, Decide([]dto.FeedItem{item("a", models.AnnouncementPriorityNormal, false, false)}))
	assert.Nil(t, Decide(nil))
}

func TestCanDismiss(t *testing.T) {
	plain := item("a", models.AnnouncementPriorityHigh, true, false)
	assert.True(t, CanDismiss(plain, false))

	confirmable := plain
	confirmable.RequiresConfirmation = true
	assert.False(t, CanDismiss(confirmable, false))
	assert.True(t, CanDismiss(confirmable, true))
}

func TestSessionAlertsOnceOnStartupBacklog(t *testing.T) {
	s := NewSession()

	alert, applied := s.ApplyUnreadCount(s.BeginPoll(), 3)
	assert.True(t, applied)
	assert.True(t, alert)

	// Same count on the next poll: known items, no re-announcement.
	alert, applied = s.ApplyUnreadCount(s.BeginPoll(), 3)
	assert.True(t, applied)
	assert.False(t, alert)
}

func TestSessionAlertsOnIncreaseOnly(t *testing.T) {
	s := NewSession()

	s.ApplyUnreadCount(s.BeginPoll(), 2)

	alert, _ := s.ApplyUnreadCount(s.BeginPoll(), 1)
	assert.False(t, alert)

	alert, _ = s.ApplyUnreadCount(s.BeginPoll(), 4)
	assert.True(t, alert)
}

func TestSessionDiscardsStalePoll(t *testing.T) {
	s := NewSession()

	first := s.BeginPoll()
	second := s.BeginPoll()

	alert, applied := s.ApplyUnreadCount(second, 5)
	assert.True(t, applied)
	assert.True(t, alert)

	// The slower first poll returns afterwards with an older count.
	alert, applied = s.ApplyUnreadCount(first, 2)
	assert.False(t, applied)
	assert.False(t, alert)
}

func TestSessionSingleModalAtATime(t *testing.T) {
	s := NewSession()
	items := []dto.FeedItem{
		item("a", models.AnnouncementPriorityCritical, false, false),
		item("b", models.AnnouncementPriorityHigh, false, false),
	}

	got := s.EvaluateModal(items)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.AvisoID)
	assert.Equal(t, "a", s.OpenModalID())

	// While a modal is open nothing else may open, even on a fresh poll.
	assert.Nil(t, s.EvaluateModal(items))

	s.ModalClosed()
	assert.Empty(t, s.OpenModalID())

	got = s.EvaluateModal(items)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.AvisoID)
}
