// Package escalation implements the client-side decision rules for the
// announcement feed: which unread aviso must interrupt the user with a
// blocking modal, and when a new-item alert may fire.
package escalation

import (
	"sync"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/models"
)

// Qualifies reports whether an item warrants a blocking modal at all.
func Qualifies(item dto.FeedItem) bool {
	return item.Priority == models.AnnouncementPriorityCritical ||
		item.Priority == models.AnnouncementPriorityHigh ||
		item.ShowModal
}

// Decide scans the feed in its delivered order and returns the first unread
// item that qualifies for escalation. The feed order is a total order
// (created-at descending, id descending), which makes the choice
// deterministic even when several items qualify at the same timestamp.
func Decide(items []dto.FeedItem) *dto.FeedItem {
	for i := range items {
		if items[i].Unread() && Qualifies(items[i]) {
			return &items[i]
		}
	}
	return nil
}

// CanDismiss reports whether the modal for the item may be closed by backdrop
// click or escape. A confirmation-required aviso stays open until the confirm
// call succeeds.
func CanDismiss(item dto.FeedItem, confirmed bool) bool {
	if !item.RequiresConfirmation {
		return true
	}
	return confirmed
}

// Session holds per-client-session escalation state: the currently open
// modal, the last-seen unread count for alert dedup, and poll sequencing so
// that late responses from overlapping polls are discarded.
type Session struct {
	mu sync.Mutex

	openModalID    string
	lastSeenUnread int

	nextSeq     uint64
	appliedSeq  uint64
	everApplied bool
}

// NewSession starts a session with no modal open and a zero unread baseline,
// so unread items existing at session start alert exactly once.
func NewSession() *Session {
	return &Session{}
}

// BeginPoll allocates the sequence number for a poll about to start.
func (s *Session) BeginPoll() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// ApplyUnreadCount applies a poll's unread count. The result is discarded
// when a later-started poll has already been applied: last started wins, not
// first returned. Alert is true when the count strictly exceeds the
// last-seen value, so repeat polls never re-announce known unread items.
func (s *Session) ApplyUnreadCount(seq uint64, count int) (alert, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.everApplied && seq <= s.appliedSeq {
		return false, false
	}
	s.appliedSeq = seq
	s.everApplied = true

	alert = count > s.lastSeenUnread
	s.lastSeenUnread = count
	return alert, true
}

// EvaluateModal returns the item that must open as a blocking modal, or nil
// when nothing qualifies or a modal is already open.
func (s *Session) EvaluateModal(items []dto.FeedItem) *dto.FeedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openModalID != "" {
		return nil
	}
	target := Decide(items)
	if target == nil {
		return nil
	}
	s.openModalID = target.AvisoID
	return target
}

// ModalClosed records that the open modal was dismissed or confirmed.
func (s *Session) ModalClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openModalID = ""
}

// OpenModalID returns the id of the currently open modal, if any.
func (s *Session) OpenModalID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openModalID
}
