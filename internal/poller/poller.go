// Package poller drives the fixed-interval synchronization loop a client
// runs against the aviso feed. There is no push transport; the interval is
// the only suspension point, and a failed tick is simply retried on the next
// one.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/escalation"
)

// API is the server surface the poller consumes.
type API interface {
	MisAvisos(ctx context.Context) ([]dto.FeedItem, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, avisoID string) error
	Confirm(ctx context.Context, avisoID string) error
}

// Events carries the callbacks fired by poll results. Nil callbacks are skipped.
type Events struct {
	// OnFeed receives every successfully applied feed snapshot.
	OnFeed func(items []dto.FeedItem)
	// OnModal fires when an unread item must open as a blocking modal.
	OnModal func(item dto.FeedItem)
	// OnAlert fires at most once per strictly-increasing unread count.
	OnAlert func(count int)
}

// Poller polls the feed and unread count together on a fixed interval and
// feeds the escalation session.
type Poller struct {
	api      API
	session  *escalation.Session
	events   Events
	interval time.Duration
	logger   *zap.Logger
}

// New builds a poller. The default interval is 5 seconds.
func New(api API, events Events, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		api:      api,
		session:  escalation.NewSession(),
		events:   events,
		interval: interval,
		logger:   logger,
	}
}

// Session exposes the escalation state, e.g. for closing modals.
func (p *Poller) Session() *escalation.Session {
	return p.session
}

// Run polls until the context is cancelled. An immediate first tick avoids
// waiting a full interval before the initial sync.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	seq := p.session.BeginPoll()

	items, err := p.api.MisAvisos(ctx)
	if err != nil {
		p.logger.Warn("feed poll failed", zap.Error(err))
		return
	}
	count, err := p.api.UnreadCount(ctx)
	if err != nil {
		p.logger.Warn("unread poll failed", zap.Error(err))
		return
	}

	alert, applied := p.session.ApplyUnreadCount(seq, count)
	if !applied {
		// A later poll already landed; this response is stale.
		return
	}

	if p.events.OnFeed != nil {
		p.events.OnFeed(items)
	}
	if alert && p.events.OnAlert != nil {
		p.events.OnAlert(count)
	}
	if target := p.session.EvaluateModal(items); target != nil {
		p.openModal(ctx, *target)
	}
}

// openModal reports the modal to the caller and marks the item read, exactly
// as a user-opened item would be.
func (p *Poller) openModal(ctx context.Context, item dto.FeedItem) {
	if p.events.OnModal != nil {
		p.events.OnModal(item)
	}
	if err := p.api.MarkRead(ctx, item.AvisoID); err != nil {
		p.logger.Warn("mark read failed", zap.String("aviso_id", item.AvisoID), zap.Error(err))
	}
}

// MarkAllRead issues one idempotent mark-read call per currently unread item,
// as the notification tray does when opened. Safe to run concurrently with
// the poll loop.
func (p *Poller) MarkAllRead(ctx context.Context, items []dto.FeedItem) {
	for _, item := range items {
		if !item.Unread() {
			continue
		}
		if err := p.api.MarkRead(ctx, item.AvisoID); err != nil {
			p.logger.Warn("mark all read: item failed", zap.String("aviso_id", item.AvisoID), zap.Error(err))
		}
	}
}

// ConfirmModal confirms the given aviso and closes the modal on success.
func (p *Poller) ConfirmModal(ctx context.Context, item dto.FeedItem) error {
	if err := p.api.Confirm(ctx, item.AvisoID); err != nil {
		return err
	}
	p.session.ModalClosed()
	return nil
}

// DismissModal closes the modal when the item allows it.
func (p *Poller) DismissModal(item dto.FeedItem) bool {
	if !escalation.CanDismiss(item, false) {
		return false
	}
	p.session.ModalClosed()
	return true
}
