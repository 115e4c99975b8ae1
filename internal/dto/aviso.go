package dto

import (
	"time"

	"github.com/coopvalles/asamblea-api/internal/models"
)

// CreateAvisoRequest defines the payload for sending an announcement.
type CreateAvisoRequest struct {
	Kind                 models.AnnouncementKind     `json:"kind" validate:"required"`
	Priority             models.AnnouncementPriority `json:"priority" validate:"required"`
	Title                *string                     `json:"title,omitempty"`
	Body                 string                      `json:"body" validate:"required"`
	ShowModal            bool                        `json:"showModal"`
	RequiresConfirmation bool                        `json:"requiresConfirmation"`
	RequiresResponse     bool                        `json:"requiresResponse"`
	AttachmentRef        *string                     `json:"attachmentRef,omitempty"`
	TargetUserID         *string                     `json:"targetUserId,omitempty"`
	RoleFilter           *models.UserRole            `json:"roleFilter,omitempty"`
}

// CreateAvisoResponse reports the fan-out size of a successful send.
type CreateAvisoResponse struct {
	Success        bool   `json:"success"`
	AvisoID        string `json:"avisoId"`
	DeliveredCount int    `json:"deliveredCount"`
}

// UploadImageResponse returns the pre-uploaded attachment reference.
type UploadImageResponse struct {
	Success   bool   `json:"success"`
	Ref       string `json:"ref"`
	ImagenURL string `json:"imagenUrl"`
}

// FeedItem is one entry of a recipient's announcement feed: the announcement
// projection plus that recipient's delivery state.
type FeedItem struct {
	AvisoID              string                      `json:"avisoId"`
	Title                *string                     `json:"title,omitempty"`
	Body                 string                      `json:"body"`
	Kind                 models.AnnouncementKind     `json:"kind"`
	Priority             models.AnnouncementPriority `json:"priority"`
	AttachmentURL        *string                     `json:"attachmentUrl,omitempty"`
	ShowModal            bool                        `json:"showModal"`
	RequiresConfirmation bool                        `json:"requiresConfirmation"`
	RequiresResponse     bool                        `json:"requiresResponse"`
	SenderID             string                      `json:"senderId"`
	CreatedAt            time.Time                   `json:"createdAt"`
	SentAt               time.Time                   `json:"sentAt"`
	ReadAt               *time.Time                  `json:"readAt,omitempty"`
	ConfirmedAt          *time.Time                  `json:"confirmedAt,omitempty"`
	RespondedAt          *time.Time                  `json:"respondedAt,omitempty"`
	ResponseKind         *models.ResponseKind        `json:"responseKind,omitempty"`
	ResponseText         *string                     `json:"responseText,omitempty"`
}

// Unread reports whether the item has not been read yet.
func (i FeedItem) Unread() bool { return i.ReadAt == nil }

// UnreadCountResponse is the unread-count poll payload.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// RespondRequest carries a recipient's answer to a response-required aviso.
type RespondRequest struct {
	Tipo  models.ResponseKind `json:"tipo" validate:"required"`
	Texto *string             `json:"texto,omitempty"`
}

// AckResponse acknowledges an idempotent delivery mutation.
type AckResponse struct {
	Success bool `json:"success"`
	// Updated is false when the call was a repeat-safe no-op.
	Updated bool `json:"updated"`
}

// SentAviso is the sender-side view of an announcement with tallies.
type SentAviso struct {
	AvisoID              string                      `json:"avisoId"`
	Title                *string                     `json:"title,omitempty"`
	Body                 string                      `json:"body"`
	Kind                 models.AnnouncementKind     `json:"kind"`
	Priority             models.AnnouncementPriority `json:"priority"`
	RequiresConfirmation bool                        `json:"requiresConfirmation"`
	RequiresResponse     bool                        `json:"requiresResponse"`
	DeliveredCount       int                         `json:"deliveredCount"`
	ReadCount            int                         `json:"readCount"`
	ConfirmedCount       int                         `json:"confirmedCount"`
	RespondedCount       int                         `json:"respondedCount"`
	CreatedAt            time.Time                   `json:"createdAt"`
}

// DeliveryRollEntry is one recipient's state on the sender-side roll.
type DeliveryRollEntry struct {
	RecipientID  string               `json:"recipientId"`
	FullName     string               `json:"fullName"`
	Role         models.UserRole      `json:"role"`
	SentAt       time.Time            `json:"sentAt"`
	ReadAt       *time.Time           `json:"readAt,omitempty"`
	ConfirmedAt  *time.Time           `json:"confirmedAt,omitempty"`
	RespondedAt  *time.Time           `json:"respondedAt,omitempty"`
	ResponseKind *models.ResponseKind `json:"responseKind,omitempty"`
	ResponseText *string              `json:"responseText,omitempty"`
}
