package models

import "time"

// AnnouncementKind defines how the recipient set of an announcement is built.
type AnnouncementKind string

const (
	AnnouncementKindMass       AnnouncementKind = "MASS"
	AnnouncementKindFiltered   AnnouncementKind = "FILTERED"
	AnnouncementKindIndividual AnnouncementKind = "INDIVIDUAL"
)

// Valid reports whether the kind is one of the known targeting kinds.
func (k AnnouncementKind) Valid() bool {
	switch k {
	case AnnouncementKindMass, AnnouncementKindFiltered, AnnouncementKindIndividual:
		return true
	}
	return false
}

// AnnouncementPriority drives client-side escalation.
type AnnouncementPriority string

const (
	AnnouncementPriorityNormal   AnnouncementPriority = "NORMAL"
	AnnouncementPriorityHigh     AnnouncementPriority = "HIGH"
	AnnouncementPriorityCritical AnnouncementPriority = "CRITICAL"
)

// Valid reports whether the priority is one of the three levels.
func (p AnnouncementPriority) Valid() bool {
	switch p {
	case AnnouncementPriorityNormal, AnnouncementPriorityHigh, AnnouncementPriorityCritical:
		return true
	}
	return false
}

// Announcement represents a persisted aviso row. Announcements are immutable
// after creation; only the denormalized delivered_count is written later.
type Announcement struct {
	ID                   string               `db:"id" json:"id"`
	Title                *string              `db:"title" json:"title,omitempty"`
	Body                 string               `db:"body" json:"body"`
	Kind                 AnnouncementKind     `db:"kind" json:"kind"`
	Priority             AnnouncementPriority `db:"priority" json:"priority"`
	RoleFilter           *UserRole            `db:"role_filter" json:"role_filter,omitempty"`
	TargetUserID         *string              `db:"target_user_id" json:"target_user_id,omitempty"`
	AttachmentRef        *string              `db:"attachment_ref" json:"attachment_ref,omitempty"`
	ShowModal            bool                 `db:"show_modal" json:"show_modal"`
	RequiresConfirmation bool                 `db:"requires_confirmation" json:"requires_confirmation"`
	RequiresResponse     bool                 `db:"requires_response" json:"requires_response"`
	SenderID             string               `db:"sender_id" json:"sender_id"`
	DeliveredCount       int                  `db:"delivered_count" json:"delivered_count"`
	CreatedAt            time.Time            `db:"created_at" json:"created_at"`
}
