package models

import "time"

// ResponseKind identifies the quick-reply chosen by a recipient, or free text.
type ResponseKind string

const (
	ResponseKindConfirmAttendance ResponseKind = "CONFIRMO_ASISTENCIA"
	ResponseKindWillNotAttend     ResponseKind = "NO_ASISTIRE"
	ResponseKindNeedInfo          ResponseKind = "NECESITO_INFORMACION"
	ResponseKindFreeText          ResponseKind = "TEXTO_LIBRE"
)

// Valid reports whether the kind is one of the fixed quick replies or free text.
func (k ResponseKind) Valid() bool {
	switch k {
	case ResponseKindConfirmAttendance, ResponseKindWillNotAttend, ResponseKindNeedInfo, ResponseKindFreeText:
		return true
	}
	return false
}

// Delivery is the per-recipient tracking row for one announcement. The pair
// (announcement_id, recipient_id) is unique; read/confirm/respond timestamps
// are monotonic and never cleared once set.
type Delivery struct {
	AnnouncementID string        `db:"announcement_id" json:"announcement_id"`
	RecipientID    string        `db:"recipient_id" json:"recipient_id"`
	SentAt         time.Time     `db:"sent_at" json:"sent_at"`
	ReadAt         *time.Time    `db:"read_at" json:"read_at,omitempty"`
	ConfirmedAt    *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	RespondedAt    *time.Time    `db:"responded_at" json:"responded_at,omitempty"`
	ResponseKind   *ResponseKind `db:"response_kind" json:"response_kind,omitempty"`
	ResponseText   *string       `db:"response_text" json:"response_text,omitempty"`
}

// Read reports whether the recipient has opened the announcement.
func (d *Delivery) Read() bool { return d.ReadAt != nil }

// Confirmed reports whether the recipient acknowledged a confirmation-required aviso.
func (d *Delivery) Confirmed() bool { return d.ConfirmedAt != nil }

// Responded reports whether the recipient answered a response-required aviso.
func (d *Delivery) Responded() bool { return d.RespondedAt != nil }
