package notify

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the booking core.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventCreditsLow       = "credits.low"
	EventCreditsPurchased = "credits.purchased"
	EventScheduleChanged  = "schedule.changed"
)

// AudienceKind discriminates the Audience variants.
type AudienceKind string

const (
	AudienceParent    AudienceKind = "parent"
	AudienceAllAdmins AudienceKind = "all_admins"
)

// Audience is a tagged target for an event: a single parent or the whole
// admin group. Construct it with ForParent or ForAllAdmins.
type Audience struct {
	Kind     AudienceKind `json:"kind"`
	ParentID int64        `json:"parent_id,omitempty"`
}

func ForParent(parentID int64) Audience {
	return Audience{Kind: AudienceParent, ParentID: parentID}
}

func ForAllAdmins() Audience {
	return Audience{Kind: AudienceAllAdmins}
}

// Event is a structured notification consumed fire-and-forget. Delivery
// failures never roll back the operation that produced the event.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Audience  Audience       `json:"audience"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent stamps an event with a fresh id and timestamp.
func NewEvent(eventType string, audience Audience, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Audience:  audience,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher delivers events to interested collaborators.
type Publisher interface {
	Publish(event Event)
}

// Discard is a Publisher that drops every event. Used in tests and when
// no notification backend is configured.
type Discard struct{}

func (Discard) Publish(Event) {}
