package domain

import (
	"encoding/json"
	"time"
)

// TicketSchema is the header discriminator of ticket change events.
const TicketSchema = "TTK"

// NotifiableOrigin is the only ticket origin that produces notifications.
const NotifiableOrigin = "Onecare"

// TicketEvent is one ticket change notification read from the event stream.
type TicketEvent struct {
	Schema      string   `json:"schema"`
	EventType   string   `json:"eventType"`
	PerformedBy string   `json:"performedBy,omitempty"`
	Ticket      Ticket   `json:"ticket"`
	Changes     []Change `json:"changes"`
	// RawChanges is the JSON array the changes were decoded from.
	RawChanges json.RawMessage `json:"-"`
}

// Ticket is the ticket snapshot carried by an event.
type Ticket struct {
	ID            string        `json:"id"`
	Name          string        `json:"name,omitempty"`
	CreatedBy     string        `json:"createdBy,omitempty"`
	Origin        string        `json:"origin"`
	AssignedTeams []string      `json:"assignedTeams,omitempty"`
	AssignedUsers []string      `json:"assignedUsers,omitempty"`
	LastUpdate    time.Time     `json:"lastUpdate"`
	Notes         []Timestamped `json:"notes,omitempty"`
	Attachments   []Timestamped `json:"attachments,omitempty"`
}

// Timestamped is a note or attachment entry; only its creation date matters here.
type Timestamped struct {
	CreationDate time.Time `json:"creationDate"`
}

// ChangeType enumerates the change kinds the classifier understands.
type ChangeType string

const (
	ChangeTypeFieldChange ChangeType = "fieldchange"
	ChangeTypeCreate      ChangeType = "create"
	ChangeTypeCreated     ChangeType = "created"
	ChangeTypeNote        ChangeType = "note"
	ChangeTypeAttachment  ChangeType = "attachment"
)

// Attachment actions.
const (
	AttachmentActionAdd    = "ADD"
	AttachmentActionRemove = "REMOVE"
)

// Change is one atomic modification recorded in an event.
type Change struct {
	Type      string `json:"type"`
	FieldName string `json:"fieldName,omitempty"`
	OldValue  string `json:"oldValue,omitempty"`
	NewValue  string `json:"newValue,omitempty"`
	Action    string `json:"action,omitempty"`
}

// Category is the notification-worthy kind of change an event represents.
type Category string

const (
	CategoryCreated           Category = "created"
	CategoryFieldStatus       Category = "field:status"
	CategoryFieldImpact       Category = "field:impact"
	CategoryFieldSeverity     Category = "field:severity"
	CategoryNote              Category = "note"
	CategoryAttachmentAdded   Category = "attachment_added"
	CategoryAttachmentRemoved Category = "attachment_removed"
	CategoryAttachmentUpdated Category = "attachment_updated"
	CategoryGeneric           Category = "generic"
)

// Classification is the outcome of inspecting an event's changes.
type Classification struct {
	Relevant bool     `json:"relevant"`
	Category Category `json:"category"`
	// Matched is the change that decided the category, nil when none did.
	Matched *Change `json:"matched,omitempty"`
	// FromHeuristic reports that relevance came from note/attachment timestamps.
	FromHeuristic bool `json:"fromHeuristic"`
}

// Content holds the localization keys sent to clients.
type Content struct {
	TitleKey string `json:"titleKey"`
	BodyKey  string `json:"bodyKey"`
	Summary  string `json:"summary,omitempty"`
}
