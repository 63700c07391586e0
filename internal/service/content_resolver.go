package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

// Title keys, chosen from the event type.
const (
	TitleTicketCreated   = "ticket_created_title"
	TitleTicketResolved  = "ticket_resolved_title"
	TitleTicketClosed    = "ticket_closed_title"
	TitleTicketCancelled = "ticket_cancelled_title"
	TitleTicketReopened  = "ticket_reopened_title"
	TitleTicketUpdated   = "ticket_updated_title"
)

// Body keys, chosen from the change category.
const (
	BodyTicketCreated     = "body_ticket_created"
	BodyStatusChanged     = "body_status_changed"
	BodyImpactChanged     = "body_impact_changed"
	BodySeverityChanged   = "body_severity_changed"
	BodyNoteAdded         = "body_note_added"
	BodyAttachmentAdded   = "body_attachment_added"
	BodyAttachmentRemoved = "body_attachment_removed"
	BodyTicketUpdated     = "ticket_updated"
)

// titleRules is checked in order; the first substring found wins.
var titleRules = []struct {
	needle string
	key    string
}{
	{"create", TitleTicketCreated},
	{"resolve", TitleTicketResolved},
	{"close", TitleTicketClosed},
	{"cancel", TitleTicketCancelled},
	{"reopen", TitleTicketReopened},
}

var bodyKeys = map[domain.Category]string{
	domain.CategoryCreated:           BodyTicketCreated,
	domain.CategoryFieldStatus:       BodyStatusChanged,
	domain.CategoryFieldImpact:       BodyImpactChanged,
	domain.CategoryFieldSeverity:     BodySeverityChanged,
	domain.CategoryNote:              BodyNoteAdded,
	domain.CategoryAttachmentAdded:   BodyAttachmentAdded,
	domain.CategoryAttachmentRemoved: BodyAttachmentRemoved,
	domain.CategoryAttachmentUpdated: BodyAttachmentAdded,
	domain.CategoryGeneric:           BodyTicketUpdated,
}

// ResolveContent maps an event type and change category to localization keys.
func ResolveContent(eventType string, category domain.Category) domain.Content {
	return domain.Content{
		TitleKey: TitleKey(eventType),
		BodyKey:  BodyKey(category),
	}
}

// TitleKey picks the title key for an event type.
func TitleKey(eventType string) string {
	normalized := strings.ToLower(strings.TrimSpace(eventType))
	for _, rule := range titleRules {
		if strings.Contains(normalized, rule.needle) {
			return rule.key
		}
	}
	return TitleTicketUpdated
}

// BodyKey picks the body key for a category.
func BodyKey(category domain.Category) string {
	if key, ok := bodyKeys[category]; ok {
		return key
	}
	return BodyTicketUpdated
}

// Summarize renders a short English description of the classified change,
// for clients without the localization bundle.
func Summarize(c domain.Classification) string {
	switch c.Category {
	case domain.CategoryCreated:
		return "New ticket created"
	case domain.CategoryFieldStatus:
		return fieldSummary("Status", c.Matched)
	case domain.CategoryFieldImpact:
		return fieldSummary("Impact", c.Matched)
	case domain.CategoryFieldSeverity:
		return fieldSummary("Severity", c.Matched)
	case domain.CategoryNote:
		return "Note added"
	case domain.CategoryAttachmentAdded:
		return "Attachment added"
	case domain.CategoryAttachmentRemoved:
		return "Attachment removed"
	case domain.CategoryAttachmentUpdated:
		return "Attachment updated"
	}
	return "Ticket updated"
}

func fieldSummary(label string, change *domain.Change) string {
	if change == nil {
		return label + " changed"
	}
	switch {
	case change.OldValue != "" && change.NewValue != "":
		return fmt.Sprintf("%s: %s -> %s", label, change.OldValue, change.NewValue)
	case change.NewValue != "":
		return fmt.Sprintf("%s: %s", label, change.NewValue)
	}
	return label + " changed"
}
