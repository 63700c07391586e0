package service

import (
	"strings"
	"time"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

// HeuristicWindow is the maximum distance between a ticket's lastUpdate and
// its newest note or attachment for a change-less event to count as relevant.
const HeuristicWindow = 5 * time.Second

var notifiableFields = map[string]domain.Category{
	"status":   domain.CategoryFieldStatus,
	"impact":   domain.CategoryFieldImpact,
	"severity": domain.CategoryFieldSeverity,
}

// Classify decides whether an event is worth a notification and which
// category it belongs to. The first matching change wins. When the event
// carries no changes the ticket's note and attachment timestamps are used.
func Classify(changes []domain.Change, ticket domain.Ticket) domain.Classification {
	for i := range changes {
		if category, ok := categorize(changes[i]); ok {
			return domain.Classification{Relevant: true, Category: category, Matched: &changes[i]}
		}
	}

	if len(changes) == 0 {
		if withinWindow(newest(ticket.Notes), ticket.LastUpdate) {
			return domain.Classification{Relevant: true, Category: domain.CategoryNote, FromHeuristic: true}
		}
		if withinWindow(newest(ticket.Attachments), ticket.LastUpdate) {
			return domain.Classification{Relevant: true, Category: domain.CategoryAttachmentAdded, FromHeuristic: true}
		}
	}

	return domain.Classification{Category: domain.CategoryGeneric}
}

func categorize(change domain.Change) (domain.Category, bool) {
	switch domain.ChangeType(strings.ToLower(strings.TrimSpace(change.Type))) {
	case domain.ChangeTypeCreate, domain.ChangeTypeCreated:
		return domain.CategoryCreated, true
	case domain.ChangeTypeFieldChange:
		category, ok := notifiableFields[strings.ToLower(strings.TrimSpace(change.FieldName))]
		return category, ok
	case domain.ChangeTypeNote:
		return domain.CategoryNote, true
	case domain.ChangeTypeAttachment:
		switch strings.ToUpper(strings.TrimSpace(change.Action)) {
		case domain.AttachmentActionAdd:
			return domain.CategoryAttachmentAdded, true
		case domain.AttachmentActionRemove:
			return domain.CategoryAttachmentRemoved, true
		default:
			return domain.CategoryAttachmentUpdated, true
		}
	}
	return "", false
}

func newest(entries []domain.Timestamped) time.Time {
	var latest time.Time
	for _, e := range entries {
		if e.CreationDate.After(latest) {
			latest = e.CreationDate
		}
	}
	return latest
}

func withinWindow(at, lastUpdate time.Time) bool {
	if at.IsZero() || lastUpdate.IsZero() {
		return false
	}
	d := at.Sub(lastUpdate)
	if d < 0 {
		d = -d
	}
	return d <= HeuristicWindow
}
