package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/ticket-notifier/internal/domain"
)

// ErrMalformed marks payloads that lack the structure needed to build an event.
var ErrMalformed = errors.New("malformed ticket event")

// UnknownTicketID is used when the ticket payload carries no id.
const UnknownTicketID = "unknown"

// ParseResult is the outcome of decoding one stream message.
type ParseResult struct {
	// Event is nil when the message was skipped.
	Event *domain.TicketEvent
	// Skipped reports a message whose schema is not a ticket event.
	Skipped bool
	Schema  string
}

// Parse decodes a raw stream message into a TicketEvent. Messages with a
// foreign schema are skipped without error. Absent optional fields decode to
// their zero value, never to an error.
func Parse(payload []byte) (ParseResult, error) {
	root, ok := object(payload)
	if !ok {
		return ParseResult{}, fmt.Errorf("%w: payload is not a JSON object", ErrMalformed)
	}

	header, _ := object(root["header"])
	schema := text(header["schema"])
	if !strings.EqualFold(schema, domain.TicketSchema) {
		return ParseResult{Skipped: true, Schema: schema}, nil
	}

	data, _ := object(root["data"])
	value, ok := object(data["value"])
	if !ok {
		return ParseResult{Schema: schema}, fmt.Errorf("%w: no data.value present", ErrMalformed)
	}

	rawChanges := resolveChanges(root["changes"], data["changes"])

	performedBy := text(header["performedBy"])
	if performedBy == "" {
		userInfo, _ := object(data["userInfo"])
		performedBy = text(userInfo["username"])
	}

	event := &domain.TicketEvent{
		Schema:      schema,
		EventType:   text(header["eventType"]),
		PerformedBy: performedBy,
		Ticket:      decodeTicket(value),
		Changes:     decodeChanges(rawChanges),
		RawChanges:  rawChanges,
	}
	return ParseResult{Event: event, Schema: schema}, nil
}

// resolveChanges prefers a non-empty top-level list and falls back to data.changes.
func resolveChanges(top, nested json.RawMessage) json.RawMessage {
	if items, ok := array(top); ok && len(items) > 0 {
		return top
	}
	if _, ok := array(nested); ok {
		return nested
	}
	return json.RawMessage("[]")
}

func decodeTicket(value map[string]json.RawMessage) domain.Ticket {
	id := text(value["id"])
	if id == "" {
		id = UnknownTicketID
	}
	return domain.Ticket{
		ID:            id,
		Name:          text(value["name"]),
		CreatedBy:     text(value["createdBy"]),
		Origin:        text(value["origin"]),
		AssignedTeams: idList(value["assignedTeams"]),
		AssignedUsers: idList(value["assignedUsers"]),
		LastUpdate:    timestamp(value["lastUpdate"]),
		Notes:         timestampedList(value["notes"]),
		Attachments:   timestampedList(value["attachments"]),
	}
}

func decodeChanges(raw json.RawMessage) []domain.Change {
	items, _ := array(raw)
	changes := make([]domain.Change, 0, len(items))
	for _, item := range items {
		fields, ok := object(item)
		if !ok {
			continue
		}
		changes = append(changes, domain.Change{
			Type:      text(fields["type"]),
			FieldName: text(fields["fieldName"]),
			OldValue:  text(fields["oldValue"]),
			NewValue:  text(fields["newValue"]),
			Action:    text(fields["action"]),
		})
	}
	return changes
}

// idList accepts ["a","b"] as well as [{"id":"a"},{"id":"b"}].
func idList(raw json.RawMessage) []string {
	items, _ := array(raw)
	var ids []string
	for _, item := range items {
		id := text(item)
		if fields, ok := object(item); ok {
			id = text(fields["id"])
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func timestampedList(raw json.RawMessage) []domain.Timestamped {
	items, _ := array(raw)
	var out []domain.Timestamped
	for _, item := range items {
		fields, ok := object(item)
		if !ok {
			continue
		}
		out = append(out, domain.Timestamped{CreationDate: timestamp(fields["creationDate"])})
	}
	return out
}

func timestamp(raw json.RawMessage) time.Time {
	value := strings.TrimSpace(text(raw))
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func array(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

// text reads a scalar as its textual form. Null, objects and arrays read as "".
func text(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(trimmed)
	}
}
