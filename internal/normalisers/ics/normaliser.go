package ics

import (
	"context"
	"strings"
	"time"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles iCalendar (.ics) documents such as meeting
// invitations exported alongside mailboxes.
type Normaliser struct{}

// New creates a new iCalendar normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/calendar",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// event holds the properties worth indexing from one VEVENT block.
type event struct {
	summary     string
	description string
	location    string
	organiser   string
	attendees   []string
	start       string
	end         string
}

// Normalise renders each VEVENT as labelled text lines, in the same
// shape the email normaliser uses for headers.
func (n *Normaliser) Normalise(_ context.Context, upload *domain.Upload) (*domain.ExtractedText, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	events := parseEvents(unfoldLines(string(upload.Content)))

	var content strings.Builder
	for i, ev := range events {
		if i > 0 {
			content.WriteString("\n")
		}
		writeField(&content, "Event", ev.summary)
		writeField(&content, "Description", ev.description)
		writeField(&content, "Location", ev.location)
		writeField(&content, "Organiser", ev.organiser)
		writeField(&content, "Attendees", strings.Join(ev.attendees, ", "))
		writeField(&content, "Start", formatDateTime(ev.start))
		writeField(&content, "End", formatDateTime(ev.end))
	}

	return &domain.ExtractedText{
		Text: strings.TrimSpace(content.String()),
	}, nil
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// unfoldLines joins RFC 5545 folded lines (continuations start with a
// space or tab) into single logical lines.
func unfoldLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	physical := strings.Split(raw, "\n")

	var logical []string
	for _, line := range physical {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(logical) > 0 {
			logical[len(logical)-1] += line[1:]
			continue
		}
		logical = append(logical, line)
	}
	return logical
}

// parseEvents walks the logical lines and collects VEVENT blocks.
// Properties outside an event and unknown properties are ignored.
func parseEvents(lines []string) []event {
	var events []event
	var current *event

	for _, line := range lines {
		name, value, ok := splitProperty(line)
		if !ok {
			continue
		}

		switch {
		case name == "BEGIN" && value == "VEVENT":
			current = &event{}
		case name == "END" && value == "VEVENT":
			if current != nil {
				events = append(events, *current)
				current = nil
			}
		case current == nil:
			// Calendar-level property.
		case name == "SUMMARY":
			current.summary = decodeValue(value)
		case name == "DESCRIPTION":
			current.description = decodeValue(value)
		case name == "LOCATION":
			current.location = decodeValue(value)
		case name == "ORGANIZER":
			if email := extractEmail(value); email != "" {
				current.organiser = email
			}
		case name == "ATTENDEE":
			if email := extractEmail(value); email != "" {
				current.attendees = append(current.attendees, email)
			}
		case name == "DTSTART":
			current.start = value
		case name == "DTEND":
			current.end = value
		}
	}
	return events
}

// splitProperty separates "NAME;PARAM=X:value" into name and value.
func splitProperty(line string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	name = line[:idx]
	value = line[idx+1:]
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	return strings.ToUpper(strings.TrimSpace(name)), value, true
}

// decodeValue reverses RFC 5545 text escaping.
func decodeValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != '\\' || i+1 >= len(value) {
			b.WriteByte(value[i])
			continue
		}
		i++
		switch value[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(value[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(value[i])
		}
	}
	return b.String()
}

// formatDateTime renders iCalendar timestamps readably. Values that do
// not parse are returned unchanged so nothing is silently dropped.
func formatDateTime(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("January 2, 2006 at 3:04 PM")
		}
	}
	if t, err := time.Parse("20060102", value); err == nil {
		return t.Format("January 2, 2006")
	}
	return value
}

// extractEmail pulls the address out of a mailto: URI.
func extractEmail(value string) string {
	email := value
	if idx := strings.Index(strings.ToLower(email), "mailto:"); idx >= 0 {
		email = email[idx+len("mailto:"):]
	}
	if !strings.Contains(email, "@") {
		return ""
	}
	return strings.TrimSpace(email)
}
