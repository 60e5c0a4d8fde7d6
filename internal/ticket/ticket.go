package ticket

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies a ticket by the kind of work it represents.
type Type string

const (
	TypeIncident      Type = "Incident"
	TypeChangeRequest Type = "ChangeRequest"
	TypeProblem       Type = "Problem"
	TypeService       Type = "ServiceRequest"
	TypeRequestedItem Type = "RequestedItem"
)

// Ticket is the canonical record every source normalizes into. Values are
// constructed once during normalization and never mutated afterwards.
type Ticket struct {
	Number           string `json:"number"`
	Type             Type   `json:"type"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description,omitempty"`
	State            string `json:"state"`
	Priority         string `json:"priority,omitempty"`
	Category         string `json:"category,omitempty"`
	Subcategory      string `json:"subcategory,omitempty"`
	OpenedAt         string `json:"opened_at,omitempty"`
	ClosedAt         string `json:"closed_at,omitempty"`
	ResolvedAt       string `json:"resolved_at,omitempty"`
	AssignedTo       string `json:"assigned_to,omitempty"`
	CallerName       string `json:"caller_name,omitempty"`
	CloseNotes       string `json:"close_notes,omitempty"`
	WorkNotes        string `json:"work_notes,omitempty"`
	CIName           string `json:"ci_name,omitempty"`
	Source           string `json:"source"`
}

// Article is a knowledge-base record used by gap analysis. Sources without a
// native KB concept supply none.
type Article struct {
	Number        string `json:"number"`
	Title         string `json:"title"`
	Content       string `json:"content,omitempty"`
	Category      string `json:"category,omitempty"`
	LastUpdated   string `json:"last_updated,omitempty"`
	WorkflowState string `json:"workflow_state,omitempty"`
}

// closedWords is the fixed vocabulary for the open-state heuristic. State
// fields are free text across sources, so this stays a substring match and is
// never tightened into an enum.
var closedWords = []string{"closed", "resolved", "cancelled", "completed", "done"}

// IsOpen reports whether the ticket's state reads as still open.
func (t Ticket) IsOpen() bool {
	state := strings.ToLower(t.State)
	for _, word := range closedWords {
		if strings.Contains(state, word) {
			return false
		}
	}
	return true
}

// PromptLine renders the one-line form fed to the completion prompt.
func (t Ticket) PromptLine() string {
	return fmt.Sprintf("[%s] %s | %s | %s | %s | %s | %s | %s",
		t.Type, t.Number, t.OpenedAt, t.ShortDescription, t.State,
		t.Priority, t.AssignedTo, t.CloseNotes)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// ParseDate parses a source date string on a best-effort basis. The boolean is
// false when no layout matches; callers treat such tickets as having an
// unknown date rather than failing.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// OpenedTime returns the parsed opened date, or the zero time when the raw
// string does not parse. Zero sorts first, which is the canonical placement
// for unknown dates.
func (t Ticket) OpenedTime() time.Time {
	parsed, _ := ParseDate(t.OpenedAt)
	return parsed
}
