// Package analysis groups tickets into recurring-issue patterns and
// knowledge-base gaps, either deterministically or by parsing free-text
// completions from a language model.
package analysis

// Pattern is one recurring-issue group. Ticket numbers keep discovery order.
type Pattern struct {
	Label               string   `json:"label"`
	OccurrenceCount     int      `json:"occurrence_count"`
	TicketNumbers       []string `json:"ticket_numbers"`
	FirstSeen           string   `json:"first_seen,omitempty"`
	LastSeen            string   `json:"last_seen,omitempty"`
	SuggestedResolution string   `json:"suggested_resolution,omitempty"`
	EstimatedImpact     string   `json:"estimated_impact,omitempty"`
}

// GapType classifies a knowledge-base gap.
type GapType string

const (
	GapMissing    GapType = "Missing"
	GapStale      GapType = "Stale"
	GapIncomplete GapType = "Incomplete"
)

// Gap is one knowledge-base gap: ticket volume with no adequate article.
type Gap struct {
	Type             GapType  `json:"type"`
	Topic            string   `json:"topic"`
	RelatedTickets   []string `json:"related_tickets,omitempty"`
	SuggestedTitle   string   `json:"suggested_title,omitempty"`
	SuggestedContent string   `json:"suggested_content,omitempty"`
}

// Result is the structured outcome of one analysis run.
type Result struct {
	Patterns []Pattern `json:"patterns,omitempty"`
	Gaps     []Gap     `json:"gaps,omitempty"`
	// UsedAI reports whether the structured records came from a model
	// completion or from the deterministic fallback.
	UsedAI bool `json:"used_ai"`
	// Summary is the free-text executive summary, when AI produced one.
	Summary string `json:"summary,omitempty"`
}
