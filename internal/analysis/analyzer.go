package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/llm"
	"github.com/opslens/opslens/internal/ticket"
)

const systemPrompt = "You are an IT service management analyst. Answer with plain markdown."

// Analyzer runs pattern detection and gap analysis over a ticket set, using
// the completion provider when available and the deterministic detector
// otherwise. A completion failure is caught exactly once and recovered via
// the deterministic path; AI unavailability never prevents a report.
type Analyzer struct {
	provider       llm.Provider
	minOccurrences int
}

func NewAnalyzer(provider llm.Provider, minOccurrences int) *Analyzer {
	if minOccurrences < 1 {
		minOccurrences = 2
	}
	return &Analyzer{provider: provider, minOccurrences: minOccurrences}
}

// Patterns produces recurring-issue patterns for the ticket set.
func (a *Analyzer) Patterns(ctx context.Context, tickets []ticket.Ticket) Result {
	logger := common.Logger()
	if len(tickets) == 0 {
		logger.Warn("analysis: no tickets to analyze")
		return Result{}
	}
	if a.provider == nil {
		return Result{Patterns: BasicPatterns(tickets, a.minOccurrences)}
	}
	response, err := a.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: patternPrompt(tickets, a.minOccurrences)},
	})
	if err != nil {
		logger.Warn("analysis: completion failed, falling back to basic detection", "error", err)
		return Result{Patterns: BasicPatterns(tickets, a.minOccurrences)}
	}
	return Result{Patterns: ParsePatterns(response, tickets), UsedAI: true}
}

// Gaps produces knowledge-base gaps for the ticket set against the existing
// article inventory.
func (a *Analyzer) Gaps(ctx context.Context, tickets []ticket.Ticket, articles []ticket.Article) Result {
	logger := common.Logger()
	if len(tickets) == 0 {
		logger.Warn("analysis: no tickets for gap analysis")
		return Result{}
	}
	if a.provider == nil {
		return Result{Gaps: BasicGaps(tickets, articles, a.minOccurrences)}
	}
	response, err := a.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: gapPrompt(tickets, articles)},
	})
	if err != nil {
		logger.Warn("analysis: completion failed, falling back to basic gap detection", "error", err)
		return Result{Gaps: BasicGaps(tickets, articles, a.minOccurrences)}
	}
	return Result{Gaps: ParseGaps(response, tickets), UsedAI: true}
}

// Summarize produces a human-readable summary of the ticket set. Without a
// provider, or when the completion fails, a deterministic count summary
// serves instead.
func (a *Analyzer) Summarize(ctx context.Context, tickets []ticket.Ticket) (string, bool) {
	logger := common.Logger()
	if len(tickets) == 0 {
		return "No tickets matched the requested filters.", false
	}
	if a.provider != nil {
		response, err := a.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summaryPrompt(tickets)},
		})
		if err == nil && strings.TrimSpace(response) != "" {
			return response, true
		}
		if err != nil {
			logger.Warn("analysis: summary completion failed, using basic summary", "error", err)
		}
	}
	return basicSummary(tickets), false
}

// renderTickets produces the one-line-per-ticket block shared by every
// prompt.
func renderTickets(tickets []ticket.Ticket) string {
	lines := make([]string, 0, len(tickets))
	for _, t := range tickets {
		lines = append(lines, t.PromptLine())
	}
	return strings.Join(lines, "\n")
}

func patternPrompt(tickets []ticket.Ticket, minOccurrences int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identify recurring issue patterns in these %d tickets. ", len(tickets))
	fmt.Fprintf(&b, "Only report patterns with at least %d occurrences.\n\n", minOccurrences)
	b.WriteString("For each pattern use this structure:\n")
	b.WriteString("## Pattern N: <short label>\nOccurrences: <count>\nTickets: <ticket numbers>\nSuggested Fix: <resolution steps>\n\n")
	b.WriteString("Tickets:\n")
	b.WriteString(renderTickets(tickets))
	return b.String()
}

func gapPrompt(tickets []ticket.Ticket, articles []ticket.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compare these %d tickets against the existing knowledge base ", len(tickets))
	b.WriteString("and report knowledge gaps. Classify each gap as Missing, Stale, or Incomplete.\n\n")
	b.WriteString("For each gap use this structure:\n")
	b.WriteString("## Missing: <topic>\nTickets: <ticket numbers>\nSuggested Content: <article outline>\n\n")
	b.WriteString("Existing articles:\n")
	if len(articles) == 0 {
		b.WriteString("(none)\n")
	}
	for _, a := range articles {
		fmt.Fprintf(&b, "%s | %s | %s | updated %s\n", a.Number, a.Title, a.Category, a.LastUpdated)
	}
	b.WriteString("\nTickets:\n")
	b.WriteString(renderTickets(tickets))
	return b.String()
}

func summaryPrompt(tickets []ticket.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short executive summary of these %d tickets: ", len(tickets))
	b.WriteString("overall themes, notable open items, and anything unusual.\n\nTickets:\n")
	b.WriteString(renderTickets(tickets))
	return b.String()
}

func basicSummary(tickets []ticket.Ticket) string {
	open := 0
	byType := make(map[ticket.Type]int)
	for _, t := range tickets {
		if t.IsOpen() {
			open++
		}
		byType[t.Type]++
	}
	var parts []string
	for _, kind := range []ticket.Type{ticket.TypeIncident, ticket.TypeChangeRequest, ticket.TypeProblem, ticket.TypeService, ticket.TypeRequestedItem} {
		if count := byType[kind]; count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, kind))
		}
	}
	return fmt.Sprintf("%d tickets (%s), %d currently open.", len(tickets), strings.Join(parts, ", "), open)
}
