package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opslens/opslens/internal/ticket"
)

// BasicPatterns groups tickets deterministically, without AI. Two independent
// groupings run in order, category first, then description similarity; their
// results are concatenated without cross-deduplication, so a ticket can appear
// in one pattern of each kind. The heuristic accepts false negatives
// (reworded duplicates will not group) in exchange for determinism.
func BasicPatterns(tickets []ticket.Ticket, minOccurrences int) []Pattern {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	patterns := categoryPatterns(tickets, minOccurrences)
	patterns = append(patterns, similarityPatterns(tickets, minOccurrences)...)
	// Ties keep relative discovery order, which places category groups
	// ahead of description groups.
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].OccurrenceCount > patterns[j].OccurrenceCount
	})
	return patterns
}

func categoryPatterns(tickets []ticket.Ticket, minOccurrences int) []Pattern {
	type key struct{ category, subcategory string }
	groups := make(map[key][]ticket.Ticket)
	var order []key
	for _, t := range tickets {
		k := key{t.Category, t.Subcategory}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}
	var patterns []Pattern
	for _, k := range order {
		members := groups[k]
		if len(members) < minOccurrences {
			continue
		}
		p := Pattern{
			Label:           fmt.Sprintf("Category: %s > %s", k.category, k.subcategory),
			OccurrenceCount: len(members),
			EstimatedImpact: estimateImpact(len(members)),
		}
		for _, m := range members {
			p.TicketNumbers = append(p.TicketNumbers, m.Number)
		}
		p.FirstSeen, p.LastSeen = dateRange(members)
		patterns = append(patterns, p)
	}
	return patterns
}

// descriptionSignature reduces a short description to its first five words
// longer than three characters, lower-cased. Tickets sharing a signature are
// treated as rewordings of the same issue.
func descriptionSignature(shortDescription string) string {
	words := strings.Fields(strings.ToLower(shortDescription))
	kept := make([]string, 0, 5)
	for _, word := range words {
		if len(word) <= 3 {
			continue
		}
		kept = append(kept, word)
		if len(kept) == 5 {
			break
		}
	}
	return strings.Join(kept, " ")
}

func similarityPatterns(tickets []ticket.Ticket, minOccurrences int) []Pattern {
	groups := make(map[string][]ticket.Ticket)
	var order []string
	for _, t := range tickets {
		sig := descriptionSignature(t.ShortDescription)
		if sig == "" {
			continue
		}
		if _, seen := groups[sig]; !seen {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], t)
	}
	var patterns []Pattern
	for _, sig := range order {
		members := groups[sig]
		if len(members) < minOccurrences {
			continue
		}
		p := Pattern{
			Label:           "Similar: " + members[0].ShortDescription,
			OccurrenceCount: len(members),
			EstimatedImpact: estimateImpact(len(members)),
		}
		for _, m := range members {
			p.TicketNumbers = append(p.TicketNumbers, m.Number)
		}
		p.FirstSeen, p.LastSeen = dateRange(members)
		patterns = append(patterns, p)
	}
	return patterns
}

// BasicGaps detects Missing knowledge gaps: categories whose ticket volume
// meets the threshold but which no existing article covers, matched on
// category or title substring. Stale and Incomplete gaps have no
// deterministic source; only AI judgment emits them.
func BasicGaps(tickets []ticket.Ticket, articles []ticket.Article, minOccurrences int) []Gap {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	groups := make(map[string][]ticket.Ticket)
	var order []string
	for _, t := range tickets {
		topic := strings.TrimSpace(t.Category)
		if topic == "" {
			continue
		}
		if _, seen := groups[topic]; !seen {
			order = append(order, topic)
		}
		groups[topic] = append(groups[topic], t)
	}
	var gaps []Gap
	for _, topic := range order {
		members := groups[topic]
		if len(members) < minOccurrences {
			continue
		}
		if hasArticleFor(articles, topic) {
			continue
		}
		gap := Gap{
			Type:           GapMissing,
			Topic:          topic,
			SuggestedTitle: fmt.Sprintf("How to resolve common %s issues", topic),
		}
		var lines []string
		for _, m := range members {
			gap.RelatedTickets = append(gap.RelatedTickets, m.Number)
			if m.CloseNotes != "" {
				lines = append(lines, fmt.Sprintf("- %s: %s", m.ShortDescription, m.CloseNotes))
			} else {
				lines = append(lines, "- "+m.ShortDescription)
			}
		}
		gap.SuggestedContent = fmt.Sprintf("Recent %s tickets without a knowledge article:\n%s",
			topic, strings.Join(lines, "\n"))
		gaps = append(gaps, gap)
	}
	return gaps
}

func hasArticleFor(articles []ticket.Article, topic string) bool {
	needle := strings.ToLower(topic)
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Category), needle) ||
			strings.Contains(strings.ToLower(a.Title), needle) {
			return true
		}
	}
	return false
}

func estimateImpact(count int) string {
	switch {
	case count >= 10:
		return "High"
	case count >= 5:
		return "Medium"
	default:
		return "Low"
	}
}

// dateRange returns the earliest and latest opened dates among members, in
// YYYY-MM-DD form. Unparseable dates are treated as earliest.
func dateRange(members []ticket.Ticket) (first, last string) {
	sorted := append([]ticket.Ticket(nil), members...)
	ticket.SortByOpened(sorted)
	if len(sorted) == 0 {
		return "", ""
	}
	format := func(t ticket.Ticket) string {
		if parsed, ok := ticket.ParseDate(t.OpenedAt); ok {
			return parsed.Format("2006-01-02")
		}
		return t.OpenedAt
	}
	return format(sorted[0]), format(sorted[len(sorted)-1])
}
