package analysis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/ticket"
)

// The parser converts one opaque block of model output into structured
// records. Nothing here assumes the model followed the requested format; a
// malformed response degrades to a single synthesized record, never to an
// error or an empty result.

const minSectionLength = 20

var (
	// headingRe marks a section boundary: a markdown heading of 1-3 hashes
	// optionally followed by a number, or a bolded/plain
	// Pattern/Missing/Stale/Incomplete label with optional number and colon.
	headingRe = regexp.MustCompile(`(?mi)^[ \t]*(?:#{1,3}[ \t]*(?:\d+[.)]?)?[ \t]*|(?:\*\*[ \t]*)?(?:pattern|missing|stale|incomplete)(?:[ \t]+gap)?[ \t]*#?\d*[ \t]*:)`)

	// ticketNumberRe recognizes common ticket-number shapes: a 2-6 letter
	// prefix, optionally dash-separated, followed by 5-10 digits.
	ticketNumberRe = regexp.MustCompile(`\b[A-Za-z]{2,6}-?\d{5,10}\b`)

	occurrencesRe = regexp.MustCompile(`(?i)occurrences?[ \t]*[:=][ \t]*(\d+)`)

	// contentLabelRe marks an explicit suggested-fix/content sub-section.
	contentLabelRe = regexp.MustCompile(`(?mi)^[ \t]*(?:\*\*[ \t]*)?(?:suggested[ \t]+fix|resolution|recommendation|suggested[ \t]+content|outline|steps)[ \t]*(?:\*\*)?[ \t]*:?[ \t]*`)

	numberingRe = regexp.MustCompile(`^\d+[.):]?[ \t]*`)

	// labelPrefixRe strips the boundary keyword from a section's first line
	// so "Pattern 1: Disk failures" titles as "Disk failures".
	labelPrefixRe = regexp.MustCompile(`(?i)^(?:pattern|missing|stale|incomplete)(?:[ \t]+gap)?[ \t]*#?\d*[ \t]*:[ \t]*`)
)

// ParsePatterns extracts recurring-issue patterns from a model completion.
func ParsePatterns(response string, tickets []ticket.Ticket) []Pattern {
	dates := openedDates(tickets)
	var patterns []Pattern
	for _, section := range splitSections(response) {
		label := sectionLabel(section)
		if label == "" {
			continue
		}
		numbers := extractTicketNumbers(section)
		p := Pattern{
			Label:               label,
			OccurrenceCount:     occurrenceCount(section, numbers),
			TicketNumbers:       numbers,
			SuggestedResolution: sectionContent(section, 3),
			EstimatedImpact:     estimateImpact(len(numbers)),
		}
		p.FirstSeen, p.LastSeen = seenRange(numbers, dates)
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 && strings.TrimSpace(response) != "" {
		common.Logger().Warn("analysis: completion had no recognizable structure, synthesizing one pattern")
		numbers := firstNumbers(tickets, 10)
		p := Pattern{
			Label:               "AI analysis (unstructured)",
			OccurrenceCount:     occurrenceFloor(len(numbers)),
			TicketNumbers:       numbers,
			SuggestedResolution: response,
		}
		p.FirstSeen, p.LastSeen = seenRange(numbers, dates)
		patterns = append(patterns, p)
	}
	// Authoritative ordering for both AI and basic paths; downstream
	// consumers never re-sort.
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].OccurrenceCount > patterns[j].OccurrenceCount
	})
	return patterns
}

// ParseGaps extracts knowledge-base gaps from a model completion.
func ParseGaps(response string, tickets []ticket.Ticket) []Gap {
	var gaps []Gap
	for _, section := range splitSections(response) {
		topic := sectionLabel(section)
		if topic == "" {
			continue
		}
		gaps = append(gaps, Gap{
			Type:             classifyGap(section),
			Topic:            topic,
			RelatedTickets:   extractTicketNumbers(section),
			SuggestedTitle:   topic,
			SuggestedContent: sectionContent(section, 0),
		})
	}
	if len(gaps) == 0 && strings.TrimSpace(response) != "" {
		common.Logger().Warn("analysis: completion had no recognizable structure, synthesizing one gap")
		gaps = append(gaps, Gap{
			Type:             GapMissing,
			Topic:            "AI analysis (unstructured)",
			RelatedTickets:   firstNumbers(tickets, 10),
			SuggestedTitle:   "AI analysis (unstructured)",
			SuggestedContent: response,
		})
	}
	return gaps
}

// splitSections segments the response at heading-like boundaries and drops
// fragments too short to carry a record.
func splitSections(response string) []string {
	boundaries := headingRe.FindAllStringIndex(response, -1)
	if len(boundaries) == 0 {
		return nil
	}
	var sections []string
	for i, bounds := range boundaries {
		end := len(response)
		if i+1 < len(boundaries) {
			end = boundaries[i+1][0]
		}
		section := response[bounds[0]:end]
		if len(strings.TrimSpace(section)) < minSectionLength {
			continue
		}
		sections = append(sections, section)
	}
	return sections
}

// sectionLabel takes the first non-empty line, stripped of markdown emphasis
// and leading numbering. Labels under 3 characters discard the section.
func sectionLabel(section string) string {
	for _, line := range strings.Split(section, "\n") {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" {
			continue
		}
		cleaned = strings.Trim(cleaned, "#*_ \t")
		cleaned = numberingRe.ReplaceAllString(cleaned, "")
		cleaned = labelPrefixRe.ReplaceAllString(cleaned, "")
		cleaned = strings.Trim(cleaned, "*_ \t")
		cleaned = strings.TrimSuffix(cleaned, ":")
		cleaned = strings.TrimSpace(cleaned)
		if len(cleaned) < 3 {
			return ""
		}
		return cleaned
	}
	return ""
}

func classifyGap(section string) GapType {
	lowered := strings.ToLower(section)
	switch {
	case strings.Contains(lowered, "stale"):
		return GapStale
	case strings.Contains(lowered, "incomplete"):
		return GapIncomplete
	default:
		return GapMissing
	}
}

// extractTicketNumbers pulls ticket identifiers, deduplicated in first-seen
// order.
func extractTicketNumbers(section string) []string {
	matches := ticketNumberRe.FindAllString(section, -1)
	seen := make(map[string]struct{}, len(matches))
	var numbers []string
	for _, match := range matches {
		upper := strings.ToUpper(match)
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		numbers = append(numbers, upper)
	}
	return numbers
}

// occurrenceCount prefers an explicit "Occurrences: N" statement, falling
// back to the number of distinct extracted identifiers, floored at 1.
func occurrenceCount(section string, numbers []string) int {
	if match := occurrencesRe.FindStringSubmatch(section); match != nil {
		if count, err := strconv.Atoi(match[1]); err == nil && count > 0 {
			return count
		}
	}
	return occurrenceFloor(len(numbers))
}

func occurrenceFloor(count int) int {
	if count < 1 {
		return 1
	}
	return count
}

// sectionContent extracts the suggested fix/content block. An explicit
// labeled sub-section wins, captured up to the next heading-like boundary.
// Otherwise the section's last tailLines lines serve (all remaining lines
// after the label when tailLines is zero).
func sectionContent(section string, tailLines int) string {
	if loc := contentLabelRe.FindStringIndex(section); loc != nil {
		rest := section[loc[1]:]
		if next := headingRe.FindStringIndex(rest); next != nil && next[0] > 0 {
			rest = rest[:next[0]]
		} else if inner := contentLabelRe.FindStringIndex(rest); inner != nil && inner[0] > 0 {
			rest = rest[:inner[0]]
		}
		if trimmed := strings.TrimSpace(rest); trimmed != "" {
			return trimmed
		}
	}
	lines := nonEmptyLines(section)
	if len(lines) <= 1 {
		return ""
	}
	lines = lines[1:] // drop the label line
	if tailLines > 0 && len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, "\n")
}

func nonEmptyLines(section string) []string {
	var lines []string
	for _, line := range strings.Split(section, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func openedDates(tickets []ticket.Ticket) map[string]string {
	dates := make(map[string]string, len(tickets))
	for _, t := range tickets {
		if parsed, ok := ticket.ParseDate(t.OpenedAt); ok {
			dates[strings.ToUpper(t.Number)] = parsed.Format("2006-01-02")
		}
	}
	return dates
}

// seenRange cross-references extracted identifiers against the input set's
// parsed dates. Identifiers that match no input ticket contribute nothing.
func seenRange(numbers []string, dates map[string]string) (first, last string) {
	for _, number := range numbers {
		date, ok := dates[number]
		if !ok {
			continue
		}
		if first == "" || date < first {
			first = date
		}
		if last == "" || date > last {
			last = date
		}
	}
	return first, last
}

func firstNumbers(tickets []ticket.Ticket, limit int) []string {
	var numbers []string
	for _, t := range tickets {
		if t.Number == "" {
			continue
		}
		numbers = append(numbers, strings.ToUpper(t.Number))
		if len(numbers) == limit {
			break
		}
	}
	return numbers
}
