package analysis

import (
	"strings"
	"testing"

	"github.com/opslens/opslens/internal/ticket"
)

func hardwareTickets() []ticket.Ticket {
	return []ticket.Ticket{
		{Number: "INC0010001", Type: ticket.TypeIncident, Category: "Hardware", Subcategory: "Disk", ShortDescription: "Primary web server disk capacity exhausted", OpenedAt: "2024-01-10"},
		{Number: "INC0010002", Type: ticket.TypeIncident, Category: "Hardware", Subcategory: "Disk", ShortDescription: "Database volume running completely out of space", OpenedAt: "2024-02-05"},
		{Number: "INC0010003", Type: ticket.TypeIncident, Category: "Hardware", Subcategory: "Disk", ShortDescription: "Backup target reporting insufficient free storage", OpenedAt: "2024-03-01"},
	}
}

func TestCategoryGroupingScenario(t *testing.T) {
	patterns := BasicPatterns(hardwareTickets(), 2)
	if len(patterns) != 1 {
		t.Fatalf("expected exactly one pattern, got %d: %+v", len(patterns), patterns)
	}
	p := patterns[0]
	if p.Label != "Category: Hardware > Disk" {
		t.Fatalf("wrong label: %q", p.Label)
	}
	if p.OccurrenceCount != 3 {
		t.Fatalf("wrong count: %d", p.OccurrenceCount)
	}
	if p.FirstSeen != "2024-01-10" || p.LastSeen != "2024-03-01" {
		t.Fatalf("wrong range: %s .. %s", p.FirstSeen, p.LastSeen)
	}
	if len(p.TicketNumbers) != 3 || p.TicketNumbers[0] != "INC0010001" {
		t.Fatalf("ticket numbers should keep discovery order: %v", p.TicketNumbers)
	}
}

func TestThresholdFloor(t *testing.T) {
	for _, min := range []int{2, 3, 4} {
		for _, p := range BasicPatterns(hardwareTickets(), min) {
			if p.OccurrenceCount < min {
				t.Fatalf("pattern below threshold %d: %+v", min, p)
			}
		}
	}
	if got := BasicPatterns(hardwareTickets(), 4); len(got) != 0 {
		t.Fatalf("three tickets cannot satisfy a threshold of 4, got %+v", got)
	}
}

func TestDescriptionSignature(t *testing.T) {
	sig := descriptionSignature("The VPN tunnel DROPS for all remote users today")
	if sig != "tunnel drops remote users today" {
		t.Fatalf("unexpected signature: %q", sig)
	}
	if descriptionSignature("a an it is") != "" {
		t.Fatalf("short words only should give an empty signature")
	}
}

func TestSimilarityGrouping(t *testing.T) {
	tickets := []ticket.Ticket{
		{Number: "INC1", ShortDescription: "Printer offline in building four lobby"},
		{Number: "INC2", ShortDescription: "printer OFFLINE in Building Four Lobby again today"},
		{Number: "INC3", ShortDescription: "Mail server rejects external senders"},
	}
	patterns := BasicPatterns(tickets, 2)
	if len(patterns) != 1 {
		t.Fatalf("expected one similarity pattern, got %+v", patterns)
	}
	if !strings.HasPrefix(patterns[0].Label, "Similar: Printer offline in building four lobby") {
		t.Fatalf("label should carry the first ticket's raw description: %q", patterns[0].Label)
	}
}

func TestNoCrossDeduplication(t *testing.T) {
	// The same tickets may appear in a category pattern and a description
	// pattern at once; the two groupings are independent.
	tickets := []ticket.Ticket{
		{Number: "INC1", Category: "Network", Subcategory: "VPN", ShortDescription: "VPN tunnel drops for remote users"},
		{Number: "INC2", Category: "Network", Subcategory: "VPN", ShortDescription: "VPN tunnel drops for remote users"},
	}
	patterns := BasicPatterns(tickets, 2)
	if len(patterns) != 2 {
		t.Fatalf("expected category and similarity patterns, got %d", len(patterns))
	}
	// Equal counts: category groups come first because they are computed
	// first and the sort is stable.
	if !strings.HasPrefix(patterns[0].Label, "Category:") {
		t.Fatalf("category pattern should lead on ties, got %q", patterns[0].Label)
	}
}

func TestOrderingDescending(t *testing.T) {
	tickets := append(hardwareTickets(),
		ticket.Ticket{Number: "INC0010004", Category: "Software", Subcategory: "Email", ShortDescription: "a b"},
		ticket.Ticket{Number: "INC0010005", Category: "Software", Subcategory: "Email", ShortDescription: "c d"},
	)
	patterns := BasicPatterns(tickets, 2)
	if len(patterns) != 2 {
		t.Fatalf("expected two patterns, got %d", len(patterns))
	}
	if patterns[0].OccurrenceCount < patterns[1].OccurrenceCount {
		t.Fatalf("patterns should sort descending by count: %+v", patterns)
	}
}

func TestBasicGaps(t *testing.T) {
	tickets := []ticket.Ticket{
		{Number: "INC1", Category: "Network", ShortDescription: "VPN drops", CloseNotes: "Rotated certificate"},
		{Number: "INC2", Category: "Network", ShortDescription: "VPN drops again"},
		{Number: "INC3", Category: "Hardware", ShortDescription: "Disk full"},
		{Number: "INC4", Category: "Hardware", ShortDescription: "Disk full again"},
	}
	articles := []ticket.Article{{Number: "KB1", Title: "Troubleshooting network VPN issues", Category: "Network"}}
	gaps := BasicGaps(tickets, articles, 2)
	if len(gaps) != 1 {
		t.Fatalf("expected one gap, got %+v", gaps)
	}
	gap := gaps[0]
	if gap.Type != GapMissing {
		t.Fatalf("the deterministic path only emits Missing gaps, got %s", gap.Type)
	}
	if gap.Topic != "Hardware" {
		t.Fatalf("covered category should be suppressed, got topic %q", gap.Topic)
	}
	if len(gap.RelatedTickets) != 2 {
		t.Fatalf("expected both hardware tickets, got %v", gap.RelatedTickets)
	}
	if !strings.Contains(gap.SuggestedContent, "Disk full") {
		t.Fatalf("content should quote ticket descriptions: %q", gap.SuggestedContent)
	}
}

func TestDateRangeUnparseableFirst(t *testing.T) {
	members := []ticket.Ticket{
		{Number: "A", OpenedAt: "2024-02-01"},
		{Number: "B", OpenedAt: "garbled"},
	}
	first, last := dateRange(members)
	if first != "garbled" {
		t.Fatalf("unparseable dates sort earliest and pass through raw, got %q", first)
	}
	if last != "2024-02-01" {
		t.Fatalf("wrong last seen: %q", last)
	}
}
