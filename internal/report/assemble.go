// Package report assembles analysis output into the final artifacts: the
// merged role view, the HTML report, and knowledge-article drafts.
package report

import (
	"sort"

	"github.com/opslens/opslens/internal/analysis"
	"github.com/opslens/opslens/internal/ticket"
)

// RoleBucket names the role under which a ticket was found.
type RoleBucket string

const (
	BucketRequester RoleBucket = "Requester"
	BucketAssignee  RoleBucket = "Assignee"
	BucketMentioned RoleBucket = "Mentioned"
)

// bucketOrder fixes the merge order. Dedup is first-occurrence-wins on the
// ticket number alone, so a ticket found by both the requester and assignee
// queries files under Requester.
var bucketOrder = []RoleBucket{BucketRequester, BucketAssignee, BucketMentioned}

// RoleSets holds the per-role query results before merging.
type RoleSets struct {
	Requester []ticket.Ticket
	Assignee  []ticket.Ticket
	Mentioned []ticket.Ticket
}

// BucketedTicket is a ticket tagged with the role bucket it filed under.
type BucketedTicket struct {
	ticket.Ticket
	Bucket RoleBucket `json:"bucket"`
}

// MergeRoles deduplicates the role query results into one sequence, sorted
// ascending by opened date (unknown dates first).
func MergeRoles(sets RoleSets) []BucketedTicket {
	byBucket := map[RoleBucket][]ticket.Ticket{
		BucketRequester: sets.Requester,
		BucketAssignee:  sets.Assignee,
		BucketMentioned: sets.Mentioned,
	}
	seen := make(map[string]struct{})
	var merged []BucketedTicket
	for _, bucket := range bucketOrder {
		for _, t := range byBucket[bucket] {
			if _, dup := seen[t.Number]; dup {
				continue
			}
			seen[t.Number] = struct{}{}
			merged = append(merged, BucketedTicket{Ticket: t, Bucket: bucket})
		}
	}
	sortBucketed(merged)
	return merged
}

// RolesForUser runs the per-role queries for one user over the ticket set and
// merges them. The role selector decides which buckets are queried: requester
// and assignee query one bucket each, both queries two, all additionally
// queries description and work-note mentions.
func RolesForUser(tickets []ticket.Ticket, user string, role ticket.Role) []BucketedTicket {
	var sets RoleSets
	switch role {
	case ticket.RoleRequester:
		sets.Requester = ticket.FilterByUser(tickets, user, ticket.RoleRequester)
	case ticket.RoleAssignee:
		sets.Assignee = ticket.FilterByUser(tickets, user, ticket.RoleAssignee)
	case ticket.RoleAll:
		sets.Requester = ticket.FilterByUser(tickets, user, ticket.RoleRequester)
		sets.Assignee = ticket.FilterByUser(tickets, user, ticket.RoleAssignee)
		// The all-role query is a superset; merge dedup leaves only the
		// mention-only tickets in this bucket.
		sets.Mentioned = ticket.FilterByUser(tickets, user, ticket.RoleAll)
	default:
		sets.Requester = ticket.FilterByUser(tickets, user, ticket.RoleRequester)
		sets.Assignee = ticket.FilterByUser(tickets, user, ticket.RoleAssignee)
	}
	return MergeRoles(sets)
}

// Flatten strips the bucket tags, preserving order.
func Flatten(bucketed []BucketedTicket) []ticket.Ticket {
	tickets := make([]ticket.Ticket, 0, len(bucketed))
	for _, b := range bucketed {
		tickets = append(tickets, b.Ticket)
	}
	return tickets
}

func sortBucketed(tickets []BucketedTicket) {
	// Stable, so equal or unknown dates keep merge order.
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].OpenedTime().Before(tickets[j].OpenedTime())
	})
}

// TimelineEntry is one row of the chronological ticket view.
type TimelineEntry struct {
	Date        string `json:"date"`
	Number      string `json:"number"`
	Description string `json:"description"`
	State       string `json:"state"`
}

// Timeline builds one entry per ticket, ascending by opened date. Dates
// reformat to YYYY-MM-DD when parseable; raw strings pass through otherwise.
func Timeline(tickets []ticket.Ticket) []TimelineEntry {
	sorted := append([]ticket.Ticket(nil), tickets...)
	ticket.SortByOpened(sorted)
	entries := make([]TimelineEntry, 0, len(sorted))
	for _, t := range sorted {
		date := t.OpenedAt
		if parsed, ok := ticket.ParseDate(t.OpenedAt); ok {
			date = parsed.Format("2006-01-02")
		}
		entries = append(entries, TimelineEntry{
			Date:        date,
			Number:      t.Number,
			Description: t.ShortDescription,
			State:       t.State,
		})
	}
	return entries
}

// Summary carries the derived counts shown at the top of a report.
type Summary struct {
	Total  int                 `json:"total"`
	Open   int                 `json:"open"`
	ByType map[ticket.Type]int `json:"by_type"`
}

func Summarize(tickets []ticket.Ticket) Summary {
	summary := Summary{ByType: make(map[ticket.Type]int)}
	for _, t := range tickets {
		summary.Total++
		if t.IsOpen() {
			summary.Open++
		}
		summary.ByType[t.Type]++
	}
	return summary
}

// Report is the full assembled document handed to the renderer.
type Report struct {
	Title    string
	Summary  Summary
	AIText   string
	UsedAI   bool
	Patterns []analysis.Pattern
	Gaps     []analysis.Gap
	Timeline []TimelineEntry
	// Roles is the bucketed per-user view, present only when the run was
	// narrowed to one user.
	Roles []BucketedTicket
}

// Assemble builds a report from one pipeline run. The pattern and gap order
// is authoritative from analysis; nothing here re-sorts it.
func Assemble(title string, tickets []ticket.Ticket, patterns analysis.Result, gaps analysis.Result, summary string, usedAI bool) Report {
	return Report{
		Title:    title,
		Summary:  Summarize(tickets),
		AIText:   summary,
		UsedAI:   usedAI,
		Patterns: patterns.Patterns,
		Gaps:     gaps.Gaps,
		Timeline: Timeline(tickets),
	}
}
