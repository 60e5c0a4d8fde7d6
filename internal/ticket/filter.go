package ticket

import (
	"sort"
	"strings"
)

// Role selects which ticket fields a user filter matches against.
type Role string

const (
	RoleRequester Role = "requester"
	RoleAssignee  Role = "assignee"
	RoleBoth      Role = "both"
	// RoleAll additionally matches mentions inside description and work notes.
	RoleAll Role = "all"
)

// FilterByCI keeps tickets whose CI name, short description, or description
// contains the given name, case-insensitively. An empty name keeps everything.
func FilterByCI(tickets []Ticket, ciName string) []Ticket {
	needle := strings.ToLower(strings.TrimSpace(ciName))
	if needle == "" {
		return tickets
	}
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if strings.Contains(strings.ToLower(t.CIName), needle) ||
			strings.Contains(strings.ToLower(t.ShortDescription), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByUser keeps tickets matching the user under the given role selector.
func FilterByUser(tickets []Ticket, user string, role Role) []Ticket {
	needle := strings.ToLower(strings.TrimSpace(user))
	if needle == "" {
		return tickets
	}
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		caller := strings.Contains(strings.ToLower(t.CallerName), needle)
		assignee := strings.Contains(strings.ToLower(t.AssignedTo), needle)
		mentioned := strings.Contains(strings.ToLower(t.Description), needle) ||
			strings.Contains(strings.ToLower(t.WorkNotes), needle)
		keep := false
		switch role {
		case RoleRequester:
			keep = caller
		case RoleAssignee:
			keep = assignee
		case RoleAll:
			keep = caller || assignee || mentioned
		default: // RoleBoth
			keep = caller || assignee
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

// SortByOpened orders tickets ascending by parsed opened date. Unparseable
// dates carry the zero time and therefore sort first. The sort is stable so
// repeated normalization of the same input yields an identical sequence.
func SortByOpened(tickets []Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].OpenedTime().Before(tickets[j].OpenedTime())
	})
}
