package jira

import (
	"encoding/json"
	"strings"

	"github.com/opslens/opslens/internal/ticket"
)

// issueFields is the subset of the Jira issue payload the mapper consumes.
// Author and assignee arrive as nested objects carrying a display name.
type issueFields struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Resolution  struct {
		Description string `json:"description"`
	} `json:"resolution"`
	ResolutionDate string `json:"resolutiondate"`
	Status         struct {
		Name string `json:"name"`
	} `json:"status"`
	Priority struct {
		Name string `json:"name"`
	} `json:"priority"`
	IssueType struct {
		Name string `json:"name"`
	} `json:"issuetype"`
	Assignee struct {
		DisplayName string `json:"displayName"`
	} `json:"assignee"`
	Reporter struct {
		DisplayName string `json:"displayName"`
	} `json:"reporter"`
	Labels     []string `json:"labels"`
	Components []struct {
		Name string `json:"name"`
	} `json:"components"`
}

// issueTypes maps Jira issue type names onto canonical ticket types. Unknown
// names fall back to Incident, matching the export path default.
var issueTypes = map[string]ticket.Type{
	"bug":             ticket.TypeIncident,
	"incident":        ticket.TypeIncident,
	"change":          ticket.TypeChangeRequest,
	"change request":  ticket.TypeChangeRequest,
	"problem":         ticket.TypeProblem,
	"task":            ticket.TypeService,
	"service request": ticket.TypeService,
	"story":           ticket.TypeRequestedItem,
}

func mapIssue(issue rawIssue) ticket.Ticket {
	var fields issueFields
	// A decode failure leaves zero values; the key alone still identifies
	// the ticket.
	_ = json.Unmarshal(issue.Fields, &fields)

	kind := ticket.TypeIncident
	if mapped, ok := issueTypes[strings.ToLower(strings.TrimSpace(fields.IssueType.Name))]; ok {
		kind = mapped
	}
	category := ""
	if len(fields.Components) > 0 {
		category = fields.Components[0].Name
	}
	subcategory := ""
	if len(fields.Labels) > 0 {
		subcategory = fields.Labels[0]
	}
	return ticket.Ticket{
		Number:           issue.Key,
		Type:             kind,
		ShortDescription: fields.Summary,
		Description:      fields.Description,
		State:            fields.Status.Name,
		Priority:         fields.Priority.Name,
		Category:         category,
		Subcategory:      subcategory,
		OpenedAt:         fields.Created,
		ResolvedAt:       fields.ResolutionDate,
		ClosedAt:         fields.ResolutionDate,
		AssignedTo:       fields.Assignee.DisplayName,
		CallerName:       fields.Reporter.DisplayName,
		CloseNotes:       fields.Resolution.Description,
		Source:           "jira",
	}
}
