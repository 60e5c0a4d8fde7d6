package servicenow

import (
	"fmt"
	"strings"

	"github.com/opslens/opslens/internal/ticket"
)

// stateLabels maps the numeric state codes the Table API returns when display
// values are unavailable. Unknown codes pass through unchanged.
var stateLabels = map[string]string{
	"1": "New",
	"2": "In Progress",
	"3": "On Hold",
	"6": "Resolved",
	"7": "Closed",
	"8": "Cancelled",
}

var priorityLabels = map[string]string{
	"1": "1 - Critical",
	"2": "2 - High",
	"3": "3 - Moderate",
	"4": "4 - Low",
	"5": "5 - Planning",
}

// mapTicket converts one Table API row into a canonical ticket. Field names
// are fixed for this backend, so no alias inference applies.
func mapTicket(row map[string]any, kind ticket.Type) ticket.Ticket {
	return ticket.Ticket{
		Number:           stringField(row, "number"),
		Type:             kind,
		ShortDescription: stringField(row, "short_description"),
		Description:      stringField(row, "description"),
		State:            mapEnum(stringField(row, "state"), stateLabels),
		Priority:         mapEnum(stringField(row, "priority"), priorityLabels),
		Category:         stringField(row, "category"),
		Subcategory:      stringField(row, "subcategory"),
		OpenedAt:         stringField(row, "opened_at"),
		ClosedAt:         stringField(row, "closed_at"),
		ResolvedAt:       stringField(row, "resolved_at"),
		AssignedTo:       stringField(row, "assigned_to"),
		CallerName:       stringField(row, "caller_id"),
		CloseNotes:       stringField(row, "close_notes"),
		WorkNotes:        stringField(row, "work_notes"),
		CIName:           stringField(row, "cmdb_ci"),
		Source:           "servicenow",
	}
}

func mapArticle(row map[string]any) ticket.Article {
	return ticket.Article{
		Number:        stringField(row, "number"),
		Title:         stringField(row, "short_description"),
		Content:       stringField(row, "text"),
		Category:      stringField(row, "kb_category"),
		LastUpdated:   stringField(row, "sys_updated_on"),
		WorkflowState: stringField(row, "workflow_state"),
	}
}

func mapEnum(value string, labels map[string]string) string {
	if label, ok := labels[strings.TrimSpace(value)]; ok {
		return label
	}
	return value
}

// stringField flattens a raw field to a string. Reference fields sometimes
// arrive as {"display_value": ..., "link": ...} objects.
func stringField(row map[string]any, name string) string {
	value, ok := row[name]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, key := range []string{"display_value", "value", "name"} {
			if nested, ok := v[key].(string); ok && nested != "" {
				return strings.TrimSpace(nested)
			}
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
