package export

import (
	"sort"
	"strings"
)

// fieldAlias maps one canonical ticket field to the source headers that may
// carry it. Order matters twice over: fields resolve in table order, and the
// first alias present in the header set wins for a field.
type fieldAlias struct {
	Field   string
	Aliases []string
}

// Canonical field names used by the resolver. An exact (case-insensitive)
// header match on the canonical name always beats any alias.
const (
	fieldNumber      = "number"
	fieldType        = "type"
	fieldShortDesc   = "short_description"
	fieldDescription = "description"
	fieldState       = "state"
	fieldPriority    = "priority"
	fieldCategory    = "category"
	fieldSubcategory = "subcategory"
	fieldOpenedAt    = "opened_at"
	fieldClosedAt    = "closed_at"
	fieldResolvedAt  = "resolved_at"
	fieldAssignedTo  = "assigned_to"
	fieldCaller      = "caller"
	fieldCloseNotes  = "close_notes"
	fieldWorkNotes   = "work_notes"
	fieldCIName      = "ci_name"
)

var aliasTable = []fieldAlias{
	{fieldNumber, []string{"ticket_number", "ticket number", "id", "key", "ref", "reference", "issue_key", "incident_number"}},
	{fieldType, []string{"ticket_type", "issue_type", "issuetype", "record_type", "kind"}},
	{fieldShortDesc, []string{"short description", "summary", "title", "subject", "name"}},
	{fieldDescription, []string{"details", "long_description", "body", "full_description"}},
	{fieldState, []string{"status", "ticket_state", "ticket_status", "current_state"}},
	{fieldPriority, []string{"prio", "urgency", "severity", "importance"}},
	{fieldCategory, []string{"cat", "group", "component", "area"}},
	{fieldSubcategory, []string{"sub_category", "subcat", "sub category", "subtype"}},
	{fieldOpenedAt, []string{"opened", "opened at", "created", "created_at", "created at", "sys_created_on", "date_opened", "open_date", "creation_date"}},
	{fieldClosedAt, []string{"closed", "closed at", "close_date", "date_closed"}},
	{fieldResolvedAt, []string{"resolved", "resolved at", "resolution_date", "resolutiondate", "date_resolved"}},
	{fieldAssignedTo, []string{"assigned to", "assignee", "owner", "assigned", "technician"}},
	{fieldCaller, []string{"caller_id", "caller_name", "requester", "requested_by", "requested_for", "reporter", "customer", "opened_by"}},
	{fieldCloseNotes, []string{"close notes", "resolution", "resolution_notes", "fix_notes"}},
	{fieldWorkNotes, []string{"work notes", "comments", "notes", "journal", "activity"}},
	{fieldCIName, []string{"cmdb_ci", "ci", "configuration_item", "configuration item", "asset", "affected_ci", "host", "hostname"}},
}

// resolveColumns inspects one record's key set and resolves, per canonical
// field, the source key that will supply it. The mapping is built once from
// the first record and applied uniformly; rows using a different header
// spelling later in the file keep unmapped fields empty. That limitation is
// deliberate (see DESIGN.md).
func resolveColumns(record map[string]string) map[string]string {
	// Raw keys are visited in sorted order so two headers that normalize to
	// the same form always tie-break the same way, keeping normalization
	// repeatable for a given input.
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	byNorm := make(map[string]string, len(record))
	for _, key := range keys {
		norm := strings.ToLower(strings.TrimSpace(key))
		if _, exists := byNorm[norm]; !exists {
			byNorm[norm] = key
		}
	}
	resolved := make(map[string]string, len(aliasTable))
	for _, entry := range aliasTable {
		if key, ok := byNorm[entry.Field]; ok {
			resolved[entry.Field] = key
			continue
		}
		for _, alias := range entry.Aliases {
			if key, ok := byNorm[strings.ToLower(alias)]; ok {
				resolved[entry.Field] = key
				break
			}
		}
	}
	return resolved
}
