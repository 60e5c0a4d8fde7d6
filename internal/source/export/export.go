// Package export normalizes flat-file ticket exports (CSV rows or JSON
// arrays) whose column names are not known up front.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/ticket"
)

var (
	// ErrUnsupportedFormat marks a file extension the reader does not handle.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrFileNotFound marks an export path that does not resolve.
	ErrFileNotFound = errors.New("export file not found")
)

// containerKeys are conventional wrapper keys for JSON exports that nest the
// record array inside an object.
var containerKeys = []string{"result", "tickets", "issues", "records", "items"}

// Options controls normalization of an export file.
type Options struct {
	// MonthsBack excludes tickets opened before now minus this many months.
	// Zero disables the cutoff. The boundary is inclusive: a ticket dated
	// exactly at the cutoff is retained.
	MonthsBack int
	// Now anchors the cutoff; the zero value means time.Now().
	Now time.Time
	// CIName optionally narrows tickets to one configuration item.
	CIName string
	// User and Role optionally narrow tickets to one person.
	User string
	Role ticket.Role
}

// Load reads an export file and normalizes it into canonical tickets.
func Load(path string, opts Options) ([]ticket.Ticket, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Normalize(records, opts), nil
}

// ReadFile parses a CSV or JSON export into flat string-keyed records.
func ReadFile(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseCSV(data)
	case ".json":
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func parseCSV(data []byte) ([]map[string]string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func parseJSON(data []byte) ([]map[string]string, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		// Try the conventional container-object shapes before giving up.
		var wrapper map[string]json.RawMessage
		if wrapErr := json.Unmarshal(data, &wrapper); wrapErr != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		found := false
		for _, key := range containerKeys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &rows); err != nil {
				return nil, fmt.Errorf("parse json container %q: %w", key, err)
			}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("parse json: no record array found")
		}
	}
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(row))
		for key, value := range row {
			record[key] = scalarString(value)
		}
		records = append(records, record)
	}
	return records, nil
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// Normalize maps raw export records into canonical tickets, applying the age
// cutoff and the optional CI and user filters. Column resolution inspects
// only the first record.
func Normalize(records []map[string]string, opts Options) []ticket.Ticket {
	logger := common.Logger()
	if len(records) == 0 {
		logger.Warn("export: no records in file")
		return nil
	}
	columns := resolveColumns(records[0])
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	var cutoff time.Time
	if opts.MonthsBack > 0 {
		cutoff = now.AddDate(0, -opts.MonthsBack, 0)
	}

	tickets := make([]ticket.Ticket, 0, len(records))
	for _, record := range records {
		field := func(name string) string {
			key, ok := columns[name]
			if !ok {
				return ""
			}
			return strings.TrimSpace(record[key])
		}
		opened := field(fieldOpenedAt)
		if !cutoff.IsZero() {
			// A date that does not parse never excludes a ticket.
			if parsed, ok := ticket.ParseDate(opened); ok && parsed.Before(cutoff) {
				continue
			}
		}
		tickets = append(tickets, ticket.Ticket{
			Number:           field(fieldNumber),
			Type:             parseType(field(fieldType)),
			ShortDescription: field(fieldShortDesc),
			Description:      field(fieldDescription),
			State:            field(fieldState),
			Priority:         normalizePriority(field(fieldPriority)),
			Category:         field(fieldCategory),
			Subcategory:      field(fieldSubcategory),
			OpenedAt:         opened,
			ClosedAt:         field(fieldClosedAt),
			ResolvedAt:       field(fieldResolvedAt),
			AssignedTo:       field(fieldAssignedTo),
			CallerName:       field(fieldCaller),
			CloseNotes:       field(fieldCloseNotes),
			WorkNotes:        field(fieldWorkNotes),
			CIName:           field(fieldCIName),
			Source:           "export",
		})
	}
	tickets = ticket.FilterByCI(tickets, opts.CIName)
	tickets = ticket.FilterByUser(tickets, opts.User, opts.Role)
	if len(tickets) == 0 {
		logger.Warn("export: all records filtered out", "records", len(records))
	}
	return tickets
}

func parseType(value string) ticket.Type {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "change", "change request", "change_request", "changerequest":
		return ticket.TypeChangeRequest
	case "problem":
		return ticket.TypeProblem
	case "service request", "service_request", "servicerequest", "request":
		return ticket.TypeService
	case "requested item", "requested_item", "requesteditem", "sc_req_item":
		return ticket.TypeRequestedItem
	default:
		return ticket.TypeIncident
	}
}

var priorityLabels = map[string]string{
	"1": "1 - Critical",
	"2": "2 - High",
	"3": "3 - Moderate",
	"4": "4 - Low",
	"5": "5 - Planning",
}

// normalizePriority maps bare numeric priorities to the conventional
// "N - Label" form. Anything else passes through untouched.
func normalizePriority(value string) string {
	if label, ok := priorityLabels[strings.TrimSpace(value)]; ok {
		return label
	}
	return value
}
