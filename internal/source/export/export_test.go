package export

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/opslens/opslens/internal/ticket"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadFileCSV(t *testing.T) {
	path := writeFile(t, "tickets.csv",
		"Ticket Number,Summary,Status,Created\nINC0010001,Disk full,New,2024-01-15\nINC0010002,Disk full again,Closed,2024-02-01\n")
	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["Summary"] != "Disk full" {
		t.Fatalf("unexpected summary: %q", records[0]["Summary"])
	}
}

func TestReadFileJSONContainer(t *testing.T) {
	path := writeFile(t, "tickets.json",
		`{"result": [{"number": "INC0010001", "short_description": "VPN drops", "priority": 2}]}`)
	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["priority"] != "2" {
		t.Fatalf("numeric value should flatten to string, got %q", records[0]["priority"])
	}
}

func TestReadFileErrors(t *testing.T) {
	path := writeFile(t, "tickets.xlsx", "binary")
	if _, err := ReadFile(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestResolveColumnsPrecedence(t *testing.T) {
	// An exact canonical-name match beats any alias, and earlier aliases
	// beat later ones.
	record := map[string]string{
		"number":        "INC1",
		"id":            "wrong",
		"ticket_number": "also wrong",
		"summary":       "from alias",
		"title":         "later alias",
	}
	columns := resolveColumns(record)
	if columns[fieldNumber] != "number" {
		t.Fatalf("canonical header should win, got %q", columns[fieldNumber])
	}
	if columns[fieldShortDesc] != "summary" {
		t.Fatalf("first alias should win, got %q", columns[fieldShortDesc])
	}

	delete(record, "number")
	columns = resolveColumns(record)
	if columns[fieldNumber] != "ticket_number" {
		t.Fatalf("alias order should decide, got %q", columns[fieldNumber])
	}
}

func TestResolveColumnsDuplicateHeadersDeterministic(t *testing.T) {
	// Two raw headers normalizing to the same form must tie-break the same
	// way on every run; sorted key order decides, not map iteration.
	record := map[string]string{"Number": "A", "NUMBER ": "B"}
	for i := 0; i < 500; i++ {
		columns := resolveColumns(record)
		if columns[fieldNumber] != "NUMBER " {
			t.Fatalf("run %d: expected the first key in sorted order to win, got %q", i, columns[fieldNumber])
		}
	}
}

func TestResolveColumnsCaseInsensitive(t *testing.T) {
	columns := resolveColumns(map[string]string{"  Ticket Number ": "x", "SUMMARY": "y"})
	if columns[fieldNumber] != "  Ticket Number " {
		t.Fatalf("expected trimmed case-insensitive match, got %q", columns[fieldNumber])
	}
	if columns[fieldShortDesc] != "SUMMARY" {
		t.Fatalf("expected upper-case alias match, got %q", columns[fieldShortDesc])
	}
}

func TestNormalizeFirstRecordOnly(t *testing.T) {
	// Column resolution inspects only the first record: a later row using a
	// different header spelling silently loses that field.
	records := []map[string]string{
		{"number": "INC1", "summary": "first"},
		{"number": "INC2", "title": "second"},
	}
	tickets := Normalize(records, Options{})
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
	if tickets[0].ShortDescription != "first" {
		t.Fatalf("unexpected first description: %q", tickets[0].ShortDescription)
	}
	if tickets[1].ShortDescription != "" {
		t.Fatalf("second row's unmapped header should normalize empty, got %q", tickets[1].ShortDescription)
	}
}

func TestNormalizeCutoffBoundary(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	records := []map[string]string{
		{"number": "OLD", "opened_at": "2023-12-14"},
		{"number": "EDGE", "opened_at": "2023-12-15"},
		{"number": "NEW", "opened_at": "2024-06-01"},
		{"number": "NODATE", "opened_at": "unknown"},
	}
	tickets := Normalize(records, Options{MonthsBack: 6, Now: now})
	numbers := make([]string, 0, len(tickets))
	for _, t2 := range tickets {
		numbers = append(numbers, t2.Number)
	}
	// The boundary is inclusive and unparseable dates are never excluded.
	want := []string{"EDGE", "NEW", "NODATE"}
	if !reflect.DeepEqual(numbers, want) {
		t.Fatalf("wrong survivors: got %v want %v", numbers, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	records := []map[string]string{
		{"number": "INC2", "summary": "b", "opened_at": "2024-02-01", "status": "Closed"},
		{"number": "INC1", "summary": "a", "opened_at": "2024-01-01", "status": "New"},
	}
	first := Normalize(records, Options{})
	second := Normalize(records, Options{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization should be order-stable and repeatable")
	}
	if first[0].Number != "INC2" {
		t.Fatalf("input order should be preserved, got %s first", first[0].Number)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	tickets := Normalize([]map[string]string{{"number": "X1", "priority": "2"}}, Options{})
	if tickets[0].Type != ticket.TypeIncident {
		t.Fatalf("unmapped type should default to Incident, got %s", tickets[0].Type)
	}
	if tickets[0].Priority != "2 - High" {
		t.Fatalf("numeric priority should normalize, got %q", tickets[0].Priority)
	}
	if tickets[0].Source != "export" {
		t.Fatalf("wrong provenance tag: %q", tickets[0].Source)
	}
}

func TestNormalizeFilters(t *testing.T) {
	records := []map[string]string{
		{"number": "INC1", "summary": "printer jam", "cmdb_ci": "printer-3", "caller_id": "Jane"},
		{"number": "INC2", "summary": "vpn drops", "cmdb_ci": "vpn-gw", "caller_id": "Bob"},
	}
	tickets := Normalize(records, Options{CIName: "printer"})
	if len(tickets) != 1 || tickets[0].Number != "INC1" {
		t.Fatalf("CI filter failed: %v", tickets)
	}
	tickets = Normalize(records, Options{User: "bob", Role: ticket.RoleRequester})
	if len(tickets) != 1 || tickets[0].Number != "INC2" {
		t.Fatalf("user filter failed: %v", tickets)
	}
	if got := Normalize(records, Options{CIName: "mainframe"}); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}
