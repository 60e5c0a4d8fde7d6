package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opslens/opslens/internal/llm"
)

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestAnalyzerFallsBackOnCompletionError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream unavailable")}
	analyzer := NewAnalyzer(provider, 2)
	result := analyzer.Patterns(context.Background(), hardwareTickets())
	if result.UsedAI {
		t.Fatalf("fallback result must not claim AI provenance")
	}
	if len(result.Patterns) != 1 || result.Patterns[0].Label != "Category: Hardware > Disk" {
		t.Fatalf("expected the deterministic pattern, got %+v", result.Patterns)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("the completion error is caught exactly once, got %d calls", len(provider.prompts))
	}
}

func TestAnalyzerUsesParserOnSuccess(t *testing.T) {
	provider := &fakeProvider{response: "## Pattern 1: Disk exhaustion across the fleet\nTickets: INC0010001, INC0010002\n"}
	analyzer := NewAnalyzer(provider, 2)
	result := analyzer.Patterns(context.Background(), hardwareTickets())
	if !result.UsedAI {
		t.Fatalf("successful completion should mark AI provenance")
	}
	if len(result.Patterns) != 1 || result.Patterns[0].Label != "Disk exhaustion across the fleet" {
		t.Fatalf("expected the parsed pattern, got %+v", result.Patterns)
	}
}

func TestAnalyzerNilProviderUsesBasic(t *testing.T) {
	analyzer := NewAnalyzer(nil, 2)
	result := analyzer.Patterns(context.Background(), hardwareTickets())
	if result.UsedAI || len(result.Patterns) != 1 {
		t.Fatalf("nil provider should run basic detection, got %+v", result)
	}
	gaps := analyzer.Gaps(context.Background(), hardwareTickets(), nil)
	if gaps.UsedAI || len(gaps.Gaps) != 1 {
		t.Fatalf("nil provider should run basic gap detection, got %+v", gaps)
	}
}

func TestAnalyzerEmptyTicketSet(t *testing.T) {
	provider := &fakeProvider{response: "anything"}
	analyzer := NewAnalyzer(provider, 2)
	result := analyzer.Patterns(context.Background(), nil)
	if len(result.Patterns) != 0 || result.UsedAI {
		t.Fatalf("empty input yields an empty result, got %+v", result)
	}
	if len(provider.prompts) != 0 {
		t.Fatalf("no completion call for an empty ticket set")
	}
}

func TestPromptRendersTicketLines(t *testing.T) {
	provider := &fakeProvider{response: "## Pattern 1: Whatever it finds\nTickets: INC0010001\n"}
	analyzer := NewAnalyzer(provider, 3)
	analyzer.Patterns(context.Background(), hardwareTickets())
	prompt := provider.prompts[0]
	if !strings.Contains(prompt, "[Incident] INC0010001 | 2024-01-10 |") {
		t.Fatalf("prompt should render one line per ticket:\n%s", prompt)
	}
	if !strings.Contains(prompt, "at least 3 occurrences") {
		t.Fatalf("prompt should carry the threshold:\n%s", prompt)
	}
}

func TestSummarizeFallback(t *testing.T) {
	analyzer := NewAnalyzer(&fakeProvider{err: errors.New("boom")}, 2)
	summary, usedAI := analyzer.Summarize(context.Background(), hardwareTickets())
	if usedAI {
		t.Fatalf("failed completion must not mark AI provenance")
	}
	if !strings.Contains(summary, "3 tickets") {
		t.Fatalf("basic summary should carry counts: %q", summary)
	}
}
