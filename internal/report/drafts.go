package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/opslens/opslens/internal/analysis"
	"github.com/opslens/opslens/internal/common"
)

// DraftWorkflowState is stamped into every generated article. Anything pushed
// upstream must carry a draft/unpublished marker; publication is always a
// human decision.
const DraftWorkflowState = "draft"

var unsafeFilenameRe = regexp.MustCompile(`[^a-z0-9-]+`)

// WriteDrafts writes one knowledge-article draft file per gap into dir and
// returns the written paths.
func WriteDrafts(dir string, gaps []analysis.Gap) ([]string, error) {
	logger := common.Logger()
	if len(gaps) == 0 {
		logger.Warn("report: no gaps, no drafts written")
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	var paths []string
	for i, gap := range gaps {
		name := draftFilename(i, gap)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(renderDraft(gap)), 0o644); err != nil {
			return paths, fmt.Errorf("write draft %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	logger.Info("report: knowledge drafts written", "dir", dir, "count", len(paths))
	return paths, nil
}

func draftFilename(index int, gap analysis.Gap) string {
	slug := strings.ToLower(strings.TrimSpace(gap.Topic))
	slug = unsafeFilenameRe.ReplaceAllString(strings.ReplaceAll(slug, " ", "-"), "")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" {
		slug = "gap"
	}
	return fmt.Sprintf("%02d-%s-%s.md", index+1, strings.ToLower(string(gap.Type)), slug)
}

func renderDraft(gap analysis.Gap) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", gap.SuggestedTitle)
	fmt.Fprintf(&b, "gap_type: %s\n", gap.Type)
	fmt.Fprintf(&b, "workflow_state: %s\n", DraftWorkflowState)
	if len(gap.RelatedTickets) > 0 {
		fmt.Fprintf(&b, "related_tickets: %s\n", strings.Join(gap.RelatedTickets, ", "))
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", gap.SuggestedTitle)
	b.WriteString(gap.SuggestedContent)
	b.WriteString("\n")
	return b.String()
}
