package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/opslens/opslens/internal/analysis"
	"github.com/opslens/opslens/internal/api"
	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/llm"
	"github.com/opslens/opslens/internal/report"
	"github.com/opslens/opslens/internal/source/export"
	"github.com/opslens/opslens/internal/source/jira"
	"github.com/opslens/opslens/internal/source/servicenow"
	"github.com/opslens/opslens/internal/ticket"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Debug("opslens: .env file not loaded", "error", err)
	} else {
		logger.Info("opslens: environment loaded from .env")
	}

	source := flag.String("source", "file", "ticket source: servicenow, jira, or file")
	path := flag.String("path", "", "export file path (source=file)")
	months := flag.Int("months", 6, "only analyze tickets opened in the last N months (0 for all)")
	minOccurrences := flag.Int("min-occurrences", 2, "minimum occurrences for a recurring pattern")
	skipAI := flag.Bool("skip-ai", false, "skip the completion provider and use basic detection only")
	ciName := flag.String("ci", "", "filter tickets by configuration item name")
	user := flag.String("user", "", "filter tickets by user")
	role := flag.String("role", "both", "user filter role: requester, assignee, both, or all")
	out := flag.String("out", "report.html", "output path for the HTML report")
	kbDir := flag.String("kb-dir", "", "directory for knowledge article drafts (empty to skip)")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a one-shot report")
	addr := flag.String("addr", ":8085", "listen address for -serve")
	flag.Parse()

	llmCfg := llm.Config{
		Provider:      os.Getenv("OPSLENS_PROVIDER"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_CHAT_MODEL"),
		OpenAIBaseURL: os.Getenv("OPENAI_ENDPOINT"),
		OllamaURL:     os.Getenv("OLLAMA_URL"),
		OllamaModel:   os.Getenv("OLLAMA_MODEL"),
	}
	if raw := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			logger.Warn("opslens: invalid OPENAI_HTTP_TIMEOUT, using default", "value", raw, "error", err)
		} else {
			llmCfg.HTTPTimeout = timeout
		}
	}
	var provider llm.Provider
	if !*skipAI {
		provider = llm.NewProvider(llmCfg)
	}
	if provider != nil {
		logger.Info("opslens: llm provider ready", "provider", provider.Name())
	} else {
		logger.Info("opslens: running without AI, basic detection only")
	}

	if *serve {
		server := api.NewServer(provider)
		logger.Info("opslens: serving", "addr", *addr, "health", "/healthz")
		fmt.Printf("Serving on %s\n", *addr)
		if err := http.ListenAndServe(*addr, server); err != nil {
			fatal(logger, "server stopped", err)
		}
		return
	}

	tickets, articles, err := fetchTickets(ctx, *source, *path, *months, *ciName)
	if err != nil {
		fatal(logger, "ticket retrieval failed", err)
	}
	logger.Info("opslens: tickets loaded", "source", *source, "count", len(tickets))

	// A user-scoped run queries each selected role separately and merges the
	// results, keeping the role under which each ticket was found.
	var roles []report.BucketedTicket
	if strings.TrimSpace(*user) != "" {
		roles = report.RolesForUser(tickets, *user, ticket.Role(*role))
		tickets = report.Flatten(roles)
		logger.Info("opslens: user view merged", "user", *user, "role", *role, "tickets", len(tickets))
	}

	analyzer := analysis.NewAnalyzer(provider, *minOccurrences)
	patterns := analyzer.Patterns(ctx, tickets)
	gaps := analyzer.Gaps(ctx, tickets, articles)
	summary, usedAI := analyzer.Summarize(ctx, tickets)

	title := fmt.Sprintf("Ticket analysis (%s)", *source)
	doc := report.Assemble(title, tickets, patterns, gaps, summary, patterns.UsedAI || gaps.UsedAI || usedAI)
	doc.Roles = roles
	if err := report.WriteHTML(*out, doc); err != nil {
		fatal(logger, "report generation failed", err)
	}
	fmt.Printf("Report written to %s (%d tickets, %d patterns, %d gaps)\n",
		*out, len(tickets), len(patterns.Patterns), len(gaps.Gaps))

	if strings.TrimSpace(*kbDir) != "" {
		paths, err := report.WriteDrafts(*kbDir, gaps.Gaps)
		if err != nil {
			fatal(logger, "draft generation failed", err)
		}
		fmt.Printf("%d knowledge drafts written to %s\n", len(paths), *kbDir)
	}
}

// fetchTickets selects the source and applies the CI filter. The user filter
// runs afterwards through the role-bucketed merge.
func fetchTickets(ctx context.Context, source, path string, months int, ciName string) ([]ticket.Ticket, []ticket.Article, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "file":
		if strings.TrimSpace(path) == "" {
			return nil, nil, fmt.Errorf("configuration: -path required for source=file")
		}
		tickets, err := export.Load(path, export.Options{
			MonthsBack: months,
			CIName:     ciName,
		})
		return tickets, nil, err
	case "servicenow":
		client, err := servicenow.New(servicenow.Config{
			InstanceURL: os.Getenv("SERVICENOW_INSTANCE_URL"),
			Username:    os.Getenv("SERVICENOW_USERNAME"),
			Password:    os.Getenv("SERVICENOW_PASSWORD"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configuration: %w", err)
		}
		tickets, err := client.FetchTickets(ctx, months)
		if err != nil {
			return nil, nil, err
		}
		articles, err := client.FetchArticles(ctx)
		if err != nil {
			return nil, nil, err
		}
		tickets = ticket.FilterByCI(tickets, ciName)
		return tickets, articles, nil
	case "jira":
		client, err := jira.New(jira.Config{
			BaseURL:  os.Getenv("JIRA_BASE_URL"),
			Email:    os.Getenv("JIRA_EMAIL"),
			APIToken: os.Getenv("JIRA_API_TOKEN"),
			Project:  os.Getenv("JIRA_PROJECT"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configuration: %w", err)
		}
		tickets, err := client.FetchTickets(ctx, months)
		if err != nil {
			return nil, nil, err
		}
		tickets = ticket.FilterByCI(tickets, ciName)
		return tickets, nil, nil
	default:
		return nil, nil, fmt.Errorf("configuration: unknown source %q", source)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error("opslens: "+msg, "error", err)
	fmt.Fprintln(os.Stderr, msg+":", err)
	os.Exit(1)
}
