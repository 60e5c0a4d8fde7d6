// Package jira retrieves issues from a Jira-style REST search endpoint and
// maps them into canonical tickets.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opslens/opslens/internal/common"
	"github.com/opslens/opslens/internal/ticket"
)

// ErrUnauthorized marks a 401/403 from the instance. Never retried.
var ErrUnauthorized = errors.New("jira: authentication rejected")

// Config carries the instance coordinates, assembled at the process boundary.
type Config struct {
	BaseURL    string
	Email      string
	APIToken   string
	Project    string
	PageSize   int
	Timeout    time.Duration
	MaxRetries int
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("jira: base URL required")
	}
	return nil
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	apiToken   string
	project    string
	pageSize   int
	maxRetries int
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		email:      cfg.Email,
		apiToken:   cfg.APIToken,
		project:    strings.TrimSpace(cfg.Project),
		pageSize:   pageSize,
		maxRetries: retries,
	}, nil
}

type searchResponse struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []rawIssue `json:"issues"`
}

type rawIssue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

// FetchTickets pages the search endpoint until the reported total is reached.
func (c *Client) FetchTickets(ctx context.Context, monthsBack int) ([]ticket.Ticket, error) {
	logger := common.Logger()
	jql := buildJQL(c.project, monthsBack)
	var all []ticket.Ticket
	startAt := 0
	for {
		params := url.Values{}
		params.Set("jql", jql)
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(c.pageSize))
		endpoint := fmt.Sprintf("%s/rest/api/2/search?%s", c.baseURL, params.Encode())
		page, err := c.getPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		for _, issue := range page.Issues {
			all = append(all, mapIssue(issue))
		}
		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			break
		}
	}
	logger.Debug("jira: search complete", "jql", jql, "issues", len(all))
	if len(all) == 0 {
		logger.Warn("jira: no issues returned", "jql", jql)
	}
	return all, nil
}

func buildJQL(project string, monthsBack int) string {
	clauses := make([]string, 0, 2)
	if project != "" {
		clauses = append(clauses, fmt.Sprintf("project = %q", project))
	}
	if monthsBack > 0 {
		clauses = append(clauses, fmt.Sprintf("created >= -%dM", monthsBack))
	}
	if len(clauses) == 0 {
		return "order by created ASC"
	}
	return strings.Join(clauses, " AND ") + " order by created ASC"
}

func (c *Client) getPage(ctx context.Context, endpoint string) (*searchResponse, error) {
	logger := common.Logger()
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if c.email != "" {
			req.SetBasicAuth(c.email, c.apiToken)
		} else if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("jira: rate limited after %d retries", c.maxRetries)
			}
			wait := retryWait(resp, attempt)
			logger.Warn("jira: rate limited, backing off", "wait", wait, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("jira: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		var decoded searchResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("jira: decode response: %w", err)
		}
		return &decoded, nil
	}
}

func retryWait(resp *http.Response, attempt int) time.Duration {
	if value := resp.Header.Get("Retry-After"); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
