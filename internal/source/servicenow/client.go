// Package servicenow retrieves tickets and knowledge articles from a
// ServiceNow-style Table API instance and maps them into canonical records.
package servicenow

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
var ErrUnauthorized = errors.New("servicenow: authentication rejected")

// Config carries the instance coordinates. It is assembled at the process
// boundary; this package never reads the environment.
type Config struct {
	InstanceURL string
	Username    string
	Password    string
	PageSize    int
	Timeout     time.Duration
	MaxRetries  int
}

// Validate reports the missing required parameter, if any.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InstanceURL) == "" {
		return errors.New("servicenow: instance URL required")
	}
	return nil
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
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
		pageSize = 100
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.InstanceURL), "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		pageSize:   pageSize,
		maxRetries: retries,
	}, nil
}

// ticketTables maps each canonical type to its Table API table.
var ticketTables = []struct {
	table string
	kind  ticket.Type
}{
	{"incident", ticket.TypeIncident},
	{"change_request", ticket.TypeChangeRequest},
	{"problem", ticket.TypeProblem},
	{"sc_req_item", ticket.TypeRequestedItem},
}

// FetchTickets retrieves tickets of every supported type opened within the
// last monthsBack months (all history when zero).
func (c *Client) FetchTickets(ctx context.Context, monthsBack int) ([]ticket.Ticket, error) {
	logger := common.Logger()
	var all []ticket.Ticket
	for _, entry := range ticketTables {
		query := ""
		if monthsBack > 0 {
			query = fmt.Sprintf("opened_at>=javascript:gs.monthsAgoStart(%d)", monthsBack)
		}
		rows, err := c.fetchTable(ctx, entry.table, query)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", entry.table, err)
		}
		logger.Debug("servicenow: table fetched", "table", entry.table, "rows", len(rows))
		for _, row := range rows {
			all = append(all, mapTicket(row, entry.kind))
		}
	}
	if len(all) == 0 {
		logger.Warn("servicenow: no tickets returned", "months_back", monthsBack)
	}
	return all, nil
}

// FetchArticles retrieves the knowledge base for gap analysis.
func (c *Client) FetchArticles(ctx context.Context) ([]ticket.Article, error) {
	rows, err := c.fetchTable(ctx, "kb_knowledge", "")
	if err != nil {
		return nil, fmt.Errorf("fetch kb_knowledge: %w", err)
	}
	articles := make([]ticket.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, mapArticle(row))
	}
	return articles, nil
}

type tableResponse struct {
	Result []map[string]any `json:"result"`
}

// fetchTable pages through one table until a short page signals exhaustion.
func (c *Client) fetchTable(ctx context.Context, table, query string) ([]map[string]any, error) {
	var rows []map[string]any
	offset := 0
	for {
		params := url.Values{}
		params.Set("sysparm_limit", strconv.Itoa(c.pageSize))
		params.Set("sysparm_offset", strconv.Itoa(offset))
		params.Set("sysparm_display_value", "true")
		params.Set("sysparm_exclude_reference_link", "true")
		if query != "" {
			params.Set("sysparm_query", query)
		}
		endpoint := fmt.Sprintf("%s/api/now/table/%s?%s", c.baseURL, table, params.Encode())
		page, err := c.getPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if len(page) < c.pageSize {
			return rows, nil
		}
		offset += c.pageSize
	}
}

func (c *Client) getPage(ctx context.Context, endpoint string) ([]map[string]any, error) {
	logger := common.Logger()
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.username, c.password)
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
				return nil, fmt.Errorf("servicenow: rate limited after %d retries", c.maxRetries)
			}
			wait := retryAfter(resp, attempt)
			logger.Warn("servicenow: rate limited, backing off", "wait", wait, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("servicenow: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		var decoded tableResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("servicenow: decode response: %w", err)
		}
		return decoded.Result, nil
	}
}

func retryAfter(resp *http.Response, attempt int) time.Duration {
	if value := resp.Header.Get("Retry-After"); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
