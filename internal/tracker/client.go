package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"workitems-ai/internal/contextutil"
)

const (
	apiVersion   = "7.1"
	fetchIDBatch = 200 // IDs per work-items detail request (tracker API cap)
)

// Client is a client for the work-item tracker REST API.
type Client struct {
	BaseURL string
	Token   string
	Project string
	client  *http.Client
}

// NewClient creates a new tracker client. baseURL is the organization URL,
// token a personal access token with work-item read permission.
func NewClient(baseURL, token, project string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Project: project,
		client:  http.DefaultClient,
	}
}

// wiqlResponse is the response of the query endpoint.
type wiqlResponse struct {
	WorkItems []struct {
		ID int `json:"id"`
	} `json:"workItems"`
}

// itemsResponse is the response of the work-items detail endpoint.
type itemsResponse struct {
	Value []struct {
		ID     int            `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"value"`
}

// FetchItems returns the project's items with extracted and cleaned fields.
// When since is non-nil the source query is restricted to items changed on
// or after that day. The tracker's query language only accepts a date (no
// time component), so the result over-fetches up to one day; exact
// timestamp filtering is left to the caller.
func (c *Client) FetchItems(ctx context.Context, since *time.Time) ([]*Item, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' ORDER BY [System.ChangedDate] DESC",
		c.Project,
	)
	if since != nil {
		query = fmt.Sprintf(
			"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' AND [System.ChangedDate] >= '%s' ORDER BY [System.ChangedDate] DESC",
			c.Project, since.UTC().Format("2006-01-02"),
		)
	}

	ids, err := c.queryIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		logger.InfoContext(ctx, "no work items matched query", "project", c.Project)
		return nil, nil
	}

	items := make([]*Item, 0, len(ids))
	for start := 0; start < len(ids); start += fetchIDBatch {
		end := start + fetchIDBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := c.fetchDetails(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}

	logger.InfoContext(ctx, "fetched work items", "project", c.Project, "count", len(items))
	return items, nil
}

// ListIDs returns the full set of native item IDs in the project without
// fetching item details.
func (c *Client) ListIDs(ctx context.Context) (map[string]struct{}, error) {
	query := fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s'",
		c.Project,
	)
	ids, err := c.queryIDs(ctx, query)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[strconv.Itoa(id)] = struct{}{}
	}
	return set, nil
}

// queryIDs runs a WIQL query and returns the matched item IDs.
func (c *Client) queryIDs(ctx context.Context, query string) ([]int, error) {
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s", c.BaseURL, url.PathEscape(c.Project), apiVersion)

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("", c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send query: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("query returned status %d: %s", resp.StatusCode, string(raw))
	}

	var wiql wiqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&wiql); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	ids := make([]int, 0, len(wiql.WorkItems))
	for _, wi := range wiql.WorkItems {
		ids = append(ids, wi.ID)
	}
	return ids, nil
}

// fetchDetails fetches full item records for a batch of IDs.
func (c *Client) fetchDetails(ctx context.Context, ids []int) ([]*Item, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.Itoa(id)
	}

	endpoint := fmt.Sprintf("%s/_apis/wit/workitems?ids=%s&$expand=all&api-version=%s",
		c.BaseURL, strings.Join(idStrs, ","), apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("", c.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work items: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("work items fetch returned status %d: %s", resp.StatusCode, string(raw))
	}

	var payload itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode work items response: %w", err)
	}

	items := make([]*Item, 0, len(payload.Value))
	for _, raw := range payload.Value {
		items = append(items, c.extractItem(raw.ID, raw.Fields))
	}
	return items, nil
}

// extractItem converts raw tracker fields into a cleaned Item.
func (c *Client) extractItem(id int, fields map[string]any) *Item {
	item := &Item{
		ID:                 strconv.Itoa(id),
		Title:              fieldString(fields, "System.Title"),
		Description:        stripHTML(fieldString(fields, "System.Description")),
		Type:               fieldString(fields, "System.WorkItemType"),
		State:              fieldString(fields, "System.State"),
		AssignedTo:         displayName(fields["System.AssignedTo"]),
		Tags:               fieldString(fields, "System.Tags"),
		Priority:           fieldString(fields, "Microsoft.VSTS.Common.Priority"),
		Severity:           fieldString(fields, "Microsoft.VSTS.Common.Severity"),
		AcceptanceCriteria: stripHTML(fieldString(fields, "Microsoft.VSTS.Common.AcceptanceCriteria")),
		ReproSteps:         stripHTML(fieldString(fields, "Microsoft.VSTS.TCM.ReproSteps")),
		Comments:           stripHTML(fieldString(fields, "System.History")),
		Project:            c.Project,
		URL:                fmt.Sprintf("%s/%s/_workitems/edit/%d", c.BaseURL, url.PathEscape(c.Project), id),
		CreatedDate:        fieldTime(fields, "System.CreatedDate"),
		ChangedDate:        fieldTime(fields, "System.ChangedDate"),
	}
	return item
}

// fieldString reads a field as a string, formatting numbers without decimals.
func fieldString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// displayName extracts the display name from an identity field value.
func displayName(v any) string {
	if v == nil {
		return ""
	}
	if m, ok := v.(map[string]any); ok {
		if name, ok := m["displayName"].(string); ok {
			return name
		}
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// fieldTime parses a timestamp field, returning the zero time on failure.
func fieldTime(fields map[string]any, key string) time.Time {
	s := fieldString(fields, key)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
