package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestServer serves a WIQL endpoint returning wiqlIDs and a work-items
// endpoint returning the given field maps. Captured queries are appended to
// queries.
func newTestServer(t *testing.T, wiqlIDs []int, fieldsByID map[int]map[string]any, queries *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/_apis/wit/wiql"):
			var body struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("bad wiql body: %v", err)
			}
			*queries = append(*queries, body.Query)

			items := make([]map[string]int, 0, len(wiqlIDs))
			for _, id := range wiqlIDs {
				items = append(items, map[string]int{"id": id})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"workItems": items})

		case strings.Contains(r.URL.Path, "/_apis/wit/workitems"):
			var value []map[string]any
			for _, idStr := range strings.Split(r.URL.Query().Get("ids"), ",") {
				for id, fields := range fieldsByID {
					if idStr == jsonNumber(id) {
						value = append(value, map[string]any{"id": id, "fields": fields})
					}
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"value": value})

		default:
			http.NotFound(w, r)
		}
	}))
}

func jsonNumber(id int) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestFetchItemsExtractsFields(t *testing.T) {
	fields := map[int]map[string]any{
		7: {
			"System.Title":                    "Broken search",
			"System.Description":              "<p>Search returns <b>nothing</b></p>",
			"System.WorkItemType":             "Bug",
			"System.State":                    "Active",
			"System.AssignedTo":               map[string]any{"displayName": "Sam Lee"},
			"System.Tags":                     "search",
			"Microsoft.VSTS.Common.Priority":  float64(2),
			"Microsoft.VSTS.Common.Severity":  "2 - High",
			"System.CreatedDate":              "2025-03-01T10:00:00Z",
			"System.ChangedDate":              "2025-03-02T11:30:00Z",
		},
	}
	var queries []string
	srv := newTestServer(t, []int{7}, fields, &queries)
	defer srv.Close()

	client := NewClient(srv.URL, "token", "Fabrikam")
	items, err := client.FetchItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchItems() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.ID != "7" {
		t.Errorf("ID = %q, want 7", item.ID)
	}
	if item.Description != "Search returns nothing" {
		t.Errorf("Description = %q, want HTML stripped", item.Description)
	}
	if item.AssignedTo != "Sam Lee" {
		t.Errorf("AssignedTo = %q, want Sam Lee", item.AssignedTo)
	}
	if item.Priority != "2" {
		t.Errorf("Priority = %q, want 2", item.Priority)
	}
	if item.ChangedDate.IsZero() {
		t.Error("ChangedDate should be parsed")
	}
	if !strings.Contains(item.URL, "/Fabrikam/_workitems/edit/7") {
		t.Errorf("URL = %q", item.URL)
	}
	if len(queries) != 1 || strings.Contains(queries[0], "ChangedDate >=") {
		t.Errorf("full fetch should not constrain ChangedDate: %q", queries)
	}
}

func TestFetchItemsDeltaUsesDayGranularity(t *testing.T) {
	var queries []string
	srv := newTestServer(t, nil, nil, &queries)
	defer srv.Close()

	client := NewClient(srv.URL, "token", "Fabrikam")
	since := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)
	items, err := client.FetchItems(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchItems() error = %v", err)
	}
	if items != nil {
		t.Errorf("expected no items, got %d", len(items))
	}
	if len(queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(queries))
	}
	// The source query truncates to day granularity; exact filtering is the
	// sync engine's job.
	if !strings.Contains(queries[0], "[System.ChangedDate] >= '2025-06-15'") {
		t.Errorf("delta query should use date-only comparison: %q", queries[0])
	}
}

func TestListIDs(t *testing.T) {
	var queries []string
	srv := newTestServer(t, []int{3, 5, 9}, nil, &queries)
	defer srv.Close()

	client := NewClient(srv.URL, "token", "Fabrikam")
	ids, err := client.ListIDs(context.Background())
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 IDs, got %d", len(ids))
	}
	for _, want := range []string{"3", "5", "9"} {
		if _, ok := ids[want]; !ok {
			t.Errorf("missing ID %s", want)
		}
	}
}

func TestFetchItemsPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-token", "Fabrikam")
	if _, err := client.FetchItems(context.Background(), nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
