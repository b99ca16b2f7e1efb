package tracker

import (
	"strings"
	"testing"
)

func TestItemKey(t *testing.T) {
	item := &Item{ID: "123", Project: "Fabrikam"}
	if got := item.Key(); got != "Fabrikam_123" {
		t.Errorf("Key() = %q, want Fabrikam_123", got)
	}
}

func TestBuildContentFieldOrder(t *testing.T) {
	item := &Item{
		ID:                 "42",
		Title:              "Login fails",
		Type:               "Bug",
		State:              "Active",
		Description:        "Clicking login does nothing",
		AcceptanceCriteria: "Login succeeds with valid credentials",
		ReproSteps:         "Open page, click login",
		Tags:               "auth; regression",
		Priority:           "1",
		Severity:           "2 - High",
		AssignedTo:         "Jamie Park",
		Comments:           "Seen on staging too",
	}

	content := item.BuildContent()
	sections := strings.Split(content, "\n\n")
	wantPrefixes := []string{
		"Title:", "Type:", "State:", "Description:", "Acceptance Criteria:",
		"Repro Steps:", "Tags:", "Priority:", "Severity:", "Assigned To:", "Comments:",
	}
	if len(sections) != len(wantPrefixes) {
		t.Fatalf("expected %d sections, got %d: %q", len(wantPrefixes), len(sections), content)
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(sections[i], prefix) {
			t.Errorf("section %d = %q, want prefix %q", i, sections[i], prefix)
		}
	}
}

func TestBuildContentOmitsEmptyFields(t *testing.T) {
	item := &Item{
		Title: "Add export button",
		Type:  "Task",
		State: "New",
	}

	content := item.BuildContent()
	if strings.Contains(content, "Description:") {
		t.Errorf("empty description should be omitted: %q", content)
	}
	if strings.Contains(content, "Tags:") {
		t.Errorf("empty tags should be omitted: %q", content)
	}
	if !strings.HasPrefix(content, "Title: Add export button") {
		t.Errorf("content should start with title: %q", content)
	}
}

func TestBuildContentDeterministic(t *testing.T) {
	item := &Item{
		Title:       "Crash on save",
		Type:        "Bug",
		State:       "Active",
		Description: "Saving a draft crashes the app",
		Severity:    "1 - Critical",
	}

	first := item.BuildContent()
	second := item.BuildContent()
	if first != second {
		t.Errorf("BuildContent() not deterministic:\n%q\n%q", first, second)
	}
}
