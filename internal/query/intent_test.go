package query

import (
	"strings"
	"testing"
)

func TestIsConversational(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"hi", true},
		{"Hello", true},
		{"thanks", true},
		{"thank you", true},
		{"goodbye", true},
		{"what's up", true},
		{"hey there!", true},
		{"hi, show me all open bugs", false},
		{"hello, what work items are assigned to me?", false},
		{"how many bugs are critical?", false},
		{"show me #123", false},
	}

	for _, tt := range tests {
		if got := isConversational(tt.question); got != tt.want {
			t.Errorf("isConversational(%q): expected %v, got %v", tt.question, tt.want, got)
		}
	}
}

func TestConversationalResponse(t *testing.T) {
	if resp := conversationalResponse("hi"); !strings.Contains(resp, "Hello") {
		t.Errorf("expected greeting response, got %q", resp)
	}
	if resp := conversationalResponse("thanks"); !strings.Contains(resp, "welcome") {
		t.Errorf("expected thanks response, got %q", resp)
	}
	if resp := conversationalResponse("bye"); !strings.Contains(resp, "Goodbye") {
		t.Errorf("expected farewell response, got %q", resp)
	}
	if resp := conversationalResponse("ok"); resp == "" {
		t.Error("expected generic fallback response")
	}
}

func TestIsTriage(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"Is there a similar bug to #123?", true},
		{"check for duplicate of this crash", true},
		{"is this a bug or by design?", true},
		{"triage #42", true},
		{"does this match with requirement docs?", true},
		{"was this already reported?", true},
		{"show me all open bugs", false},
		{"how many tasks are done?", false},
	}

	for _, tt := range tests {
		if got := isTriage(tt.question); got != tt.want {
			t.Errorf("isTriage(%q): expected %v, got %v", tt.question, tt.want, got)
		}
	}
}

func TestIsCountQuery(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"How many bugs are critical?", true},
		{"count the open tasks", true},
		{"what's the number of epics?", true},
		{"list all high priority tasks", true},
		{"show all resolved bugs", true},
		{"give me all features", true},
		{"what's the total?", true},
		{"show me #123", false},
		{"what is work item 77 about?", false},
	}

	for _, tt := range tests {
		if got := isCountQuery(tt.question); got != tt.want {
			t.Errorf("isCountQuery(%q): expected %v, got %v", tt.question, tt.want, got)
		}
	}
}

func TestWantsListing(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"How many bugs are critical?", false},
		{"list all high priority tasks", true},
		{"Show me #123 and #456", true},
		{"display the open epics", true},
		{"what are the new features?", true},
		{"which tasks are done?", true},
		{"count of resolved defects", false},
	}

	for _, tt := range tests {
		if got := wantsListing(tt.question); got != tt.want {
			t.Errorf("wantsListing(%q): expected %v, got %v", tt.question, tt.want, got)
		}
	}
}
