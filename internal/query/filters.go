package query

import (
	"regexp"
	"strings"

	"workitems-ai/internal/index"
)

// Filter extractors are independent and composable: each returns a nil
// predicate when the question carries no matching signal, and the caller
// AND-combines whatever survives. An unrecognized question simply yields
// no filters.

var itemIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(?i)WI-(\d+)`),
	regexp.MustCompile(`(?i)work\s*item\s*#?(\d+)`),
	regexp.MustCompile(`(?i)item\s*#?(\d+)`),
}

// typeTerms maps question terms to item types, first whole-word match wins.
var typeTerms = []struct {
	term     string
	itemType string
}{
	{"bug", "Bug"},
	{"bugs", "Bug"},
	{"issue", "Bug"},
	{"issues", "Bug"},
	{"user story", "User Story"},
	{"user stories", "User Story"},
	{"story", "User Story"},
	{"stories", "User Story"},
	{"defect", "Bug"},
	{"defects", "Bug"},
	{"task", "Task"},
	{"tasks", "Task"},
	{"epic", "Epic"},
	{"epics", "Epic"},
	{"feature", "Feature"},
	{"features", "Feature"},
}

// stateTerms maps question terms to lifecycle states, first substring match
// wins in listed order.
var stateTerms = []struct {
	term  string
	state string
}{
	{"closed", "Closed"},
	{"resolved", "Resolved"},
	{"completed", "Closed"},
	{"done", "Closed"},
	{"active", "Active"},
	{"open", "Active"},
	{"in progress", "Active"},
	{"new", "New"},
}

// priorityTerms maps phrase variants to priority ordinals, first match wins.
var priorityTerms = []struct {
	terms    []string
	priority string
}{
	{[]string{"priority 1", "p1", "highest priority"}, "1"},
	{[]string{"priority 2", "p2", "high priority"}, "2"},
	{[]string{"priority 3", "p3", "medium priority"}, "3"},
	{[]string{"priority 4", "p4", "low priority"}, "4"},
}

// severityTerms maps phrase variants to the tracker's severity labels.
var severityTerms = []struct {
	terms    []string
	severity string
}{
	{[]string{"critical", "severity 1"}, "1 - Critical"},
	{[]string{"high severity", "severity 2"}, "2 - High"},
	{[]string{"medium severity", "severity 3"}, "3 - Medium"},
	{[]string{"low severity", "severity 4"}, "4 - Low"},
}

// extractItemIDs returns the item IDs mentioned in the question,
// deduplicated preserving first-seen order.
func extractItemIDs(question string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, pattern := range itemIDPatterns {
		for _, match := range pattern.FindAllStringSubmatch(question, -1) {
			id := match[1]
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// itemIDFilter builds an ID predicate: nil for none, an equality for one, an
// OR-of-equalities for several.
func itemIDFilter(question string) *index.Predicate {
	return index.AnyOf("item_id", extractItemIDs(question))
}

var typePatterns = compileTypePatterns()

func compileTypePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(typeTerms))
	for i, entry := range typeTerms {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(entry.term) + `\b`)
	}
	return patterns
}

// typeFilter builds an item-type predicate from the first whole-word term
// match, nil when none matches.
func typeFilter(question string) *index.Predicate {
	text := strings.ToLower(question)
	for i, entry := range typeTerms {
		if typePatterns[i].MatchString(text) {
			return index.Eq("type", entry.itemType)
		}
	}
	return nil
}

// attributeFilter builds the AND-combined state/priority/severity predicate,
// nil when the question carries none of them.
func attributeFilter(question string) *index.Predicate {
	text := strings.ToLower(question)
	var preds []*index.Predicate

	for _, entry := range stateTerms {
		if strings.Contains(text, entry.term) {
			preds = append(preds, index.Eq("state", entry.state))
			break
		}
	}

	for _, entry := range priorityTerms {
		if containsAny(text, entry.terms) {
			preds = append(preds, index.Eq("priority", entry.priority))
			break
		}
	}

	for _, entry := range severityTerms {
		if containsAny(text, entry.terms) {
			preds = append(preds, index.Eq("severity", entry.severity))
			break
		}
	}

	return index.And(preds...)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
