package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"workitems-ai/internal/index"
)

const itemSeparator = "\n\n---\n\n"

// sortByNumericID orders documents by native numeric ID ascending. Context
// and reference ordering is stable and human-predictable, independent of
// retrieval score.
func sortByNumericID(docs []*index.Document) []*index.Document {
	sorted := make([]*index.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NumericID() < sorted[j].NumericID()
	})
	return sorted
}

// buildContext renders retrieved documents into the evidence block sent to
// the generation model.
func buildContext(docs []*index.Document) string {
	sorted := sortByNumericID(docs)

	parts := make([]string, 0, len(sorted))
	for _, doc := range sorted {
		var b strings.Builder
		fmt.Fprintf(&b, "Work Item #%s: %s\n", doc.ItemID, doc.Title)
		fmt.Fprintf(&b, "Type: %s | State: %s | Assigned To: %s\n", doc.Type, doc.State, displayAssignee(doc.AssignedTo))
		if doc.Tags != "" {
			fmt.Fprintf(&b, "Tags: %s\n", doc.Tags)
		}
		if !doc.CreatedDate.IsZero() {
			fmt.Fprintf(&b, "Created: %s\n", doc.CreatedDate.UTC().Format(time.RFC3339))
		}
		if !doc.ChangedDate.IsZero() {
			fmt.Fprintf(&b, "Last Updated: %s\n", doc.ChangedDate.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n")
		b.WriteString(doc.Content)
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return strings.Join(parts, itemSeparator)
}

// countOnlyContext is the authoritative answer block sent in place of item
// bodies when the user asked for a bare count. The generation model is
// instructed to copy the number, never to count visible items: the retrieved
// page is capped and would silently undercount.
func countOnlyContext(count int) string {
	return fmt.Sprintf(`===== ANSWER: %d =====
The total count is %d. Provide this number as your complete answer.
Do not list individual items unless the user asked to see them.
==================`, count, count)
}

// countedContext prepends the authoritative count block above the item
// bodies for count queries that also want the items listed.
func countedContext(count int, docs []*index.Document) string {
	return fmt.Sprintf(`===== ANSWER: %d =====
The total count is %d. Use this number as your answer.
Below are %d sample items for reference.
==================

%s`, count, count, len(docs), buildContext(docs))
}

// buildReferences renders the trailing markdown reference list, one line per
// document, in ascending numeric ID order.
func buildReferences(docs []*index.Document) string {
	sorted := sortByNumericID(docs)

	lines := make([]string, 0, len(sorted))
	for _, doc := range sorted {
		url := doc.URL
		if url == "" {
			url = "#"
		}
		lines = append(lines, fmt.Sprintf("- [#%s](%s) - **%s** (%s - %s)",
			doc.ItemID, url, doc.Title, doc.Type, doc.State))
	}
	return strings.Join(lines, "\n")
}

func displayAssignee(name string) string {
	if name == "" {
		return "Unassigned"
	}
	return name
}
